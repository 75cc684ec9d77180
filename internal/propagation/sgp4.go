// Package propagation wraps the go-satellite SGP4 implementation.
//
// go-satellite's Propagate takes whole seconds and hides SGP4 error codes,
// so failures are detected from the output (NaN/Inf or an implausible
// radius) and sub-second instants are interpolated between neighbouring
// seconds.
package propagation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/star/starseeker/internal/tle"
	"github.com/star/starseeker/internal/transform"
)

// SGP4Propagator propagates a single satellite.
type SGP4Propagator struct {
	sat     satellite.Satellite
	noradID int
	name    string
}

// NewSGP4Propagator creates a propagator from an element set.
//
// Lines are validated first because go-satellite calls log.Fatal on
// malformed input.
func NewSGP4Propagator(e tle.TLEEntry) (*SGP4Propagator, error) {
	line1 := strings.TrimSpace(e.Line1)
	line2 := strings.TrimSpace(e.Line2)
	if err := validateTLELines(line1, line2); err != nil {
		return nil, fmt.Errorf("invalid TLE for NORAD %d: %w", e.NORADID, err)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for NORAD %d: code=%d %s", e.NORADID, sat.Error, sat.ErrorStr)
	}
	return &SGP4Propagator{sat: sat, noradID: e.NORADID, name: e.Name}, nil
}

func validateTLELines(line1, line2 string) error {
	if line1 == "" || line2 == "" || line1[0] != '1' || line2[0] != '2' {
		return errors.New("lines must start with '1' and '2'")
	}
	if err := tle.VerifyChecksum(line1); err != nil {
		return fmt.Errorf("line1: %w", err)
	}
	if err := tle.VerifyChecksum(line2); err != nil {
		return fmt.Errorf("line2: %w", err)
	}
	return checkFields(line1, line2)
}

// checkFields parses every field go-satellite reads, with the same column
// slicing, so TLEToSat never meets a value it cannot parse.
func checkFields(line1, line2 string) error {
	squeeze := func(s string) string { return strings.Replace(s, " ", "", 2) }

	ints := []struct{ name, value string }{
		{"catalog number", strings.TrimSpace(line1[2:7])},
		{"epoch year", line1[18:20]},
	}
	for _, f := range ints {
		if _, err := strconv.ParseInt(f.value, 10, 0); err != nil {
			return fmt.Errorf("%s %q: %w", f.name, f.value, err)
		}
	}

	floats := []struct{ name, value string }{
		{"epoch day", line1[20:32]},
		{"mean motion derivative", squeeze(line1[33:43])},
		{"mean motion second derivative", squeeze(line1[44:45] + "." + line1[45:50] + "e" + line1[50:52])},
		{"bstar", squeeze(line1[53:54] + "." + line1[54:59] + "e" + line1[59:61])},
		{"inclination", squeeze(line2[8:16])},
		{"right ascension of node", squeeze(line2[17:25])},
		{"eccentricity", "." + line2[26:33]},
		{"argument of perigee", squeeze(line2[34:42])},
		{"mean anomaly", squeeze(line2[43:51])},
		{"mean motion", squeeze(line2[52:63])},
	}
	for _, f := range floats {
		if _, err := strconv.ParseFloat(f.value, 64); err != nil {
			return fmt.Errorf("%s %q: %w", f.name, f.value, err)
		}
	}
	return nil
}

// NORADID returns the catalog number being propagated.
func (p *SGP4Propagator) NORADID() int { return p.noradID }

// propagateSecond propagates to a whole-second UTC instant.
func (p *SGP4Propagator) propagateSecond(t time.Time) (transform.PositionTEME, error) {
	pos, vel := satellite.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) ||
		math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return transform.PositionTEME{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: output is NaN/Inf", p.noradID)
	}

	// Between ~6200 km (decayed) and ~50000 km (beyond GEO).
	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if mag < 6200.0 || mag > 50000.0 {
		return transform.PositionTEME{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: unreasonable position magnitude %.1f km", p.noradID, mag)
	}

	return transform.PositionTEME{X: pos.X, Y: pos.Y, Z: pos.Z, VX: vel.X, VY: vel.Y, VZ: vel.Z}, nil
}

// PropagateAt returns the TEME state (km, km/s) at instant t.
func (p *SGP4Propagator) PropagateAt(t time.Time) (transform.PositionTEME, error) {
	t = t.UTC()
	base := t.Truncate(time.Second)
	s0, err := p.propagateSecond(base)
	if err != nil {
		return transform.PositionTEME{}, err
	}
	frac := t.Sub(base).Seconds()
	if frac == 0 {
		return s0, nil
	}
	s1, err := p.propagateSecond(base.Add(time.Second))
	if err != nil {
		return transform.PositionTEME{}, err
	}
	lerp := func(a, b float64) float64 { return a + (b-a)*frac }
	return transform.PositionTEME{
		X: lerp(s0.X, s1.X), Y: lerp(s0.Y, s1.Y), Z: lerp(s0.Z, s1.Z),
		VX: lerp(s0.VX, s1.VX), VY: lerp(s0.VY, s1.VY), VZ: lerp(s0.VZ, s1.VZ),
	}, nil
}
