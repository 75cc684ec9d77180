// Package mount maps sky azimuth/altitude onto the joint angles of a
// two-axis mount whose azimuth axis covers only a forward sector. Targets
// behind the mount are reached by swinging the altitude arm over the zenith.
package mount

import (
	"fmt"
	"math"

	"github.com/star/starseeker/internal/sky"
)

// Law describes the fold between sky and mount coordinates.
type Law struct {
	// ForwardDeg is the compass azimuth the mount faces at joint azimuth 0.
	ForwardDeg float64 `yaml:"forward_azimuth" json:"forward_azimuth"`
	// HalfWidthDeg bounds the near sector, forward ± half width. The boundary belongs to the near sector.
	HalfWidthDeg float64 `yaml:"half_width" json:"half_width"`
	// MirrorFar folds far-sector targets over the zenith: az-180, 180-alt.
	MirrorFar bool `yaml:"mirror_far" json:"mirror_far"`
	// Reverse flips the sign of joint azimuth for counter-clockwise mounts.
	Reverse bool `yaml:"reverse" json:"reverse"`
}

// DefaultLaw is the fold of the reference mount: forward due north, ±90°.
func DefaultLaw() Law {
	return Law{ForwardDeg: 0, HalfWidthDeg: 90, MirrorFar: true}
}

// Validate checks the law parameters.
func (l Law) Validate() error {
	if math.IsNaN(l.ForwardDeg) || math.IsInf(l.ForwardDeg, 0) {
		return fmt.Errorf("forward azimuth must be finite")
	}
	if !(l.HalfWidthDeg > 0 && l.HalfWidthDeg < 180) {
		return fmt.Errorf("half width %.3f must be in (0, 180)", l.HalfWidthDeg)
	}
	return nil
}

// Range is the joint-space window a law produces for targets above the horizon.
type Range struct {
	AzimuthMin  float64 `json:"azimuth_min"`
	AzimuthMax  float64 `json:"azimuth_max"`
	AltitudeMin float64 `json:"altitude_min"`
	AltitudeMax float64 `json:"altitude_max"`
}

// Range returns the joint-space window of l.
func (l Law) Range() Range {
	if !l.MirrorFar {
		return Range{AzimuthMin: -180, AzimuthMax: 180, AltitudeMin: 0, AltitudeMax: 90}
	}
	w := math.Max(l.HalfWidthDeg, 180-l.HalfWidthDeg)
	return Range{AzimuthMin: -w, AzimuthMax: w, AltitudeMin: 0, AltitudeMax: 180}
}

// Contains reports whether joint angles m fall inside l's range.
func (l Law) Contains(m sky.Horizontal) bool {
	r := l.Range()
	return m.AzimuthDeg >= r.AzimuthMin && m.AzimuthDeg <= r.AzimuthMax &&
		m.AltitudeDeg >= r.AltitudeMin && m.AltitudeDeg <= r.AltitudeMax
}

// Remap converts a sky azimuth/altitude into mount joint angles.
func (l Law) Remap(h sky.Horizontal) sky.Horizontal {
	rel := wrap180(h.AzimuthDeg - l.ForwardDeg)
	out := sky.Horizontal{AzimuthDeg: rel, AltitudeDeg: h.AltitudeDeg}
	if l.MirrorFar && math.Abs(rel) > l.HalfWidthDeg {
		out = sky.Horizontal{AzimuthDeg: wrap180(rel - 180), AltitudeDeg: 180 - h.AltitudeDeg}
	}
	if l.Reverse {
		out.AzimuthDeg = -out.AzimuthDeg
	}
	return out
}

// Revert converts mount joint angles back into sky azimuth/altitude. At the
// zenith the azimuth is not recoverable and the near-sector reading is returned.
func (l Law) Revert(m sky.Horizontal) sky.Horizontal {
	a := m.AzimuthDeg
	if l.Reverse {
		a = -a
	}
	rel, alt := a, m.AltitudeDeg
	if l.MirrorFar && m.AltitudeDeg > 90 {
		rel, alt = wrap180(a+180), 180-m.AltitudeDeg
	}
	return sky.Horizontal{AzimuthDeg: wrap360(rel + l.ForwardDeg), AltitudeDeg: alt}
}

// Direction returns the unit pointing vector (east, north, up) of joint
// angles m, reading altitudes past 90° as over the zenith. Both joint
// solutions for one sky direction give the same vector.
func (l Law) Direction(m sky.Horizontal) [3]float64 {
	a := m.AzimuthDeg
	if l.Reverse {
		a = -a
	}
	az := (a + l.ForwardDeg) * math.Pi / 180
	alt := m.AltitudeDeg * math.Pi / 180
	return [3]float64{
		math.Cos(alt) * math.Sin(az),
		math.Cos(alt) * math.Cos(az),
		math.Sin(alt),
	}
}

// wrap180 maps an angle into [-180, 180).
func wrap180(d float64) float64 {
	d = math.Mod(d+180, 360)
	if d < 0 {
		d += 360
	}
	return d - 180
}

// wrap360 maps an angle into [0, 360).
func wrap360(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}
