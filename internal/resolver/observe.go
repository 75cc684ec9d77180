package resolver

import (
	"fmt"
	"math"
	"time"

	"github.com/star/starseeker/internal/catalog"
	"github.com/star/starseeker/internal/ephemeris"
	"github.com/star/starseeker/internal/sky"
	"github.com/star/starseeker/internal/transform"
)

const (
	auPerParsec = 206264.80624709636
	masToRad    = math.Pi / (180 * 3600 * 1000)
	daysPerYear = 365.25
	// Stars without a usable parallax are placed at 1 Gpc.
	farStarParsecs = 1e9
)

// observeBody returns the apparent place of an ephemeris body seen from the
// geocentre: light-time iterated target position, then annual aberration.
func (r *Resolver) observeBody(body ephemeris.Body, instant time.Time) (sky.Equatorial, error) {
	jd := transform.JulianDateTT(instant)

	earth, vEarth, err := r.earthState(jd)
	if err != nil {
		return sky.Equatorial{}, err
	}

	target, err := r.eph.Position(body, jd)
	if err != nil {
		return sky.Equatorial{}, fmt.Errorf("%w: %w", sky.ErrReferenceDataUnavailable, err)
	}
	rel := target.Sub(earth)
	for i := 0; i < 3; i++ {
		lt := rel.Norm() / ephemeris.SpeedOfLight
		if target, err = r.eph.Position(body, jd-lt); err != nil {
			return sky.Equatorial{}, fmt.Errorf("%w: %w", sky.ErrReferenceDataUnavailable, err)
		}
		rel = target.Sub(earth)
	}

	return toEquatorial(aberrate(rel, vEarth))
}

// observeStar propagates a catalog star by proper motion from the catalog
// epoch and applies parallax and annual aberration.
func (r *Resolver) observeStar(s catalog.Star, instant time.Time) (sky.Equatorial, error) {
	jd := transform.JulianDateTT(instant)

	earth, vEarth, err := r.earthState(jd)
	if err != nil {
		return sky.Equatorial{}, err
	}

	parsecs := farStarParsecs
	if s.ParallaxMas > 0 {
		parsecs = 1000 / s.ParallaxMas
	}
	dist := parsecs * auPerParsec

	ra := s.RADeg * math.Pi / 180
	dec := s.DecDeg * math.Pi / 180
	pos := transform.SphericalToVector(ra, dec).Scale(dist)

	east := transform.Vector3{X: -math.Sin(ra), Y: math.Cos(ra)}
	north := transform.Vector3{X: -math.Sin(dec) * math.Cos(ra), Y: -math.Sin(dec) * math.Sin(ra), Z: math.Cos(dec)}
	perDay := masToRad / daysPerYear * dist
	vel := east.Scale(s.PMRAMasYr * perDay).Add(north.Scale(s.PMDecMasYr * perDay))

	rel := pos.Add(vel.Scale(jd - catalog.EpochJD)).Sub(earth)
	return toEquatorial(aberrate(rel, vEarth))
}

func (r *Resolver) earthState(jd float64) (pos, vel transform.Vector3, err error) {
	pos, err = r.eph.Position(ephemeris.Earth, jd)
	if err != nil {
		return pos, vel, fmt.Errorf("%w: %w", sky.ErrReferenceDataUnavailable, err)
	}
	vel, err = ephemeris.Velocity(r.eph, ephemeris.Earth, jd)
	if err != nil {
		return pos, vel, fmt.Errorf("%w: %w", sky.ErrReferenceDataUnavailable, err)
	}
	return pos, vel, nil
}

// aberrate shifts direction p by the observer velocity v (AU/day), first order.
func aberrate(p, v transform.Vector3) transform.Vector3 {
	return p.Unit().Add(v.Scale(1 / ephemeris.SpeedOfLight)).Unit()
}

func toEquatorial(v transform.Vector3) (sky.Equatorial, error) {
	if !v.IsFinite() || v.Norm() == 0 {
		return sky.Equatorial{}, fmt.Errorf("%w: degenerate position vector", sky.ErrReferenceDataUnavailable)
	}
	ra, dec := transform.VectorToRADec(v)
	return sky.Equatorial{RAHours: ra, DecDeg: dec}, nil
}
