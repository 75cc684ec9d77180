// Package ephemeris provides heliocentric positions of the Sun, planets,
// Earth and Moon in J2000 equatorial axes (AU), from analytic theories.
package ephemeris

import (
	"errors"
	"fmt"

	"github.com/star/starseeker/internal/transform"
)

// Body is the key of a body in an ephemeris.
type Body string

const (
	Sun     Body = "sun"
	Mercury Body = "mercury"
	Venus   Body = "venus"
	Earth   Body = "earth"
	Moon    Body = "moon"
	Mars    Body = "mars"
	Jupiter Body = "jupiter barycenter"
	Saturn  Body = "saturn barycenter"
	Uranus  Body = "uranus barycenter"
	Neptune Body = "neptune barycenter"
	Pluto   Body = "pluto barycenter"
)

// ErrUnsupportedBody is returned for a key the ephemeris does not carry.
var ErrUnsupportedBody = errors.New("body not in ephemeris")

// SpeedOfLight in AU per day.
const SpeedOfLight = 173.1446326846693

// Ephemeris returns the position of a body relative to the Sun at a
// Julian Date (TT), in AU on J2000 equatorial axes.
type Ephemeris interface {
	Position(body Body, jdTT float64) (transform.Vector3, error)
	Bodies() []Body
}

// Velocity estimates a body's velocity (AU/day) by central difference.
func Velocity(eph Ephemeris, body Body, jdTT float64) (transform.Vector3, error) {
	const h = 0.01 // days
	p1, err := eph.Position(body, jdTT-h)
	if err != nil {
		return transform.Vector3{}, err
	}
	p2, err := eph.Position(body, jdTT+h)
	if err != nil {
		return transform.Vector3{}, err
	}
	return p2.Sub(p1).Scale(1 / (2 * h)), nil
}

// Analytic combines Keplerian mean elements for the planets with a
// truncated lunar series. Accuracy is arcminute level over 1800-2050.
type Analytic struct{}

// NewAnalytic returns the analytic ephemeris.
func NewAnalytic() *Analytic { return &Analytic{} }

// Earth/Moon mass ratio.
const earthMoonRatio = 81.30056

// Bodies lists the supported keys.
func (a *Analytic) Bodies() []Body {
	return []Body{Sun, Mercury, Venus, Earth, Moon, Mars, Jupiter, Saturn, Uranus, Neptune, Pluto}
}

// Position implements Ephemeris.
func (a *Analytic) Position(body Body, jdTT float64) (transform.Vector3, error) {
	switch body {
	case Sun:
		return transform.Vector3{}, nil
	case Earth, Moon:
		emb, err := keplerPosition(elements[Earth], jdTT)
		if err != nil {
			return transform.Vector3{}, err
		}
		moon := MoonGeocentric(jdTT)
		earth := emb.Sub(moon.Scale(1 / (1 + earthMoonRatio)))
		if body == Earth {
			return earth, nil
		}
		return earth.Add(moon), nil
	}
	el, ok := elements[body]
	if !ok {
		return transform.Vector3{}, fmt.Errorf("%w: %q", ErrUnsupportedBody, body)
	}
	return keplerPosition(el, jdTT)
}
