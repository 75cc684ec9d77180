// Package sky holds the value types shared by the resolution pipeline:
// object categories, coordinates, the observer location and error kinds.
package sky

import (
	"fmt"
	"math"
	"strings"
)

// Category is the closed set of object kinds the resolver understands.
type Category int

const (
	CategoryStar Category = iota + 1
	CategoryPlanet
	CategoryMoon
	CategorySatellite
)

var categoryNames = map[Category]string{
	CategoryStar:      "star",
	CategoryPlanet:    "planet",
	CategoryMoon:      "moon",
	CategorySatellite: "satellite",
}

// Categories lists every valid category.
func Categories() []Category {
	return []Category{CategoryStar, CategoryPlanet, CategoryMoon, CategorySatellite}
}

func (c Category) String() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// ParseCategory parses a category label case-insensitively.
func ParseCategory(s string) (Category, error) {
	label := strings.ToLower(strings.TrimSpace(s))
	for c, n := range categoryNames {
		if n == label {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(b []byte) error {
	v, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Request names an object to point at.
type Request struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
}

// Equatorial is an apparent right ascension / declination on ICRS axes.
type Equatorial struct {
	RAHours float64 `json:"ra_hours"`
	DecDeg  float64 `json:"dec_deg"`
}

// Validate checks the coordinate ranges.
func (e Equatorial) Validate() error {
	if math.IsNaN(e.RAHours) || math.IsNaN(e.DecDeg) {
		return fmt.Errorf("%w: NaN equatorial coordinate", ErrConversionInputInvalid)
	}
	if e.RAHours < 0 || e.RAHours >= 24 {
		return fmt.Errorf("%w: right ascension %.6f h outside [0,24)", ErrConversionInputInvalid, e.RAHours)
	}
	if e.DecDeg < -90 || e.DecDeg > 90 {
		return fmt.Errorf("%w: declination %.6f deg outside [-90,90]", ErrConversionInputInvalid, e.DecDeg)
	}
	return nil
}

// Horizontal is an azimuth (0 = North, clockwise) / altitude pair in degrees.
type Horizontal struct {
	AzimuthDeg  float64 `json:"azimuth_deg"`
	AltitudeDeg float64 `json:"altitude_deg"`
}

// Location is a geodetic observer position.
type Location struct {
	LatDeg  float64 `json:"lat_deg" yaml:"latitude"`
	LonDeg  float64 `json:"lon_deg" yaml:"longitude"`
	HeightM float64 `json:"height_m" yaml:"height"`
}

// Validate checks the location ranges.
func (l Location) Validate() error {
	if math.IsNaN(l.LatDeg) || math.IsNaN(l.LonDeg) || math.IsNaN(l.HeightM) {
		return fmt.Errorf("%w: NaN observer coordinate", ErrConversionInputInvalid)
	}
	if l.LatDeg < -90 || l.LatDeg > 90 {
		return fmt.Errorf("%w: latitude %.6f outside [-90,90]", ErrConversionInputInvalid, l.LatDeg)
	}
	if l.LonDeg < -180 || l.LonDeg > 360 {
		return fmt.Errorf("%w: longitude %.6f outside [-180,360]", ErrConversionInputInvalid, l.LonDeg)
	}
	return nil
}
