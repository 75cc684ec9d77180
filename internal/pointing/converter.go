// Package pointing converts resolved positions into mount commands and
// runs the full resolve, convert and transmit sequence.
package pointing

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/star/starseeker/internal/mount"
	"github.com/star/starseeker/internal/sky"
	"github.com/star/starseeker/internal/transform"
)

// Pointing is a converted direction: the sky azimuth/altitude and the
// joint angles the mount is driven to.
type Pointing struct {
	Raw   sky.Horizontal `json:"raw"`
	Mount sky.Horizontal `json:"mount"`
}

// Converter turns equatorial coordinates into pointings. The remap law can
// be swapped while conversions are running.
type Converter struct {
	law atomic.Pointer[mount.Law]
}

// NewConverter returns a Converter using law.
func NewConverter(law mount.Law) (*Converter, error) {
	c := &Converter{}
	if err := c.SetLaw(law); err != nil {
		return nil, err
	}
	return c, nil
}

// SetLaw replaces the remap law.
func (c *Converter) SetLaw(law mount.Law) error {
	if err := law.Validate(); err != nil {
		return fmt.Errorf("mount law: %w", err)
	}
	c.law.Store(&law)
	return nil
}

// Law returns the active remap law.
func (c *Converter) Law() mount.Law {
	return *c.law.Load()
}

// Convert computes the horizontal and mount coordinates of eq seen from loc
// at instant. It reads no clock.
func (c *Converter) Convert(eq sky.Equatorial, loc sky.Location, instant time.Time) (Pointing, error) {
	if err := eq.Validate(); err != nil {
		return Pointing{}, err
	}
	if err := loc.Validate(); err != nil {
		return Pointing{}, err
	}
	if instant.IsZero() {
		return Pointing{}, fmt.Errorf("%w: zero instant", sky.ErrConversionInputInvalid)
	}

	az, alt := transform.HorizontalFromEquatorial(eq.RAHours, eq.DecDeg, loc.LatDeg, loc.LonDeg, instant.UTC())
	raw := sky.Horizontal{AzimuthDeg: az, AltitudeDeg: alt}
	return Pointing{Raw: raw, Mount: c.Law().Remap(raw)}, nil
}
