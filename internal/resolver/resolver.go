// Package resolver turns an object name and category into an apparent
// right ascension and declination at a given instant.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/star/starseeker/internal/catalog"
	"github.com/star/starseeker/internal/ephemeris"
	"github.com/star/starseeker/internal/metrics"
	"github.com/star/starseeker/internal/sky"
	"github.com/star/starseeker/internal/tle"
)

const tracerName = "github.com/star/starseeker/internal/resolver"

// StarCatalog looks up stars by Hipparcos number.
type StarCatalog interface {
	Lookup(hip int) (catalog.Star, bool)
}

// SatelliteSource returns current element sets. Implementations fetch live.
type SatelliteSource interface {
	Satellites(ctx context.Context) ([]tle.TLEEntry, error)
}

// planetBodies maps spoken planet names to ephemeris keys.
var planetBodies = map[string]ephemeris.Body{
	"sun":     ephemeris.Sun,
	"mercury": ephemeris.Mercury,
	"venus":   ephemeris.Venus,
	"mars":    ephemeris.Mars,
	"jupiter": ephemeris.Jupiter,
	"saturn":  ephemeris.Saturn,
	"uranus":  ephemeris.Uranus,
	"neptune": ephemeris.Neptune,
	"pluto":   ephemeris.Pluto,
}

// PlanetNames returns the names accepted for the planet category.
func PlanetNames() []string {
	out := make([]string, 0, len(planetBodies))
	for n := range planetBodies {
		out = append(out, n)
	}
	return out
}

// Resolver resolves objects against injected, read-only reference data.
// It is safe for concurrent use.
type Resolver struct {
	eph        ephemeris.Ephemeris
	stars      StarCatalog
	sats       SatelliteSource
	observer   sky.Location
	satTimeout time.Duration
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSatelliteTimeout bounds the live satellite fetch.
func WithSatelliteTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.satTimeout = d
		}
	}
}

// New creates a Resolver. observer is used for satellites, whose apparent
// position depends on where they are seen from.
func New(eph ephemeris.Ephemeris, stars StarCatalog, sats SatelliteSource, observer sky.Location, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		eph:        eph,
		stars:      stars,
		sats:       sats,
		observer:   observer,
		satTimeout: 10 * time.Second,
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the apparent equatorial position of the named object at instant.
func (r *Resolver) Resolve(ctx context.Context, name string, category sky.Category, instant time.Time) (sky.Equatorial, error) {
	ctx, span := r.tracer.Start(ctx, "resolver.Resolve", trace.WithAttributes(
		attribute.String("object.name", name),
		attribute.String("object.category", category.String()),
	))
	defer span.End()

	start := time.Now()
	eq, err := r.resolve(ctx, strings.TrimSpace(name), category, instant.UTC())
	metrics.ObserveResolution(category.String(), sky.KindOf(err), time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, sky.KindOf(err))
		r.logger.Debug("resolution failed", "component", "resolver",
			"name", name, "category", category.String(), "kind", sky.KindOf(err), "error", err)
		return sky.Equatorial{}, err
	}
	span.SetAttributes(attribute.Float64("ra_hours", eq.RAHours), attribute.Float64("dec_deg", eq.DecDeg))
	return eq, nil
}

func (r *Resolver) resolve(ctx context.Context, name string, category sky.Category, instant time.Time) (sky.Equatorial, error) {
	switch category {
	case sky.CategoryStar:
		if strings.EqualFold(name, "sun") {
			return r.observeBody(ephemeris.Sun, instant)
		}
		star, err := r.lookupStar(name)
		if err != nil {
			return sky.Equatorial{}, err
		}
		return r.observeStar(star, instant)
	case sky.CategoryPlanet:
		body, ok := planetBodies[strings.ToLower(name)]
		if !ok {
			return sky.Equatorial{}, fmt.Errorf("%w: no planet named %q", sky.ErrUnknownObject, name)
		}
		return r.observeBody(body, instant)
	case sky.CategoryMoon:
		return r.observeBody(ephemeris.Moon, instant)
	case sky.CategorySatellite:
		return r.resolveSatellite(ctx, name, instant)
	default:
		return sky.Equatorial{}, fmt.Errorf("%w: %s", sky.ErrUnknownCategory, category)
	}
}

// lookupStar resolves a proper name, or failing that a Hipparcos number.
func (r *Resolver) lookupStar(name string) (catalog.Star, error) {
	hip, ok := catalog.LookupName(name)
	if !ok {
		n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(name), "HIP "))
		if err != nil || n <= 0 {
			return catalog.Star{}, fmt.Errorf("%w: no star named %q", sky.ErrUnknownObject, name)
		}
		hip = n
	}
	if r.stars == nil {
		return catalog.Star{}, fmt.Errorf("%w: no star catalog loaded", sky.ErrReferenceDataUnavailable)
	}
	star, ok := r.stars.Lookup(hip)
	if !ok {
		return catalog.Star{}, fmt.Errorf("%w: HIP %d not in catalog", sky.ErrUnknownObject, hip)
	}
	return star, nil
}
