package resolver

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/star/starseeker/internal/metrics"
	"github.com/star/starseeker/internal/propagation"
	"github.com/star/starseeker/internal/sky"
	"github.com/star/starseeker/internal/tle"
	"github.com/star/starseeker/internal/transform"
)

// resolveSatellite fetches the live element sets, propagates the named
// satellite with SGP4 and returns its topocentric direction from the
// configured observer on J2000 axes.
func (r *Resolver) resolveSatellite(ctx context.Context, name string, instant time.Time) (sky.Equatorial, error) {
	if r.sats == nil {
		return sky.Equatorial{}, fmt.Errorf("%w: no satellite source configured", sky.ErrReferenceDataUnavailable)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.satTimeout)
	defer cancel()
	fetchCtx, span := r.tracer.Start(fetchCtx, "resolver.FetchSatellites")
	entries, err := r.sats.Satellites(fetchCtx)
	span.End()
	metrics.ObserveSatelliteFetch(err, len(entries))
	if err != nil {
		return sky.Equatorial{}, fmt.Errorf("%w: fetching satellite elements: %w", sky.ErrReferenceDataUnavailable, err)
	}

	entry, ok := tle.FindByName(entries, name)
	if id, err := strconv.Atoi(strings.TrimSpace(name)); !ok && err == nil {
		entry, ok = tle.FindByNORAD(entries, id)
	}
	if !ok {
		return sky.Equatorial{}, fmt.Errorf("%w: no satellite named %q among %d element sets", sky.ErrUnknownObject, name, len(entries))
	}

	prop, err := propagation.NewSGP4Propagator(entry)
	if err != nil {
		return sky.Equatorial{}, fmt.Errorf("%w: %w", sky.ErrReferenceDataUnavailable, err)
	}
	teme, err := prop.PropagateAt(instant)
	if err != nil {
		return sky.Equatorial{}, fmt.Errorf("%w: %w", sky.ErrReferenceDataUnavailable, err)
	}

	obs := transform.NewObserverPosition(r.observer.LatDeg, r.observer.LonDeg, r.observer.HeightM)
	topo := teme.Vector().Sub(obs.TEMEKm(transform.GMST(instant)))

	r.logger.Debug("satellite propagated", "component", "resolver",
		"name", entry.Name, "norad_id", entry.NORADID, "range_km", topo.Norm(),
		"element_age_hours", instant.Sub(entry.Epoch).Hours())

	return toEquatorial(transform.TEMEToJ2000(topo, instant))
}
