package resolver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/star/starseeker/internal/catalog"
	"github.com/star/starseeker/internal/ephemeris"
	"github.com/star/starseeker/internal/propagation"
	"github.com/star/starseeker/internal/sky"
	"github.com/star/starseeker/internal/tle"
	"github.com/star/starseeker/internal/transform"
)

var (
	site    = sky.Location{LatDeg: 52.41, LonDeg: 12.54, HeightM: 36}
	instant = time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	issTLE  = tle.TLEEntry{
		NORADID: 25544,
		Name:    "ISS (ZARYA)",
		Epoch:   time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC),
		Line1:   "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9009",
		Line2:   "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    01",
	}
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type stubSource struct {
	entries []tle.TLEEntry
	err     error
	delay   time.Duration
}

func (s stubSource) Satellites(ctx context.Context) ([]tle.TLEEntry, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.entries, s.err
}

func newResolver(t *testing.T, src SatelliteSource, opts ...Option) *Resolver {
	t.Helper()
	cat, err := catalog.NewLoader("", testLogger()).Load()
	if err != nil {
		t.Fatalf("loading catalog: %v", err)
	}
	return New(ephemeris.NewAnalytic(), cat, src, site, testLogger(), opts...)
}

func TestEveryPlanetResolves(t *testing.T) {
	r := newResolver(t, nil)
	for _, name := range PlanetNames() {
		eq, err := r.Resolve(context.Background(), name, sky.CategoryPlanet, instant)
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if err := eq.Validate(); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestPlanetNamesCaseInsensitive(t *testing.T) {
	r := newResolver(t, nil)
	a, err := r.Resolve(context.Background(), "Jupiter", sky.CategoryPlanet, instant)
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Resolve(context.Background(), " JUPITER ", sky.CategoryPlanet, instant)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("%+v != %+v", a, b)
	}
}

func TestSunAsStarEqualsSunAsPlanet(t *testing.T) {
	r := newResolver(t, nil)
	star, err := r.Resolve(context.Background(), "Sun", sky.CategoryStar, instant)
	if err != nil {
		t.Fatal(err)
	}
	planet, err := r.Resolve(context.Background(), "Sun", sky.CategoryPlanet, instant)
	if err != nil {
		t.Fatal(err)
	}
	if star != planet {
		t.Errorf("star %+v != planet %+v", star, planet)
	}
}

func TestSunAtSolsticeAndEquinox(t *testing.T) {
	r := newResolver(t, nil)

	sol, err := r.Resolve(context.Background(), "sun", sky.CategoryPlanet, time.Date(2024, 6, 20, 20, 51, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(sol.DecDeg-23.439) > 0.05 {
		t.Errorf("solstice declination = %.4f", sol.DecDeg)
	}

	eqx, err := r.Resolve(context.Background(), "sun", sky.CategoryPlanet, time.Date(2024, 3, 20, 3, 6, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	ra := eqx.RAHours
	if ra > 12 {
		ra -= 24
	}
	if math.Abs(eqx.DecDeg) > 0.3 || math.Abs(ra) > 0.05 {
		t.Errorf("equinox sun at RA %.4f h, Dec %.4f", eqx.RAHours, eqx.DecDeg)
	}
}

func TestUnknownObjects(t *testing.T) {
	r := newResolver(t, stubSource{entries: []tle.TLEEntry{issTLE}})
	tests := []struct {
		name     string
		category sky.Category
	}{
		{"NotARealStar123", sky.CategoryStar},
		{"999999", sky.CategoryStar},
		{"vulcan", sky.CategoryPlanet},
		{"earth", sky.CategoryPlanet},
		{"Hubble", sky.CategorySatellite},
		{"20580", sky.CategorySatellite},
	}
	for _, tt := range tests {
		_, err := r.Resolve(context.Background(), tt.name, tt.category, instant)
		if !errors.Is(err, sky.ErrUnknownObject) {
			t.Errorf("%s/%s: err = %v, want ErrUnknownObject", tt.name, tt.category, err)
		}
	}
}

func TestUnknownCategory(t *testing.T) {
	r := newResolver(t, nil)
	for _, c := range []sky.Category{0, 99} {
		if _, err := r.Resolve(context.Background(), "Mars", c, instant); !errors.Is(err, sky.ErrUnknownCategory) {
			t.Errorf("category %d: err = %v", c, err)
		}
	}
}

func TestStarByNumber(t *testing.T) {
	r := newResolver(t, nil)
	byName, err := r.Resolve(context.Background(), "Sirius", sky.CategoryStar, instant)
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range []string{"32349", "HIP 32349", "hip 32349"} {
		got, err := r.Resolve(context.Background(), n, sky.CategoryStar, instant)
		if err != nil || got != byName {
			t.Errorf("%q: %+v, %v", n, got, err)
		}
	}
	if math.Abs(byName.RAHours-6.7526) > 0.005 || math.Abs(byName.DecDeg-(-16.72)) > 0.05 {
		t.Errorf("Sirius at %+v", byName)
	}
}

func TestStarFromFullCatalog(t *testing.T) {
	row := "H|  9884| |02 07 10.29|+23 27 46.0| 2.01| |G|031.79327500|+23.46277044| |  49.48|  190.73| -145.77|\n"
	cat, err := catalog.Parse(strings.NewReader(row), "test", testLogger())
	if err != nil {
		t.Fatal(err)
	}
	r := New(ephemeris.NewAnalytic(), cat, nil, site, testLogger())

	byName, err := r.Resolve(context.Background(), "Hamal", sky.CategoryStar, instant)
	if err != nil {
		t.Fatal(err)
	}
	byNumber, err := r.Resolve(context.Background(), "9884", sky.CategoryStar, instant)
	if err != nil || byNumber != byName {
		t.Fatalf("by number %+v, %v; by name %+v", byNumber, err, byName)
	}
	if math.Abs(byName.RAHours-2.1196) > 0.01 || math.Abs(byName.DecDeg-23.463) > 0.05 {
		t.Errorf("Hamal at %+v", byName)
	}
}

func TestStarWithoutCatalog(t *testing.T) {
	r := New(ephemeris.NewAnalytic(), nil, nil, site, testLogger())
	_, err := r.Resolve(context.Background(), "Vega", sky.CategoryStar, instant)
	if !errors.Is(err, sky.ErrReferenceDataUnavailable) {
		t.Fatalf("err = %v, want ErrReferenceDataUnavailable", err)
	}
	// The sun needs no catalog.
	if _, err := r.Resolve(context.Background(), "sun", sky.CategoryStar, instant); err != nil {
		t.Fatal(err)
	}
}

func TestBarnardsStarProperMotion(t *testing.T) {
	r := newResolver(t, nil)
	eq, err := r.Resolve(context.Background(), "barnard's star", sky.CategoryStar, instant)
	if err != nil {
		t.Fatal(err)
	}
	// 10.33"/yr north for 33 years since J1991.25.
	if math.Abs(eq.DecDeg-4.763) > 0.012 {
		t.Errorf("Barnard's star declination = %.5f, want ~4.763", eq.DecDeg)
	}
}

func TestPolarisAltitudeNearLatitude(t *testing.T) {
	r := newResolver(t, nil)
	eq, err := r.Resolve(context.Background(), "polaris", sky.CategoryStar, instant)
	if err != nil {
		t.Fatal(err)
	}
	_, alt := transform.HorizontalFromEquatorial(eq.RAHours, eq.DecDeg, site.LatDeg, site.LonDeg, instant)
	if math.Abs(alt-site.LatDeg) > 1.0 {
		t.Errorf("Polaris altitude = %.3f, latitude %.3f", alt, site.LatDeg)
	}
}

func TestMoonIgnoresName(t *testing.T) {
	r := newResolver(t, nil)
	a, err := r.Resolve(context.Background(), "moon", sky.CategoryMoon, instant)
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Resolve(context.Background(), "luna", sky.CategoryMoon, instant)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("%+v != %+v", a, b)
	}
}

func TestSatelliteByCatalogNumber(t *testing.T) {
	r := newResolver(t, stubSource{entries: []tle.TLEEntry{issTLE}})
	byName, err := r.Resolve(context.Background(), "ISS (ZARYA)", sky.CategorySatellite, instant)
	if err != nil {
		t.Fatal(err)
	}
	byID, err := r.Resolve(context.Background(), " 25544 ", sky.CategorySatellite, instant)
	if err != nil {
		t.Fatal(err)
	}
	if byName != byID {
		t.Errorf("by name %+v, by NORAD id %+v", byName, byID)
	}
}

func TestSatelliteMatchesLookAngles(t *testing.T) {
	r := newResolver(t, stubSource{entries: []tle.TLEEntry{issTLE}})
	eq, err := r.Resolve(context.Background(), "iss (zarya)", sky.CategorySatellite, instant)
	if err != nil {
		t.Fatal(err)
	}
	az, alt := transform.HorizontalFromEquatorial(eq.RAHours, eq.DecDeg, site.LatDeg, site.LonDeg, instant)

	prop, err := propagation.NewSGP4Propagator(issTLE)
	if err != nil {
		t.Fatal(err)
	}
	teme, err := prop.PropagateAt(instant)
	if err != nil {
		t.Fatal(err)
	}
	ecef := transform.TEMEToECEF(teme, instant)
	obs := transform.NewObserverPosition(site.LatDeg, site.LonDeg, site.HeightM)
	la := transform.ECEFToLookAngles(obs, ecef.X, ecef.Y, ecef.Z)

	if math.Abs(alt-la.ElevationDeg) > 1e-3 {
		t.Errorf("altitude %.5f vs look-angle elevation %.5f", alt, la.ElevationDeg)
	}
	d := math.Abs(az - la.AzimuthDeg)
	if d > 180 {
		d = 360 - d
	}
	if d > 1e-3 {
		t.Errorf("azimuth %.5f vs look-angle azimuth %.5f", az, la.AzimuthDeg)
	}
}

func TestSatelliteFetchFailureIsReferenceDataUnavailable(t *testing.T) {
	r := newResolver(t, stubSource{err: errors.New("connection refused")})
	_, err := r.Resolve(context.Background(), "ISS (ZARYA)", sky.CategorySatellite, instant)
	if !errors.Is(err, sky.ErrReferenceDataUnavailable) {
		t.Fatalf("err = %v, want ErrReferenceDataUnavailable", err)
	}
	if errors.Is(err, sky.ErrUnknownObject) {
		t.Fatal("fetch failure must not look like an unknown object")
	}
}

func TestSatelliteGarbledElementsAreReferenceDataUnavailable(t *testing.T) {
	garbled := issTLE
	line2 := garbled.Line2[:8] + " 5X.6400" + garbled.Line2[16:68]
	garbled.Line2 = line2 + strconv.Itoa(tle.Checksum(line2))

	r := newResolver(t, stubSource{entries: []tle.TLEEntry{garbled}})
	_, err := r.Resolve(context.Background(), "ISS (ZARYA)", sky.CategorySatellite, instant)
	if !errors.Is(err, sky.ErrReferenceDataUnavailable) {
		t.Fatalf("err = %v, want ErrReferenceDataUnavailable", err)
	}
}

func TestSatelliteFetchTimeout(t *testing.T) {
	r := newResolver(t, stubSource{delay: time.Second}, WithSatelliteTimeout(20*time.Millisecond))
	start := time.Now()
	_, err := r.Resolve(context.Background(), "ISS (ZARYA)", sky.CategorySatellite, instant)
	if !errors.Is(err, sky.ErrReferenceDataUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("timeout not enforced")
	}
}

func TestNoSatelliteSource(t *testing.T) {
	r := newResolver(t, nil)
	if _, err := r.Resolve(context.Background(), "ISS", sky.CategorySatellite, instant); !errors.Is(err, sky.ErrReferenceDataUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestConcurrentResolution(t *testing.T) {
	r := newResolver(t, stubSource{entries: []tle.TLEEntry{issTLE}})
	want, err := r.Resolve(context.Background(), "mars", sky.CategoryPlanet, instant)
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.Resolve(context.Background(), "mars", sky.CategoryPlanet, instant)
			if err != nil || got != want {
				t.Errorf("concurrent resolve: %+v, %v", got, err)
			}
			if _, err := r.Resolve(context.Background(), "ISS (ZARYA)", sky.CategorySatellite, instant); err != nil {
				t.Errorf("concurrent satellite: %v", err)
			}
		}()
	}
	wg.Wait()
}
