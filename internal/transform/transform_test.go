package transform

import (
	"math"
	"testing"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

func TestJulianDate(t *testing.T) {
	tests := []struct {
		name     string
		time     time.Time
		expected float64
	}{
		{"J2000.0 epoch", time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC), 2451545.0},
		{"Unix epoch", time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), 2440587.5},
		{"Vallado example date", time.Date(2004, 4, 6, 7, 51, 28, 386009000, time.UTC), 2453101.827411875},
		{"non-UTC location", time.Date(2000, 1, 1, 13, 0, 0, 0, time.FixedZone("CET", 3600)), 2451545.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JulianDate(tt.time)
			if diff := math.Abs(got - tt.expected); diff > 1e-6 {
				t.Errorf("JulianDate(%v) = %.10f, want %.10f (diff=%.2e)", tt.time, got, tt.expected, diff)
			}
		})
	}
}

func TestTTMinusUTC(t *testing.T) {
	tests := []struct {
		time time.Time
		want float64
	}{
		{time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), 64.184},
		{time.Date(2016, 12, 31, 23, 59, 59, 0, time.UTC), 68.184},
		{time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), 69.184},
		{time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), 69.184},
	}
	for _, tt := range tests {
		if got := TTMinusUTC(tt.time); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("TTMinusUTC(%v) = %v, want %v", tt.time, got, tt.want)
		}
	}
}

// GMST is checked against go-satellite's GSTimeFromDate, which uses the same IAU-82 model.
func TestGMST(t *testing.T) {
	times := []time.Time{
		time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2004, 4, 6, 7, 51, 28, 0, time.UTC),
		time.Date(2026, 2, 6, 4, 1, 0, 0, time.UTC),
	}
	for _, tm := range times {
		our := GMST(tm)
		ref := satellite.GSTimeFromDate(tm.Year(), int(tm.Month()), tm.Day(), tm.Hour(), tm.Minute(), tm.Second())
		if diff := math.Abs(our - ref); diff > 1e-8 {
			t.Errorf("GMST(%v) = %.12f rad, go-satellite = %.12f rad", tm, our, ref)
		}
	}
}

func TestGASTCloseToGMST(t *testing.T) {
	tm := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	diff := math.Abs(GAST(tm) - GMST(tm))
	if diff > math.Pi {
		diff = 2*math.Pi - diff
	}
	// The equation of the equinoxes never exceeds about 1.2 s of time.
	if diff > 1.3*15*arcsec2rad {
		t.Errorf("|GAST-GMST| = %.3e rad, too large", diff)
	}
}

func TestPrecessionOneCentury(t *testing.T) {
	P := PrecessionMatrix(1)

	// The J2000 equinox seen in the frame of date moves by zeta+z in RA and theta in Dec.
	ra, dec := VectorToRADec(P.Apply(Vector3{1, 0, 0}))
	wantRA := (2306.2181*2 + 0.30188 + 1.09468) / 3600.0
	if math.Abs(ra*15-wantRA) > 1e-3 {
		t.Errorf("equinox RA after one century = %.6f deg, want %.6f", ra*15, wantRA)
	}
	if math.Abs(dec-(2004.3109-0.42665)/3600.0) > 1e-3 {
		t.Errorf("equinox Dec after one century = %.6f deg", dec)
	}
}

func TestRotationsAreOrthonormal(t *testing.T) {
	for _, T := range []float64{-1, 0, 0.245, 0.5} {
		m := J2000ToTrueOfDate(T)
		id := m.Mul(m.Transpose())
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				want := 0.0
				if i == j {
					want = 1
				}
				if math.Abs(id[i][j]-want) > 1e-12 {
					t.Fatalf("T=%v: M·Mᵀ[%d][%d] = %v", T, i, j, id[i][j])
				}
			}
		}
	}
}

// Meeus example 22.a: 1987 April 10, 0h TD.
func TestNutationMeeusExample(t *testing.T) {
	T := (2446895.5 - j2000) / 36525.0
	n := NutationAt(T)

	if got := n.DeltaPsi / arcsec2rad; math.Abs(got-(-3.788)) > 0.5 {
		t.Errorf("Δψ = %.3f\", want -3.788\"", got)
	}
	if got := n.DeltaEpsilon / arcsec2rad; math.Abs(got-9.443) > 0.2 {
		t.Errorf("Δε = %.3f\", want 9.443\"", got)
	}
	wantEps := 23 + 26.0/60 + 36.850/3600
	if got := n.TrueEps() * rad2deg; math.Abs(got-wantEps) > 0.5/3600 {
		t.Errorf("ε = %.6f deg, want %.6f", got, wantEps)
	}
}

func TestHourAngleToHorizontal(t *testing.T) {
	tests := []struct {
		name            string
		haDeg, dec, lat float64
		wantAz, wantAlt float64
	}{
		{"meridian south of zenith", 0, 20, 50, 180, 60},
		{"meridian north of zenith", 0, 60, 50, 0, 80},
		{"setting on the equator", 90, 0, 50, 270, 0},
		{"rising on the equator", -90, 0, 50, 90, 0},
		{"pole", 123, 90, 52, 0, 52},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			az, alt := HourAngleToHorizontal(tt.haDeg*deg2rad, tt.dec*deg2rad, tt.lat*deg2rad)
			if math.Abs(alt-tt.wantAlt) > 1e-6 {
				t.Errorf("alt = %.6f, want %.6f", alt, tt.wantAlt)
			}
			d := math.Abs(az - tt.wantAz)
			if d > 180 {
				d = 360 - d
			}
			if d > 1e-6 {
				t.Errorf("az = %.6f, want %.6f", az, tt.wantAz)
			}
		})
	}
}

func TestHorizontalFromEquatorialDeterministic(t *testing.T) {
	tm := time.Date(2024, 12, 1, 21, 30, 0, 0, time.UTC)
	az1, alt1 := HorizontalFromEquatorial(6.75, -16.7, 52.41, 12.54, tm)
	az2, alt2 := HorizontalFromEquatorial(6.75, -16.7, 52.41, 12.54, tm)
	if az1 != az2 || alt1 != alt2 {
		t.Fatalf("repeated conversion differs: (%v,%v) vs (%v,%v)", az1, alt1, az2, alt2)
	}
	if az1 < 0 || az1 >= 360 || alt1 < -90 || alt1 > 90 {
		t.Fatalf("out of range: az=%v alt=%v", az1, alt1)
	}
}

func TestCelestialPoleAltitudeEqualsLatitude(t *testing.T) {
	tm := time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC)
	// The J2000 pole is within 0.2 deg of the pole of date for this epoch.
	for _, lat := range []float64{-33.9, 0.5, 52.41, 78.2} {
		_, alt := HorizontalFromEquatorial(0, 90, lat, 12.54, tm)
		if math.Abs(alt-lat) > 0.25 {
			t.Errorf("lat %.2f: pole altitude = %.4f", lat, alt)
		}
	}
}

func TestNewObserverPositionECEFMagnitude(t *testing.T) {
	obs := NewObserverPosition(0, 0, 0)
	mag := math.Sqrt(obs.ECEFx*obs.ECEFx + obs.ECEFy*obs.ECEFy + obs.ECEFz*obs.ECEFz)
	if math.Abs(mag-6378137.0) > 1.0 {
		t.Errorf("equatorial observer ECEF magnitude = %.1f m, want ~6378137 m", mag)
	}

	pole := NewObserverPosition(90, 0, 0)
	mag = math.Sqrt(pole.ECEFx*pole.ECEFx + pole.ECEFy*pole.ECEFy + pole.ECEFz*pole.ECEFz)
	if math.Abs(mag-6356752.3) > 1.0 {
		t.Errorf("polar observer ECEF magnitude = %.1f m, want ~6356752 m", mag)
	}
}

func TestObserverTEMERoundTrip(t *testing.T) {
	obs := NewObserverPosition(52.41, 12.54, 36)
	tm := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	v := obs.TEMEKm(GMST(tm))

	ecef := TEMEToECEF(PositionTEME{X: v.X, Y: v.Y, Z: v.Z}, tm)
	if d := math.Abs(ecef.X - obs.ECEFx); d > 1e-3 {
		t.Errorf("x round trip off by %.6f m", d)
	}
	if d := math.Abs(ecef.Y - obs.ECEFy); d > 1e-3 {
		t.Errorf("y round trip off by %.6f m", d)
	}
	if d := math.Abs(ecef.Z - obs.ECEFz); d > 1e-3 {
		t.Errorf("z round trip off by %.6f m", d)
	}
}

func TestECEFToLookAnglesOverhead(t *testing.T) {
	obs := NewObserverPosition(0, 0, 0)
	la := ECEFToLookAngles(obs, obs.ECEFx+400000, obs.ECEFy, obs.ECEFz)
	if math.Abs(la.ElevationDeg-90.0) > 0.1 {
		t.Errorf("overhead elevation = %.2f deg, want ~90", la.ElevationDeg)
	}
	if math.Abs(la.RangeKm-400.0) > 1.0 {
		t.Errorf("overhead range = %.2f km, want ~400", la.RangeKm)
	}
}

func TestTEMEToJ2000PreservesLength(t *testing.T) {
	tm := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	v := Vector3{4000, -3000, 4200}
	got := TEMEToJ2000(v, tm)
	if math.Abs(got.Norm()-v.Norm()) > 1e-9 {
		t.Errorf("length changed: %v -> %v", v.Norm(), got.Norm())
	}
}

func TestVectorToRADec(t *testing.T) {
	ra, dec := VectorToRADec(Vector3{0, -1, 0})
	if math.Abs(ra-18) > 1e-9 || math.Abs(dec) > 1e-9 {
		t.Errorf("(0,-1,0) -> ra=%v dec=%v, want 18h 0deg", ra, dec)
	}
	ra, dec = VectorToRADec(SphericalToVector(37.5*deg2rad, -12*deg2rad))
	if math.Abs(ra*15-37.5) > 1e-9 || math.Abs(dec+12) > 1e-9 {
		t.Errorf("round trip: ra=%v dec=%v", ra*15, dec)
	}
}
