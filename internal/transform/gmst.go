package transform

import (
	"math"
	"time"
)

// j2000 is the Julian Date of the J2000.0 epoch (January 1, 2000, 12:00:00 TT).
const j2000 = 2451545.0

// OmegaEarth is Earth's rotation rate in rad/s (IAU value).
const OmegaEarth = 7.292115146706979e-5

// JulianDate converts a time.Time (UTC) to Julian Date.
// Uses the standard astronomical algorithm valid for dates after March 1, 4801 BC.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	h := float64(t.Hour())
	min := float64(t.Minute())
	s := float64(t.Second()) + float64(t.Nanosecond())/1e9

	if m <= 2 {
		y -= 1
		m += 12
	}

	A := math.Floor(y / 100)
	B := 2 - A + math.Floor(A/4)

	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + B - 1524.5
	jd += (h + min/60.0 + s/3600.0) / 24.0

	return jd
}

// leapSeconds lists TAI-UTC steps since 1999. Earlier instants use 32 s.
var leapSeconds = []struct {
	from   time.Time
	taiUTC float64
}{
	{time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), 37},
	{time.Date(2015, 7, 1, 0, 0, 0, 0, time.UTC), 36},
	{time.Date(2012, 7, 1, 0, 0, 0, 0, time.UTC), 35},
	{time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC), 34},
	{time.Date(2006, 1, 1, 0, 0, 0, 0, time.UTC), 33},
}

// TTMinusUTC returns TT-UTC in seconds for the given instant.
func TTMinusUTC(t time.Time) float64 {
	tai := 32.0
	for _, ls := range leapSeconds {
		if !t.Before(ls.from) {
			tai = ls.taiUTC
			break
		}
	}
	return tai + 32.184
}

// JulianDateTT returns the Julian Date of t on the Terrestrial Time scale.
// TDB differs from TT by under 2 ms and is not distinguished.
func JulianDateTT(t time.Time) float64 {
	return JulianDate(t) + TTMinusUTC(t)/86400.0
}

// CenturiesTT returns Julian centuries of TT since J2000.0.
func CenturiesTT(t time.Time) float64 {
	return (JulianDateTT(t) - j2000) / 36525.0
}

// GMST calculates Greenwich Mean Sidereal Time in radians for a given UTC time.
// Uses the IAU-82 model as described in Vallado "Fundamentals of Astrodynamics".
// UT1 is taken equal to UTC.
//
//	θ_GMST = 67310.54841 + (876600h + 8640184.812866)*T + 0.093104*T² - 6.2e-6*T³
func GMST(t time.Time) float64 {
	tUT1 := (JulianDate(t) - j2000) / 36525.0

	gmstSec := 67310.54841 +
		(3155760000.0+8640184.812866)*tUT1 +
		0.093104*tUT1*tUT1 -
		6.2e-6*tUT1*tUT1*tUT1

	gmstSec = math.Mod(gmstSec, 86400.0)
	if gmstSec < 0 {
		gmstSec += 86400.0
	}
	return gmstSec / 86400.0 * 2.0 * math.Pi
}

// GAST returns Greenwich Apparent Sidereal Time in radians: GMST corrected
// by the equation of the equinoxes.
func GAST(t time.Time) float64 {
	n := NutationAt(CenturiesTT(t))
	return normalizeRadians(GMST(t) + n.EquationOfEquinoxes())
}

func normalizeRadians(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}
