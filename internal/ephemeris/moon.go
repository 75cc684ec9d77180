package ephemeris

import (
	"math"

	"github.com/star/starseeker/internal/transform"
)

const kmPerAU = 149597870.7

// lunarTerm is one periodic term of the lunar theory (Meeus ch. 47),
// with multipliers of D, M, M', F.
type lunarTerm struct {
	d, m, mp, f int
	coef        float64 // longitude / latitude in 1e-6 deg, distance in 1e-3 km
	coefR       float64
}

var lunarLR = []lunarTerm{
	{0, 0, 1, 0, 6288774, -20905355},
	{2, 0, -1, 0, 1274027, -3699111},
	{2, 0, 0, 0, 658314, -2955968},
	{0, 0, 2, 0, 213618, -569925},
	{0, 1, 0, 0, -185116, 48888},
	{0, 0, 0, 2, -114332, -3149},
	{2, 0, -2, 0, 58793, 246158},
	{2, -1, -1, 0, 57066, -152138},
	{2, 0, 1, 0, 53322, -170733},
	{2, -1, 0, 0, 45758, -204586},
	{0, 1, -1, 0, -40923, -129620},
	{1, 0, 0, 0, -34720, 108743},
	{0, 1, 1, 0, -30383, 104755},
	{2, 0, 0, -2, 15327, 10321},
	{0, 0, 1, 2, -12528, 0},
	{0, 0, 1, -2, 10980, 79661},
	{4, 0, -1, 0, 10675, -34782},
	{0, 0, 3, 0, 10034, -23210},
	{4, 0, -2, 0, 8548, -21636},
	{2, 1, -1, 0, -7888, 24208},
	{2, 1, 0, 0, -6766, 30824},
	{1, 0, -1, 0, -5163, -8379},
	{1, 1, 0, 0, 4987, -16675},
	{2, -1, 1, 0, 4036, -12831},
	{2, 0, 2, 0, 3994, -10445},
	{4, 0, 0, 0, 3861, -11650},
	{2, 0, -3, 0, 3665, 14403},
	{0, 1, -2, 0, -2689, -7003},
	{2, 0, -1, 2, -2602, 0},
	{2, -1, -2, 0, 2390, 10056},
	{1, 0, 1, 0, -2348, 6322},
	{2, -2, 0, 0, 2236, -9884},
}

var lunarB = []lunarTerm{
	{0, 0, 0, 1, 5128122, 0},
	{0, 0, 1, 1, 280602, 0},
	{0, 0, 1, -1, 277693, 0},
	{2, 0, 0, -1, 173237, 0},
	{2, 0, -1, 1, 55413, 0},
	{2, 0, -1, -1, 46271, 0},
	{2, 0, 0, 1, 32573, 0},
	{0, 0, 2, 1, 17198, 0},
	{2, 0, 1, -1, 9266, 0},
	{0, 0, 2, -1, 8822, 0},
	{2, -1, 0, -1, 8216, 0},
	{2, 0, -2, -1, 4324, 0},
	{2, 0, 1, 1, 4200, 0},
	{2, 1, 0, -1, -3359, 0},
	{2, -1, -1, 1, 2463, 0},
	{2, -1, 0, 1, 2211, 0},
	{2, -1, -1, -1, 2065, 0},
}

// MoonEcliptic returns the Moon's geocentric ecliptic longitude and latitude
// (degrees, mean equinox of date) and distance (km).
func MoonEcliptic(jdTT float64) (lonDeg, latDeg, distKm float64) {
	T := (jdTT - 2451545.0) / 36525.0
	T2, T3, T4 := T*T, T*T*T, T*T*T*T

	Lp := 218.3164477 + 481267.88123421*T - 0.0015786*T2 + T3/538841 - T4/65194000
	D := 297.8501921 + 445267.1114034*T - 0.0018819*T2 + T3/545868 - T4/113065000
	M := 357.5291092 + 35999.0502909*T - 0.0001536*T2 + T3/24490000
	Mp := 134.9633964 + 477198.8675055*T + 0.0087414*T2 + T3/69699 - T4/14712000
	F := 93.2720950 + 483202.0175233*T - 0.0036539*T2 - T3/3526000 + T4/863310000

	A1 := 119.75 + 131.849*T
	A2 := 53.09 + 479264.290*T
	A3 := 313.45 + 481266.484*T
	E := 1 - 0.002516*T - 0.0000074*T2

	eccFactor := func(m int) float64 {
		switch m {
		case 1, -1:
			return E
		case 2, -2:
			return E * E
		}
		return 1
	}
	arg := func(t lunarTerm) float64 {
		return rad(float64(t.d)*D + float64(t.m)*M + float64(t.mp)*Mp + float64(t.f)*F)
	}

	var sl, sr, sb float64
	for _, t := range lunarLR {
		a := arg(t)
		k := eccFactor(t.m)
		sl += t.coef * k * math.Sin(a)
		sr += t.coefR * k * math.Cos(a)
	}
	for _, t := range lunarB {
		sb += t.coef * eccFactor(t.m) * math.Sin(arg(t))
	}

	sl += 3958*math.Sin(rad(A1)) + 1962*math.Sin(rad(Lp-F)) + 318*math.Sin(rad(A2))
	sb += -2235*math.Sin(rad(Lp)) + 382*math.Sin(rad(A3)) + 175*math.Sin(rad(A1-F)) +
		175*math.Sin(rad(A1+F)) + 127*math.Sin(rad(Lp-Mp)) - 115*math.Sin(rad(Lp+Mp))

	lonDeg = math.Mod(Lp+sl/1e6, 360)
	if lonDeg < 0 {
		lonDeg += 360
	}
	return lonDeg, sb / 1e6, 385000.56 + sr/1000
}

// MoonGeocentric returns the Moon's geocentric position in AU on J2000
// equatorial axes.
func MoonGeocentric(jdTT float64) transform.Vector3 {
	lon, lat, dist := MoonEcliptic(jdTT)
	T := (jdTT - 2451545.0) / 36525.0

	ofDate := transform.SphericalToVector(rad(lon), rad(lat)).Scale(dist / kmPerAU)
	ofDate = transform.EclipticToEquatorial(ofDate, transform.MeanObliquity(T))
	return transform.PrecessionMatrix(T).Transpose().Apply(ofDate)
}
