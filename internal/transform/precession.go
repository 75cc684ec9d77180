package transform

import "math"

// PrecessionMatrix returns the IAU 1976 (Lieske) precession matrix that
// rotates J2000 mean equatorial coordinates to the mean equator and equinox
// of date, T Julian centuries (TT) after J2000.0.
func PrecessionMatrix(T float64) Matrix3 {
	T2 := T * T
	T3 := T2 * T
	zeta := (2306.2181*T + 0.30188*T2 + 0.017998*T3) * arcsec2rad
	z := (2306.2181*T + 1.09468*T2 + 0.018203*T3) * arcsec2rad
	theta := (2004.3109*T - 0.42665*T2 - 0.041833*T3) * arcsec2rad

	cZeta, sZeta := math.Cos(zeta), math.Sin(zeta)
	cZ, sZ := math.Cos(z), math.Sin(z)
	cTh, sTh := math.Cos(theta), math.Sin(theta)

	return Matrix3{
		{cZeta*cZ*cTh - sZeta*sZ, -sZeta*cZ*cTh - cZeta*sZ, -cZ * sTh},
		{cZeta*sZ*cTh + sZeta*cZ, -sZeta*sZ*cTh + cZeta*cZ, -sZ * sTh},
		{cZeta * sTh, -sZeta * sTh, cTh},
	}
}

// MeanObliquity returns the mean obliquity of the ecliptic in radians
// (IAU 1980) at T Julian centuries after J2000.0.
func MeanObliquity(T float64) float64 {
	sec := 84381.448 - 46.8150*T - 0.00059*T*T + 0.001813*T*T*T
	return sec * arcsec2rad
}
