package transform

import "math"

// Nutation holds the nutation angles at an instant, in radians.
type Nutation struct {
	DeltaPsi     float64 // nutation in longitude
	DeltaEpsilon float64 // nutation in obliquity
	MeanEps      float64 // mean obliquity of date
}

// NutationAt evaluates the four dominant IAU 1980 terms (Meeus ch. 22),
// good to about 0.5" in longitude and 0.1" in obliquity.
func NutationAt(T float64) Nutation {
	omega := (125.04452 - 1934.136261*T) * deg2rad
	l := (280.4665 + 36000.7698*T) * deg2rad
	lp := (218.3165 + 481267.8813*T) * deg2rad

	dpsi := -17.20*math.Sin(omega) - 1.32*math.Sin(2*l) - 0.23*math.Sin(2*lp) + 0.21*math.Sin(2*omega)
	deps := 9.20*math.Cos(omega) + 0.57*math.Cos(2*l) + 0.10*math.Cos(2*lp) - 0.09*math.Cos(2*omega)

	return Nutation{
		DeltaPsi:     dpsi * arcsec2rad,
		DeltaEpsilon: deps * arcsec2rad,
		MeanEps:      MeanObliquity(T),
	}
}

// TrueEps is the true obliquity of date.
func (n Nutation) TrueEps() float64 { return n.MeanEps + n.DeltaEpsilon }

// EquationOfEquinoxes returns GAST-GMST in radians.
func (n Nutation) EquationOfEquinoxes() float64 {
	return n.DeltaPsi * math.Cos(n.TrueEps())
}

// Matrix rotates mean-of-date equatorial coordinates to true-of-date.
func (n Nutation) Matrix() Matrix3 {
	return rotX(-n.TrueEps()).Mul(rotZ(-n.DeltaPsi)).Mul(rotX(n.MeanEps))
}

// J2000ToTrueOfDate combines precession and nutation at T centuries (TT).
func J2000ToTrueOfDate(T float64) Matrix3 {
	return NutationAt(T).Matrix().Mul(PrecessionMatrix(T))
}
