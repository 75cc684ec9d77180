// Package transform provides the time scales and coordinate frame rotations
// used to turn catalog, ephemeris and SGP4 positions into pointing angles.
//
// SGP4 outputs positions in TEME (True Equator Mean Equinox). The pointing
// path goes TEME -> true of date -> J2000 axes by undoing the equation of the
// equinoxes, nutation and precession. The ECEF path (TEME -> ECEF by the GMST
// rotation, then look angles) has no production caller; tests use it as an
// independent check of satellite directions.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3;
// Meeus, "Astronomical Algorithms", Ch. 21-22.
package transform

import (
	"math"
	"time"
)

// PositionTEME represents a satellite position and velocity in the TEME frame.
type PositionTEME struct {
	X, Y, Z    float64 // km
	VX, VY, VZ float64 // km/s
}

// Vector returns the position part in km.
func (p PositionTEME) Vector() Vector3 { return Vector3{p.X, p.Y, p.Z} }

// PositionECEF represents a position and velocity in the ECEF frame.
// Only the look-angle cross-check in tests produces it.
type PositionECEF struct {
	X, Y, Z    float64 // meters
	VX, VY, VZ float64 // m/s
}

// TEMEToECEF transforms a TEME position/velocity to ECEF at the given UTC time.
// Input: TEME in km and km/s. Output: ECEF in meters and m/s. Test oracle
// for the J2000 path; satellite resolution does not call it.
//
// Position: r_ECEF = R3(θ) * r_TEME
// Velocity: v_ECEF = R3(θ) * v_TEME - ω × r_ECEF
func TEMEToECEF(teme PositionTEME, t time.Time) PositionECEF {
	gmst := GMST(t)
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)

	xECEF := teme.X*cosG + teme.Y*sinG
	yECEF := -teme.X*sinG + teme.Y*cosG
	zECEF := teme.Z

	vxRot := teme.VX*cosG + teme.VY*sinG
	vyRot := -teme.VX*sinG + teme.VY*cosG

	return PositionECEF{
		X:  xECEF * 1000.0,
		Y:  yECEF * 1000.0,
		Z:  zECEF * 1000.0,
		VX: (vxRot + OmegaEarth*yECEF) * 1000.0,
		VY: (vyRot - OmegaEarth*xECEF) * 1000.0,
		VZ: teme.VZ * 1000.0,
	}
}

// TEMEToJ2000 rotates a TEME vector at time t onto J2000 mean equator axes.
func TEMEToJ2000(v Vector3, t time.Time) Vector3 {
	T := CenturiesTT(t)
	n := NutationAt(T)
	tod := rotZ(-n.EquationOfEquinoxes()).Apply(v)
	return J2000ToTrueOfDate(T).Transpose().Apply(tod)
}
