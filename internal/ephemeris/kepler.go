package ephemeris

import (
	"fmt"
	"math"

	"github.com/star/starseeker/internal/transform"
)

// orbitalElements are J2000 mean elements with their rates per Julian century
// (Standish, "Keplerian Elements for Approximate Positions of the Major
// Planets", table 1, valid 1800-2050).
type orbitalElements struct {
	a, aDot       float64 // semi-major axis, AU
	e, eDot       float64 // eccentricity
	i, iDot       float64 // inclination, deg
	l, lDot       float64 // mean longitude, deg
	peri, periDot float64 // longitude of perihelion, deg
	node, nodeDot float64 // longitude of ascending node, deg
}

// elements keyed by body; Earth holds the Earth-Moon barycenter.
var elements = map[Body]orbitalElements{
	Mercury: {0.38709927, 0.00000037, 0.20563593, 0.00001906, 7.00497902, -0.00594749, 252.25032350, 149472.67411175, 77.45779628, 0.16047689, 48.33076593, -0.12534081},
	Venus:   {0.72333566, 0.00000390, 0.00677672, -0.00004107, 3.39467605, -0.00078890, 181.97909950, 58517.81538729, 131.60246718, 0.00268329, 76.67984255, -0.27769418},
	Earth:   {1.00000261, 0.00000562, 0.01671123, -0.00004392, -0.00001531, -0.01294668, 100.46457166, 35999.37244981, 102.93768193, 0.32327364, 0.0, 0.0},
	Mars:    {1.52371034, 0.00001847, 0.09339410, 0.00007882, 1.84969142, -0.00813131, -4.55343205, 19140.30268499, -23.94362959, 0.44441088, 49.55953891, -0.29257343},
	Jupiter: {5.20288700, -0.00011607, 0.04838624, -0.00013253, 1.30439695, -0.00183714, 34.39644051, 3034.74612775, 14.72847983, 0.21252668, 100.47390909, 0.20469106},
	Saturn:  {9.53667594, -0.00125060, 0.05386179, -0.00050991, 2.48599187, 0.00193609, 49.95424423, 1222.49362201, 92.59887831, -0.41897216, 113.66242448, -0.28867794},
	Uranus:  {19.18916464, -0.00196176, 0.04725744, -0.00004397, 0.77263783, -0.00242939, 313.23810451, 428.48202785, 170.95427630, 0.40805281, 74.01692503, 0.04240589},
	Neptune: {30.06992276, 0.00026291, 0.00859048, 0.00005105, 1.77004347, 0.00035372, -55.12002969, 218.45945325, 44.96476227, -0.32241464, 131.78422574, -0.00508664},
	Pluto:   {39.48211675, -0.00031596, 0.24882730, 0.00005170, 17.14001206, 0.00004818, 238.92903833, 145.20780515, 224.06891629, -0.04062942, 110.30393684, -0.01183482},
}

// J2000 obliquity of the ecliptic, radians.
var j2000Obliquity = 23.43928 * math.Pi / 180

func keplerPosition(el orbitalElements, jdTT float64) (transform.Vector3, error) {
	T := (jdTT - 2451545.0) / 36525.0

	a := el.a + el.aDot*T
	e := el.e + el.eDot*T
	inc := rad(el.i + el.iDot*T)
	L := el.l + el.lDot*T
	peri := el.peri + el.periDot*T
	node := el.node + el.nodeDot*T

	omega := rad(peri - node)
	M := rad(normalize180(L - peri))
	bigOmega := rad(node)

	E, err := solveKepler(M, e)
	if err != nil {
		return transform.Vector3{}, err
	}

	xp := a * (math.Cos(E) - e)
	yp := a * math.Sqrt(1-e*e) * math.Sin(E)

	cw, sw := math.Cos(omega), math.Sin(omega)
	cO, sO := math.Cos(bigOmega), math.Sin(bigOmega)
	ci, si := math.Cos(inc), math.Sin(inc)

	ecl := transform.Vector3{
		X: (cw*cO-sw*sO*ci)*xp + (-sw*cO-cw*sO*ci)*yp,
		Y: (cw*sO+sw*cO*ci)*xp + (-sw*sO+cw*cO*ci)*yp,
		Z: (sw*si)*xp + (cw*si)*yp,
	}
	return transform.EclipticToEquatorial(ecl, j2000Obliquity), nil
}

// solveKepler solves E - e sin E = M by Newton iteration (radians).
func solveKepler(M, e float64) (float64, error) {
	E := M + e*math.Sin(M)
	for i := 0; i < 30; i++ {
		dE := (E - e*math.Sin(E) - M) / (1 - e*math.Cos(E))
		E -= dE
		if math.Abs(dE) < 1e-12 {
			return E, nil
		}
	}
	return 0, fmt.Errorf("kepler equation did not converge for M=%.6f e=%.6f", M, e)
}

func rad(d float64) float64 { return d * math.Pi / 180 }

func normalize180(d float64) float64 {
	d = math.Mod(d, 360)
	if d > 180 {
		d -= 360
	} else if d < -180 {
		d += 360
	}
	return d
}
