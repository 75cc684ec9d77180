package transform

import "math"

const (
	deg2rad    = math.Pi / 180.0
	rad2deg    = 180.0 / math.Pi
	arcsec2rad = deg2rad / 3600.0
)

// Vector3 is a Cartesian vector. Units depend on the caller (AU, km, or unitless).
type Vector3 struct {
	X, Y, Z float64
}

func (v Vector3) Add(o Vector3) Vector3 { return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vector3) Sub(o Vector3) Vector3 { return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vector3) Scale(k float64) Vector3 {
	return Vector3{v.X * k, v.Y * k, v.Z * k}
}
func (v Vector3) Dot(o Vector3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vector3) Norm() float64         { return math.Sqrt(v.Dot(v)) }

// Unit returns v scaled to length 1. The zero vector is returned unchanged.
func (v Vector3) Unit() Vector3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// IsFinite reports whether no component is NaN or infinite.
func (v Vector3) IsFinite() bool {
	for _, c := range [...]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// SphericalToVector converts right ascension / longitude and declination /
// latitude (radians) into a unit vector.
func SphericalToVector(lon, lat float64) Vector3 {
	cl := math.Cos(lat)
	return Vector3{cl * math.Cos(lon), cl * math.Sin(lon), math.Sin(lat)}
}

// VectorToRADec returns right ascension in hours [0,24) and declination in
// degrees for the direction of v.
func VectorToRADec(v Vector3) (raHours, decDeg float64) {
	ra := math.Atan2(v.Y, v.X)
	if ra < 0 {
		ra += 2 * math.Pi
	}
	dec := math.Atan2(v.Z, math.Hypot(v.X, v.Y))
	raHours = ra * rad2deg / 15.0
	if raHours >= 24 {
		raHours -= 24
	}
	return raHours, dec * rad2deg
}

// Matrix3 is a row-major 3x3 rotation matrix.
type Matrix3 [3][3]float64

// Apply returns m·v.
func (m Matrix3) Apply(v Vector3) Vector3 {
	return Vector3{
		m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Mul returns m·o.
func (m Matrix3) Mul(o Matrix3) Matrix3 {
	var r Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[i][0]*o[0][j] + m[i][1]*o[1][j] + m[i][2]*o[2][j]
		}
	}
	return r
}

// Transpose returns the inverse of a rotation matrix.
func (m Matrix3) Transpose() Matrix3 {
	var r Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[j][i]
		}
	}
	return r
}

// rotZ rotates the coordinate frame by angle a (radians) about the Z axis.
func rotZ(a float64) Matrix3 {
	c, s := math.Cos(a), math.Sin(a)
	return Matrix3{{c, s, 0}, {-s, c, 0}, {0, 0, 1}}
}

// rotX rotates the coordinate frame by angle a (radians) about the X axis.
func rotX(a float64) Matrix3 {
	c, s := math.Cos(a), math.Sin(a)
	return Matrix3{{1, 0, 0}, {0, c, s}, {0, -s, c}}
}

// EclipticToEquatorial rotates an ecliptic vector into the equatorial frame
// sharing the same equinox, given the obliquity in radians.
func EclipticToEquatorial(v Vector3, obliquity float64) Vector3 {
	return rotX(-obliquity).Apply(v)
}
