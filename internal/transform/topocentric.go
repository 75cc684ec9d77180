package transform

import "math"

// WGS-84 ellipsoid parameters.
const (
	wgs84A  = 6378137.0             // semi-major axis (meters)
	wgs84F  = 1.0 / 298.257223563   // flattening
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared
)

// ObserverPosition holds a ground observer's location in both geodetic and ECEF frames.
// ECEF coordinates are precomputed once so they can be reused across lookups.
type ObserverPosition struct {
	LatRad, LonRad, AltM float64 // geodetic (radians, meters above ellipsoid)
	ECEFx, ECEFy, ECEFz  float64 // precomputed ECEF (meters)
}

// LookAngles holds azimuth, elevation, and range from observer to a target.
// Produced only by ECEFToLookAngles, which tests use to check resolved
// satellite directions.
type LookAngles struct {
	AzimuthDeg   float64 // 0 = North, clockwise
	ElevationDeg float64 // 0 = horizon, 90 = zenith
	RangeKm      float64
}

// NewObserverPosition creates an ObserverPosition from geodetic coordinates.
// Latitude and longitude are in degrees, altitude in meters above the WGS-84 ellipsoid.
func NewObserverPosition(latDeg, lonDeg, altM float64) ObserverPosition {
	lat := latDeg * deg2rad
	lon := lonDeg * deg2rad

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)

	// Radius of curvature in the prime vertical.
	N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return ObserverPosition{
		LatRad: lat,
		LonRad: lon,
		AltM:   altM,
		ECEFx:  (N + altM) * cosLat * math.Cos(lon),
		ECEFy:  (N + altM) * cosLat * math.Sin(lon),
		ECEFz:  (N*(1-wgs84E2) + altM) * sinLat,
	}
}

// TEMEKm returns the observer's position in the TEME frame (km) for the
// given GMST angle in radians. Inverse of the R3(GMST) rotation used by TEMEToECEF.
func (o ObserverPosition) TEMEKm(gmst float64) Vector3 {
	cosG, sinG := math.Cos(gmst), math.Sin(gmst)
	x, y := o.ECEFx/1000.0, o.ECEFy/1000.0
	return Vector3{
		X: x*cosG - y*sinG,
		Y: x*sinG + y*cosG,
		Z: o.ECEFz / 1000.0,
	}
}

// ECEFToLookAngles computes azimuth, elevation, and range from an observer
// to a target given in ECEF meters.
//
// Uses the SEZ (South-East-Zenith) topocentric rotation per Vallado Section 4.4.
// Not on the pointing path, which goes through J2000 and
// HorizontalFromEquatorial; kept as an independent oracle for tests.
func ECEFToLookAngles(obs ObserverPosition, x, y, z float64) LookAngles {
	rx := x - obs.ECEFx
	ry := y - obs.ECEFy
	rz := z - obs.ECEFz

	sinLat := math.Sin(obs.LatRad)
	cosLat := math.Cos(obs.LatRad)
	sinLon := math.Sin(obs.LonRad)
	cosLon := math.Cos(obs.LonRad)

	south := sinLat*cosLon*rx + sinLat*sinLon*ry - cosLat*rz
	east := -sinLon*rx + cosLon*ry
	zenith := cosLat*cosLon*rx + cosLat*sinLon*ry + sinLat*rz

	rangeMag := math.Sqrt(south*south + east*east + zenith*zenith)
	el := math.Asin(zenith / rangeMag)

	// North = -South, so az = atan2(east, -south).
	az := math.Atan2(east, -south)
	if az < 0 {
		az += 2 * math.Pi
	}

	return LookAngles{
		AzimuthDeg:   az * rad2deg,
		ElevationDeg: el * rad2deg,
		RangeKm:      rangeMag / 1000.0,
	}
}
