package transform

import (
	"math"
	"time"
)

// HorizontalFromEquatorial converts a J2000-axis right ascension (hours) and
// declination (degrees) into topocentric azimuth (0 = North, clockwise) and
// altitude in degrees for an observer at latDeg/lonDeg (east positive).
// Precession and nutation bring the direction to the true equator of date;
// the hour angle comes from apparent sidereal time. No refraction is applied.
func HorizontalFromEquatorial(raHours, decDeg, latDeg, lonDeg float64, t time.Time) (azDeg, altDeg float64) {
	T := CenturiesTT(t)
	v := SphericalToVector(raHours*15*deg2rad, decDeg*deg2rad)
	v = J2000ToTrueOfDate(T).Apply(v)
	raTrue, decTrue := VectorToRADec(v)

	lst := GAST(t) + lonDeg*deg2rad
	ha := lst - raTrue*15*deg2rad
	return HourAngleToHorizontal(ha, decTrue*deg2rad, latDeg*deg2rad)
}

// HourAngleToHorizontal converts local hour angle (radians, west positive),
// declination and latitude (radians) to azimuth and altitude in degrees.
// Azimuth is normalized to [0, 360).
func HourAngleToHorizontal(ha, dec, lat float64) (azDeg, altDeg float64) {
	sinAlt := math.Sin(lat)*math.Sin(dec) + math.Cos(lat)*math.Cos(dec)*math.Cos(ha)
	sinAlt = math.Max(-1, math.Min(1, sinAlt))
	alt := math.Asin(sinAlt)

	y := -math.Cos(dec) * math.Sin(ha)
	x := math.Sin(dec)*math.Cos(lat) - math.Cos(dec)*math.Sin(lat)*math.Cos(ha)
	az := math.Atan2(y, x) * rad2deg
	if az < 0 {
		az += 360
	}
	if az >= 360 {
		az -= 360
	}
	return az, alt * rad2deg
}
