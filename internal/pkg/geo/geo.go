package geo

import "math"

// earthRadiusMeters is the mean Earth radius used for great-circle math.
const earthRadiusMeters = 6371000.0

// ValidCoordinates checks that latitude and longitude are within range.
// Latitude must be between -90 and 90, longitude between -180 and 180.
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// HaversineMeters returns the great-circle distance in meters between two
// points given in decimal degrees.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// BoundingBox returns a degree-space box that contains the circle of the
// given radius around (lat, lon). Used to pre-filter candidates before the
// exact distance check. Latitude is clamped at the poles; the longitude
// delta degrades gracefully near them by covering the full range.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, maxLat, minLon, maxLon float64) {
	latDelta := radiusMeters / earthRadiusMeters * 180 / math.Pi

	minLat = math.Max(lat-latDelta, -90)
	maxLat = math.Min(lat+latDelta, 90)

	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 1e-10 {
		return minLat, maxLat, -180, 180
	}
	lonDelta := latDelta / cosLat
	if lonDelta >= 180 {
		return minLat, maxLat, -180, 180
	}
	return minLat, maxLat, lon - lonDelta, lon + lonDelta
}

// DetourMeters estimates the extra distance of visiting a waypoint on the
// way from start to end, as leg distances minus the direct distance.
func DetourMeters(startLat, startLon, endLat, endLon, viaLat, viaLon float64) float64 {
	direct := HaversineMeters(startLat, startLon, endLat, endLon)
	via := HaversineMeters(startLat, startLon, viaLat, viaLon) +
		HaversineMeters(viaLat, viaLon, endLat, endLon)
	d := via - direct
	if d < 0 {
		return 0
	}
	return d
}
