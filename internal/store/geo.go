package store

import "math"

const earthRadiusKM = 6371.0

// haversineKM returns the great-circle distance in kilometres between two
// (longitude, latitude) points given in degrees.
func haversineKM(lon1, lat1, lon2, lat2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)

	return earthRadiusKM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// boundingBox returns [minLon, maxLon, minLat, maxLat] for a radius around
// a point, used as a cheap SQL prefilter before the exact haversine check.
// Near the poles the longitude span degenerates to the full circle.
func boundingBox(lon, lat, radiusKM float64) (minLon, maxLon, minLat, maxLat float64) {
	const kmPerDegreeLat = 111.32

	dlat := radiusKM / kmPerDegreeLat
	minLat = lat - dlat
	maxLat = lat + dlat

	cos := math.Cos(lat * math.Pi / 180)
	if cos < 0.01 {
		return -180, 180, minLat, maxLat
	}

	dlon := radiusKM / (kmPerDegreeLat * cos)
	return lon - dlon, lon + dlon, minLat, maxLat
}
