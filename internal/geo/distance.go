package geo

import "math"

// earthRadiusM is the mean Earth radius in meters.
const earthRadiusM = 6371000

// metersPerMile converts meters to statute miles.
const metersPerMile = 0.000621371

// haversineM returns the great-circle distance between two points in meters.
func haversineM(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Pow(math.Sin(dLng/2), 2)
	return 2 * earthRadiusM * math.Asin(math.Sqrt(a))
}

// toMiles converts meters to miles, rounded to 2 decimals.
func toMiles(meters float64) float64 {
	return math.Round(meters*metersPerMile*100) / 100
}
