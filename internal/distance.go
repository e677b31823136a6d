package internal

import "math"

const earthRadiusKm = 6371.0

// Distance returns the great-circle distance in kilometres between two points given in
// decimal degrees, rounded to 2 decimal places.
func Distance(lon1, lat1, lon2, lat2 float64) float64 {
	phi1 := lat1 * math.Pi / 180.0
	phi2 := lat2 * math.Pi / 180.0
	dPhi := (lat2 - lat1) * math.Pi / 180.0
	dLambda := (lon2 - lon1) * math.Pi / 180.0

	a := math.Pow(math.Sin(dPhi/2), 2) + math.Cos(phi1)*math.Cos(phi2)*math.Pow(math.Sin(dLambda/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return math.Round(c*earthRadiusKm*100) / 100
}
