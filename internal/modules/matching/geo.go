// README: Pure geographic computation helpers.
package matching

import (
	"math"

	"bloodlink/internal/types"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance in kilometres between two
// points, via the haversine formula. The value is unrounded; filter
// comparisons must use it directly and round only at presentation boundaries.
func DistanceKm(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// RoundKm1 rounds a distance to one decimal for display.
func RoundKm1(km float64) float64 {
	return math.Round(km*10) / 10
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// sortByDistance performs an insertion sort (fine for small N, and stable so
// equidistant candidates keep storage order) on any slice where each element
// exposes a distance via the accessor function.
func sortByDistance[T any](items []T, dist func(T) float64) {
	for i := 1; i < len(items); i++ {
		key := items[i]
		j := i - 1
		for j >= 0 && dist(items[j]) > dist(key) {
			items[j+1] = items[j]
			j--
		}
		items[j+1] = key
	}
}
