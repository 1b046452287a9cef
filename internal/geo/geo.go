// Package geo computes great-circle distances between mesh node positions.
package geo

import (
	"math"

	"github.com/radio-control/rangebot/internal/radiolink"
)

// EarthMeanRadius is the IUGG mean Earth radius in meters.
const EarthMeanRadius = 6371008.8

// Distance returns the haversine great-circle distance between a and b in meters.
func Distance(a, b radiolink.Position) float64 {
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := lat2 - lat1
	dLon := radians(b.Longitude - a.Longitude)

	h := math.Pow(math.Sin(dLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)
	// Rounding can push h fractionally past 1 for antipodal points.
	h = math.Min(1, h)
	return 2 * EarthMeanRadius * math.Asin(math.Sqrt(h))
}

// Valid reports whether p lies within the latitude/longitude ranges.
func Valid(p radiolink.Position) bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
