package sdk

import (
	"strconv"
	"strings"
)

// GeoPoint is a longitude/latitude pair.
type GeoPoint struct {
	Longitude float64
	Latitude  float64
}

// NewGeoPoint builds a point from longitude and latitude.
func NewGeoPoint(lon, lat float64) GeoPoint {
	return GeoPoint{Longitude: lon, Latitude: lat}
}

// String renders the point the way the search syntax expects: (lon, lat).
func (p GeoPoint) String() string {
	return "(" + formatDecimal(p.Longitude) + ", " + formatDecimal(p.Latitude) + ")"
}

// DistanceUnit qualifies a proximity radius.
type DistanceUnit string

const (
	Kilometers DistanceUnit = "km"
	Miles      DistanceUnit = "mi"
	Meters     DistanceUnit = "m"
	Feet       DistanceUnit = "ft"
)

// Coordinate key aliases accepted when reading stored geo points, in lookup
// order. Older clients wrote the short forms.
var (
	latitudeAliases  = []string{"latitude", "lat", "y"}
	longitudeAliases = []string{"longitude", "lon", "lng", "x"}
)

// formatDecimal renders a float with at least one fractional digit, so 10
// becomes "10.0" and 10.25 stays "10.25".
func formatDecimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
