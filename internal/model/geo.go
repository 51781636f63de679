// Package model defines the core types shared by the enrichment pipeline.
package model

import (
	"strconv"
)

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// NotFound is the reserved point returned when an address has no geocode
// match. It is a real coordinate, so callers must test for it explicitly.
var NotFound = GeoPoint{}

// IsNotFound reports whether p is the not-found sentinel.
func (p GeoPoint) IsNotFound() bool {
	return p == NotFound
}

// String formats the point as "lat,lon", the form routing providers accept.
func (p GeoPoint) String() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lon, 'f', -1, 64)
}

// Station is a rail station from the reference table.
type Station struct {
	Name     string   `json:"name" yaml:"name"`
	Location GeoPoint `json:"location" yaml:"location"`
}
