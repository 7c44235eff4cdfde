// Package model holds the domain records shared by the coverage, optimizer,
// validation and overlap packages.
package model

import "math"

// Coordinate is a WGS84 position. Radian values are computed once at
// construction and used by every distance calculation.
type Coordinate struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	LatRad float64 `json:"-"`
	LonRad float64 `json:"-"`
}

// NewCoordinate builds a Coordinate from decimal degrees.
func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{
		Lat:    lat,
		Lon:    lon,
		LatRad: lat * math.Pi / 180,
		LonRad: lon * math.Pi / 180,
	}
}

// Valid reports whether the coordinate lies on the globe.
func (c Coordinate) Valid() bool {
	return !math.IsNaN(c.Lat) && !math.IsNaN(c.Lon) &&
		c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// DemandPoint is an aggregated customer location, typically one postal code.
type DemandPoint struct {
	ID     string     `json:"id"`
	Name   string     `json:"name,omitempty"`
	Coord  Coordinate `json:"coord"`
	Weight int        `json:"weight"`
}

// CandidateSite is a location where a facility may be opened.
type CandidateSite struct {
	ID         string     `json:"id"`
	Name       string     `json:"name,omitempty"`
	Coord      Coordinate `json:"coord"`
	Prestige   bool       `json:"prestige"`
	Population int64      `json:"population"`
}

// SiteClass labels a site for reporting.
func (s CandidateSite) SiteClass() string {
	if s.Prestige {
		return "prestige"
	}
	return "standard"
}

// TotalWeight sums the customer weight of all demand points.
func TotalWeight(demand []DemandPoint) int64 {
	var total int64
	for _, d := range demand {
		total += int64(d.Weight)
	}
	return total
}
