package geo

import "math"

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000.0

// Coordinate is a WGS84 position in decimal degrees.
// A nil *Coordinate means "position unknown"; a zero value is a real
// location (Null Island), never a stand-in for absence.
type Coordinate struct {
	// Latitude in decimal degrees, north positive.
	Latitude float64 `json:"latitude" yaml:"latitude"`
	// Longitude in decimal degrees, east positive.
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Clone returns a copy of the coordinate, preserving nil.
func (c *Coordinate) Clone() *Coordinate {
	if c == nil {
		return nil
	}

	cloned := *c

	return &cloned
}

// Zone is a circular region around a centre point.
// The same shape serves safe zones and red zones; the role is decided
// by where the zone is configured, not by its type.
type Zone struct {
	// Name labels the zone in advisories and logs.
	Name string `json:"name" yaml:"name"`
	// Center is the middle of the circular region.
	Center Coordinate `json:"center" yaml:"center"`
	// RadiusMeters is the region radius in meters.
	RadiusMeters float64 `json:"radius_meters" yaml:"radius_meters"`
}

// Clone returns a copy of the zone, preserving nil.
func (z *Zone) Clone() *Zone {
	if z == nil {
		return nil
	}

	cloned := *z

	return &cloned
}

// Contains reports whether the position lies strictly inside the zone.
func (z *Zone) Contains(position *Coordinate) bool {
	if z == nil || position == nil {
		return false
	}

	return DistanceMeters(&z.Center, position) < z.RadiusMeters
}

// DistanceMeters returns the great-circle distance between two coordinates
// using the haversine formula. Identical or absent inputs yield 0 — an
// unknown position means "no distance available", not an error.
func DistanceMeters(a, b *Coordinate) float64 {
	if a == nil || b == nil {
		return 0
	}

	if a.Latitude == b.Latitude && a.Longitude == b.Longitude {
		return 0
	}

	var (
		lat1     = a.Latitude * math.Pi / 180
		lat2     = b.Latitude * math.Pi / 180
		deltaLat = (b.Latitude - a.Latitude) * math.Pi / 180
		deltaLon = (b.Longitude - a.Longitude) * math.Pi / 180
	)

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
