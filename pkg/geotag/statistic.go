package geotag

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/tstromberg/geotag/pkg/coord"
)

const (
	earthRadiusMeters = 6371008.8
	halfEquatorMeters = 40075016.686 / 2

	minZoom = 5.0
	maxZoom = 18.0
)

// Statistic accumulates the extent and centroid of a set of coordinates.
// The zero value is empty and ready to use.
type Statistic struct {
	total  int
	sumLat float64
	sumLon float64

	latMin, latMax float64
	lonMin, lonMax float64
}

// Add records a coordinate. (0, 0) is treated as "no position" and ignored.
func (s *Statistic) Add(lat, lon float64) {
	if lat == 0 && lon == 0 {
		return
	}

	if s.total == 0 {
		s.latMin, s.latMax = lat, lat
		s.lonMin, s.lonMax = lon, lon
	}
	s.total++
	s.sumLat += lat
	s.sumLon += lon
	s.latMin = min(s.latMin, lat)
	s.latMax = max(s.latMax, lat)
	s.lonMin = min(s.lonMin, lon)
	s.lonMax = max(s.lonMax, lon)
}

// Merge adds everything recorded in o.
func (s *Statistic) Merge(o Statistic) {
	if o.total == 0 {
		return
	}
	if s.total == 0 {
		*s = o
		return
	}
	s.total += o.total
	s.sumLat += o.sumLat
	s.sumLon += o.sumLon
	s.latMin = min(s.latMin, o.latMin)
	s.latMax = max(s.latMax, o.latMax)
	s.lonMin = min(s.lonMin, o.lonMin)
	s.lonMax = max(s.lonMax, o.lonMax)
}

// Total returns the number of recorded coordinates.
func (s Statistic) Total() int {
	return s.total
}

// Center returns the centroid, or false if nothing was recorded.
func (s Statistic) Center() (coord.Position, bool) {
	if s.total == 0 {
		return coord.Position{}, false
	}
	return coord.Position{Lat: s.sumLat / float64(s.total), Lon: s.sumLon / float64(s.total)}, true
}

// Bounds returns the south-west and north-east corners, or false if nothing was recorded.
func (s Statistic) Bounds() (sw, ne coord.Position, ok bool) {
	if s.total == 0 {
		return sw, ne, false
	}
	return coord.Position{Lat: s.latMin, Lon: s.lonMin}, coord.Position{Lat: s.latMax, Lon: s.lonMax}, true
}

// Zoom returns the slippy-map zoom level at which the recorded extent fits a
// map of width x height pixels, clamped to [5, 18].
// https://wiki.openstreetmap.org/wiki/Zoom_levels
func (s Statistic) Zoom(width, height int) (float64, bool) {
	if s.total == 0 || width <= 0 || height <= 0 {
		return 0, false
	}

	sw := s2.LatLngFromDegrees(s.latMin, s.lonMin)
	w := sw.Distance(s2.LatLngFromDegrees(s.latMin, s.lonMax)).Radians() * earthRadiusMeters
	h := sw.Distance(s2.LatLngFromDegrees(s.latMax, s.lonMin)).Radians() * earthRadiusMeters

	scale := halfEquatorMeters * math.Cos(s.latMin*math.Pi/180)
	hz := math.Log2(float64(width)*scale/w) - 8
	vz := math.Log2(float64(height)*scale/h) - 8

	z := min(hz, vz)
	if math.IsNaN(z) {
		return maxZoom, true
	}
	return max(minZoom, min(z, maxZoom)), true
}
