// Package track holds recorded GPS tracks and resolves positions along them by time.
package track

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tstromberg/geotag/pkg/coord"
)

var (
	// ErrOutOfRange is returned for times before the first or after the last point.
	ErrOutOfRange = errors.New("time outside track")
	// ErrTooShort is returned for tracks that cannot bracket any time.
	ErrTooShort = errors.New("track has fewer than two points")
)

// Point is one timestamped fix of a track.
type Point struct {
	Lat  float64
	Lon  float64
	Alt  float64
	Time time.Time
}

// Position returns the coordinate of the point.
func (p Point) Position() coord.Position {
	return coord.Position{Lat: p.Lat, Lon: p.Lon, Alt: p.Alt}
}

// Track is a chronologically ordered sequence of points.
type Track struct {
	Name   string
	Points []Point
}

// Start returns the time of the first point.
func (t *Track) Start() time.Time {
	if len(t.Points) == 0 {
		return time.Time{}
	}
	return t.Points[0].Time
}

// End returns the time of the last point.
func (t *Track) End() time.Time {
	if len(t.Points) == 0 {
		return time.Time{}
	}
	return t.Points[len(t.Points)-1].Time
}

// Locate returns the position at time ts, interpolated between the two
// points that bracket it. Times outside the track are never extrapolated.
func (t *Track) Locate(ts time.Time) (coord.Position, error) {
	pts := t.Points
	if len(pts) < 2 {
		return coord.Position{}, fmt.Errorf("%d points: %w", len(pts), ErrTooShort)
	}

	i := sort.Search(len(pts), func(i int) bool {
		return pts[i].Time.After(ts)
	})

	switch {
	case i == 0:
		return coord.Position{}, fmt.Errorf("%s before %s: %w", ts.Format(time.RFC3339), pts[0].Time.Format(time.RFC3339), ErrOutOfRange)
	case i == len(pts):
		last := pts[len(pts)-1]
		if last.Time.Equal(ts) {
			return last.Position(), nil
		}
		return coord.Position{}, fmt.Errorf("%s after %s: %w", ts.Format(time.RFC3339), last.Time.Format(time.RFC3339), ErrOutOfRange)
	}

	return Interpolate(pts[i-1], pts[i], ts), nil
}

// Interpolate linearly interpolates latitude, longitude and altitude between
// before and after. A zero-length interval yields before.
func Interpolate(before, after Point, ts time.Time) coord.Position {
	span := after.Time.Sub(before.Time)
	if span <= 0 {
		return before.Position()
	}

	f := float64(ts.Sub(before.Time)) / float64(span)
	return coord.Position{
		Lat: before.Lat + (after.Lat-before.Lat)*f,
		Lon: before.Lon + (after.Lon-before.Lon)*f,
		Alt: before.Alt + (after.Alt-before.Alt)*f,
	}
}

// Bounds returns the south-west and north-east corners of the track.
func (t *Track) Bounds() (sw, ne coord.Position, ok bool) {
	if len(t.Points) == 0 {
		return sw, ne, false
	}

	first := t.Points[0]
	sw = coord.Position{Lat: first.Lat, Lon: first.Lon}
	ne = sw
	for _, p := range t.Points[1:] {
		sw.Lat = min(sw.Lat, p.Lat)
		sw.Lon = min(sw.Lon, p.Lon)
		ne.Lat = max(ne.Lat, p.Lat)
		ne.Lon = max(ne.Lon, p.Lon)
	}
	return sw, ne, true
}

// Path returns the positions of all points in order.
func (t *Track) Path() []coord.Position {
	ps := make([]coord.Position, 0, len(t.Points))
	for _, p := range t.Points {
		ps = append(ps, p.Position())
	}
	return ps
}
