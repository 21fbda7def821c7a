package track

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/tkrajina/gpxgo/gpx"
	"k8s.io/klog/v2"
)

// ErrMissingTime is returned under RejectMissingTime for points without a timestamp.
var ErrMissingTime = errors.New("track point without time")

// MissingTimePolicy decides what happens to GPX points that carry no timestamp.
type MissingTimePolicy int

const (
	// SkipMissingTime drops untimed points and keeps the rest.
	SkipMissingTime MissingTimePolicy = iota
	// RejectMissingTime fails the whole load.
	RejectMissingTime
)

func (p MissingTimePolicy) String() string {
	if p == RejectMissingTime {
		return "reject"
	}
	return "skip"
}

// Load reads the GPX file at path.
func Load(path string, policy MissingTimePolicy) (*Track, error) {
	if !strings.EqualFold(filepath.Ext(path), ".gpx") {
		return nil, fmt.Errorf("%s: not a .gpx file", path)
	}

	g, err := gpx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	t, err := fromGPX(g, policy)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if t.Name == "" {
		t.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	klog.Infof("loaded %d points from %s (%s - %s)", len(t.Points), path, t.Start(), t.End())
	return t, nil
}

// Parse reads a GPX document from r.
func Parse(r io.Reader, policy MissingTimePolicy) (*Track, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	g, err := gpx.ParseBytes(b)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return fromGPX(g, policy)
}

// fromGPX flattens every track and segment of g in document order.
func fromGPX(g *gpx.GPX, policy MissingTimePolicy) (*Track, error) {
	t := &Track{Name: g.Name}
	skipped := 0

	for ti, gt := range g.Tracks {
		if t.Name == "" {
			t.Name = gt.Name
		}
		for si, seg := range gt.Segments {
			for pi, p := range seg.Points {
				if p.Timestamp.IsZero() {
					if policy == RejectMissingTime {
						return nil, fmt.Errorf("track %d segment %d point %d: %w", ti, si, pi, ErrMissingTime)
					}
					skipped++
					continue
				}

				pt := Point{Lat: p.Latitude, Lon: p.Longitude, Time: p.Timestamp}
				if p.Elevation.NotNull() {
					pt.Alt = p.Elevation.Value()
				}
				if n := len(t.Points); n > 0 && pt.Time.Before(t.Points[n-1].Time) {
					klog.Warningf("point %d of track %d segment %d is out of order: %s < %s", pi, ti, si, pt.Time, t.Points[n-1].Time)
				}
				t.Points = append(t.Points, pt)
			}
		}
	}

	if skipped > 0 {
		klog.Warningf("skipped %d track points without time", skipped)
	}
	return t, nil
}
