// Package geotag assigns positions from a GPS track to photos by their
// capture time, and writes the result back into the photos.
package geotag

import (
	"errors"
	"image"
	"time"

	"github.com/tstromberg/geotag/pkg/coord"
	"github.com/tstromberg/geotag/pkg/track"
)

var exifDate = "2006:01:02 15:04:05"

// ErrEmptyBatch is returned when a load produced no photos at all.
var ErrEmptyBatch = errors.New("no photos loaded")

// Config holds configuration for geotag.
type Config struct {
	// TimeAdjust is added to camera times before they are matched against the track.
	TimeAdjust time.Duration
	// Location is the zone camera times are recorded in. nil means local time.
	Location *time.Location

	ThumbSize int
	ThumbDir  string
	BackupDir string

	MissingTime track.MissingTimePolicy

	// Progress is called after each file with the number of files done.
	Progress func(current, total int)
}

func (c *Config) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

func (c *Config) thumbSize() int {
	if c.ThumbSize <= 0 {
		return 160
	}
	return c.ThumbSize
}

func (c *Config) progress(current, total int) {
	if c.Progress != nil {
		c.Progress(current, total)
	}
}

// Photo represents a photo with the metadata geotag cares about.
type Photo struct {
	Path    string
	Name    string
	ModTime time.Time

	// Time is the capture time as stored in the file, or the file
	// modification time when the file has none.
	Time time.Time

	Lat float64
	Lon float64
	Alt float64

	HasShotTime bool
	HasGPS      bool
	Guessed     bool
	Written     bool

	// Shifted is the time adjustment already written into the file.
	Shifted time.Duration

	Thumbnail image.Image
	ThumbPath string
}

// Position returns the coordinate of the photo.
func (p *Photo) Position() coord.Position {
	return coord.Position{Lat: p.Lat, Lon: p.Lon, Alt: p.Alt}
}

// AdjustedTime returns the capture time corrected by adjust, minus any
// adjustment that was already saved.
func (p *Photo) AdjustedTime(adjust time.Duration) time.Time {
	if p.HasGPS {
		return p.Time
	}
	return p.Time.Add(adjust - p.Shifted)
}

func (p *Photo) setPosition(pos coord.Position) {
	p.Lat = pos.Lat
	p.Lon = pos.Lon
	p.Alt = pos.Alt
}

func (p *Photo) clearGuess() {
	p.setPosition(coord.Position{})
	p.Guessed = false
}

// Result is the outcome of loading a batch of photos.
type Result struct {
	Photos    []*Photo
	Errors    []string
	Statistic Statistic
}
