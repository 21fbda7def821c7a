package geotag

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/tstromberg/geotag/pkg/coord"
	"github.com/tstromberg/geotag/pkg/track"
	"k8s.io/klog/v2"
)

// Session is a set of photos matched against one track. Every change to the
// photos, the track or the time adjustment re-runs the guess pass. It is safe
// for concurrent use.
type Session struct {
	mu     sync.Mutex
	c      Config
	photos []*Photo
	track  *track.Track
	stat   Statistic
}

// NewSession returns an empty session. c is copied.
func NewSession(c *Config) *Session {
	return &Session{c: *c}
}

// Add loads the photos at paths and adds those not already in the session.
// It returns the number of photos added and the per-file errors.
func (s *Session) Add(ctx context.Context, paths []string) (int, []string, error) {
	res, err := Load(ctx, &s.c, paths)
	if err != nil && !errors.Is(err, ErrEmptyBatch) {
		return 0, res.Errors, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := map[string]bool{}
	for _, p := range s.photos {
		existing[p.Path] = true
	}

	added := 0
	var st Statistic
	for _, p := range res.Photos {
		if existing[p.Path] {
			klog.V(1).Infof("%s already added", p.Path)
			continue
		}
		existing[p.Path] = true
		s.photos = append(s.photos, p)
		if p.HasGPS {
			st.Add(p.Lat, p.Lon)
		}
		added++
	}
	s.stat.Merge(st)

	if added > 0 {
		s.guess(ctx)
	}
	return added, res.Errors, err
}

// Reload re-reads one photo of the session from disk.
func (s *Session) Reload(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("abs: %w", err)
	}

	p, err := readPhoto(&s.c, abs)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, old := range s.photos {
		if old.Path == abs {
			s.photos[i] = p
			s.restat()
			s.guess(ctx)
			return nil
		}
	}
	return fmt.Errorf("%s is not part of the session", abs)
}

// Remove drops the photos at paths and returns how many were removed.
func (s *Session) Remove(ctx context.Context, paths ...string) (int, error) {
	drop := map[string]bool{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return 0, fmt.Errorf("abs: %w", err)
		}
		drop[abs] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.photos[:0]
	for _, p := range s.photos {
		if !drop[p.Path] {
			kept = append(kept, p)
		}
	}
	n := len(s.photos) - len(kept)
	clear(s.photos[len(kept):])
	s.photos = kept

	if n > 0 {
		s.restat()
		s.guess(ctx)
	}
	return n, nil
}

// SetTrack replaces the track and returns the number of guessed photos.
func (s *Session) SetTrack(ctx context.Context, t *track.Track) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.track = t
	return s.guess(ctx)
}

// SetTimeAdjust changes the camera clock correction and returns the number of guessed photos.
func (s *Session) SetTimeAdjust(ctx context.Context, d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.c.TimeAdjust = d.Truncate(time.Second)
	return s.guess(ctx)
}

// Save writes the session's guesses into the photo files.
func (s *Session) Save(ctx context.Context) (int, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, errs := Save(ctx, &s.c, s.photos)
	if n > 0 {
		s.restat()
	}
	return n, errs
}

// Photos returns a snapshot of the photos in the session.
func (s *Session) Photos() []Photo {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps := make([]Photo, 0, len(s.photos))
	for _, p := range s.photos {
		ps = append(ps, *p)
	}
	return ps
}

// Track returns the current track, or nil.
func (s *Session) Track() *track.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track
}

// Statistic returns the extent of the photos that carry their own GPS data.
func (s *Session) Statistic() Statistic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stat
}

// Center returns the suggested map center.
func (s *Session) Center() (coord.Position, bool) {
	st := s.Statistic()
	return st.Center()
}

// Zoom returns the suggested zoom level for a map of width x height pixels.
func (s *Session) Zoom(width, height int) (float64, bool) {
	st := s.Statistic()
	return st.Zoom(width, height)
}

func (s *Session) guess(ctx context.Context) int {
	return Guess(ctx, &s.c, s.photos, s.track)
}

func (s *Session) restat() {
	s.stat = Statistic{}
	for _, p := range s.photos {
		if p.HasGPS {
			s.stat.Add(p.Lat, p.Lon)
		}
	}
}

func (s *Session) contains(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.ContainsFunc(s.photos, func(p *Photo) bool {
		return p.Path == path
	})
}
