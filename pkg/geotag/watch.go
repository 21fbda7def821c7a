package geotag

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/fsnotify/fsnotify"
	"github.com/tstromberg/geotag/pkg/track"
	"k8s.io/klog/v2"
)

// Watch watches the track at gpxPath and the photos of s, and updates the
// session when they change on disk. It blocks until ctx is done.
func Watch(ctx context.Context, s *Session, gpxPath string) error {
	gpxPath, err := filepath.Abs(gpxPath)
	if err != nil {
		return fmt.Errorf("abs: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	dirs := []string{filepath.Dir(gpxPath)}
	for _, p := range s.Photos() {
		dirs = append(dirs, filepath.Dir(p.Path))
	}
	slices.Sort(dirs)
	dirs = slices.Compact(dirs)

	klog.Infof("watching %d dirs ...", len(dirs))
	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			klog.V(1).Infof("event: %s", event)
			handle(ctx, s, gpxPath, event)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("watch error: %v", err)
		}
	}
}

func handle(ctx context.Context, s *Session, gpxPath string, event fsnotify.Event) {
	changed := event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
	gone := event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)

	if event.Name == gpxPath {
		if !changed {
			return
		}
		t, err := track.Load(gpxPath, s.c.MissingTime)
		if err != nil {
			klog.Errorf("reload track: %v", err)
			return
		}
		klog.Infof("track reloaded: %d photos guessed", s.SetTrack(ctx, t))
		return
	}

	if !s.contains(event.Name) {
		return
	}
	switch {
	case changed:
		if err := s.Reload(ctx, event.Name); err != nil {
			klog.Errorf("reload photo: %v", err)
		}
	case gone:
		if _, err := s.Remove(ctx, event.Name); err != nil {
			klog.Errorf("remove photo: %v", err)
		}
	}
}
