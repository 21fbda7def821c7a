package geotag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeGPX(t *testing.T, path string, start time.Time, n int) {
	t.Helper()
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1"><trk><trkseg>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<trkpt lat="%f" lon="%f"><time>%s</time></trkpt>`,
			50+float64(i)*0.01, 10+float64(i)*0.01, start.Add(time.Duration(i)*10*time.Minute).Format(time.RFC3339))
	}
	b.WriteString(`</trkseg></trk></gpx>`)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	gpxPath := filepath.Join(dir, "walk.gpx")
	writeGPX(t, gpxPath, day, 2)
	photo := writePhoto(t, dir, "a.jpg", fixture{shot: "2022:05:07 12:25:00"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewSession(testConfig())
	if _, _, err := s.Add(ctx, []string{photo}); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- Watch(ctx, s, gpxPath) }()
	// give the watcher time to register its directories
	time.Sleep(200 * time.Millisecond)

	writeGPX(t, gpxPath, day, 6)
	waitFor(t, "track reload", func() bool {
		ps := s.Photos()
		return len(ps) == 1 && ps[0].Guessed
	})

	if err := os.Remove(photo); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "photo removal", func() bool {
		return len(s.Photos()) == 0
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Errorf("Watch() did not return after cancel")
	}
}
