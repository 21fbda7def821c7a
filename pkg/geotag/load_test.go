package geotag

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/tstromberg/geotag/pkg/coord"
)

func TestLoadBatchErrorIsolation(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writePhoto(t, dir, "a.jpg", fixture{shot: "2022:05:07 12:05:00"}),
		filepath.Join(dir, "missing.jpg"),
		writePhoto(t, dir, "c.jpg", fixture{}),
	}

	res, err := Load(context.Background(), testConfig(), paths)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(res.Errors), res.Errors)
	}
	if !strings.Contains(res.Errors[0], paths[1]) {
		t.Errorf("error %q does not mention %s", res.Errors[0], paths[1])
	}

	var names []string
	for _, p := range res.Photos {
		names = append(names, p.Name)
	}
	if diff := cmp.Diff([]string{"a", "c"}, names); diff != "" {
		t.Errorf("photos mismatch (-want +got):\n%s", diff)
	}
}

func TestReadPhotoStatError(t *testing.T) {
	dir := t.TempDir()
	a := writePhoto(t, dir, "a.jpg", fixture{})

	if _, err := readPhoto(testConfig(), filepath.Join(dir, "missing.jpg")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("readPhoto(missing) error = %v, want %v", err, os.ErrNotExist)
	}

	// a path below a regular file fails with ENOTDIR
	_, err := readPhoto(testConfig(), filepath.Join(a, "b.jpg"))
	if err == nil {
		t.Fatalf("readPhoto(below file) succeeded")
	}
	if errors.Is(err, os.ErrNotExist) || strings.Contains(err.Error(), "no such file") {
		t.Errorf("readPhoto(below file) error = %v, want the stat error", err)
	}
}

func TestLoadEmptyBatch(t *testing.T) {
	dir := t.TempDir()
	bogus := filepath.Join(dir, "notes.jpg")
	if err := os.WriteFile(bogus, []byte("not a photo"), 0o600); err != nil {
		t.Fatal(err)
	}

	res, err := Load(context.Background(), testConfig(), []string{filepath.Join(dir, "x.jpg"), bogus})
	if !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("Load() error = %v, want %v", err, ErrEmptyBatch)
	}
	if len(res.Errors) != 2 {
		t.Errorf("got %d errors, want 2: %v", len(res.Errors), res.Errors)
	}
}

func TestLoadReadsMetadata(t *testing.T) {
	dir := t.TempDir()
	pos := coord.Position{Lat: -33.8568, Lon: 151.2153, Alt: -12.5}
	path := writePhoto(t, dir, "opera.jpg", fixture{shot: "2022:05:07 12:34:56", gps: &pos})

	c := testConfig()
	c.Location = time.FixedZone("AEST", 10*3600)
	res, err := Load(context.Background(), c, []string{path})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	p := res.Photos[0]

	if !p.HasGPS || p.Guessed {
		t.Errorf("HasGPS = %v, Guessed = %v", p.HasGPS, p.Guessed)
	}
	for _, v := range []struct {
		name      string
		got, want float64
		tolerance float64
	}{
		{"lat", p.Lat, pos.Lat, 1e-7},
		{"lon", p.Lon, pos.Lon, 1e-7},
		{"alt", p.Alt, pos.Alt, 1e-3},
	} {
		if math.Abs(v.got-v.want) > v.tolerance {
			t.Errorf("%s = %v, want %v", v.name, v.got, v.want)
		}
	}

	if !p.HasShotTime {
		t.Errorf("HasShotTime = false")
	}
	want := time.Date(2022, 5, 7, 12, 34, 56, 0, c.Location)
	if !p.Time.Equal(want) {
		t.Errorf("Time = %s, want %s", p.Time, want)
	}
	if res.Statistic.Total() != 1 {
		t.Errorf("Statistic.Total() = %d, want 1", res.Statistic.Total())
	}
}

func TestLoadTimeFallback(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		fx   fixture
		want string
		shot bool
	}{
		{"digitized first", fixture{digitized: "2022:05:07 10:00:00", shot: "2022:05:07 11:00:00"}, "2022:05:07 10:00:00", true},
		{"original", fixture{shot: "2022:05:07 11:00:00"}, "2022:05:07 11:00:00", true},
		{"ifd0 date", fixture{dateTime: "2022:05:07 09:00:00"}, "2022:05:07 09:00:00", true},
		{"bad length skipped", fixture{digitized: "2022:05:07", shot: "2022:05:07 11:00:00"}, "2022:05:07 11:00:00", true},
		{"unparsable", fixture{shot: "yesterday at noon!!"}, "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writePhoto(t, dir, strings.ReplaceAll(tc.name, " ", "_")+".jpg", tc.fx)
			p := readBack(t, path)
			if p.HasShotTime != tc.shot {
				t.Fatalf("HasShotTime = %v, want %v", p.HasShotTime, tc.shot)
			}
			if !tc.shot {
				if !p.Time.Equal(p.ModTime) {
					t.Errorf("Time = %s, want modification time %s", p.Time, p.ModTime)
				}
				return
			}
			if got := p.Time.Format(exifDate); got != tc.want {
				t.Errorf("Time = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestLoadProgress(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writePhoto(t, dir, "1.jpg", fixture{}),
		filepath.Join(dir, "2.jpg"),
		writePhoto(t, dir, "3.jpg", fixture{}),
	}

	var calls [][2]int
	c := testConfig()
	c.Progress = func(current, total int) {
		calls = append(calls, [2]int{current, total})
	}
	if _, err := Load(context.Background(), c, paths); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	want := [][2]int{{1, 3}, {2, 3}, {3, 3}}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("progress mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadCanceled(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, testConfig(), []string{writePhoto(t, dir, "a.jpg", fixture{})})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want %v", err, context.Canceled)
	}
}

func TestThumbnails(t *testing.T) {
	dir := t.TempDir()
	thumbs := filepath.Join(dir, "thumbs")
	embedded := writePhoto(t, dir, "embedded.jpg", fixture{shot: "2022:05:07 12:00:00", thumbnail: true})
	plain := writePhoto(t, dir, "plain.jpg", fixture{})

	c := testConfig()
	c.ThumbDir = thumbs
	res, err := Load(context.Background(), c, []string{embedded, plain})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	for _, p := range res.Photos {
		if p.Thumbnail == nil {
			t.Fatalf("%s has no thumbnail", p.Name)
		}
		b := p.Thumbnail.Bounds()
		if b.Dx() != 16 || b.Dy() != 12 {
			t.Errorf("%s thumbnail is %dx%d, want 16x12", p.Name, b.Dx(), b.Dy())
		}
		if _, err := os.Stat(p.ThumbPath); err != nil {
			t.Errorf("%s thumbnail not saved: %v", p.Name, err)
		}
	}
}

func TestThumbnailPlaceholder(t *testing.T) {
	p := &Photo{Path: filepath.Join(t.TempDir(), "gone.jpg"), Name: "gone"}
	thumbnail(testConfig(), p, []byte("garbage"))
	if p.Thumbnail == nil {
		t.Fatalf("no placeholder")
	}
	if b := p.Thumbnail.Bounds(); b.Dx() != 16 || b.Dy() != 16 {
		t.Errorf("placeholder is %dx%d, want 16x16", b.Dx(), b.Dy())
	}
}
