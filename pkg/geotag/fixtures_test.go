package geotag

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/tstromberg/geotag/pkg/coord"
	"github.com/tstromberg/geotag/pkg/exif"
	"github.com/tstromberg/geotag/pkg/track"
)

var day = time.Date(2022, 5, 7, 12, 0, 0, 0, time.UTC)

// fixture describes the metadata of a generated photo.
type fixture struct {
	shot      string
	digitized string
	dateTime  string
	gps       *coord.Position
	thumbnail bool
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 200, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

// writePhoto writes a JPEG described by fx into dir and returns its path.
func writePhoto(t *testing.T, dir, name string, fx fixture) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, jpegBytes(t, 64, 48), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if fx == (fixture{}) {
		return path
	}

	f := exif.NewFile(logr.Discard())
	if err := f.Load(path, true); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if fx.shot != "" {
		f.SetASCII(exif.IFDExif, exif.TagDateTimeOriginal, []byte(fx.shot))
	}
	if fx.digitized != "" {
		f.SetASCII(exif.IFDExif, exif.TagDateTimeDigitized, []byte(fx.digitized))
	}
	if fx.dateTime != "" {
		f.SetASCII(exif.IFD0, exif.TagDateTime, []byte(fx.dateTime))
	}
	if fx.gps != nil {
		if err := writePosition(f, *fx.gps); err != nil {
			t.Fatalf("writePosition() error: %v", err)
		}
	}
	if fx.thumbnail {
		f.Data().SetThumbnail(jpegBytes(t, 16, 12))
	}
	if err := f.Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	return path
}

// readBack loads the GPS position and capture time stored in path.
func readBack(t *testing.T, path string) *Photo {
	t.Helper()
	p, err := readPhoto(&Config{Location: time.UTC}, path)
	if err != nil {
		t.Fatalf("readPhoto() error: %v", err)
	}
	return p
}

// walk is a track heading north-east from (50, 10), one point every 10 minutes.
func walk() *track.Track {
	tr := &track.Track{Name: "walk"}
	for i := 0; i <= 6; i++ {
		tr.Points = append(tr.Points, track.Point{
			Lat:  50 + float64(i)*0.01,
			Lon:  10 + float64(i)*0.01,
			Alt:  100 + float64(i)*10,
			Time: day.Add(time.Duration(i) * 10 * time.Minute),
		})
	}
	return tr
}

func testConfig() *Config {
	return &Config{Location: time.UTC, ThumbSize: 16}
}
