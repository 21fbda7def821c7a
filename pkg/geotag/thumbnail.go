package geotag

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"k8s.io/klog/v2"
)

var (
	ModTimeFormat = "20060102-150405"
	ThumbQuality  = 85

	placeholderColor = color.Gray{Y: 0xc0}
)

// thumbnail sets the thumbnail of p, preferring the one embedded in the
// EXIF data over scaling down the full image. Failures fall back to a
// placeholder.
func thumbnail(c *Config, p *Photo, embedded []byte) {
	size := c.thumbSize()

	img, err := sourceImage(p.Path, embedded)
	if err == nil {
		img, err = fit(img, size)
	}
	if err != nil {
		klog.Warningf("thumbnail for %s: %v", p.Path, err)
		img = placeholder(size)
	}
	p.Thumbnail = img

	if c.ThumbDir == "" {
		return
	}
	path := filepath.Join(c.ThumbDir, thumbRelPath(p, size))
	if err := saveThumb(img, path); err != nil {
		klog.Errorf("save thumbnail for %s: %v", p.Path, err)
		return
	}
	p.ThumbPath = path
}

func sourceImage(path string, embedded []byte) (image.Image, error) {
	if len(embedded) > 0 {
		img, _, err := image.Decode(bytes.NewReader(embedded))
		if err == nil {
			return img, nil
		}
		klog.V(1).Infof("embedded thumbnail of %s: %v", path, err)
	}

	img, err := imgio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("imgio.Open: %w", err)
	}
	return img, nil
}

// fit scales i down to fit in a size x size box, keeping its aspect ratio.
func fit(i image.Image, size int) (image.Image, error) {
	dx, dy := i.Bounds().Dx(), i.Bounds().Dy()
	if dx == 0 || dy == 0 {
		return nil, fmt.Errorf("empty image: %+v", i.Bounds())
	}

	x, y := size, size
	if dx > dy {
		y = max(1, dy*size/dx)
	} else {
		x = max(1, dx*size/dy)
	}
	return transform.Resize(i, x, y, transform.Lanczos), nil
}

func placeholder(size int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: placeholderColor}, image.Point{}, draw.Src)
	return img
}

func saveThumb(i image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := imgio.Save(path, i, imgio.JPEGEncoder(ThumbQuality)); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// thumbRelPath includes the modification time so edited photos get a new thumbnail.
func thumbRelPath(p *Photo, size int) string {
	return fmt.Sprintf("%s@%d_%s.jpg", p.Name, size, p.ModTime.Format(ModTimeFormat))
}
