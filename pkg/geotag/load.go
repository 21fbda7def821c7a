package geotag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tstromberg/geotag/pkg/coord"
	"github.com/tstromberg/geotag/pkg/exif"
	"k8s.io/klog/v2"
)

// timeTags are tried in order for the capture time.
var timeTags = []struct {
	ifd exif.IFD
	tag exif.Tag
}{
	{exif.IFDExif, exif.TagDateTimeDigitized},
	{exif.IFDExif, exif.TagDateTimeOriginal},
	{exif.IFD0, exif.TagDateTime},
}

// Load reads the photos at paths. Files that cannot be read are reported in
// Result.Errors and skipped; ErrEmptyBatch is returned if none could be read.
func Load(ctx context.Context, c *Config, paths []string) (*Result, error) {
	res := &Result{}

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("load canceled after %d of %d files: %w", i, len(paths), err)
		}

		p, err := readPhoto(c, path)
		if err != nil {
			klog.Warningf("skipping %s: %v", path, err)
			res.Errors = append(res.Errors, err.Error())
		} else {
			if p.HasGPS {
				res.Statistic.Add(p.Lat, p.Lon)
			}
			res.Photos = append(res.Photos, p)
		}
		c.progress(i+1, len(paths))
	}

	if len(res.Photos) == 0 {
		return res, fmt.Errorf("%d files, %d errors: %w", len(paths), len(res.Errors), ErrEmptyBatch)
	}
	return res, nil
}

func readPhoto(c *Config, path string) (*Photo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to add %s: %w", path, err)
	}

	st, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("unable to add %s: %w", abs, err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("unable to add %s: is a directory", abs)
	}

	base := filepath.Base(abs)
	p := &Photo{
		Path:    abs,
		Name:    strings.TrimSuffix(base, filepath.Ext(base)),
		ModTime: st.ModTime(),
		Time:    st.ModTime(),
	}

	f := exif.NewFile(klog.Background())
	if err := f.Load(abs, false); err != nil && !errors.Is(err, exif.ErrNoExif) {
		return nil, fmt.Errorf("unable to read EXIF from %s: %w", abs, err)
	}

	readPosition(f, p)
	readTime(f, p, c.location())
	thumbnail(c, p, f.Thumbnail())

	klog.V(1).Infof("loaded %s: time=%s gps=%v shot=%v", p.Name, p.Time, p.HasGPS, p.HasShotTime)
	return p, nil
}

// readPosition sets the position of p from the GPS tags of f, if it has any.
func readPosition(f *exif.File, p *Photo) {
	lat := f.Rationals(exif.IFDGPS, exif.TagGPSLatitude)
	lon := f.Rationals(exif.IFDGPS, exif.TagGPSLongitude)
	if len(lat) == 0 || len(lon) == 0 {
		return
	}

	la, err := coord.FromDMS(lat, string(f.ASCII(exif.IFDGPS, exif.TagGPSLatitudeRef)))
	if err != nil {
		klog.Warningf("%s: latitude %v: %v", p.Path, lat, err)
		return
	}
	lo, err := coord.FromDMS(lon, string(f.ASCII(exif.IFDGPS, exif.TagGPSLongitudeRef)))
	if err != nil {
		klog.Warningf("%s: longitude %v: %v", p.Path, lon, err)
		return
	}
	p.Lat, p.Lon = la, lo
	p.HasGPS = true

	alt := f.Rationals(exif.IFDGPS, exif.TagGPSAltitude)
	if len(alt) == 0 {
		return
	}
	a, err := coord.FromSingleRational(alt, f.Bytes(exif.IFDGPS, exif.TagGPSAltitudeRef))
	if err != nil {
		klog.Warningf("%s: altitude %v: %v", p.Path, alt, err)
		return
	}
	p.Alt = a
}

// readTime sets the capture time of p from the first date tag of f that parses.
func readTime(f *exif.File, p *Photo, loc *time.Location) {
	for _, tt := range timeTags {
		s := string(f.ASCII(tt.ifd, tt.tag))
		if s == "" {
			continue
		}
		if len(s) != len(exifDate) {
			klog.V(1).Infof("%s: ignoring date %q: unexpected length", p.Path, s)
			continue
		}
		t, err := time.ParseInLocation(exifDate, s, loc)
		if err != nil {
			klog.V(1).Infof("%s: ignoring date %q: %v", p.Path, s, err)
			continue
		}
		p.Time = t
		p.HasShotTime = true
		return
	}
}
