package geotag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/copy"
	"github.com/tstromberg/geotag/pkg/coord"
	"github.com/tstromberg/geotag/pkg/exif"
	"k8s.io/klog/v2"
)

// needsWrite reports whether p has a guessed position or an unsaved time adjustment.
func needsWrite(c *Config, p *Photo) bool {
	if p.HasGPS {
		return false
	}
	return p.Guessed || (p.HasShotTime && c.TimeAdjust != p.Shifted)
}

// Save writes guessed positions and time adjustments into the photo files,
// and returns the number of files written. Photos with GPS data of their own
// are never modified. Failures are collected and do not stop the batch.
func Save(ctx context.Context, c *Config, photos []*Photo) (int, []string) {
	var errs []string
	written := 0

	for i, p := range photos {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Sprintf("save canceled after %d of %d files: %v", i, len(photos), err))
			return written, errs
		}

		if needsWrite(c, p) {
			if err := savePhoto(c, p); err != nil {
				klog.Errorf("save %s: %v", p.Path, err)
				errs = append(errs, err.Error())
			} else {
				written++
			}
		}
		c.progress(i+1, len(photos))
	}

	return written, errs
}

func savePhoto(c *Config, p *Photo) error {
	if c.BackupDir != "" {
		if err := backup(c.BackupDir, p.Path); err != nil {
			return fmt.Errorf("unable to back up %s: %w", p.Path, err)
		}
	}

	f := exif.NewFile(klog.Background())
	if err := f.Load(p.Path, true); err != nil {
		return fmt.Errorf("unable to read EXIF from %s: %w", p.Path, err)
	}

	if p.Guessed {
		if err := writePosition(f, p.Position()); err != nil {
			return fmt.Errorf("unable to set position of %s: %w", p.Path, err)
		}
	}

	pending := c.TimeAdjust - p.Shifted
	shifted := p.Time.Add(pending)
	writeTime := p.HasShotTime && pending != 0
	if writeTime {
		ts := []byte(shifted.Format(exifDate))
		for _, t := range []exif.Tag{exif.TagDateTimeOriginal, exif.TagDateTimeDigitized} {
			if err := f.SetASCII(exif.IFDExif, t, ts); err != nil {
				return fmt.Errorf("unable to set time of %s: %w", p.Path, err)
			}
		}
	}

	if err := f.Save(p.Path); err != nil {
		return fmt.Errorf("unable to save EXIF to %s: %w", p.Path, err)
	}

	klog.Infof("wrote %s: %s (time %s)", p.Name, p.Position(), shifted.Format(exifDate))
	p.Written = true
	if writeTime {
		p.Time = shifted
		p.Shifted = c.TimeAdjust
	}
	if p.Guessed {
		p.HasGPS = true
		p.Guessed = false
	}
	return nil
}

func writePosition(f *exif.File, pos coord.Position) error {
	return errors.Join(
		f.SetRationals(exif.IFDGPS, exif.TagGPSLatitude, coord.ToDMS(pos.Lat, coord.DMSPrecision)),
		f.SetASCII(exif.IFDGPS, exif.TagGPSLatitudeRef, []byte(coord.LatitudeRef(pos.Lat))),
		f.SetRationals(exif.IFDGPS, exif.TagGPSLongitude, coord.ToDMS(pos.Lon, coord.DMSPrecision)),
		f.SetASCII(exif.IFDGPS, exif.TagGPSLongitudeRef, []byte(coord.LongitudeRef(pos.Lon))),
		f.SetRationals(exif.IFDGPS, exif.TagGPSAltitude, coord.ToSingleRational(pos.Alt, coord.AltitudePrecision)),
		f.SetBytes(exif.IFDGPS, exif.TagGPSAltitudeRef, []byte{coord.AltitudeRef(pos.Alt)}),
	)
}

// backup copies path below dir, unless an earlier backup exists.
func backup(dir, path string) error {
	rel := strings.TrimPrefix(path, filepath.VolumeName(path))
	dst := filepath.Join(dir, rel)
	if _, err := os.Stat(dst); err == nil {
		klog.V(1).Infof("backup of %s exists: %s", path, dst)
		return nil
	}
	if err := copy.Copy(path, dst); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	klog.V(1).Infof("backed up %s to %s", path, dst)
	return nil
}
