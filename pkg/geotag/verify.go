package geotag

import (
	"fmt"
	"math"

	"github.com/barasher/go-exiftool"
	"k8s.io/klog/v2"
)

// verifyTolerance is the largest accepted difference in degrees, about 10cm.
const verifyTolerance = 1e-6

// Verify reads back the written photos with exiftool and returns a message
// for every photo whose stored position differs from the expected one.
func Verify(photos []*Photo) ([]string, error) {
	et, err := exiftool.NewExiftool(exiftool.NoPrintConversion())
	if err != nil {
		return nil, fmt.Errorf("exiftool: %w", err)
	}
	defer et.Close()

	var mismatches []string
	for _, p := range photos {
		if !p.Written || !p.HasGPS {
			continue
		}
		if err := verify(et, p); err != nil {
			klog.Warningf("verify: %v", err)
			mismatches = append(mismatches, err.Error())
		}
	}
	return mismatches, nil
}

func verify(et *exiftool.Exiftool, p *Photo) error {
	fis := et.ExtractMetadata(p.Path)
	if len(fis) == 0 {
		return fmt.Errorf("%s: no metadata", p.Path)
	}
	fi := fis[0]
	if fi.Err != nil {
		return fmt.Errorf("extract fail for %q: %w", p.Path, fi.Err)
	}

	for _, k := range []struct {
		tag  string
		ref  string
		want float64
	}{
		{"GPSLatitude", "GPSLatitudeRef", p.Lat},
		{"GPSLongitude", "GPSLongitudeRef", p.Lon},
	} {
		v, err := fi.GetFloat(k.tag)
		if err != nil {
			return fmt.Errorf("%s: get %s: %w", p.Path, k.tag, err)
		}
		ref, err := fi.GetString(k.ref)
		if err != nil {
			return fmt.Errorf("%s: get %s: %w", p.Path, k.ref, err)
		}
		got := signed(v, ref)
		klog.V(1).Infof("%s: %s=%v %s (want %v)", p.Path, k.tag, v, ref, k.want)
		if math.Abs(got-k.want) > verifyTolerance {
			return fmt.Errorf("%s: %s is %v, want %v", p.Path, k.tag, got, k.want)
		}
	}
	return nil
}

// signed applies a hemisphere reference to v. exiftool may report either the
// unsigned EXIF value or the signed composite one.
func signed(v float64, ref string) float64 {
	switch ref {
	case "S", "W":
		return -math.Abs(v)
	}
	return math.Abs(v)
}
