// gpsinfo prints the GPS position and capture times stored in JPEG photos
package main

import (
	"flag"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/tstromberg/geotag/pkg/coord"
	"github.com/tstromberg/geotag/pkg/exif"
	"github.com/tstromberg/geotag/pkg/geotag"
)

var rawFlag = flag.Bool("raw", false, "print the stored rationals instead of decimal degrees")

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if flag.NArg() == 0 {
		klog.Exitf("usage: gpsinfo <photo|dir>...")
	}

	paths, err := geotag.Collect(flag.Args())
	if err != nil {
		klog.Exitf("unable to collect: %v", err)
	}

	failed := 0
	for _, path := range paths {
		if err := show(path); err != nil {
			klog.Errorf("%s: %v", path, err)
			failed++
		}
	}
	if failed > 0 {
		klog.Exitf("%d of %d files failed", failed, len(paths))
	}
}

func show(path string) error {
	f := exif.NewFile(klog.Background())
	if err := f.Load(path, false); err != nil {
		return err
	}

	fmt.Println(path)
	for _, t := range []struct {
		name string
		ifd  exif.IFD
		tag  exif.Tag
	}{
		{"DateTime", exif.IFD0, exif.TagDateTime},
		{"DateTimeOriginal", exif.IFDExif, exif.TagDateTimeOriginal},
		{"DateTimeDigitized", exif.IFDExif, exif.TagDateTimeDigitized},
	} {
		if v := f.ASCII(t.ifd, t.tag); len(v) > 0 {
			fmt.Printf("  %-18s %s\n", t.name, v)
		}
	}

	lat := f.Rationals(exif.IFDGPS, exif.TagGPSLatitude)
	lon := f.Rationals(exif.IFDGPS, exif.TagGPSLongitude)
	alt := f.Rationals(exif.IFDGPS, exif.TagGPSAltitude)
	latRef := string(f.ASCII(exif.IFDGPS, exif.TagGPSLatitudeRef))
	lonRef := string(f.ASCII(exif.IFDGPS, exif.TagGPSLongitudeRef))
	altRef := f.Bytes(exif.IFDGPS, exif.TagGPSAltitudeRef)

	if len(lat) == 0 || len(lon) == 0 {
		fmt.Println("  no GPS position")
		return nil
	}

	if *rawFlag {
		fmt.Printf("  %-18s %v %s\n", "GPSLatitude", lat, latRef)
		fmt.Printf("  %-18s %v %s\n", "GPSLongitude", lon, lonRef)
		if len(alt) > 0 {
			fmt.Printf("  %-18s %v %v\n", "GPSAltitude", alt, altRef)
		}
		return nil
	}

	la, err := coord.FromDMS(lat, latRef)
	if err != nil {
		return fmt.Errorf("latitude: %w", err)
	}
	lo, err := coord.FromDMS(lon, lonRef)
	if err != nil {
		return fmt.Errorf("longitude: %w", err)
	}
	pos := coord.Position{Lat: la, Lon: lo}
	if len(alt) > 0 {
		pos.Alt, err = coord.FromSingleRational(alt, altRef)
		if err != nil {
			klog.Warningf("%s: altitude: %v", path, err)
		}
	}
	fmt.Printf("  %-18s %s\n", "Position", pos)
	return nil
}
