// geotag assigns positions from a GPX track to JPEG photos by capture time.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"k8s.io/klog/v2"

	"github.com/tstromberg/geotag/pkg/geotag"
	"github.com/tstromberg/geotag/pkg/track"
)

var (
	gpxFlag    = flag.String("gpx", "", "GPX track to take positions from")
	adjustFlag = flag.Duration("adjust", 0, "correction added to camera times, e.g. -1h2m3s")
	tzFlag     = flag.String("tz", "", "IANA time zone of the camera clock (default: local)")
	writeFlag  = flag.Bool("write", false, "write positions into the photos (default: dry run)")
	backupFlag = flag.String("backup", "", "copy originals into this directory before writing")
	thumbFlag  = flag.String("thumbs", "", "write thumbnails into this directory")
	strictFlag = flag.Bool("strict", false, "reject tracks with points that have no time")
	watchFlag  = flag.Bool("watch", false, "watch the track and photos for changes")
	verifyFlag = flag.Bool("verify", false, "check written positions with exiftool")
	mapWidth   = flag.Int("map-width", 1024, "map width in pixels for the suggested zoom")
	mapHeight  = flag.Int("map-height", 768, "map height in pixels for the suggested zoom")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if *gpxFlag == "" {
		klog.Exitf("--gpx is a required flag")
	}
	if flag.NArg() == 0 {
		klog.Exitf("usage: geotag --gpx <track.gpx> <photo|dir>...")
	}

	c := &geotag.Config{
		TimeAdjust: adjustFlag.Truncate(time.Second),
		BackupDir:  *backupFlag,
		ThumbDir:   *thumbFlag,
		Progress: func(current, total int) {
			klog.V(1).Infof("%d/%d", current, total)
		},
	}
	if *tzFlag != "" {
		loc, err := time.LoadLocation(*tzFlag)
		if err != nil {
			klog.Exitf("bad --tz: %v", err)
		}
		c.Location = loc
	}
	if *strictFlag {
		c.MissingTime = track.RejectMissingTime
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	t, err := track.Load(*gpxFlag, c.MissingTime)
	if err != nil {
		klog.Exitf("load track: %v", err)
	}

	paths, err := geotag.Collect(flag.Args())
	if err != nil {
		klog.Exitf("collect: %v", err)
	}

	s := geotag.NewSession(c)
	_, errs, err := s.Add(ctx, paths)
	for _, e := range errs {
		klog.Warning(e)
	}
	if err != nil {
		if errors.Is(err, geotag.ErrEmptyBatch) {
			klog.Exitf("no photos to process")
		}
		klog.Exitf("load failed: %v", err)
	}

	guessed := s.SetTrack(ctx, t)
	report(s, guessed)

	if *writeFlag {
		n, errs := s.Save(ctx)
		for _, e := range errs {
			klog.Errorf("%s", e)
		}
		klog.Infof("wrote %d photos", n)

		if *verifyFlag {
			verify(s)
		}
	}

	if *watchFlag {
		if err := geotag.Watch(ctx, s, *gpxFlag); err != nil {
			klog.Exitf("watch failed: %v", err)
		}
	}
}

func report(s *geotag.Session, guessed int) {
	ps := s.Photos()
	for _, p := range ps {
		state := "no position"
		switch {
		case p.HasGPS:
			state = "camera"
		case p.Guessed:
			state = "guessed"
		}
		fmt.Printf("%-30s %s %-8s %s\n", p.Name, p.Time.Format(time.DateTime), state, p.Position())
	}
	fmt.Printf("%d photos, %d guessed\n", len(ps), guessed)

	if center, ok := s.Center(); ok {
		zoom, _ := s.Zoom(*mapWidth, *mapHeight)
		fmt.Printf("center %.6f,%.6f zoom %.1f\n", center.Lat, center.Lon, zoom)
	}
}

func verify(s *geotag.Session) {
	ps := s.Photos()
	photos := make([]*geotag.Photo, 0, len(ps))
	for i := range ps {
		photos = append(photos, &ps[i])
	}

	mismatches, err := geotag.Verify(photos)
	if err != nil {
		klog.Errorf("verify failed: %v", err)
		return
	}
	for _, m := range mismatches {
		klog.Errorf("mismatch: %s", m)
	}
	klog.Infof("verified %d photos, %d mismatches", len(photos), len(mismatches))
}
