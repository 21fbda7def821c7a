package geotag

import (
	"context"

	"github.com/tstromberg/geotag/pkg/track"
	"k8s.io/klog/v2"
)

// Guess assigns positions from t to every photo without GPS data of its own,
// and returns the number of photos that received one. A photo the track cannot
// place, including every photo when t is nil or too short, loses any position
// guessed earlier.
func Guess(ctx context.Context, c *Config, photos []*Photo, t *track.Track) int {
	if t == nil {
		t = &track.Track{}
	}

	n := 0
	for _, p := range photos {
		if ctx.Err() != nil {
			klog.Warningf("guess canceled: %v", ctx.Err())
			return n
		}
		if p.HasGPS || p.Time.IsZero() {
			continue
		}

		ts := p.AdjustedTime(c.TimeAdjust)
		pos, err := t.Locate(ts)
		if err != nil {
			klog.V(1).Infof("%s at %s: %v", p.Name, ts, err)
			p.clearGuess()
			continue
		}

		p.setPosition(pos)
		p.Guessed = true
		n++
	}
	return n
}
