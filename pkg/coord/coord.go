// Package coord converts between decimal coordinates and the rational
// encodings EXIF uses for GPS positions.
package coord

import (
	"errors"
	"fmt"
	"math"

	"github.com/tstromberg/geotag/pkg/exif"
)

const (
	// DMSPrecision is the default denominator for the seconds of a DMS triple.
	DMSPrecision = 10000
	// AltitudePrecision is the default denominator for altitudes in meters.
	AltitudePrecision = 1000
)

// ErrFormat is returned for rational vectors of the wrong length.
var ErrFormat = errors.New("bad coordinate format")

// Position is a decimal coordinate with altitude in meters.
type Position struct {
	Lat float64
	Lon float64
	Alt float64
}

func (p Position) String() string {
	return fmt.Sprintf("%.6f,%.6f %.1fm", p.Lat, p.Lon, p.Alt)
}

// ToDMS converts the magnitude of v into degrees, minutes and seconds, with
// seconds expressed in units of 1/precision. Rounding of the seconds carries
// into minutes and degrees, so 10.9999999 becomes 11° 0' 0". A zero precision
// means DMSPrecision.
func ToDMS(v float64, precision uint32) []exif.Rational {
	if precision == 0 {
		precision = DMSPrecision
	}
	p := uint64(precision)
	total := uint64(math.Round(math.Abs(v) * 3600 * float64(p)))

	return []exif.Rational{
		{Numerator: uint32(total / (3600 * p)), Denominator: 1},
		{Numerator: uint32(total / (60 * p) % 60), Denominator: 1},
		{Numerator: uint32(total % (60 * p)), Denominator: precision},
	}
}

// ToSingleRational converts the magnitude of v into one rational with the given
// denominator. A zero precision means AltitudePrecision.
func ToSingleRational(v float64, precision uint32) []exif.Rational {
	if precision == 0 {
		precision = AltitudePrecision
	}
	n := math.Round(math.Abs(v) * float64(precision))
	if n > math.MaxUint32 {
		n = math.MaxUint32
	}
	return []exif.Rational{{Numerator: uint32(n), Denominator: precision}}
}

// LatitudeRef returns "S" for negative latitudes and "N" otherwise.
func LatitudeRef(lat float64) string {
	if lat < 0 {
		return "S"
	}
	return "N"
}

// LongitudeRef returns "W" for negative longitudes and "E" otherwise.
func LongitudeRef(lon float64) string {
	if lon < 0 {
		return "W"
	}
	return "E"
}

// AltitudeRef returns the GPSAltitudeRef byte: 1 below sea level, 0 otherwise.
func AltitudeRef(alt float64) byte {
	if alt < 0 {
		return 1
	}
	return 0
}

// FromDMS converts a DMS triple to decimal degrees, negated for the "S" and "W" hemispheres.
func FromDMS(dms []exif.Rational, ref string) (float64, error) {
	if len(dms) != 3 {
		return 0, fmt.Errorf("%d components in dms value: %w", len(dms), ErrFormat)
	}

	var parts [3]float64
	for i, r := range dms {
		f, err := r.Float()
		if err != nil {
			return 0, fmt.Errorf("dms component %d: %w", i, err)
		}
		parts[i] = f
	}

	v := parts[0] + parts[1]/60 + parts[2]/3600
	if ref == "S" || ref == "W" {
		v = -v
	}
	return v, nil
}

// FromSingleRational converts an altitude to meters. It is negative only when
// ref marks the value as below sea level: the BYTE 1, or the ASCII "1" some
// writers store instead.
func FromSingleRational(v []exif.Rational, ref []byte) (float64, error) {
	if len(v) != 1 {
		return 0, fmt.Errorf("%d components in altitude: %w", len(v), ErrFormat)
	}
	f, err := v[0].Float()
	if err != nil {
		return 0, fmt.Errorf("altitude: %w", err)
	}
	if len(ref) > 0 && (ref[0] == 1 || ref[0] == '1') {
		f = -f
	}
	return f, nil
}
