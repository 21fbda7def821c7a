package exif

import (
	"errors"
	"fmt"
)

// ErrZeroDenominator is returned when a rational with a zero denominator is evaluated.
var ErrZeroDenominator = errors.New("rational has zero denominator")

// Rational is an unsigned EXIF RATIONAL: two 32-bit unsigned integers.
type Rational struct {
	Numerator   uint32
	Denominator uint32
}

// Float returns the value of r.
func (r Rational) Float() (float64, error) {
	if r.Denominator == 0 {
		return 0, fmt.Errorf("%s: %w", r, ErrZeroDenominator)
	}
	return float64(r.Numerator) / float64(r.Denominator), nil
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Numerator, r.Denominator)
}
