package validation

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrCoordinateEmpty is returned when a coordinate parameter is missing or
// whitespace-only.
var ErrCoordinateEmpty = errors.New("coordinate is required")

// ErrCoordinateNotANumber is returned when a coordinate cannot be parsed as
// a decimal number.
var ErrCoordinateNotANumber = errors.New("coordinate is not a number")

// ErrCoordinateNotFinite is returned for NaN and infinite values.
var ErrCoordinateNotFinite = errors.New("coordinate must be finite")

// ParseCoordinate trims and parses a latitude or longitude parameter,
// rejecting non-numeric and non-finite values. Range validation is not
// performed; out-of-range coordinates simply produce upstream lookup
// failures downstream.
func ParseCoordinate(input string) (float64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, ErrCoordinateEmpty
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrCoordinateNotANumber
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrCoordinateNotFinite
	}
	return v, nil
}
