package utils

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrEmpty is returned when a cell holds no value at all.
var ErrEmpty = errors.New("empty value")

// ParseDuration safely parses duration string like "5m"
func ParseDuration(d string, def time.Duration) time.Duration {
	if d == "" {
		return def
	}
	duration, err := time.ParseDuration(d)
	if err != nil {
		return def
	}
	return duration
}

// ParseNumber parses a numeric cell. Surrounding whitespace and thousands
// separators ("1,234") are tolerated; NaN and infinities are rejected.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmpty
	}
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrSyntax
	}
	return f, nil
}

// IsBlank reports whether a cell is empty after trimming.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
