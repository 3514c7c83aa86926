package model

import (
	"fmt"
	"math"
	"time"
)

// Bucket is the time granularity of aggregation and of trend offsets.
type Bucket string

const (
	BucketDay   Bucket = "day"
	BucketMonth Bucket = "month"
	BucketYear  Bucket = "year"
)

// ParseBucket validates a bucket name.
func ParseBucket(s string) (Bucket, error) {
	switch b := Bucket(s); b {
	case BucketDay, BucketMonth, BucketYear:
		return b, nil
	case "":
		return BucketDay, nil
	default:
		return "", fmt.Errorf("unknown bucket %q", s)
	}
}

// Truncate maps t onto the start of its bucket, in UTC.
func (b Bucket) Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	switch b {
	case BucketYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	case BucketMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
}

// Offset counts whole buckets from origin to t.
func (b Bucket) Offset(origin, t time.Time) int {
	origin, t = b.Truncate(origin), b.Truncate(t)
	switch b {
	case BucketYear:
		return t.Year() - origin.Year()
	case BucketMonth:
		return (t.Year()-origin.Year())*12 + int(t.Month()) - int(origin.Month())
	default:
		return int(math.Round(t.Sub(origin).Hours() / 24))
	}
}

// Advance returns the start of the bucket n steps after origin.
func (b Bucket) Advance(origin time.Time, n int) time.Time {
	origin = b.Truncate(origin)
	switch b {
	case BucketYear:
		return origin.AddDate(n, 0, 0)
	case BucketMonth:
		return origin.AddDate(0, n, 0)
	default:
		return origin.AddDate(0, 0, n)
	}
}

// TrendModel is an ordinary-least-squares line over integer time offsets.
type TrendModel struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	Offsets   []int   `json:"fitted_on_offsets"`
}

// At evaluates the line at offset.
func (m TrendModel) At(offset int) float64 {
	return m.Slope*float64(offset) + m.Intercept
}

// PredictedPoint is the model's value at one offset.
type PredictedPoint struct {
	Offset int     `json:"offset"`
	Value  float64 `json:"value"`
}

// DatedValue is one point of a plain series.
type DatedValue struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is a dated sequence for one group at one bucket granularity.
type Series struct {
	GroupKey GroupKey     `json:"group_key"`
	Bucket   Bucket       `json:"bucket"`
	Points   []DatedValue `json:"points"`
}

// PointKind tags a combined-series point as observed or projected.
type PointKind string

const (
	KindActual    PointKind = "actual"
	KindPredicted PointKind = "predicted"
)

// SeriesPoint is one tagged point of a CombinedSeries.
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
	Kind  PointKind `json:"kind"`
}

// CombinedSeries holds actual and predicted points ordered by date.
type CombinedSeries struct {
	GroupKey GroupKey      `json:"group_key"`
	Bucket   Bucket        `json:"bucket"`
	Points   []SeriesPoint `json:"points"`
}
