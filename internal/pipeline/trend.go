package pipeline

import (
	"fmt"
	"slices"
	"time"

	"trend-pipeline/internal/model"
)

// OffsetValue is one observation on the integer time axis.
type OffsetValue struct {
	Offset int
	Value  float64
}

// Fit computes the ordinary-least-squares line through points.
// It needs at least two distinct offsets.
func Fit(points []OffsetValue) (model.TrendModel, error) {
	offsets := make([]int, 0, len(points))
	for _, p := range points {
		offsets = append(offsets, p.Offset)
	}
	slices.Sort(offsets)
	if distinct := slices.Compact(slices.Clone(offsets)); len(distinct) < 2 {
		return model.TrendModel{}, &StageError{
			Stage:   StageTrend,
			Count:   len(distinct),
			Message: fmt.Sprintf("%d distinct offsets, need 2", len(distinct)),
			Err:     ErrInsufficientData,
		}
	}

	n := float64(len(points))
	var sumX, sumY float64
	for _, p := range points {
		sumX += float64(p.Offset)
		sumY += p.Value
	}
	meanX, meanY := sumX/n, sumY/n

	var sxy, sxx float64
	for _, p := range points {
		dx := float64(p.Offset) - meanX
		sxy += dx * (p.Value - meanY)
		sxx += dx * dx
	}
	slope := sxy / sxx
	return model.TrendModel{
		Slope:     slope,
		Intercept: meanY - slope*meanX,
		Offsets:   offsets,
	}, nil
}

// Predict evaluates m at each offset. Extrapolation is unbounded.
func Predict(m model.TrendModel, offsets []int) []model.PredictedPoint {
	out := make([]model.PredictedPoint, len(offsets))
	for i, o := range offsets {
		out[i] = model.PredictedPoint{Offset: o, Value: m.At(o)}
	}
	return out
}

// OffsetsFor places a series on the integer axis: offsets count buckets
// since the series' earliest date, which is returned as the origin.
func OffsetsFor(series model.Series) ([]OffsetValue, time.Time) {
	if len(series.Points) == 0 {
		return nil, time.Time{}
	}
	origin := series.Points[0].Date
	for _, p := range series.Points[1:] {
		if p.Date.Before(origin) {
			origin = p.Date
		}
	}
	origin = series.Bucket.Truncate(origin)

	out := make([]OffsetValue, len(series.Points))
	for i, p := range series.Points {
		out[i] = OffsetValue{Offset: series.Bucket.Offset(origin, p.Date), Value: p.Value}
	}
	return out, origin
}

// Forecast projects m over the horizon periods that follow the last
// fitted offset.
func Forecast(series model.Series, m model.TrendModel, origin time.Time, horizon int) model.Series {
	out := model.Series{GroupKey: slices.Clone(series.GroupKey), Bucket: series.Bucket}
	if horizon <= 0 || len(m.Offsets) == 0 {
		return out
	}
	last := slices.Max(m.Offsets)
	offsets := make([]int, horizon)
	for i := range offsets {
		offsets[i] = last + i + 1
	}
	for _, p := range Predict(m, offsets) {
		out.Points = append(out.Points, model.DatedValue{
			Date:  series.Bucket.Advance(origin, p.Offset),
			Value: p.Value,
		})
	}
	return out
}
