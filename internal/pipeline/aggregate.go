package pipeline

import (
	"cmp"
	"iter"
	"slices"
	"time"

	"trend-pipeline/internal/model"
)

// CollapsedKey is the group key of a collapsed series.
const CollapsedKey = "ALL"

type pointKey struct {
	group string
	date  int64
}

// aggregator accumulates rows into one point per (group key, bucket date).
type aggregator struct {
	reduce model.Reduce
	bucket model.Bucket
	points map[pointKey]*model.AggregatedPoint
}

func newAggregator(reduce model.Reduce, bucket model.Bucket) *aggregator {
	return &aggregator{reduce: reduce, bucket: bucket, points: make(map[pointKey]*model.AggregatedPoint)}
}

func (a *aggregator) add(key model.GroupKey, date time.Time, value float64, count int, absent bool) {
	date = a.bucket.Truncate(date)
	k := pointKey{group: key.String(), date: date.Unix()}
	p, ok := a.points[k]
	if !ok {
		p = &model.AggregatedPoint{GroupKey: slices.Clone(key), Date: date}
		a.points[k] = p
	}
	p.Count += count
	switch a.reduce {
	case model.ReduceCount:
		p.Value = float64(p.Count)
	default:
		if !absent {
			p.Value += value
		}
	}
}

func (a *aggregator) result() []model.AggregatedPoint {
	out := make([]model.AggregatedPoint, 0, len(a.points))
	for _, p := range a.points {
		out = append(out, *p)
	}
	SortPoints(out)
	return out
}

// Aggregate reduces long rows to one point per (group key, bucket date).
// Sum skips absent values; count counts every row. The result does not
// depend on input order and is sorted by group key, then date.
func Aggregate(rows iter.Seq2[model.LongRow, error], reduce model.Reduce, bucket model.Bucket) ([]model.AggregatedPoint, error) {
	a := newAggregator(reduce, bucket)
	n := 0
	for row, err := range rows {
		if err != nil {
			return nil, err
		}
		n++
		a.add(row.GroupKey, row.Date, row.Value, 1, row.Absent)
	}
	if n == 0 {
		return nil, stageErr(StageAggregate, ErrEmptyAfterCleaning, "no rows survived cleaning")
	}
	return a.result(), nil
}

// Collapse re-aggregates points across groups into a single series keyed
// by CollapsedKey.
func Collapse(points []model.AggregatedPoint) []model.AggregatedPoint {
	a := newAggregator(model.ReduceSum, model.BucketDay)
	key := model.GroupKey{CollapsedKey}
	for _, p := range points {
		k := pointKey{date: p.Date.Unix()}
		agg, ok := a.points[k]
		if !ok {
			agg = &model.AggregatedPoint{GroupKey: key, Date: p.Date}
			a.points[k] = agg
		}
		agg.Value += p.Value
		agg.Count += p.Count
	}
	return a.result()
}

// SeriesByGroup splits points into one dated series per group key.
func SeriesByGroup(points []model.AggregatedPoint, bucket model.Bucket) []model.Series {
	sorted := slices.Clone(points)
	SortPoints(sorted)

	var out []model.Series
	for _, p := range sorted {
		if n := len(out); n == 0 || !out[n-1].GroupKey.Equal(p.GroupKey) {
			out = append(out, model.Series{GroupKey: slices.Clone(p.GroupKey), Bucket: bucket})
		}
		s := &out[len(out)-1]
		s.Points = append(s.Points, model.DatedValue{Date: p.Date, Value: p.Value})
	}
	return out
}

// SortPoints orders points by group key, then date.
func SortPoints(points []model.AggregatedPoint) {
	slices.SortFunc(points, func(a, b model.AggregatedPoint) int {
		if c := slices.Compare(a.GroupKey, b.GroupKey); c != 0 {
			return c
		}
		return cmp.Compare(a.Date.Unix(), b.Date.Unix())
	})
}
