package pipeline

import (
	"fmt"
	"slices"

	"trend-pipeline/internal/model"
)

// Merge combines actual and predicted points into one date-ordered series.
// On a shared date both points are kept, actual first.
func Merge(actual, predicted model.Series) (model.CombinedSeries, error) {
	if !actual.GroupKey.Equal(predicted.GroupKey) || actual.Bucket != predicted.Bucket {
		return model.CombinedSeries{}, &StageError{
			Stage: StageMerge,
			Message: fmt.Sprintf("actual %s/%s vs predicted %s/%s",
				actual.GroupKey, actual.Bucket, predicted.GroupKey, predicted.Bucket),
			Err: ErrSchemaMismatch,
		}
	}
	for _, s := range []struct {
		kind   model.PointKind
		series model.Series
	}{{model.KindActual, actual}, {model.KindPredicted, predicted}} {
		if err := checkUniqueDates(s.series); err != nil {
			return model.CombinedSeries{}, &StageError{Stage: StageMerge, Field: string(s.kind), Message: err.Error(), Err: ErrDuplicatePoint}
		}
	}

	points := make([]model.SeriesPoint, 0, len(actual.Points)+len(predicted.Points))
	for _, p := range actual.Points {
		points = append(points, model.SeriesPoint{Date: p.Date, Value: p.Value, Kind: model.KindActual})
	}
	for _, p := range predicted.Points {
		points = append(points, model.SeriesPoint{Date: p.Date, Value: p.Value, Kind: model.KindPredicted})
	}
	slices.SortStableFunc(points, func(a, b model.SeriesPoint) int {
		return a.Date.Compare(b.Date)
	})

	return model.CombinedSeries{
		GroupKey: slices.Clone(actual.GroupKey),
		Bucket:   actual.Bucket,
		Points:   points,
	}, nil
}

func checkUniqueDates(s model.Series) error {
	seen := make(map[int64]bool, len(s.Points))
	for _, p := range s.Points {
		k := p.Date.UnixNano()
		if seen[k] {
			return fmt.Errorf("date %s repeated", p.Date.Format("2006-01-02"))
		}
		seen[k] = true
	}
	return nil
}
