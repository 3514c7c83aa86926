package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trend-pipeline/internal/model"
)

func day(d int) time.Time {
	return time.Date(2020, 1, d, 0, 0, 0, 0, time.UTC)
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "trend.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRun(runID string, started time.Time) []model.SourceResult {
	notes := model.NewQualityNotes()
	notes.RowsRead = 3
	notes.DroppedRows = 1
	notes.DateFailure("day")

	key := model.GroupKey{"US", "NY"}
	fitted := model.GroupResult{
		GroupKey: key,
		Model:    &model.TrendModel{Slope: 2, Intercept: 3, Offsets: []int{0, 1}},
		Series: model.CombinedSeries{GroupKey: key, Bucket: model.BucketDay, Points: []model.SeriesPoint{
			{Date: day(1), Value: 3, Kind: model.KindActual},
			{Date: day(2), Value: 5, Kind: model.KindActual},
			{Date: day(3), Value: 7, Kind: model.KindPredicted},
		}},
	}
	unfitted := model.GroupResult{
		GroupKey: model.GroupKey{"US", "CA"},
		Err:      "insufficient data",
		Series: model.CombinedSeries{GroupKey: model.GroupKey{"US", "CA"}, Bucket: model.BucketDay, Points: []model.SeriesPoint{
			{Date: day(1), Value: 9, Kind: model.KindActual},
		}},
	}

	return []model.SourceResult{
		{
			RunID:     runID,
			Source:    "confirmed",
			Kind:      "case_counts",
			StartedAt: started,
			Duration:  1500 * time.Millisecond,
			Points: []model.AggregatedPoint{
				{GroupKey: key, Date: day(1), Value: 3, Count: 1},
				{GroupKey: key, Date: day(2), Value: 5, Count: 1},
				{GroupKey: model.GroupKey{"US", "CA"}, Date: day(1), Value: 9, Count: 1},
			},
			Groups:  []model.GroupResult{unfitted, fitted},
			Quality: notes,
		},
		{
			RunID:     runID,
			Source:    "broken",
			Kind:      "incidents",
			StartedAt: started,
			Quality:   model.NewQualityNotes(),
			Error:     "[load] source=broken: boom",
		},
	}
}

func TestPresentAndRead(t *testing.T) {
	db := openTestDB(t)
	ctx := t.Context()

	first := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.Present(ctx, sampleRun("run-1", first)))
	require.NoError(t, db.Present(ctx, sampleRun("run-2", first.Add(time.Hour))))

	t.Run("list runs newest first", func(t *testing.T) {
		runs, err := db.ListRuns(ctx)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, "run-2", runs[0].ID)
		assert.Equal(t, 2, runs[0].Sources)
		assert.Equal(t, 1, runs[0].Failed)
		assert.True(t, runs[1].StartedAt.Equal(first))
	})

	t.Run("get run", func(t *testing.T) {
		run, err := db.GetRun(ctx, "run-1")
		require.NoError(t, err)
		require.Len(t, run.Sources, 2)

		broken, confirmed := run.Sources[0], run.Sources[1]
		assert.Equal(t, "broken", broken.Source)
		assert.NotEmpty(t, broken.Error)
		assert.Equal(t, "confirmed", confirmed.Source)
		assert.Equal(t, int64(1500), confirmed.DurationMS)
		assert.Equal(t, 3, confirmed.Points)
		assert.Equal(t, 2, confirmed.Groups)
		require.NotNil(t, confirmed.Quality)
		assert.Equal(t, 1, confirmed.Quality.DateFailures["day"])
		assert.True(t, confirmed.StartedAt.Equal(first))
	})

	t.Run("series", func(t *testing.T) {
		all, err := db.GetSeries(ctx, "run-1", SeriesFilter{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, model.GroupKey{"US", "CA"}, all[0].Series.GroupKey)

		ny, err := db.GetSeries(ctx, "run-1", SeriesFilter{Source: "confirmed", GroupKey: "US|NY"})
		require.NoError(t, err)
		require.Len(t, ny, 1)
		s := ny[0].Series
		assert.Equal(t, model.BucketDay, s.Bucket)
		require.Len(t, s.Points, 3)
		assert.Equal(t, model.KindPredicted, s.Points[2].Kind)
		assert.Equal(t, 7.0, s.Points[2].Value)
		assert.True(t, s.Points[0].Date.Equal(day(1)))

		none, err := db.GetSeries(ctx, "run-1", SeriesFilter{Source: "other"})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("trends", func(t *testing.T) {
		trends, err := db.GetTrends(ctx, "run-2")
		require.NoError(t, err)
		require.Len(t, trends, 2)

		ca, ny := trends[0], trends[1]
		assert.Equal(t, model.GroupKey{"US", "CA"}, ca.GroupKey)
		assert.Nil(t, ca.Model)
		assert.Equal(t, "insufficient data", ca.Error)

		require.NotNil(t, ny.Model)
		assert.Equal(t, 2.0, ny.Model.Slope)
		assert.Equal(t, 3.0, ny.Model.Intercept)
		assert.Equal(t, []int{0, 1}, ny.Model.Offsets)
	})

	t.Run("unknown run", func(t *testing.T) {
		_, err := db.GetRun(ctx, "nope")
		assert.True(t, errors.Is(err, ErrNotFound))
		_, err = db.GetSeries(ctx, "nope", SeriesFilter{})
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = db.GetTrends(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGroupKeysWithSeparator(t *testing.T) {
	db := openTestDB(t)
	ctx := t.Context()

	left, right := model.GroupKey{"A|B", "C"}, model.GroupKey{"A", "B|C"}
	group := func(k model.GroupKey, v float64) model.GroupResult {
		return model.GroupResult{
			GroupKey: k,
			Model:    &model.TrendModel{Slope: v, Intercept: v, Offsets: []int{0, 1}},
			Series: model.CombinedSeries{GroupKey: k, Bucket: model.BucketDay, Points: []model.SeriesPoint{
				{Date: day(1), Value: v, Kind: model.KindActual},
			}},
		}
	}
	require.NoError(t, db.Present(ctx, []model.SourceResult{{
		RunID:     "run-1",
		Source:    "regions",
		Kind:      "case_counts",
		StartedAt: time.Now().UTC(),
		Quality:   model.NewQualityNotes(),
		Groups:    []model.GroupResult{group(left, 1), group(right, 2)},
	}}))

	series, err := db.GetSeries(ctx, "run-1", SeriesFilter{})
	require.NoError(t, err)
	require.Len(t, series, 2)
	var keys []model.GroupKey
	for _, s := range series {
		keys = append(keys, s.Series.GroupKey)
	}
	assert.ElementsMatch(t, []model.GroupKey{left, right}, keys)

	only, err := db.GetSeries(ctx, "run-1", SeriesFilter{GroupKey: right.String()})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, 2.0, only[0].Series.Points[0].Value)

	trends, err := db.GetTrends(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, trends, 2)
	assert.ElementsMatch(t, []model.GroupKey{left, right}, []model.GroupKey{trends[0].GroupKey, trends[1].GroupKey})
}

func TestPresentIsAtomic(t *testing.T) {
	db := openTestDB(t)
	ctx := t.Context()

	results := sampleRun("run-1", time.Now().UTC())
	results = append(results, results[0]) // same (id, source) violates the primary key
	require.Error(t, db.Present(ctx, results))

	runs, err := db.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
