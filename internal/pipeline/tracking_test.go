package pipeline

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trend-pipeline/internal/model"
)

func TestTrackerRecordSource(t *testing.T) {
	tracker := NewTracker()
	notes := model.NewQualityNotes()
	notes.RowsRead = 10
	notes.BlankRows = 1
	notes.DroppedRows = 2
	notes.DateFailure("day")
	notes.DateFailure("day")
	notes.UnknownCategory("borough")

	tracker.RecordSource(model.SourceResult{
		Source:  "a.csv",
		Quality: notes,
		Points:  make([]model.AggregatedPoint, 4),
		Groups:  []model.GroupResult{{Model: &model.TrendModel{}}, {}},
	})
	tracker.ObserveStage(StageLoad, time.Now().Add(-time.Second))

	assert.Equal(t, 10.0, counterValue(t, tracker, "trend_pipeline_rows_read_total", map[string]string{"source": "a.csv"}))
	assert.Equal(t, 3.0, counterValue(t, tracker, "trend_pipeline_rows_dropped_total", map[string]string{"source": "a.csv"}))
	assert.Equal(t, 2.0, counterValue(t, tracker, "trend_pipeline_quality_issues_total", map[string]string{"field": "day", "issue": "date_parse"}))
	assert.Equal(t, 1.0, counterValue(t, tracker, "trend_pipeline_quality_issues_total", map[string]string{"issue": "unknown_category"}))
	assert.Equal(t, 4.0, counterValue(t, tracker, "trend_pipeline_aggregated_points_total", nil))
	assert.Equal(t, 1.0, counterValue(t, tracker, "trend_pipeline_groups_total", map[string]string{"outcome": "unfitted"}))

	t.Run("handler exposes metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		tracker.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		body, err := io.ReadAll(rec.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "trend_pipeline_stage_duration_seconds_bucket")
		assert.Contains(t, string(body), `trend_pipeline_source_runs_total{status="ok"} 1`)
	})
}

func TestNilTracker(t *testing.T) {
	var tracker *Tracker
	assert.NotPanics(t, func() {
		tracker.ObserveStage(StageLoad, time.Now())
		tracker.RecordSource(model.SourceResult{Quality: model.NewQualityNotes()})
	})
	assert.Nil(t, tracker.Registry())
	assert.NotNil(t, tracker.Handler())
}
