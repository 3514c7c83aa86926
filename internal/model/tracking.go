package model

import "time"

// QualityNotes collects row-level problems that were recovered rather than
// surfaced. One instance belongs to one source chain.
type QualityNotes struct {
	RowsRead          int            `json:"rows_read"`
	BlankRows         int            `json:"blank_rows"`
	DroppedRows       int            `json:"dropped_rows"`
	DateFailures      map[string]int `json:"date_failures,omitempty"`
	NumericFailures   map[string]int `json:"numeric_failures,omitempty"`
	UnknownCategories map[string]int `json:"unknown_categories,omitempty"`
}

// NewQualityNotes returns empty notes.
func NewQualityNotes() *QualityNotes {
	return &QualityNotes{
		DateFailures:      make(map[string]int),
		NumericFailures:   make(map[string]int),
		UnknownCategories: make(map[string]int),
	}
}

func (q *QualityNotes) DateFailure(field string)     { q.DateFailures[field]++ }
func (q *QualityNotes) NumericFailure(field string)  { q.NumericFailures[field]++ }
func (q *QualityNotes) UnknownCategory(field string) { q.UnknownCategories[field]++ }

// Total sums every recovered problem.
func (q *QualityNotes) Total() int {
	n := q.BlankRows + q.DroppedRows
	for _, m := range []map[string]int{q.DateFailures, q.NumericFailures, q.UnknownCategories} {
		for _, c := range m {
			n += c
		}
	}
	return n
}

// GroupResult is the trend outcome for one grouping key.
type GroupResult struct {
	GroupKey GroupKey       `json:"group_key"`
	Model    *TrendModel    `json:"model,omitempty"`
	Series   CombinedSeries `json:"series"`
	Err      string         `json:"error,omitempty"`
}

// SourceResult is everything one source chain hands to a Presenter.
type SourceResult struct {
	RunID     string            `json:"run_id"`
	Source    string            `json:"source"`
	Kind      string            `json:"kind"`
	StartedAt time.Time         `json:"started_at"`
	Duration  time.Duration     `json:"duration"`
	Points    []AggregatedPoint `json:"points"`
	Groups    []GroupResult     `json:"groups"`
	Quality   *QualityNotes     `json:"quality"`
	Err       error             `json:"-"`
	Error     string            `json:"error,omitempty"`
}

// Failed reports whether the source chain aborted.
func (r SourceResult) Failed() bool { return r.Err != nil }
