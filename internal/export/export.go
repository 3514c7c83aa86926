// Package export hands finished source results to their destinations.
package export

import (
	"context"
	"errors"
	"time"

	"trend-pipeline/internal/model"
)

// Presenter consumes the final per-source results of one run.
type Presenter interface {
	Present(ctx context.Context, results []model.SourceResult) error
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(ctx context.Context, results []model.SourceResult) error

func (f PresenterFunc) Present(ctx context.Context, results []model.SourceResult) error {
	return f(ctx, results)
}

// Presenters fans results out to every presenter. All presenters run even
// when one fails; the failures are joined.
type Presenters []Presenter

func (ps Presenters) Present(ctx context.Context, results []model.SourceResult) error {
	var errs []error
	for _, p := range ps {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := p.Present(ctx, results); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ExportResult represents the result of an export operation
type ExportResult struct {
	Type        string    `json:"type"` // "csv", "json", "sqlite"
	Path        string    `json:"path"`
	Source      string    `json:"source"`
	RecordCount int       `json:"record_count"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	ExportedAt  time.Time `json:"exported_at"`
}
