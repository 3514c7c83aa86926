package pipeline

import (
	"context"
	"errors"
	"iter"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trend-pipeline/internal/model"
)

func rowsOf(rows ...[]string) iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		for _, r := range rows {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func recordsOf(recs ...model.Record) iter.Seq2[model.Record, error] {
	return func(yield func(model.Record, error) bool) {
		for _, r := range recs {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func longRowsOf(rows ...model.LongRow) iter.Seq2[model.LongRow, error] {
	return func(yield func(model.LongRow, error) bool) {
		for _, r := range rows {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func collect[T any](t *testing.T, seq iter.Seq2[T, error]) []T {
	t.Helper()
	var out []T
	for v, err := range seq {
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// salesSchema is a small long-layout schema used across tests.
func salesSchema() model.Schema {
	return model.Schema{
		Kind:         "sales",
		Layout:       model.LayoutLong,
		DateField:    "day",
		MeasureField: "amount",
		Fields: []model.FieldSpec{
			{Name: "region", Column: "Region", Type: model.TypeString, Role: model.RoleKey, Required: true},
			{Name: "day", Column: "Day", Type: model.TypeDate, Role: model.RoleKey, Required: true},
			{Name: "amount", Column: "Amount", Type: model.TypeNumeric, Role: model.RoleMeasure},
			{Name: "note", Column: "Note", Type: model.TypeString, Role: model.RoleIgnored},
		},
	}
}

// isoWideSchema is a wide schema with ISO date period columns.
func isoWideSchema() model.Schema {
	return model.Schema{
		Kind:   "iso_wide",
		Layout: model.LayoutWide,
		Fields: []model.FieldSpec{
			{Name: "key", Type: model.TypeString, Role: model.RoleKey},
		},
		Period: &model.PeriodSpec{
			Pattern: regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`),
			Layout:  "2006/01/02",
		},
	}
}

// sliceSource is an in-memory source.
type sliceSource struct {
	name string
	rows [][]string
	err  error
}

func (s sliceSource) Name() string { return s.name }

func (s sliceSource) Rows(ctx context.Context) iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		for _, r := range s.rows {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(r, nil) {
				return
			}
		}
		if s.err != nil {
			yield(nil, s.err)
		}
	}
}

// closingSource records when its row stream has been released.
type closingSource struct {
	sliceSource
	closed *atomic.Bool
}

func (s closingSource) Rows(ctx context.Context) iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		defer s.closed.Store(true)
		for row, err := range s.sliceSource.Rows(ctx) {
			if !yield(row, err) {
				return
			}
		}
	}
}

var errBoom = errors.New("boom")
