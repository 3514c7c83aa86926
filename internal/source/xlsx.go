package source

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/xuri/excelize/v2"
)

// XLSXSource reads one worksheet of a local workbook.
type XLSXSource struct {
	name   string
	Path   string
	Sheet  string // first sheet when empty
	Logger *slog.Logger
}

// NewXLSX returns a source for the named sheet of the workbook at path.
func NewXLSX(name, path, sheet string) *XLSXSource {
	return &XLSXSource{name: name, Path: path, Sheet: sheet, Logger: slog.Default()}
}

func (s *XLSXSource) Name() string { return s.name }

// Rows streams the sheet row by row using excelize's row iterator.
func (s *XLSXSource) Rows(ctx context.Context) iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		f, err := excelize.OpenFile(s.Path)
		if err != nil {
			yield(nil, fmt.Errorf("failed to open workbook: %w", err))
			return
		}
		defer f.Close()

		sheet := s.Sheet
		if sheet == "" {
			list := f.GetSheetList()
			if len(list) == 0 {
				yield(nil, fmt.Errorf("workbook %s has no sheets", s.Path))
				return
			}
			sheet = list[0]
		}

		rows, err := f.Rows(sheet)
		if err != nil {
			yield(nil, fmt.Errorf("sheet %q: %w", sheet, err))
			return
		}
		defer rows.Close()

		n := 0
		for rows.Next() {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			cols, err := rows.Columns()
			if err != nil {
				yield(nil, fmt.Errorf("sheet %q row %d: %w", sheet, n+1, err))
				return
			}
			n++
			if !yield(cols, nil) {
				return
			}
		}
		if err := rows.Error(); err != nil {
			yield(nil, fmt.Errorf("sheet %q: %w", sheet, err))
			return
		}
		if s.Logger != nil {
			s.Logger.Debug("xlsx read complete", slog.String("sheet", sheet), slog.Int("rows", n))
		}
	}
}
