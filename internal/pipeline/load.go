package pipeline

import (
	"fmt"
	"iter"
	"strings"

	"trend-pipeline/internal/model"
	"trend-pipeline/pkg/utils"
)

// LoadOptions controls how raw rows are zipped against a schema.
type LoadOptions struct {
	HasHeader bool
	Notes     *model.QualityNotes
}

// Load binds a raw row stream to schema. With a header, cells are matched
// to fields by column name; without one, positionally. The returned
// sequence is lazy and single-pass: rows are pulled from the source as it
// is ranged, and ranging it a second time yields nothing. Callers must
// range it (or stop early) so the source is released.
func Load(rows iter.Seq2[[]string, error], schema model.Schema, opts LoadOptions) (Resolved, iter.Seq2[model.Record, error], error) {
	notes := opts.Notes
	if notes == nil {
		notes = model.NewQualityNotes()
	}

	next, stop := iter.Pull2(rows)
	line := 0

	var (
		res   Resolved
		index []int
		width int
	)
	if opts.HasHeader {
		header, err, ok := next()
		if !ok {
			stop()
			return res, nil, stageErr(StageLoad, ErrSchemaMismatch, "missing header row")
		}
		if err != nil {
			stop()
			return res, nil, stageErr(StageLoad, err, "read header")
		}
		line++
		header = cleanHeader(header)

		if res, err = ResolveHeader(schema, header); err != nil {
			stop()
			return res, nil, err
		}
		if index, err = indexByHeader(res.Fields, header); err != nil {
			stop()
			return res, nil, err
		}
		width = len(header)
	} else {
		if schema.Layout == model.LayoutWide {
			stop()
			return res, nil, stageErr(StageLoad, ErrSchemaMismatch, "wide layout requires a header row")
		}
		res = Resolved{Schema: cloneSchema(schema)}
		index = make([]int, len(res.Fields))
		for i := range index {
			index[i] = i
		}
		width = len(res.Fields)
	}

	keys := res.KeyFields()

	seq := func(yield func(model.Record, error) bool) {
		defer stop()
		for {
			row, err, ok := next()
			if !ok {
				return
			}
			line++
			if err != nil {
				yield(model.Record{}, stageErr(StageLoad, err, "line %d", line))
				return
			}
			notes.RowsRead++

			if allEmpty(row) {
				notes.BlankRows++
				continue
			}
			if len(row) > width || (!opts.HasHeader && len(row) != width) {
				yield(model.Record{}, &StageError{
					Stage:   StageLoad,
					Count:   len(row),
					Message: fmt.Sprintf("line %d has %d cells, schema expects %d", line, len(row), width),
					Err:     ErrSchemaMismatch,
				})
				return
			}

			values := make(map[string]string, len(res.Fields))
			for i, f := range res.Fields {
				if col := index[i]; col >= 0 && col < len(row) {
					values[f.Name] = row[col]
				} else {
					values[f.Name] = ""
				}
			}
			if blankKeys(values, keys) {
				notes.BlankRows++
				continue
			}
			if !yield(model.Record{Line: line, Values: values}, nil) {
				return
			}
		}
	}
	return res, seq, nil
}

// cleanHeader trims whitespace, quotes and a UTF-8 BOM from header names.
func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		h = strings.ReplaceAll(strings.TrimSpace(h), `"`, "")
		out[i] = h
	}
	return out
}

func indexByHeader(fields []model.FieldSpec, header []string) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	index := make([]int, len(fields))
	for i, f := range fields {
		col, ok := pos[f.ColumnName()]
		if !ok {
			if f.Modeled() {
				return nil, &StageError{Stage: StageLoad, Field: f.Name, Message: fmt.Sprintf("column %q not in header", f.ColumnName()), Err: ErrSchemaMismatch}
			}
			col = -1
		}
		index[i] = col
	}
	return index, nil
}

func allEmpty(row []string) bool {
	for _, c := range row {
		if !utils.IsBlank(c) {
			return false
		}
	}
	return true
}

func blankKeys(values map[string]string, keys []string) bool {
	if len(keys) == 0 {
		return false
	}
	for _, k := range keys {
		if !utils.IsBlank(values[k]) {
			return false
		}
	}
	return true
}
