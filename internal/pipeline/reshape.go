package pipeline

import (
	"fmt"
	"iter"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"trend-pipeline/internal/model"
)

// DateTokenParser turns a period column label into the date it stands for.
type DateTokenParser interface {
	ParseToken(column string) (time.Time, error)
}

// PatternParser extracts the capture groups of Pattern from a label, joins
// them with "/" and parses the result with Layout. A pattern without groups
// parses the whole match.
type PatternParser struct {
	Pattern *regexp.Regexp
	Layout  string
}

// ParseToken implements DateTokenParser.
func (p PatternParser) ParseToken(column string) (time.Time, error) {
	m := p.Pattern.FindStringSubmatch(column)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: label %q does not match %s", ErrDateParse, column, p.Pattern)
	}
	token := m[0]
	if len(m) > 1 {
		token = strings.Join(m[1:], "/")
	}
	t, err := time.Parse(p.Layout, token)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: label %q: %v", ErrDateParse, column, err)
	}
	return t, nil
}

// ToLong unpivots one wide record into one LongRow per period column.
// Absent period values contribute zero, so the emitted values always sum
// to the record's total.
func ToLong(rec model.CleanedRecord, keyFields []string, periods []string, parser DateTokenParser) ([]model.LongRow, error) {
	dates := make([]time.Time, len(periods))
	for i, p := range periods {
		d, err := parser.ParseToken(p)
		if err != nil {
			return nil, &StageError{Stage: StageReshape, Field: p, Message: fmt.Sprintf("line %d", rec.Line), Err: err}
		}
		dates[i] = d
	}
	return toLong(rec, groupKey(rec, keyFields), periods, dates), nil
}

func toLong(rec model.CleanedRecord, key model.GroupKey, periods []string, dates []time.Time) []model.LongRow {
	rows := make([]model.LongRow, len(periods))
	for i, p := range periods {
		rows[i] = model.LongRow{
			GroupKey: key,
			Date:     dates[i],
			Value:    rec.Fields[p].Number.OrElse(0),
		}
	}
	return rows
}

// Observe maps one long-layout record onto a LongRow. Records with an
// absent date are excluded (ok is false). Without a measure field every
// record counts as one observation.
func Observe(rec model.CleanedRecord, schema Resolved) (model.LongRow, bool) {
	date, ok := rec.Fields[schema.DateField].Date.Get()
	if !ok {
		return model.LongRow{}, false
	}
	row := model.LongRow{
		GroupKey: groupKey(rec, schema.GroupFields()),
		Date:     date,
		Value:    1,
	}
	if schema.MeasureField != "" {
		v, present := rec.Fields[schema.MeasureField].Number.Get()
		row.Value = v
		row.Absent = !present
	}
	return row, true
}

func groupKey(rec model.CleanedRecord, fields []string) model.GroupKey {
	key := make(model.GroupKey, len(fields))
	for i, name := range fields {
		key[i] = keyText(rec.Fields[name])
	}
	return key
}

func keyText(v model.Value) string {
	switch v.Type {
	case model.TypeDate:
		if d, ok := v.Date.Get(); ok {
			return d.Format(time.DateOnly)
		}
	case model.TypeNumeric:
		if n, ok := v.Number.Get(); ok {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
	default:
		if v.Text != "" {
			return v.Text
		}
	}
	return model.Unknown
}

// Reshaper converts cleaned records into long rows for its schema's layout.
type Reshaper struct {
	Schema Resolved
	Parser DateTokenParser
	Logger *slog.Logger
}

// NewReshaper returns a reshaper that parses period labels with the
// schema's own period spec.
func NewReshaper(schema Resolved, logger *slog.Logger) *Reshaper {
	r := &Reshaper{Schema: schema, Logger: logger}
	if schema.Period != nil {
		r.Parser = PatternParser{Pattern: schema.Period.Pattern, Layout: schema.Period.Layout}
	}
	if r.Logger == nil {
		r.Logger = slog.Default()
	}
	return r
}

// Rows streams long rows. Period labels are parsed once, before the first
// record is read; a malformed label ends the sequence with ErrDateParse.
func (r *Reshaper) Rows(cleaned iter.Seq2[model.CleanedRecord, error]) iter.Seq2[model.LongRow, error] {
	if r.Schema.Layout == model.LayoutWide {
		return r.wide(cleaned)
	}
	return func(yield func(model.LongRow, error) bool) {
		excluded := 0
		defer func() {
			if excluded > 0 {
				r.Logger.Debug("records without a date excluded", slog.Int("count", excluded))
			}
		}()
		for rec, err := range cleaned {
			if err != nil {
				yield(model.LongRow{}, err)
				return
			}
			row, ok := Observe(rec, r.Schema)
			if !ok {
				excluded++
				continue
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

func (r *Reshaper) wide(cleaned iter.Seq2[model.CleanedRecord, error]) iter.Seq2[model.LongRow, error] {
	return func(yield func(model.LongRow, error) bool) {
		if r.Parser == nil {
			release(cleaned)
			yield(model.LongRow{}, stageErr(StageReshape, ErrSchemaMismatch, "wide layout without a date token parser"))
			return
		}
		periods := r.Schema.Periods
		dates := make([]time.Time, len(periods))
		for i, p := range periods {
			d, err := r.Parser.ParseToken(p)
			if err != nil {
				release(cleaned)
				yield(model.LongRow{}, &StageError{Stage: StageReshape, Field: p, Err: err})
				return
			}
			dates[i] = d
		}
		keys := r.Schema.KeyFields()

		for rec, err := range cleaned {
			if err != nil {
				yield(model.LongRow{}, err)
				return
			}
			for _, row := range toLong(rec, groupKey(rec, keys), periods, dates) {
				if !yield(row, nil) {
					return
				}
			}
		}
	}
}

// release starts seq and stops it at once, so upstream stages run their
// cleanup and the source is closed.
func release[V any](seq iter.Seq2[V, error]) {
	for range seq {
		break
	}
}
