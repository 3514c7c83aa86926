package pipeline

import (
	"errors"
	"iter"
	"log/slog"
	"strings"
	"time"

	"trend-pipeline/internal/model"
	"trend-pipeline/pkg/utils"
)

// DefaultDateFormat is used for date fields that declare no layout.
const DefaultDateFormat = "2006-01-02"

// Cleaner coerces raw records into typed values and applies the
// missing-value policy.
type Cleaner struct {
	DateFormat string
	Policy     model.MissingPolicy
	Notes      *model.QualityNotes
	Logger     *slog.Logger
}

// NewCleaner returns a cleaner with defaults filled in.
func NewCleaner(dateFormat string, policy model.MissingPolicy, notes *model.QualityNotes, logger *slog.Logger) *Cleaner {
	if dateFormat == "" {
		dateFormat = DefaultDateFormat
	}
	if policy == "" {
		policy = model.DropRow
	}
	if notes == nil {
		notes = model.NewQualityNotes()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{DateFormat: dateFormat, Policy: policy, Notes: notes, Logger: logger}
}

// Clean coerces every record against schema. Parse failures never abort:
// they become absent values and are counted in Notes.
func (c *Cleaner) Clean(records iter.Seq2[model.Record, error], schema Resolved) iter.Seq2[model.CleanedRecord, error] {
	fields := make([]model.FieldSpec, 0, len(schema.Fields))
	domains := make(map[string]categoryDomain)
	for _, f := range schema.Fields {
		if !f.Modeled() {
			continue
		}
		fields = append(fields, f)
		if f.Type == model.TypeCategorical {
			domains[f.Name] = newCategoryDomain(f)
		}
	}

	return func(yield func(model.CleanedRecord, error) bool) {
		for rec, err := range records {
			if err != nil {
				yield(model.CleanedRecord{}, err)
				return
			}
			cleaned, keep := c.cleanRecord(rec, fields, domains)
			if !keep {
				continue
			}
			if !yield(cleaned, nil) {
				return
			}
		}
	}
}

func (c *Cleaner) cleanRecord(rec model.Record, fields []model.FieldSpec, domains map[string]categoryDomain) (model.CleanedRecord, bool) {
	out := model.CleanedRecord{Line: rec.Line, Fields: make(map[string]model.Value, len(fields))}
	for _, f := range fields {
		v := c.coerce(f, rec.Values[f.Name], domains[f.Name], rec.Line)
		if v.Missing && f.Required && c.Policy == model.DropRow {
			c.Notes.DroppedRows++
			c.Logger.Debug("row dropped by missing-value policy",
				slog.Int("line", rec.Line),
				slog.String("field", f.Name))
			return model.CleanedRecord{}, false
		}
		out.Fields[f.Name] = v
	}
	return out, true
}

func (c *Cleaner) coerce(f model.FieldSpec, raw string, domain categoryDomain, line int) model.Value {
	raw = strings.TrimSpace(raw)
	v := model.Value{Type: f.Type}

	switch f.Type {
	case model.TypeDate:
		v.Date = model.None[time.Time]()
		if raw == "" {
			v.Missing = true
			break
		}
		layout := f.Layout
		if layout == "" {
			layout = c.DateFormat
		}
		t, err := time.Parse(layout, raw)
		if err != nil {
			v.Missing = true
			c.Notes.DateFailure(f.Name)
			c.Logger.Debug("date parse failure",
				slog.Int("line", line),
				slog.String("field", f.Name),
				slog.String("value", raw),
				slog.String("error", errors.Join(ErrDateParse, err).Error()))
			break
		}
		v.Date = model.Some(t)

	case model.TypeNumeric:
		v.Number = model.None[float64]()
		n, err := utils.ParseNumber(raw)
		if err != nil {
			v.Missing = true
			if !errors.Is(err, utils.ErrEmpty) {
				c.Notes.NumericFailure(f.Name)
				c.Logger.Debug("numeric parse failure",
					slog.Int("line", line),
					slog.String("field", f.Name),
					slog.String("value", raw))
			}
			break
		}
		v.Number = model.Some(n)

	case model.TypeCategorical:
		level, known := domain.resolve(raw)
		v.Text = level
		v.Missing = raw == ""
		if !known {
			c.Notes.UnknownCategory(f.Name)
		}

	default:
		v.Text = raw
		v.Missing = raw == ""
	}
	return v
}

// categoryDomain is the closed enumeration of one categorical field.
type categoryDomain struct {
	levels  map[string]string
	aliases map[string]string
}

func newCategoryDomain(f model.FieldSpec) categoryDomain {
	d := categoryDomain{
		levels:  make(map[string]string, len(f.Categories)),
		aliases: make(map[string]string, len(f.Aliases)),
	}
	for _, l := range f.Categories {
		d.levels[normalizeLevel(l)] = l
	}
	for raw, target := range f.Aliases {
		d.aliases[normalizeLevel(raw)] = target
	}
	return d
}

// resolve maps a raw value into the domain. known is false only for
// non-empty values that are neither a level nor an alias.
func (d categoryDomain) resolve(raw string) (level string, known bool) {
	n := normalizeLevel(raw)
	if n == "" {
		return model.Unknown, true
	}
	if l, ok := d.levels[n]; ok {
		return l, true
	}
	if t, ok := d.aliases[n]; ok {
		return t, true
	}
	return model.Unknown, false
}

func normalizeLevel(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
