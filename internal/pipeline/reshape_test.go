package pipeline

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trend-pipeline/internal/model"
)

func TestPatternParser(t *testing.T) {
	cc := CaseCountSchema()
	parser := PatternParser{Pattern: cc.Period.Pattern, Layout: cc.Period.Layout}

	tests := []struct {
		label   string
		want    time.Time
		wantErr bool
	}{
		{"1/22/20", date(2020, 1, 22), false},
		{"X1.22.20", date(2020, 1, 22), false},
		{"12/31/21", date(2021, 12, 31), false},
		{"13/45/20", time.Time{}, true},
		{"Country/Region", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := parser.ParseToken(tt.label)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrDateParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("pattern without groups", func(t *testing.T) {
		p := PatternParser{Pattern: regexp.MustCompile(`^\d{4}-\d{2}$`), Layout: "2006-01"}
		got, err := p.ParseToken("2021-07")
		require.NoError(t, err)
		assert.Equal(t, date(2021, 7, 1), got)
	})
}

func wideRecord(line int, key string, values map[string]model.Option[float64]) model.CleanedRecord {
	rec := model.CleanedRecord{Line: line, Fields: map[string]model.Value{
		"key": {Type: model.TypeString, Text: key, Missing: key == ""},
	}}
	for p, v := range values {
		rec.Fields[p] = model.Value{Type: model.TypeNumeric, Number: v, Missing: !v.Valid()}
	}
	return rec
}

func TestToLong(t *testing.T) {
	parser := PatternParser{Pattern: isoWideSchema().Period.Pattern, Layout: "2006/01/02"}
	periods := []string{"2020-01-01", "2020-01-02", "2020-01-03"}

	rec := wideRecord(2, "A", map[string]model.Option[float64]{
		"2020-01-01": model.Some(3.0),
		"2020-01-02": model.None[float64](),
		"2020-01-03": model.Some(5.0),
	})
	rows, err := ToLong(rec, []string{"key"}, periods, parser)
	require.NoError(t, err)
	assert.Equal(t, []model.LongRow{
		{GroupKey: model.GroupKey{"A"}, Date: date(2020, 1, 1), Value: 3},
		{GroupKey: model.GroupKey{"A"}, Date: date(2020, 1, 2), Value: 0},
		{GroupKey: model.GroupKey{"A"}, Date: date(2020, 1, 3), Value: 5},
	}, rows)

	t.Run("absent key becomes unknown", func(t *testing.T) {
		rows, err := ToLong(wideRecord(3, "", nil), []string{"key"}, periods[:1], parser)
		require.NoError(t, err)
		assert.Equal(t, model.GroupKey{model.Unknown}, rows[0].GroupKey)
	})

	t.Run("malformed label", func(t *testing.T) {
		_, err := ToLong(rec, []string{"key"}, []string{"2020-13-01"}, parser)
		assert.ErrorIs(t, err, ErrDateParse)
	})
}

func TestToLongPreservesTotals(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	parser := PatternParser{Pattern: isoWideSchema().Period.Pattern, Layout: "2006/01/02"}

	for i := range 50 {
		n := 1 + r.IntN(30)
		periods := make([]string, n)
		values := make(map[string]model.Option[float64], n)
		var total float64
		for j := range periods {
			periods[j] = date(2020, 1, 1).AddDate(0, 0, j).Format("2006-01-02")
			if r.IntN(5) == 0 {
				values[periods[j]] = model.None[float64]()
				continue
			}
			v := float64(r.IntN(1000))
			values[periods[j]] = model.Some(v)
			total += v
		}

		rows, err := ToLong(wideRecord(i, fmt.Sprint("k", i), values), []string{"key"}, periods, parser)
		require.NoError(t, err)
		require.Len(t, rows, n)

		var sum float64
		for _, row := range rows {
			sum += row.Value
		}
		assert.Equal(t, total, sum)
	}
}

func TestObserve(t *testing.T) {
	res := Resolved{Schema: salesSchema()}
	day := model.Value{Type: model.TypeDate, Date: model.Some(date(2020, 5, 1))}
	region := model.Value{Type: model.TypeString, Text: "north"}

	t.Run("measure present", func(t *testing.T) {
		row, ok := Observe(model.CleanedRecord{Fields: map[string]model.Value{
			"region": region, "day": day,
			"amount": {Type: model.TypeNumeric, Number: model.Some(4.5)},
		}}, res)
		require.True(t, ok)
		assert.Equal(t, model.LongRow{GroupKey: model.GroupKey{"north"}, Date: date(2020, 5, 1), Value: 4.5}, row)
	})

	t.Run("measure absent", func(t *testing.T) {
		row, ok := Observe(model.CleanedRecord{Fields: map[string]model.Value{
			"region": region, "day": day,
			"amount": {Type: model.TypeNumeric, Missing: true},
		}}, res)
		require.True(t, ok)
		assert.True(t, row.Absent)
	})

	t.Run("date absent", func(t *testing.T) {
		_, ok := Observe(model.CleanedRecord{Fields: map[string]model.Value{
			"region": region,
			"day":    {Type: model.TypeDate, Missing: true},
		}}, res)
		assert.False(t, ok)
	})

	t.Run("no measure counts one", func(t *testing.T) {
		s := salesSchema()
		s.MeasureField = ""
		row, ok := Observe(model.CleanedRecord{Fields: map[string]model.Value{"region": region, "day": day}}, Resolved{Schema: s})
		require.True(t, ok)
		assert.Equal(t, 1.0, row.Value)
	})
}

func TestReshaperWide(t *testing.T) {
	res, err := ResolveHeader(isoWideSchema(), []string{"key", "2020-01-01", "2020-01-02"})
	require.NoError(t, err)
	r := NewReshaper(res, nil)

	cleaned := func(yield func(model.CleanedRecord, error) bool) {
		yield(wideRecord(2, "A", map[string]model.Option[float64]{
			"2020-01-01": model.Some(3.0),
			"2020-01-02": model.Some(5.0),
		}), nil)
	}
	rows := collect(t, r.Rows(cleaned))
	assert.Equal(t, []model.LongRow{
		{GroupKey: model.GroupKey{"A"}, Date: date(2020, 1, 1), Value: 3},
		{GroupKey: model.GroupKey{"A"}, Date: date(2020, 1, 2), Value: 5},
	}, rows)

	t.Run("malformed period aborts", func(t *testing.T) {
		bad := res
		bad.Periods = []string{"2020-99-01"}
		var got error
		for _, err := range NewReshaper(bad, nil).Rows(cleaned) {
			got = err
		}
		assert.ErrorIs(t, got, ErrDateParse)
	})

	t.Run("early failure releases upstream", func(t *testing.T) {
		bad := res
		bad.Periods = []string{"2020-99-01"}
		released := false
		upstream := func(yield func(model.CleanedRecord, error) bool) {
			defer func() { released = true }()
			cleaned(yield)
		}
		for range NewReshaper(bad, nil).Rows(upstream) {
		}
		assert.True(t, released)

		noParser := &Reshaper{Schema: res, Logger: slog.Default()}
		released = false
		for _, err := range noParser.Rows(upstream) {
			assert.ErrorIs(t, err, ErrSchemaMismatch)
		}
		assert.True(t, released)
	})
}

func TestReshaperLongExcludesUndated(t *testing.T) {
	r := NewReshaper(Resolved{Schema: salesSchema()}, nil)
	cleaned := func(yield func(model.CleanedRecord, error) bool) {
		for _, d := range []model.Option[time.Time]{model.Some(date(2020, 1, 1)), model.None[time.Time](), model.Some(date(2020, 1, 2))} {
			rec := model.CleanedRecord{Fields: map[string]model.Value{
				"region": {Type: model.TypeString, Text: "north"},
				"day":    {Type: model.TypeDate, Date: d, Missing: !d.Valid()},
				"amount": {Type: model.TypeNumeric, Number: model.Some(1.0)},
			}}
			if !yield(rec, nil) {
				return
			}
		}
	}
	assert.Len(t, collect(t, r.Rows(cleaned)), 2)
}
