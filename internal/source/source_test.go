package source

import (
	"context"
	"iter"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectRows(t *testing.T, seq iter.Seq2[[]string, error]) ([][]string, error) {
	t.Helper()
	var rows [][]string
	for row, err := range seq {
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		spec      Spec
		wantType  any
		wantDelim rune
		wantErr   bool
	}{
		{"csv by extension", Spec{Name: "a", Location: "data/a.csv"}, &CSVSource{}, ',', false},
		{"tsv by extension", Spec{Name: "a", Location: "data/a.tsv"}, &CSVSource{}, '\t', false},
		{"url with query", Spec{Name: "a", Location: "https://example.com/a.csv?raw=true"}, &CSVSource{}, ',', false},
		{"explicit delimiter", Spec{Name: "a", Location: "a.txt", Delimiter: ";"}, &CSVSource{}, ';', false},
		{"xlsx", Spec{Name: "a", Location: "book.xlsx", Sheet: "Data"}, &XLSXSource{}, 0, false},
		{"remote xlsx", Spec{Name: "a", Location: "https://example.com/book.xlsx"}, nil, 0, true},
		{"unknown extension", Spec{Name: "a", Location: "a.parquet"}, nil, 0, true},
		{"explicit format wins", Spec{Name: "a", Location: "export", Format: "csv"}, &CSVSource{}, ',', false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := New(tt.spec, nil, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, src)
			assert.Equal(t, "a", src.Name())
			if c, ok := src.(*CSVSource); ok {
				assert.Equal(t, tt.wantDelim, c.Delimiter)
				assert.Equal(t, DefaultRetryConfig, c.Retry)
			}
		})
	}

	t.Run("configured retry", func(t *testing.T) {
		src, err := New(Spec{Name: "a", Location: "a.csv", Retry: RetryConfig{MaxAttempts: 7}}, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 7, src.(*CSVSource).Retry.MaxAttempts)
	})
}

func TestCSVSourceFile(t *testing.T) {
	path := writeFile(t, "cases.csv", "Country/Region,1/22/20,1/23/20\n\"Korea, South\",1,2\nChina,5\n")
	src := NewCSV("cases", path)

	rows, err := collectRows(t, src.Rows(t.Context()))
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Country/Region", "1/22/20", "1/23/20"},
		{"Korea, South", "1", "2"},
		{"China", "5"},
	}, rows)

	t.Run("rereadable", func(t *testing.T) {
		again, err := collectRows(t, src.Rows(t.Context()))
		require.NoError(t, err)
		assert.Equal(t, rows, again)
	})

	t.Run("early stop", func(t *testing.T) {
		n := 0
		for range src.Rows(t.Context()) {
			n++
			break
		}
		assert.Equal(t, 1, n)
	})
}

func TestCSVSourceDelimiter(t *testing.T) {
	path := writeFile(t, "a.tsv", "a\tb\n1\t2\n")
	src, err := New(Spec{Name: "a", Location: path}, nil, nil)
	require.NoError(t, err)

	rows, err := collectRows(t, src.Rows(t.Context()))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}}, rows)
}

func TestCSVSourceMissingFile(t *testing.T) {
	src := NewCSV("gone", filepath.Join(t.TempDir(), "missing.csv"))
	_, err := collectRows(t, src.Rows(t.Context()))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCSVSourceCanceled(t *testing.T) {
	path := writeFile(t, "a.csv", "a,b\n1,2\n")
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	rows, err := collectRows(t, NewCSV("a", path).Rows(ctx))
	assert.Empty(t, rows)
	assert.ErrorIs(t, err, context.Canceled)
}
