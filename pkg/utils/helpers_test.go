package utils

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"42", 42, false},
		{" -3.25 ", -3.25, false},
		{"1,234,567", 1234567, false},
		{"1e3", 1000, false},
		{"", 0, true},
		{"   ", 0, true},
		{"abc", 0, true},
		{"NaN", 0, true},
		{"+Inf", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseNumber(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseNumber(" ")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 5*time.Minute, ParseDuration("5m", time.Second))
	assert.Equal(t, time.Second, ParseDuration("", time.Second))
	assert.Equal(t, time.Second, ParseDuration("soon", time.Second))
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank(" \t"))
	assert.False(t, IsBlank(" x "))
}

func TestOutputManager(t *testing.T) {
	base := t.TempDir()
	om := NewOutputManager(base)

	path, err := om.OutputFilePath("run-1", "../escape/cases.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "run-1", "cases.json"), path)
	assert.DirExists(t, filepath.Join(base, "run-1"))

	assert.Equal(t, "csv", om.GetFileType("a.CSV"))
	assert.Equal(t, "sqlite", om.GetFileType("trend.db"))
	assert.Equal(t, "unknown", om.GetFileType("a.xlsx"))
}

func TestSourceFileName(t *testing.T) {
	assert.Equal(t, "time_series_covid19.json", SourceFileName("time series/covid19", "", "json"))
	assert.Equal(t, "cases_trends.csv", SourceFileName("cases", "trends", ".csv"))
}
