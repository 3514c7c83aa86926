// Package source supplies raw row streams to the pipeline. Opening files,
// fetching over HTTP and retrying live here and nowhere else.
package source

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
)

// Source yields the raw rows of one dataset, header row included when the
// dataset has one. Each call to Rows reads the dataset from the start.
type Source interface {
	Name() string
	Rows(ctx context.Context) iter.Seq2[[]string, error]
}

// Supported formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Spec describes where a source lives and how to read it.
type Spec struct {
	Name      string      `yaml:"name" json:"name" validate:"required"`
	Location  string      `yaml:"location" json:"location" validate:"required"`
	Format    string      `yaml:"format" json:"format" validate:"omitempty,oneof=csv xlsx"`
	Delimiter string      `yaml:"delimiter" json:"delimiter" validate:"omitempty,len=1"`
	Sheet     string      `yaml:"sheet" json:"sheet"`
	Retry     RetryConfig `yaml:"retry" json:"retry"`
}

// New builds the source described by spec. The format defaults to the
// location's file extension.
func New(spec Spec, client *http.Client, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("source", spec.Name))

	format := strings.ToLower(spec.Format)
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(stripQuery(spec.Location))), ".")
	}
	switch format {
	case FormatCSV, "tsv", "txt":
		src := NewCSV(spec.Name, spec.Location)
		src.Client = client
		src.Logger = logger
		if spec.Retry.MaxAttempts > 0 {
			src.Retry = spec.Retry
		}
		if spec.Delimiter != "" {
			src.Delimiter = []rune(spec.Delimiter)[0]
		} else if format == "tsv" {
			src.Delimiter = '\t'
		}
		return src, nil
	case FormatXLSX, "xlsm":
		if isRemote(spec.Location) {
			return nil, fmt.Errorf("source %q: xlsx sources must be local files", spec.Name)
		}
		src := NewXLSX(spec.Name, spec.Location, spec.Sheet)
		src.Logger = logger
		return src, nil
	default:
		return nil, fmt.Errorf("source %q: unsupported format %q", spec.Name, format)
	}
}

func isRemote(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

func stripQuery(location string) string {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		return location[:i]
	}
	return location
}
