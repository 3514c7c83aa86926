package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"trend-pipeline/internal/model"
	"trend-pipeline/pkg/utils"
)

// Output formats written by FilePresenter.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// FilePresenter writes each source's result under <dir>/<run id>/. JSON
// output is the whole result; CSV output is split into a combined-series
// file and a trends file.
type FilePresenter struct {
	Output  *utils.OutputManager
	Formats []string
	Logger  *slog.Logger

	mu      sync.Mutex
	results []ExportResult
}

// NewFilePresenter returns a presenter writing the given formats below dir.
func NewFilePresenter(dir string, formats []string, logger *slog.Logger) *FilePresenter {
	if logger == nil {
		logger = slog.Default()
	}
	if len(formats) == 0 {
		formats = []string{FormatJSON}
	}
	return &FilePresenter{
		Output:  utils.NewOutputManager(dir),
		Formats: formats,
		Logger:  logger.With(slog.String("component", "export")),
	}
}

// Present implements Presenter.
func (p *FilePresenter) Present(ctx context.Context, results []model.SourceResult) error {
	var errs []error
	for _, res := range results {
		for _, format := range p.Formats {
			if err := ctx.Err(); err != nil {
				return err
			}
			for _, r := range p.write(res, format) {
				p.record(r)
				if !r.Success {
					errs = append(errs, fmt.Errorf("export %s %s: %s", res.Source, r.Type, r.Error))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// Results lists every export attempted so far.
func (p *FilePresenter) Results() []ExportResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ExportResult, len(p.results))
	copy(out, p.results)
	return out
}

func (p *FilePresenter) record(r ExportResult) {
	p.mu.Lock()
	p.results = append(p.results, r)
	p.mu.Unlock()

	if r.Success {
		p.Logger.Info("export written",
			slog.String("source", r.Source),
			slog.String("type", r.Type),
			slog.String("path", r.Path),
			slog.Int("records", r.RecordCount))
	} else {
		p.Logger.Error("export failed",
			slog.String("source", r.Source),
			slog.String("type", r.Type),
			slog.String("error", r.Error))
	}
}

func (p *FilePresenter) write(res model.SourceResult, format string) []ExportResult {
	switch format {
	case FormatJSON:
		return []ExportResult{p.writeFile(res, utils.SourceFileName(res.Source, "", "json"), format, func(w io.Writer) (int, error) {
			return len(res.Points), WriteJSON(w, res)
		})}
	case FormatCSV:
		return []ExportResult{
			p.writeFile(res, utils.SourceFileName(res.Source, "series", "csv"), format, func(w io.Writer) (int, error) {
				return WriteSeriesCSV(w, res)
			}),
			p.writeFile(res, utils.SourceFileName(res.Source, "trends", "csv"), format, func(w io.Writer) (int, error) {
				return WriteTrendsCSV(w, res)
			}),
		}
	default:
		return []ExportResult{{Type: format, Source: res.Source, Error: "unsupported export format", ExportedAt: time.Now()}}
	}
}

func (p *FilePresenter) writeFile(res model.SourceResult, name, format string, fn func(io.Writer) (int, error)) ExportResult {
	result := ExportResult{Type: format, Source: res.Source, ExportedAt: time.Now()}

	path, err := p.Output.OutputFilePath(res.RunID, name)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Path = path
	result.Type = p.Output.GetFileType(path)

	file, err := os.Create(path)
	if err != nil {
		result.Error = fmt.Sprintf("failed to create file: %v", err)
		return result
	}
	n, err := fn(file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.RecordCount = n
	result.Success = true
	return result
}

// WriteJSON encodes one result as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// WriteSeriesCSV writes every combined-series point of res, one row each.
func WriteSeriesCSV(w io.Writer, res model.SourceResult) (int, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"run_id", "source", "group_key", "bucket", "date", "value", "kind"}); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}
	n := 0
	for _, g := range res.Groups {
		for _, pt := range g.Series.Points {
			row := []string{
				res.RunID,
				res.Source,
				g.GroupKey.String(),
				string(g.Series.Bucket),
				pt.Date.Format(time.DateOnly),
				formatFloat(pt.Value),
				string(pt.Kind),
			}
			if err := writer.Write(row); err != nil {
				return n, fmt.Errorf("failed to write row: %w", err)
			}
			n++
		}
	}
	writer.Flush()
	return n, writer.Error()
}

// WriteTrendsCSV writes one row per group with its fitted parameters.
// Unfitted groups have empty parameters and an error.
func WriteTrendsCSV(w io.Writer, res model.SourceResult) (int, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"run_id", "source", "group_key", "slope", "intercept", "fitted_on_offsets", "error"}); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}
	for _, g := range res.Groups {
		row := []string{res.RunID, res.Source, g.GroupKey.String(), "", "", "", g.Err}
		if g.Model != nil {
			offsets := make([]string, len(g.Model.Offsets))
			for i, o := range g.Model.Offsets {
				offsets[i] = strconv.Itoa(o)
			}
			row[3] = formatFloat(g.Model.Slope)
			row[4] = formatFloat(g.Model.Intercept)
			row[5] = strings.Join(offsets, " ")
		}
		if err := writer.Write(row); err != nil {
			return 0, fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	return len(res.Groups), writer.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
