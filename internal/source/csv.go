package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"os"
)

// CSVSource reads delimited text from a local file or an http(s) URL.
type CSVSource struct {
	name      string
	Location  string
	Delimiter rune
	Client    *http.Client
	Retry     RetryConfig
	Logger    *slog.Logger
}

// NewCSV returns a comma-delimited source with default retry settings.
func NewCSV(name, location string) *CSVSource {
	return &CSVSource{
		name:      name,
		Location:  location,
		Delimiter: ',',
		Retry:     DefaultRetryConfig,
		Logger:    slog.Default(),
	}
}

func (s *CSVSource) Name() string { return s.name }

// Rows streams records as they are read. Quotes are parsed leniently and
// rows may vary in length; the loader decides what a bad row means.
func (s *CSVSource) Rows(ctx context.Context) iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		rc, err := s.open(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		defer rc.Close()

		r := csv.NewReader(rc)
		r.LazyQuotes = true
		r.FieldsPerRecord = -1
		if s.Delimiter != 0 {
			r.Comma = s.Delimiter
		}

		n := 0
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			rec, err := r.Read()
			if errors.Is(err, io.EOF) {
				s.Logger.Debug("csv read complete", slog.Int("rows", n))
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("read %s: %w", s.Location, err))
				return
			}
			n++
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (s *CSVSource) open(ctx context.Context) (io.ReadCloser, error) {
	if !isRemote(s.Location) {
		f, err := os.Open(s.Location)
		if err != nil {
			return nil, fmt.Errorf("open csv file: %w", err)
		}
		return f, nil
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	var body io.ReadCloser
	err := Retry(ctx, s.Retry, s.Logger, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Location, nil)
		if err != nil {
			return Permanent(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("GET %s: %w", s.Location, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			err := fmt.Errorf("GET %s: unexpected status %s", s.Location, resp.Status)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return Permanent(err)
			}
			return err
		}
		body = resp.Body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
