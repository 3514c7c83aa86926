package export

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"trend-pipeline/internal/model"
)

// SummaryPresenter prints a per-source table of outcomes.
type SummaryPresenter struct {
	W io.Writer
}

func (p SummaryPresenter) Present(_ context.Context, results []model.SourceResult) error {
	tw := tabwriter.NewWriter(p.W, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tKIND\tPOINTS\tGROUPS\tFITTED\tISSUES\tSTATUS")
	for _, r := range results {
		fitted := 0
		for _, g := range r.Groups {
			if g.Model != nil {
				fitted++
			}
		}
		issues := 0
		if r.Quality != nil {
			issues = r.Quality.Total()
		}
		status := "ok"
		if r.Failed() {
			status = r.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n", r.Source, r.Kind, len(r.Points), len(r.Groups), fitted, issues, status)
	}
	return tw.Flush()
}

// JSONPresenter writes all results as one JSON document.
type JSONPresenter struct {
	W io.Writer
}

func (p JSONPresenter) Present(_ context.Context, results []model.SourceResult) error {
	return WriteJSON(p.W, results)
}
