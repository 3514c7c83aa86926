package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"trend-pipeline/internal/model"
	"trend-pipeline/internal/source"
)

// Options are the run-wide stage settings.
type Options struct {
	DateFormat  string
	Policy      model.MissingPolicy
	Reduce      model.Reduce
	Bucket      model.Bucket
	Horizon     int
	Collapse    bool
	Concurrency int
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		DateFormat:  DefaultDateFormat,
		Policy:      model.DropRow,
		Reduce:      model.ReduceSum,
		Bucket:      model.BucketDay,
		Horizon:     3,
		Concurrency: 4,
	}
}

// SourceSpec binds a source to its dataset kind. Empty Reduce and Bucket
// fall back to the runner's options.
type SourceSpec struct {
	Kind      string
	HasHeader bool
	Reduce    model.Reduce
	Bucket    model.Bucket
}

// Job is one source chain to execute.
type Job struct {
	Source source.Source
	Spec   SourceSpec
}

// Runner executes source chains: Load, Clean, Reshape, Aggregate, then a
// trend fit, forecast and merge per group.
type Runner struct {
	Registry *Registry
	Options  Options
	Tracker  *Tracker
	Logger   *slog.Logger
}

// NewRunner returns a runner. A nil registry means the built-in kinds.
func NewRunner(registry *Registry, opts Options, tracker *Tracker, logger *slog.Logger) *Runner {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{Registry: registry, Options: opts, Tracker: tracker, Logger: logger.With(slog.String("component", "pipeline"))}
}

// Run executes every job in parallel, bounded by Options.Concurrency.
// Each source fails on its own; the returned error joins the failures and
// the results are complete for every job either way.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]model.SourceResult, error) {
	runID := uuid.NewString()
	results := make([]model.SourceResult, len(jobs))

	var g errgroup.Group
	if r.Options.Concurrency > 0 {
		g.SetLimit(r.Options.Concurrency)
	}
	start := time.Now()
	r.Logger.Info("run started", slog.String("run_id", runID), slog.Int("sources", len(jobs)))

	for i, job := range jobs {
		g.Go(func() error {
			results[i] = r.runSource(ctx, runID, job.Source, job.Spec)
			return nil
		})
	}
	g.Wait()

	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	r.Logger.Info("run finished",
		slog.String("run_id", runID),
		slog.Int("failed", len(errs)),
		slog.Duration("duration", time.Since(start)))
	return results, errors.Join(errs...)
}

// RunSource executes a single source chain under a fresh run ID.
func (r *Runner) RunSource(ctx context.Context, src source.Source, spec SourceSpec) model.SourceResult {
	return r.runSource(ctx, uuid.NewString(), src, spec)
}

func (r *Runner) runSource(ctx context.Context, runID string, src source.Source, spec SourceSpec) (res model.SourceResult) {
	log := r.Logger.With(slog.String("run_id", runID), slog.String("source", src.Name()), slog.String("kind", spec.Kind))
	notes := model.NewQualityNotes()
	res = model.SourceResult{
		RunID:     runID,
		Source:    src.Name(),
		Kind:      spec.Kind,
		StartedAt: time.Now().UTC(),
		Quality:   notes,
	}
	defer func() {
		res.Duration = time.Since(res.StartedAt)
		if res.Err != nil {
			res.Error = res.Err.Error()
			log.Error("source failed", slog.String("error", res.Error))
		} else {
			log.Info("source complete",
				slog.Int("points", len(res.Points)),
				slog.Int("groups", len(res.Groups)),
				slog.Int("quality_issues", notes.Total()),
				slog.Duration("duration", res.Duration))
		}
		r.Tracker.RecordSource(res)
	}()

	fail := func(stage string, err error) model.SourceResult {
		res.Err = withSource(src.Name(), stage, err)
		return res
	}

	schema, err := r.Registry.Lookup(spec.Kind)
	if err != nil {
		return fail(StageLoad, err)
	}
	reduce, bucket := r.Options.Reduce, r.Options.Bucket
	if spec.Reduce != "" {
		reduce = spec.Reduce
	}
	if spec.Bucket != "" {
		bucket = spec.Bucket
	}

	start := time.Now()
	resolved, records, err := Load(src.Rows(ctx), schema, LoadOptions{HasHeader: spec.HasHeader, Notes: notes})
	if err != nil {
		return fail(StageLoad, err)
	}
	r.Tracker.ObserveStage(StageLoad, start)

	// Clean and Reshape are lazy; they run while Aggregate drains them.
	start = time.Now()
	cleaner := NewCleaner(r.Options.DateFormat, r.Options.Policy, notes, log)
	reshaper := NewReshaper(resolved, log)
	points, err := Aggregate(reshaper.Rows(cleaner.Clean(records, resolved)), reduce, bucket)
	if err != nil {
		return fail(StageAggregate, err)
	}
	if err := ctx.Err(); err != nil {
		return fail(StageAggregate, err)
	}
	r.Tracker.ObserveStage(StageAggregate, start)

	if r.Options.Collapse {
		points = Collapse(points)
	}
	res.Points = points

	start = time.Now()
	fitted := 0
	for _, series := range SeriesByGroup(points, bucket) {
		g := r.trendGroup(series)
		if g.Model != nil {
			fitted++
		} else {
			log.Debug("group not fitted", slog.String("group", series.GroupKey.String()), slog.String("error", g.Err))
		}
		res.Groups = append(res.Groups, g)
	}
	r.Tracker.ObserveStage(StageTrend, start)

	if fitted == 0 {
		return fail(StageTrend, &StageError{Stage: StageTrend, Count: len(res.Groups), Message: "no group could be fitted", Err: ErrInsufficientData})
	}
	return res
}

// trendGroup fits one series and merges its forecast with the actuals.
// An unfitted group still carries its actual points.
func (r *Runner) trendGroup(series model.Series) model.GroupResult {
	g := model.GroupResult{GroupKey: series.GroupKey}
	predicted := model.Series{GroupKey: series.GroupKey, Bucket: series.Bucket}

	offsets, origin := OffsetsFor(series)
	m, err := Fit(offsets)
	if err != nil {
		g.Err = err.Error()
	} else {
		g.Model = &m
		predicted = Forecast(series, m, origin, r.Options.Horizon)
	}

	combined, err := Merge(series, predicted)
	if err != nil {
		g.Model = nil
		g.Err = err.Error()
		return g
	}
	g.Series = combined
	return g
}
