package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownDatasetKind = errors.New("unknown dataset kind")
	ErrSchemaMismatch     = errors.New("schema mismatch")
	ErrDateParse          = errors.New("date parse failure")
	ErrNumericParse       = errors.New("numeric parse failure")
	ErrInsufficientData   = errors.New("insufficient data")
	ErrEmptyAfterCleaning = errors.New("empty after cleaning")
	ErrDuplicatePoint     = errors.New("duplicate series point")
)

// Stage names used in errors, logs and metrics.
const (
	StageLoad      = "load"
	StageClean     = "clean"
	StageReshape   = "reshape"
	StageAggregate = "aggregate"
	StageTrend     = "trend"
	StageMerge     = "merge"
)

// StageError is a structural failure that aborts one source chain.
type StageError struct {
	Stage   string
	Source  string
	Field   string
	Count   int
	Message string
	Err     error
}

func (e *StageError) Error() string {
	var b strings.Builder
	b.WriteString("[" + e.Stage + "]")
	if e.Source != "" {
		b.WriteString(" source=" + e.Source)
	}
	if e.Field != "" {
		b.WriteString(" field=" + e.Field)
	}
	if e.Count > 0 {
		fmt.Fprintf(&b, " count=%d", e.Count)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, err error, format string, args ...any) *StageError {
	return &StageError{Stage: stage, Message: fmt.Sprintf(format, args...), Err: err}
}

// withSource stamps the source name onto a StageError, or wraps a plain error.
func withSource(source, stage string, err error) error {
	var se *StageError
	if errors.As(err, &se) {
		if se.Source == "" {
			se.Source = source
		}
		return err
	}
	return &StageError{Stage: stage, Source: source, Err: err}
}
