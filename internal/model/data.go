package model

import (
	"strings"
	"time"
)

// Record is one raw input row keyed by field name.
type Record struct {
	Line   int               `json:"line"`
	Values map[string]string `json:"values"`
}

// Option holds a value that may be explicitly absent.
type Option[T any] struct {
	value T
	ok    bool
}

// Some wraps a present value.
func Some[T any](v T) Option[T] { return Option[T]{value: v, ok: true} }

// None returns an absent value.
func None[T any]() Option[T] { return Option[T]{} }

// Get returns the value and whether it is present.
func (o Option[T]) Get() (T, bool) { return o.value, o.ok }

// Valid reports whether the value is present.
func (o Option[T]) Valid() bool { return o.ok }

// OrElse returns the value, or def when absent.
func (o Option[T]) OrElse(def T) T {
	if o.ok {
		return o.value
	}
	return def
}

// Value is a single coerced field value. Which member is meaningful
// depends on Type: Text for string and categorical, Number for numeric,
// Date for date. Missing marks a value the missing-value policy acts on.
type Value struct {
	Type    SemanticType      `json:"type"`
	Text    string            `json:"text,omitempty"`
	Number  Option[float64]   `json:"-"`
	Date    Option[time.Time] `json:"-"`
	Missing bool              `json:"missing"`
}

// CleanedRecord carries exactly the key and measure fields of its schema.
type CleanedRecord struct {
	Line   int              `json:"line"`
	Fields map[string]Value `json:"fields"`
}

// GroupKey is the tuple of key-field values identifying an aggregation bucket.
type GroupKey []string

// String joins the key with "|" for display and storage. A "|" or a
// backslash inside a value is escaped with a backslash.
func (k GroupKey) String() string {
	var b strings.Builder
	for i, v := range k {
		if i > 0 {
			b.WriteByte('|')
		}
		for _, r := range v {
			if r == '|' || r == '\\' {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Equal compares two keys element-wise.
func (k GroupKey) Equal(other GroupKey) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// ParseGroupKey is the inverse of GroupKey.String.
func ParseGroupKey(s string) GroupKey {
	var (
		key     GroupKey
		cur     strings.Builder
		escaped bool
	)
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '|':
			key = append(key, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(key, cur.String())
}

// LongRow is one (entity, period) observation. Absent marks a row whose
// measure was missing under keepWithSentinel: it counts but does not sum.
type LongRow struct {
	GroupKey GroupKey  `json:"group_key"`
	Date     time.Time `json:"date"`
	Value    float64   `json:"value"`
	Absent   bool      `json:"absent,omitempty"`
}

// AggregatedPoint is the reduction of every row sharing (GroupKey, Date).
type AggregatedPoint struct {
	GroupKey GroupKey  `json:"group_key"`
	Date     time.Time `json:"date"`
	Value    float64   `json:"value"`
	Count    int       `json:"count"`
}

// MissingPolicy decides what happens to rows with absent required values.
type MissingPolicy string

const (
	DropRow          MissingPolicy = "dropRow"
	KeepWithSentinel MissingPolicy = "keepWithSentinel"
)

// Reduce is the aggregation applied within a group.
type Reduce string

const (
	ReduceSum   Reduce = "sum"
	ReduceCount Reduce = "count"
)
