package model

import "regexp"

// SemanticType is the declared meaning of a field's raw text.
type SemanticType string

const (
	TypeString      SemanticType = "string"
	TypeDate        SemanticType = "date"
	TypeNumeric     SemanticType = "numeric"
	TypeCategorical SemanticType = "categorical"
)

// FieldRole says how a field takes part in the pipeline.
type FieldRole string

const (
	RoleKey     FieldRole = "key"
	RoleMeasure FieldRole = "measure"
	RoleIgnored FieldRole = "ignored"
)

// Layout is the table shape a dataset kind arrives in.
type Layout string

const (
	LayoutLong Layout = "long" // one row per observation
	LayoutWide Layout = "wide" // one row per entity, one column per period
)

// Unknown is the sentinel for categorical values outside the declared
// domain and for absent grouping-key values.
const Unknown = "UNKNOWN"

// FieldSpec declares a single field of a dataset kind.
type FieldSpec struct {
	Name       string            `json:"name" yaml:"name"`
	Column     string            `json:"column,omitempty" yaml:"column"` // source header, defaults to Name
	Type       SemanticType      `json:"type" yaml:"type"`
	Role       FieldRole         `json:"role" yaml:"role"`
	Required   bool              `json:"required" yaml:"required"`
	Layout     string            `json:"layout,omitempty" yaml:"layout"` // date layout, overrides the configured format
	Categories []string          `json:"categories,omitempty" yaml:"categories"`
	Aliases    map[string]string `json:"aliases,omitempty" yaml:"aliases"` // raw value -> category (or Unknown)
}

// ColumnName returns the header this field is read from.
func (f FieldSpec) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

// Modeled reports whether the field survives cleaning.
func (f FieldSpec) Modeled() bool {
	return f.Role == RoleKey || f.Role == RoleMeasure
}

// PeriodSpec describes the block of per-period measure columns in a wide
// table. Every header matching Pattern is one period; the pattern's capture
// groups are joined with "/" and parsed with Layout.
type PeriodSpec struct {
	Pattern *regexp.Regexp `json:"-" yaml:"-"`
	Layout  string         `json:"layout" yaml:"layout"`
}

// Schema is everything the registry knows about one dataset kind.
type Schema struct {
	Kind         string      `json:"kind"`
	Layout       Layout      `json:"layout"`
	Fields       []FieldSpec `json:"fields"`
	DateField    string      `json:"date_field,omitempty"`    // long layout: observation date
	MeasureField string      `json:"measure_field,omitempty"` // long layout: value to reduce, empty counts rows
	Period       *PeriodSpec `json:"period,omitempty"`        // wide layout only
}

// Field looks up a declared field by name.
func (s Schema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// KeyFields returns the names of the key fields in declaration order.
func (s Schema) KeyFields() []string {
	var keys []string
	for _, f := range s.Fields {
		if f.Role == RoleKey {
			keys = append(keys, f.Name)
		}
	}
	return keys
}

// GroupFields returns the key fields that form the grouping key, i.e. every
// key except the observation date.
func (s Schema) GroupFields() []string {
	var keys []string
	for _, name := range s.KeyFields() {
		if name != s.DateField {
			keys = append(keys, name)
		}
	}
	return keys
}
