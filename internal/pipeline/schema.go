package pipeline

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"trend-pipeline/internal/model"
)

// Registry maps dataset kinds to their declared schemas. Declarations
// happen at startup; afterwards it is a read-only lookup table.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]model.Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]model.Schema)}
}

// Declare registers the schema for kind. A kind can be declared only once.
func (r *Registry) Declare(kind string, schema model.Schema) error {
	schema.Kind = kind
	if err := validateSchema(schema); err != nil {
		return fmt.Errorf("declare %q: %w", kind, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.schemas[kind]; exists {
		return fmt.Errorf("declare %q: kind already declared", kind)
	}
	r.schemas[kind] = cloneSchema(schema)
	return nil
}

// Lookup returns the schema declared for kind.
func (r *Registry) Lookup(kind string) (model.Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[kind]
	if !ok {
		return model.Schema{}, &StageError{Stage: StageLoad, Message: fmt.Sprintf("kind %q", kind), Err: ErrUnknownDatasetKind}
	}
	return cloneSchema(s), nil
}

// Kinds lists declared kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.schemas))
}

func cloneSchema(s model.Schema) model.Schema {
	fields := make([]model.FieldSpec, len(s.Fields))
	for i, f := range s.Fields {
		f.Categories = slices.Clone(f.Categories)
		f.Aliases = maps.Clone(f.Aliases)
		fields[i] = f
	}
	s.Fields = fields
	if s.Period != nil {
		p := *s.Period
		s.Period = &p
	}
	return s
}

func validateSchema(s model.Schema) error {
	if s.Kind == "" {
		return fmt.Errorf("empty kind")
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("no fields")
	}

	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("field with empty name")
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = true

		switch f.Type {
		case model.TypeString, model.TypeDate, model.TypeNumeric:
		case model.TypeCategorical:
			if len(f.Categories) == 0 {
				return fmt.Errorf("categorical field %q declares no categories", f.Name)
			}
		default:
			return fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
		}
		switch f.Role {
		case model.RoleKey, model.RoleMeasure, model.RoleIgnored:
		default:
			return fmt.Errorf("field %q: unknown role %q", f.Name, f.Role)
		}
	}

	switch s.Layout {
	case model.LayoutLong:
		df, ok := s.Field(s.DateField)
		if !ok || df.Type != model.TypeDate || df.Role != model.RoleKey {
			return fmt.Errorf("long layout needs a date key field, got %q", s.DateField)
		}
		if s.MeasureField != "" {
			mf, ok := s.Field(s.MeasureField)
			if !ok || mf.Type != model.TypeNumeric || mf.Role != model.RoleMeasure {
				return fmt.Errorf("measure field %q must be a numeric measure", s.MeasureField)
			}
		}
	case model.LayoutWide:
		if s.Period == nil || s.Period.Pattern == nil {
			return fmt.Errorf("wide layout needs a period pattern")
		}
	default:
		return fmt.Errorf("unknown layout %q", s.Layout)
	}
	return nil
}

// Resolved is a schema bound to an actual header. For wide schemas the
// per-period columns found in the header are appended to Fields as
// numeric measures and listed in Periods.
type Resolved struct {
	model.Schema
	Periods []string
}

// ResolveHeader expands schema against a header row.
func ResolveHeader(schema model.Schema, header []string) (Resolved, error) {
	res := Resolved{Schema: cloneSchema(schema)}
	if schema.Layout != model.LayoutWide {
		return res, nil
	}

	declared := make(map[string]bool, len(schema.Fields))
	for _, f := range schema.Fields {
		declared[f.ColumnName()] = true
	}
	for _, h := range header {
		if declared[h] || !schema.Period.Pattern.MatchString(h) {
			continue
		}
		res.Fields = append(res.Fields, model.FieldSpec{
			Name: h,
			Type: model.TypeNumeric,
			Role: model.RoleMeasure,
		})
		res.Periods = append(res.Periods, h)
	}
	if len(res.Periods) == 0 {
		return res, stageErr(StageLoad, ErrSchemaMismatch, "no period columns match %s", schema.Period.Pattern)
	}
	return res, nil
}
