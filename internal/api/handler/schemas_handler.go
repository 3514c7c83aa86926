package handler

import (
	"net/http"

	"trend-pipeline/internal/model"
	"trend-pipeline/internal/pipeline"
)

// FieldInfo describes one declared field.
type FieldInfo struct {
	Name       string   `json:"name"`
	Column     string   `json:"column"`
	Type       string   `json:"type"`
	Role       string   `json:"role"`
	Required   bool     `json:"required"`
	Layout     string   `json:"layout,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// SchemaInfo describes one dataset kind.
type SchemaInfo struct {
	Kind          string      `json:"kind"`
	Layout        string      `json:"layout"`
	DateField     string      `json:"date_field,omitempty"`
	MeasureField  string      `json:"measure_field,omitempty"`
	PeriodPattern string      `json:"period_pattern,omitempty"`
	PeriodLayout  string      `json:"period_layout,omitempty"`
	Fields        []FieldInfo `json:"fields"`
}

// SchemasHandler lists the registered dataset kinds.
type SchemasHandler struct {
	Registry *pipeline.Registry
}

// ListSchemas lists the dataset kinds
// @Summary List dataset kinds
// @Description Every registered dataset kind with its declared fields
// @Tags schemas
// @Produce json
// @Success 200 {array} SchemaInfo "Registered schemas"
// @Router /schemas [get]
func (h *SchemasHandler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	out := []SchemaInfo{}
	for _, kind := range h.Registry.Kinds() {
		s, err := h.Registry.Lookup(kind)
		if err != nil {
			continue
		}
		out = append(out, DescribeSchema(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// DescribeSchema converts a schema into its wire description.
func DescribeSchema(s model.Schema) SchemaInfo {
	info := SchemaInfo{
		Kind:         s.Kind,
		Layout:       string(s.Layout),
		DateField:    s.DateField,
		MeasureField: s.MeasureField,
	}
	if s.Period != nil && s.Period.Pattern != nil {
		info.PeriodPattern = s.Period.Pattern.String()
		info.PeriodLayout = s.Period.Layout
	}
	for _, f := range s.Fields {
		info.Fields = append(info.Fields, FieldInfo{
			Name:       f.Name,
			Column:     f.ColumnName(),
			Type:       string(f.Type),
			Role:       string(f.Role),
			Required:   f.Required,
			Layout:     f.Layout,
			Categories: f.Categories,
		})
	}
	return info
}
