package pipeline

import (
	"regexp"

	"trend-pipeline/internal/model"
)

// Built-in dataset kinds.
const (
	KindIncidents  = "incidents"
	KindCaseCounts = "case_counts"
)

var (
	ageGroups = []string{"<18", "18-24", "25-44", "45-64", "65+"}
	sexes     = []string{"M", "F"}
	races     = []string{
		"AMERICAN INDIAN/ALASKAN NATIVE",
		"ASIAN / PACIFIC ISLANDER",
		"BLACK",
		"BLACK HISPANIC",
		"WHITE",
		"WHITE HISPANIC",
	}
	unknownAliases = map[string]string{
		"(NULL)":  model.Unknown,
		"U":       model.Unknown,
		"UNKNOWN": model.Unknown,
	}
)

// IncidentSchema is the row-per-incident layout: one row per shooting
// incident keyed by borough and date, with perpetrator and victim
// demographics. Every modeled field is required, so the default dropRow
// policy discards rows with any missing demographic.
func IncidentSchema() model.Schema {
	demographic := func(name, column string, levels []string) model.FieldSpec {
		return model.FieldSpec{
			Name:       name,
			Column:     column,
			Type:       model.TypeCategorical,
			Role:       model.RoleMeasure,
			Required:   true,
			Categories: levels,
			Aliases:    unknownAliases,
		}
	}
	return model.Schema{
		Kind:      KindIncidents,
		Layout:    model.LayoutLong,
		DateField: "incidentDate",
		Fields: []model.FieldSpec{
			{
				Name:       "boroughRegion",
				Column:     "BORO",
				Type:       model.TypeCategorical,
				Role:       model.RoleKey,
				Required:   true,
				Categories: []string{"BRONX", "BROOKLYN", "MANHATTAN", "QUEENS", "STATEN ISLAND"},
			},
			{Name: "incidentDate", Column: "OCCUR_DATE", Type: model.TypeDate, Role: model.RoleKey, Required: true, Layout: "01/02/2006"},
			demographic("perpetratorAgeGroup", "PERP_AGE_GROUP", ageGroups),
			demographic("perpetratorSex", "PERP_SEX", sexes),
			demographic("perpetratorRace", "PERP_RACE", races),
			demographic("victimAgeGroup", "VIC_AGE_GROUP", ageGroups),
			demographic("victimSex", "VIC_SEX", sexes),
			demographic("victimRace", "VIC_RACE", races),
			{Name: "locationDescription", Column: "LOCATION_DESC", Type: model.TypeString, Role: model.RoleIgnored},
			{Name: "lonLat", Column: "Lon_Lat", Type: model.TypeString, Role: model.RoleIgnored},
		},
	}
}

// CaseCountSchema is the row-per-region layout with one column per
// reporting date (e.g. "1/22/20", or "X1.22.20" after R-style renaming).
// Keys are optional: rows with no sub-region still carry counts.
func CaseCountSchema() model.Schema {
	return model.Schema{
		Kind:   KindCaseCounts,
		Layout: model.LayoutWide,
		Fields: []model.FieldSpec{
			{Name: "regionName", Column: "Country/Region", Type: model.TypeString, Role: model.RoleKey},
			{Name: "subRegionName", Column: "Province/State", Type: model.TypeString, Role: model.RoleKey},
			{Name: "lat", Column: "Lat", Type: model.TypeNumeric, Role: model.RoleIgnored},
			{Name: "long", Column: "Long", Type: model.TypeNumeric, Role: model.RoleIgnored},
		},
		Period: &model.PeriodSpec{
			Pattern: regexp.MustCompile(`^X?(\d{1,2})[./](\d{1,2})[./](\d{2})$`),
			Layout:  "1/2/06",
		},
	}
}

// DefaultRegistry declares the built-in dataset kinds.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, s := range []model.Schema{IncidentSchema(), CaseCountSchema()} {
		if err := r.Declare(s.Kind, s); err != nil {
			panic(err)
		}
	}
	return r
}
