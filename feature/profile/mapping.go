package profile

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// Attribute is a canonical ColumnProfile attribute.
type Attribute string

const (
	AttrNullRatio     Attribute = "null_ratio"
	AttrDistinctCount Attribute = "distinct_count"
	AttrDistinctRatio Attribute = "distinct_ratio"
	AttrMin           Attribute = "min"
	AttrMax           Attribute = "max"
	AttrAverage       Attribute = "average"
	AttrStdDev        Attribute = "stddev"
	AttrQuartiles     Attribute = "quartiles"
	AttrMinLength     Attribute = "min_length"
	AttrMaxLength     Attribute = "max_length"
	AttrAvgLength     Attribute = "average_length"
	AttrTopValues     Attribute = "top_values"
)

// requiredAttributes must resolve for a column to count as fully profiled.
var requiredAttributes = []Attribute{AttrNullRatio, AttrDistinctCount}

// FieldMapping maps one payload shape of the scan service onto canonical attributes.
// Every entry lists alias paths (gjson syntax) tried in order.
type FieldMapping struct {
	Version string
	// Marker is a path whose presence identifies this payload shape.
	Marker string

	RowCount []string
	Columns  []string

	// Column-relative paths.
	Name       []string
	Type       []string
	Attributes map[Attribute][]string

	// Top value entry relative paths.
	TopValue []string
	TopCount []string
	TopRatio []string
}

// Validate checks the mapping is usable.
func (m FieldMapping) Validate() error {
	if m.Version == "" || m.Marker == "" {
		return fmt.Errorf("field mapping without version or marker")
	}
	if len(m.Columns) == 0 || len(m.Name) == 0 || len(m.RowCount) == 0 {
		return fmt.Errorf("field mapping %s: columns, name and row count paths are required", m.Version)
	}
	for _, attr := range requiredAttributes {
		if len(m.Attributes[attr]) == 0 {
			return fmt.Errorf("field mapping %s: no paths for required attribute %s", m.Version, attr)
		}
	}
	return nil
}

// Mappings lists the known payload shapes, newest first.
var Mappings = []FieldMapping{
	{
		Version:  "v1",
		Marker:   "profile.fields",
		RowCount: []string{"rowCount", "row_count"},
		Columns:  []string{"profile.fields"},
		Name:     []string{"name"},
		Type:     []string{"type", "mode"},
		Attributes: map[Attribute][]string{
			AttrNullRatio:     {"profile.nullRatio", "profile.null_ratio"},
			AttrDistinctCount: {"profile.distinctCount", "profile.distinct_count"},
			AttrDistinctRatio: {"profile.distinctRatio"},
			AttrMin:           {"profile.integerProfile.min", "profile.doubleProfile.min", "profile.integerProfile.minimum", "profile.doubleProfile.minimum"},
			AttrMax:           {"profile.integerProfile.max", "profile.doubleProfile.max", "profile.integerProfile.maximum", "profile.doubleProfile.maximum"},
			AttrAverage:       {"profile.integerProfile.average", "profile.doubleProfile.average", "profile.integerProfile.mean", "profile.doubleProfile.mean"},
			AttrStdDev:        {"profile.integerProfile.standardDeviation", "profile.doubleProfile.standardDeviation"},
			AttrQuartiles:     {"profile.integerProfile.quartiles", "profile.doubleProfile.quartiles"},
			AttrMinLength:     {"profile.stringProfile.minLength"},
			AttrMaxLength:     {"profile.stringProfile.maxLength"},
			AttrAvgLength:     {"profile.stringProfile.averageLength"},
			AttrTopValues:     {"profile.topNValues", "profile.topValues"},
		},
		TopValue: []string{"value"},
		TopCount: []string{"count"},
		TopRatio: []string{"ratio"},
	},
	{
		Version:  "legacy",
		Marker:   "columns",
		RowCount: []string{"row_count", "rowCount", "rows"},
		Columns:  []string{"columns"},
		Name:     []string{"column", "name"},
		Type:     []string{"data_type", "type"},
		Attributes: map[Attribute][]string{
			AttrNullRatio:     {"null_ratio", "nullRatio", "null_fraction"},
			AttrDistinctCount: {"distinct_count", "distinctCount", "approx_distinct"},
			AttrDistinctRatio: {"distinct_ratio"},
			AttrMin:           {"min", "minimum"},
			AttrMax:           {"max", "maximum"},
			AttrAverage:       {"mean", "average", "avg"},
			AttrStdDev:        {"stddev", "std_dev", "standard_deviation"},
			AttrQuartiles:     {"quartiles", "percentiles"},
			AttrMinLength:     {"min_length", "min_len"},
			AttrMaxLength:     {"max_length", "max_len"},
			AttrAvgLength:     {"avg_length", "average_length", "avg_len"},
			AttrTopValues:     {"top_values", "top_n", "most_common"},
		},
		TopValue: []string{"value", "val"},
		TopCount: []string{"count", "cnt"},
		TopRatio: []string{"ratio", "fraction"},
	},
}

// DetectMapping returns the mapping whose marker is present in payload.
func DetectMapping(payload gjson.Result) (FieldMapping, bool) {
	for _, m := range Mappings {
		if payload.Get(m.Marker).IsArray() {
			return m, true
		}
	}
	return FieldMapping{}, false
}
