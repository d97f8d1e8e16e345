package model

import "sort"

// ProfileSource tells where a TableProfile came from.
type ProfileSource string

const (
	SourceManagedScan   ProfileSource = "MANAGED_SCAN"
	SourceFallbackQuery ProfileSource = "FALLBACK_QUERY"
)

// MaxTopValues bounds ColumnProfile.TopValues.
const MaxTopValues = 10

// NumericStats holds aggregates for numeric columns.
// Pointers are nil when the value could not be computed (e.g. empty table).
type NumericStats struct {
	Min       *float64  `json:"min,omitempty"`
	Max       *float64  `json:"max,omitempty"`
	Average   *float64  `json:"average,omitempty"`
	StdDev    *float64  `json:"stddev,omitempty"`
	Quartiles []float64 `json:"quartiles,omitempty"`
}

// StringStats holds length aggregates for string columns.
type StringStats struct {
	MinLen *int64   `json:"min_length,omitempty"`
	MaxLen *int64   `json:"max_length,omitempty"`
	AvgLen *float64 `json:"average_length,omitempty"`
}

// TopValue is one frequent value with its count and ratio.
type TopValue struct {
	Value string  `json:"value"`
	Count int64   `json:"count"`
	Ratio float64 `json:"ratio"`
}

// ColumnProfile is the canonical statistics of one column.
type ColumnProfile struct {
	Name          string        `json:"name"`
	DeclaredType  string        `json:"declared_type"`
	NullRatio     *float64      `json:"null_ratio,omitempty"`
	DistinctCount *int64        `json:"distinct_count,omitempty"`
	Numeric       *NumericStats `json:"numeric,omitempty"`
	String        *StringStats  `json:"string,omitempty"`
	TopValues     []TopValue    `json:"top_values,omitempty"`
	// Unavailable is set when statistics could not be computed for this column.
	Unavailable bool `json:"unavailable,omitempty"`
}

// HighFidelity reports whether the column carries distribution statistics.
func (c ColumnProfile) HighFidelity() bool {
	return !c.Unavailable && c.NullRatio != nil && c.DistinctCount != nil
}

// TableProfile is the canonical profile of a table.
type TableProfile struct {
	RowCount int64                    `json:"row_count"`
	Columns  map[string]ColumnProfile `json:"columns"`
	Source   ProfileSource            `json:"source"`
	Partial  bool                     `json:"partial"`
	Warnings []string                 `json:"warnings,omitempty"`
}

// NewTableProfile returns an empty profile for source.
func NewTableProfile(source ProfileSource) *TableProfile {
	return &TableProfile{
		Columns: make(map[string]ColumnProfile),
		Source:  source,
	}
}

// ColumnNames returns the profiled column names in sorted order.
func (p *TableProfile) ColumnNames() []string {
	names := make([]string, 0, len(p.Columns))
	for name := range p.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarkPartial flags the profile as partial and records why.
func (p *TableProfile) MarkPartial(reason string) {
	p.Partial = true
	if reason != "" {
		p.Warnings = append(p.Warnings, reason)
	}
}
