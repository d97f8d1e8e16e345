package model

import (
	"fmt"
	"strings"
)

// TableDescriptor identifies a cataloged table.
type TableDescriptor struct {
	Project string `json:"project"`
	Dataset string `json:"dataset"`
	Table   string `json:"table"`
}

// Key returns the normalized project.dataset.table form. Parts are trimmed but keep
// their case: MySQL table names are case-sensitive on most platforms.
func (t TableDescriptor) Key() string {
	return strings.TrimSpace(t.Project) + "." +
		strings.TrimSpace(t.Dataset) + "." +
		strings.TrimSpace(t.Table)
}

// String implements fmt.Stringer.
func (t TableDescriptor) String() string {
	return t.Project + "." + t.Dataset + "." + t.Table
}

// Validate checks that all three parts are set.
func (t TableDescriptor) Validate() error {
	if strings.TrimSpace(t.Project) == "" || strings.TrimSpace(t.Dataset) == "" || strings.TrimSpace(t.Table) == "" {
		return fmt.Errorf("invalid table descriptor %q: project, dataset and table are required", t.String())
	}
	return nil
}

// ParseTableDescriptor parses "project.dataset.table".
func ParseTableDescriptor(s string) (TableDescriptor, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return TableDescriptor{}, fmt.Errorf("invalid table reference %q: expected project.dataset.table", s)
	}
	t := TableDescriptor{Project: parts[0], Dataset: parts[1], Table: parts[2]}
	if err := t.Validate(); err != nil {
		return TableDescriptor{}, err
	}
	return t, nil
}

// Column modes reported by the schema catalog.
const (
	ModeNullable = "NULLABLE"
	ModeRequired = "REQUIRED"
	ModeRepeated = "REPEATED"
)

// ColumnSchema is one column as declared in the schema catalog.
type ColumnSchema struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Mode        string `json:"mode"`
	Description string `json:"description,omitempty"`
}

// Lineage directions.
const (
	LineageUpstream   = "upstream"
	LineageDownstream = "downstream"
)

// LineageRef points at a related table.
type LineageRef struct {
	Direction string `json:"direction"`
	Table     string `json:"table"`
}
