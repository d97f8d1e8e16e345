package model

import (
	"sort"
	"time"
)

// DocumentSections is the semantic content of a MetadataDocument.
// Field order is the serialization order and must not change without a hash migration.
type DocumentSections struct {
	Table      TableSummary       `json:"table"`
	Columns    []ColumnSchema     `json:"columns"`
	Quality    QualitySection     `json:"quality"`
	Statistics []ColumnStatsEntry `json:"statistics"`
	Lineage    []LineageRef       `json:"lineage,omitempty"`
}

// TableSummary names the table inside the document body.
type TableSummary struct {
	Key     string `json:"key"`
	Project string `json:"project"`
	Dataset string `json:"dataset"`
	Table   string `json:"table"`
}

// QualitySection summarizes data quality for the whole table.
type QualitySection struct {
	RowCount     int64              `json:"row_count"`
	Source       ProfileSource      `json:"source"`
	Partial      bool               `json:"partial"`
	Completeness map[string]float64 `json:"completeness"`
	Warnings     []string           `json:"warnings,omitempty"`
}

// ColumnStatsEntry is one column's statistics inside the document.
type ColumnStatsEntry struct {
	Name    string        `json:"name"`
	Profile ColumnProfile `json:"profile"`
}

// MetadataDocument is the record synchronized to the search index.
type MetadataDocument struct {
	ID          string           `json:"id"`
	ContentHash string           `json:"content_hash"`
	Source      ProfileSource    `json:"source"`
	Partial     bool             `json:"partial"`
	Body        DocumentSections `json:"body"`
}

// Fidelity returns the sorted names of columns that carry high-fidelity statistics.
func (d *MetadataDocument) Fidelity() []string {
	var names []string
	for _, entry := range d.Body.Statistics {
		if entry.Profile.HighFidelity() {
			names = append(names, entry.Name)
		}
	}
	sort.Strings(names)
	return names
}

// IndexRecord is the index's view of a synchronized document.
type IndexRecord struct {
	DocumentID     string        `json:"document_id"`
	LastSyncedHash string        `json:"last_synced_hash"`
	LastSyncedAt   time.Time     `json:"last_synced_at"`
	Source         ProfileSource `json:"source,omitempty"`
	Partial        bool          `json:"partial,omitempty"`
	// Fidelity lists the high-fidelity columns of the synced document.
	Fidelity []string `json:"fidelity,omitempty"`
}
