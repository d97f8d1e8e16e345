package checks

import (
	"context"
	"errors"
	"fmt"

	"metadata-sync/core/database"
	"metadata-sync/core/model"
	"metadata-sync/core/utils"
)

// DatabaseReport describes the query engine connection and the selected tables.
type DatabaseReport struct {
	Version string                 `json:"version"`
	Tables  map[string]TableReport `json:"tables"`
	Matched bool                   `json:"matched"`
}

// TableReport is the schema check of one table.
type TableReport struct {
	Columns int    `json:"columns"`
	Status  string `json:"status"` // "ok", "missing", "error"
	Error   string `json:"error,omitempty"`
}

// CheckDatabase runs a read-only version query through engine and looks up the schema of
// every table. Missing tables are reported, only an unreachable database is an error.
func CheckDatabase(ctx context.Context, engine database.QueryEngine, catalog database.SchemaCatalog, tables []model.TableDescriptor) (*DatabaseReport, error) {
	rows, err := engine.Query(ctx, "SELECT VERSION() AS version")
	if err != nil {
		return nil, fmt.Errorf("database check failed: %w", err)
	}

	report := &DatabaseReport{
		Tables:  make(map[string]TableReport, len(tables)),
		Matched: true,
	}
	if len(rows) > 0 {
		report.Version = utils.ToString(rows[0]["version"])
	}

	for _, table := range tables {
		schema, err := catalog.GetSchema(ctx, table)
		switch {
		case errors.Is(err, database.ErrTableNotFound):
			report.Tables[table.Key()] = TableReport{Status: "missing"}
			report.Matched = false
		case err != nil:
			report.Tables[table.Key()] = TableReport{Status: "error", Error: err.Error()}
			report.Matched = false
		default:
			report.Tables[table.Key()] = TableReport{Columns: len(schema), Status: "ok"}
		}
	}

	return report, nil
}
