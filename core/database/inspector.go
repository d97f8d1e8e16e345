package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"metadata-sync/core/model"
	"metadata-sync/core/retry"
)

// ErrTableNotFound is returned when the catalog has no columns for a table.
var ErrTableNotFound = errors.New("table not found")

// SchemaCatalog is the read-only view of table schemas.
type SchemaCatalog interface {
	// GetSchema returns the columns of table in declaration order.
	GetSchema(ctx context.Context, table model.TableDescriptor) ([]model.ColumnSchema, error)
	// ListTables returns the base tables of a dataset, sorted by name.
	ListTables(ctx context.Context, project, dataset string) ([]model.TableDescriptor, error)
}

// InformationSchemaCatalog reads schemas from MySQL's information_schema.
// A dataset maps to a MySQL schema; the project is the configured connection label.
type InformationSchemaCatalog struct {
	db      *gorm.DB
	project string
}

// NewSchemaCatalog creates a catalog for the connection labelled project.
func NewSchemaCatalog(db *gorm.DB, project string) *InformationSchemaCatalog {
	return &InformationSchemaCatalog{db: db, project: project}
}

const columnsQuery = `SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE, COLUMN_COMMENT
FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`

const tablesQuery = `SELECT TABLE_NAME
FROM information_schema.TABLES
WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
ORDER BY TABLE_NAME`

// GetSchema retrieves the column definitions for a given table.
func (c *InformationSchemaCatalog) GetSchema(ctx context.Context, table model.TableDescriptor) ([]model.ColumnSchema, error) {
	if !strings.EqualFold(table.Project, c.project) {
		return nil, retry.Permanent(fmt.Errorf("%w: project %q is not served by this catalog", ErrTableNotFound, table.Project))
	}

	rows, err := c.db.WithContext(ctx).Raw(columnsQuery, table.Dataset, table.Table).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", table, err)
	}
	defer rows.Close()

	var columns []model.ColumnSchema
	for rows.Next() {
		var name, colType, nullable string
		var comment *string
		if err := rows.Scan(&name, &colType, &nullable, &comment); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		col := model.ColumnSchema{
			Name: name,
			Type: strings.ToLower(colType),
			Mode: model.ModeRequired,
		}
		if strings.EqualFold(nullable, "YES") {
			col.Mode = model.ModeNullable
		}
		if comment != nil {
			col.Description = *comment
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}

	if len(columns) == 0 {
		return nil, retry.Permanent(fmt.Errorf("%w: %s", ErrTableNotFound, table))
	}
	return columns, nil
}

// ListTables returns every base table of dataset.
func (c *InformationSchemaCatalog) ListTables(ctx context.Context, project, dataset string) ([]model.TableDescriptor, error) {
	if !strings.EqualFold(project, c.project) {
		return nil, nil
	}

	rows, err := c.db.WithContext(ctx).Raw(tablesQuery, dataset).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to list tables of %s.%s: %w", project, dataset, err)
	}
	defer rows.Close()

	var tables []model.TableDescriptor
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, model.TableDescriptor{Project: c.project, Dataset: dataset, Table: name})
	}
	return tables, rows.Err()
}
