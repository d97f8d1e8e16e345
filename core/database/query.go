package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"metadata-sync/core/retry"
)

// Row is one result row keyed by column name.
type Row map[string]any

// QueryEngine executes parameterized, read-only aggregation statements.
type QueryEngine interface {
	Query(ctx context.Context, stmt string, args ...any) ([]Row, error)
}

// GormQueryEngine runs statements on a gorm connection after the read-only check.
type GormQueryEngine struct {
	db *gorm.DB
}

// NewQueryEngine creates a query engine over db.
func NewQueryEngine(db *gorm.DB) *GormQueryEngine {
	return &GormQueryEngine{db: db}
}

// Query rejects non read-only statements before dispatch, then returns all rows.
func (e *GormQueryEngine) Query(ctx context.Context, stmt string, args ...any) ([]Row, error) {
	if err := CheckReadOnly(stmt); err != nil {
		return nil, retry.Permanent(err)
	}

	rows, err := e.db.WithContext(ctx).Raw(stmt, args...).Rows()
	if err != nil {
		return nil, classify(fmt.Errorf("query failed: %w", err))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var result []Row
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("failed to read rows: %w", err))
	}

	return result, nil
}

// transientCodes are server errors worth retrying.
var transientCodes = map[uint16]struct{}{
	1040: {}, // too many connections
	1053: {}, // server shutdown in progress
	1205: {}, // lock wait timeout
	1213: {}, // deadlock
}

// classify tags driver errors for the retry policy. Broken connections and the
// transientCodes are transient; any other server error (unknown table, syntax,
// permissions) is permanent. Errors the driver did not produce are left as they are.
func classify(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		if _, ok := transientCodes[me.Number]; ok {
			return retry.Transient(err)
		}
		return retry.Permanent(err)
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return retry.Transient(err)
	}
	return err
}
