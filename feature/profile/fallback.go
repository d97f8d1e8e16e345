package profile

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"metadata-sync/core/database"
	"metadata-sync/core/logger"
	"metadata-sync/core/model"
	"metadata-sync/core/retry"
	"metadata-sync/core/utils"
)

// Profiler computes a profile without the managed scan.
type Profiler interface {
	Profile(ctx context.Context, table model.TableDescriptor, schema []model.ColumnSchema) (*model.TableProfile, error)
}

type typeClass int

const (
	classUnsupported typeClass = iota
	classNumeric
	classString
	classOther
)

// FallbackProfiler computes profiles with read-only aggregation queries.
type FallbackProfiler struct {
	engine database.QueryEngine
	topN   int
	policy retry.Policy
	log    *zap.Logger
}

// NewFallbackProfiler creates a profiler over engine. topN <= 0 uses model.MaxTopValues.
// Every statement is retried under policy before a column or the table gives up.
func NewFallbackProfiler(engine database.QueryEngine, topN int, policy retry.Policy, log *zap.Logger) *FallbackProfiler {
	if topN <= 0 || topN > model.MaxTopValues {
		topN = model.MaxTopValues
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FallbackProfiler{engine: engine, topN: topN, policy: policy, log: log.Named("fallback")}
}

// Profile returns a FALLBACK_QUERY profile. Failing or unsupported columns make the
// profile partial; only a failing row count fails the table.
func (f *FallbackProfiler) Profile(ctx context.Context, table model.TableDescriptor, schema []model.ColumnSchema) (*model.TableProfile, error) {
	log := logger.WithTable(f.log, table)
	source := quoteIdent(table.Dataset) + "." + quoteIdent(table.Table)

	rows, err := f.query(ctx, "SELECT COUNT(*) AS row_count FROM "+source)
	if err != nil {
		return nil, fmt.Errorf("failed to count rows of %s: %w", table, err)
	}
	p := model.NewTableProfile(model.SourceFallbackQuery)
	if len(rows) > 0 {
		p.RowCount, _ = utils.ToInt64(rows[0]["row_count"])
	}

	for _, col := range schema {
		class := classify(col.Type)
		if class == classUnsupported {
			p.Columns[col.Name] = model.ColumnProfile{Name: col.Name, DeclaredType: col.Type, Unavailable: true}
			p.MarkPartial(fmt.Sprintf("column %s: unsupported type %s", col.Name, col.Type))
			continue
		}

		if p.RowCount == 0 {
			p.Columns[col.Name] = emptyColumn(col)
			continue
		}

		cp, err := f.profileColumn(ctx, source, col, class, p.RowCount)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("Column profiling failed", zap.String("column", col.Name), zap.Error(err))
			p.Columns[col.Name] = model.ColumnProfile{Name: col.Name, DeclaredType: col.Type, Unavailable: true}
			p.MarkPartial(fmt.Sprintf("column %s: %v", col.Name, err))
			continue
		}
		p.Columns[col.Name] = cp
	}

	log.Debug("Fallback profile computed",
		zap.Int64("rows", p.RowCount),
		zap.Int("columns", len(p.Columns)),
		zap.Bool("partial", p.Partial))
	return p, nil
}

func (f *FallbackProfiler) profileColumn(ctx context.Context, source string, col model.ColumnSchema, class typeClass, rowCount int64) (model.ColumnProfile, error) {
	c := quoteIdent(col.Name)
	selects := []string{
		fmt.Sprintf("SUM(CASE WHEN %s IS NULL THEN 1 ELSE 0 END) AS null_count", c),
		fmt.Sprintf("COUNT(DISTINCT %s) AS distinct_count", c),
	}
	switch class {
	case classNumeric:
		selects = append(selects,
			fmt.Sprintf("MIN(%s) AS min_value", c),
			fmt.Sprintf("MAX(%s) AS max_value", c),
			fmt.Sprintf("AVG(%s) AS avg_value", c),
			fmt.Sprintf("STDDEV_POP(%s) AS stddev_value", c))
	case classString:
		selects = append(selects,
			fmt.Sprintf("MIN(CHAR_LENGTH(%s)) AS min_len", c),
			fmt.Sprintf("MAX(CHAR_LENGTH(%s)) AS max_len", c),
			fmt.Sprintf("AVG(CHAR_LENGTH(%s)) AS avg_len", c))
	}

	rows, err := f.query(ctx, "SELECT "+strings.Join(selects, ", ")+" FROM "+source)
	if err != nil {
		return model.ColumnProfile{}, err
	}
	if len(rows) == 0 {
		return model.ColumnProfile{}, fmt.Errorf("aggregate query returned no rows")
	}
	agg := rows[0]

	cp := model.ColumnProfile{Name: col.Name, DeclaredType: col.Type}
	nulls, _ := utils.ToInt64(agg["null_count"])
	ratio := float64(nulls) / float64(rowCount)
	cp.NullRatio = &ratio
	cp.DistinctCount = utils.Int64Ptr(agg["distinct_count"])

	switch class {
	case classNumeric:
		cp.Numeric = &model.NumericStats{
			Min:     utils.Float64Ptr(agg["min_value"]),
			Max:     utils.Float64Ptr(agg["max_value"]),
			Average: utils.Float64Ptr(agg["avg_value"]),
			StdDev:  utils.Float64Ptr(agg["stddev_value"]),
		}
	case classString:
		cp.String = &model.StringStats{
			MinLen: utils.Int64Ptr(agg["min_len"]),
			MaxLen: utils.Int64Ptr(agg["max_len"]),
			AvgLen: utils.Float64Ptr(agg["avg_len"]),
		}
	}

	top, err := f.query(ctx, fmt.Sprintf(
		"SELECT %s AS top_value, COUNT(*) AS cnt FROM %s WHERE %s IS NOT NULL GROUP BY %s ORDER BY cnt DESC, top_value LIMIT %d",
		c, source, c, c, f.topN))
	if err != nil {
		return model.ColumnProfile{}, err
	}
	for _, row := range top {
		count, _ := utils.ToInt64(row["cnt"])
		cp.TopValues = append(cp.TopValues, model.TopValue{
			Value: utils.ToString(row["top_value"]),
			Count: count,
			Ratio: float64(count) / float64(rowCount),
		})
	}
	cp.TopValues = normalizeTopValues(cp.TopValues)
	return cp, nil
}

// query re-checks stmt before handing it to the engine, retrying transient failures.
func (f *FallbackProfiler) query(ctx context.Context, stmt string) ([]database.Row, error) {
	if err := database.CheckReadOnly(stmt); err != nil {
		return nil, retry.Permanent(err)
	}
	return retry.Run(ctx, f.policy, func() ([]database.Row, error) {
		return f.engine.Query(ctx, stmt)
	})
}

// emptyColumn is the profile of a column in a table without rows.
func emptyColumn(col model.ColumnSchema) model.ColumnProfile {
	zero := 0.0
	var none int64
	return model.ColumnProfile{
		Name:          col.Name,
		DeclaredType:  col.Type,
		NullRatio:     &zero,
		DistinctCount: &none,
	}
}

// quoteIdent quotes a MySQL identifier.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

var (
	numericTypes     = []string{"tinyint", "smallint", "mediumint", "int", "integer", "bigint", "decimal", "numeric", "float", "double", "real", "bit"}
	stringTypes      = []string{"char", "varchar", "tinytext", "text", "mediumtext", "longtext", "enum", "set"}
	otherTypes       = []string{"date", "datetime", "timestamp", "time", "year", "bool", "boolean"}
	unsupportedTypes = []string{"binary", "varbinary", "tinyblob", "blob", "mediumblob", "longblob", "json", "geometry", "point", "linestring", "polygon", "multipoint", "multilinestring", "multipolygon", "geometrycollection", "vector"}
)

// classify maps a declared column type such as "decimal(10,2) unsigned" to a class.
func classify(declared string) typeClass {
	base := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexAny(base, "( "); i >= 0 {
		base = base[:i]
	}
	switch {
	case slices.Contains(unsupportedTypes, base):
		return classUnsupported
	case slices.Contains(numericTypes, base):
		return classNumeric
	case slices.Contains(stringTypes, base):
		return classString
	case slices.Contains(otherTypes, base):
		return classOther
	}
	return classUnsupported
}
