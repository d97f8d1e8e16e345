package profile

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metadata-sync/core/database"
	"metadata-sync/core/model"
	"metadata-sync/core/retry"
)

var ordersTable = model.TableDescriptor{Project: "prod", Dataset: "sales", Table: "orders"}

func testPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.BaseDelay = time.Millisecond
	p.MaxDelay = 2 * time.Millisecond
	return p
}

func setupEngine(t *testing.T) (database.QueryEngine, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db, err := database.FromConn(conn)
	require.NoError(t, err)
	return database.NewQueryEngine(db), mock
}

func TestFallbackProfiler_Profile(t *testing.T) {
	engine, mock := setupEngine(t)
	schema := []model.ColumnSchema{
		{Name: "id", Type: "bigint(20) unsigned"},
		{Name: "name", Type: "varchar(64)"},
		{Name: "geo", Type: "geometry"},
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS row_count FROM `sales`.`orders`")).
		WillReturnRows(sqlmock.NewRows([]string{"row_count"}).AddRow(int64(4)))

	mock.ExpectQuery(regexp.QuoteMeta("STDDEV_POP(`id`) AS stddev_value FROM `sales`.`orders`")).
		WillReturnRows(sqlmock.NewRows([]string{"null_count", "distinct_count", "min_value", "max_value", "avg_value", "stddev_value"}).
			AddRow([]byte("0"), int64(4), int64(1), int64(4), []byte("2.5000"), 1.118))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id` AS top_value, COUNT(*) AS cnt FROM `sales`.`orders` WHERE `id` IS NOT NULL GROUP BY `id` ORDER BY cnt DESC, top_value LIMIT 10")).
		WillReturnRows(sqlmock.NewRows([]string{"top_value", "cnt"}).
			AddRow(int64(1), int64(1)).AddRow(int64(2), int64(1)).AddRow(int64(3), int64(1)).AddRow(int64(4), int64(1)))

	mock.ExpectQuery(regexp.QuoteMeta("AVG(CHAR_LENGTH(`name`)) AS avg_len FROM `sales`.`orders`")).
		WillReturnRows(sqlmock.NewRows([]string{"null_count", "distinct_count", "min_len", "max_len", "avg_len"}).
			AddRow([]byte("1"), int64(2), int64(3), int64(5), []byte("4.0000")))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `name` AS top_value")).
		WillReturnRows(sqlmock.NewRows([]string{"top_value", "cnt"}).
			AddRow([]byte("alice"), int64(2)).AddRow([]byte("bob"), int64(1)))

	p, err := NewFallbackProfiler(engine, 0, testPolicy(), nil).Profile(context.Background(), ordersTable, schema)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, model.SourceFallbackQuery, p.Source)
	assert.Equal(t, int64(4), p.RowCount)
	assert.True(t, p.Partial, "geometry column cannot be profiled")
	assert.True(t, p.Columns["geo"].Unavailable)

	id := p.Columns["id"]
	assert.Equal(t, 0.0, *id.NullRatio)
	assert.Equal(t, int64(4), *id.DistinctCount)
	assert.Equal(t, 2.5, *id.Numeric.Average)
	assert.Len(t, id.TopValues, 4)

	name := p.Columns["name"]
	assert.Equal(t, 0.25, *name.NullRatio)
	assert.Equal(t, int64(5), *name.String.MaxLen)
	assert.Equal(t, 4.0, *name.String.AvgLen)
	assert.Equal(t, model.TopValue{Value: "alice", Count: 2, Ratio: 0.5}, name.TopValues[0])
}

func TestFallbackProfiler_EmptyTable(t *testing.T) {
	engine, mock := setupEngine(t)
	schema := []model.ColumnSchema{{Name: "id", Type: "int"}, {Name: "note", Type: "text"}}

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"row_count"}).AddRow(int64(0)))

	p, err := NewFallbackProfiler(engine, 5, testPolicy(), nil).Profile(context.Background(), ordersTable, schema)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet(), "no per-column queries on an empty table")

	assert.Equal(t, int64(0), p.RowCount)
	assert.False(t, p.Partial)
	for _, name := range []string{"id", "note"} {
		col := p.Columns[name]
		assert.Equal(t, 0.0, *col.NullRatio)
		assert.Equal(t, int64(0), *col.DistinctCount)
		assert.Nil(t, col.Numeric)
		assert.Empty(t, col.TopValues)
	}
}

func TestFallbackProfiler_RowCountFailure(t *testing.T) {
	engine, mock := setupEngine(t)
	mock.ExpectQuery("SELECT COUNT").
		WillReturnError(&mysql.MySQLError{Number: 1146, Message: "Table 'sales.orders' doesn't exist"})

	_, err := NewFallbackProfiler(engine, 0, testPolicy(), nil).Profile(context.Background(), ordersTable, ordersSchema)
	assert.ErrorContains(t, err, "doesn't exist")
	assert.True(t, retry.IsPermanent(err))
	require.NoError(t, mock.ExpectationsWereMet(), "permanent errors are not retried")
}

func TestFallbackProfiler_RetriesTransientErrors(t *testing.T) {
	engine, mock := setupEngine(t)
	mock.ExpectQuery("SELECT COUNT").
		WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"})
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"row_count"}).AddRow(int64(0)))

	p, err := NewFallbackProfiler(engine, 0, testPolicy(), nil).Profile(context.Background(), ordersTable, ordersSchema)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, int64(0), p.RowCount)
	assert.False(t, p.Partial)
}

func TestFallbackProfiler_ColumnRetriedBeforePartial(t *testing.T) {
	calls := 0
	engine := &stubEngine{answer: func(stmt string) ([]database.Row, error) {
		switch {
		case strings.Contains(stmt, "row_count"):
			return []database.Row{{"row_count": int64(10)}}, nil
		case strings.Contains(stmt, "top_value"):
			return nil, nil
		default:
			calls++
			if calls == 1 {
				return nil, retry.Transient(errors.New("connection reset"))
			}
			return []database.Row{{"null_count": int64(1), "distinct_count": int64(9)}}, nil
		}
	}}

	p, err := NewFallbackProfiler(engine, 0, testPolicy(), nil).Profile(context.Background(), ordersTable, ordersSchema[:1])
	require.NoError(t, err)
	assert.False(t, p.Partial)
	assert.Equal(t, 2, calls)
	assert.True(t, p.Columns["id"].HighFidelity())
}

// stubEngine answers every statement from a function.
type stubEngine struct {
	statements []string
	answer     func(stmt string) ([]database.Row, error)
}

func (s *stubEngine) Query(ctx context.Context, stmt string, args ...any) ([]database.Row, error) {
	s.statements = append(s.statements, stmt)
	return s.answer(stmt)
}

func TestFallbackProfiler_ColumnFailureIsPartial(t *testing.T) {
	engine := &stubEngine{answer: func(stmt string) ([]database.Row, error) {
		switch {
		case strings.Contains(stmt, "row_count"):
			return []database.Row{{"row_count": int64(10)}}, nil
		case strings.Contains(stmt, "`email`"):
			return nil, errors.New("illegal mix of collations")
		case strings.Contains(stmt, "top_value"):
			return nil, nil
		default:
			return []database.Row{{"null_count": int64(0), "distinct_count": int64(10)}}, nil
		}
	}}

	p, err := NewFallbackProfiler(engine, 0, testPolicy(), nil).Profile(context.Background(), ordersTable, ordersSchema)
	require.NoError(t, err)
	assert.True(t, p.Partial)
	assert.True(t, p.Columns["email"].Unavailable)
	assert.True(t, p.Columns["id"].HighFidelity())
	assert.Contains(t, p.Warnings[0], "collations")
}

func TestFallbackProfiler_QuotesIdentifiers(t *testing.T) {
	engine := &stubEngine{answer: func(stmt string) ([]database.Row, error) {
		return []database.Row{{"row_count": int64(1), "null_count": int64(0), "distinct_count": int64(1)}}, nil
	}}
	table := model.TableDescriptor{Project: "p", Dataset: "d", Table: "we`ird; DROP TABLE x"}
	schema := []model.ColumnSchema{{Name: "delete", Type: "date"}}

	p, err := NewFallbackProfiler(engine, 0, testPolicy(), nil).Profile(context.Background(), table, schema)
	require.NoError(t, err)
	assert.False(t, p.Partial)
	require.NotEmpty(t, engine.statements)
	assert.Contains(t, engine.statements[0], "`d`.`we``ird; DROP TABLE x`")
	for _, stmt := range engine.statements {
		assert.NoError(t, database.CheckReadOnly(stmt))
	}
}

func TestClassify(t *testing.T) {
	tests := map[string]typeClass{
		"int":                 classNumeric,
		"decimal(10,2)":       classNumeric,
		"bigint(20) unsigned": classNumeric,
		"varchar(255)":        classString,
		"enum('a','b')":       classString,
		"datetime":            classOther,
		"json":                classUnsupported,
		"longblob":            classUnsupported,
		"point":               classUnsupported,
		"something_new":       classUnsupported,
	}
	for in, want := range tests {
		assert.Equal(t, want, classify(in), in)
	}
}
