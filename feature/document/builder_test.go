package document

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metadata-sync/core/model"
)

var orders = model.TableDescriptor{Project: "prod", Dataset: "sales", Table: "orders"}

var schema = []model.ColumnSchema{
	{Name: "id", Type: "bigint", Mode: model.ModeRequired},
	{Name: "amount", Type: "decimal(10,2)", Mode: model.ModeNullable},
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func sampleProfile() *model.TableProfile {
	p := model.NewTableProfile(model.SourceManagedScan)
	p.RowCount = 1000
	p.Columns["id"] = model.ColumnProfile{Name: "id", DeclaredType: "bigint", NullRatio: f64(0), DistinctCount: i64(1000)}
	p.Columns["amount"] = model.ColumnProfile{
		Name: "amount", DeclaredType: "decimal(10,2)",
		NullRatio: f64(0.1), DistinctCount: i64(250),
		Numeric: &model.NumericStats{Min: f64(0.5), Max: f64(99.99), Average: f64(42.123456789)},
	}
	return p
}

func TestDocumentID(t *testing.T) {
	id := DocumentID(orders)
	assert.True(t, strings.HasPrefix(id, "tbl_"))
	assert.Len(t, id, 36)
	assert.Equal(t, id, DocumentID(model.TableDescriptor{Project: " prod", Dataset: "sales", Table: "orders "}))
	assert.NotEqual(t, id, DocumentID(model.TableDescriptor{Project: "prod", Dataset: "sales", Table: "Orders"}))
	assert.NotEqual(t, id, DocumentID(model.TableDescriptor{Project: "prod", Dataset: "sales", Table: "customers"}))
}

func TestBuild_Idempotent(t *testing.T) {
	b := NewBuilder()
	lineage := []model.LineageRef{{Direction: model.LineageUpstream, Table: "prod.raw.orders"}}

	first, err := b.Build(orders, schema, sampleProfile(), lineage)
	require.NoError(t, err)
	second, err := b.Build(orders, schema, sampleProfile(), lineage)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ContentHash, second.ContentHash)

	a, _ := json.Marshal(first)
	c, _ := json.Marshal(second)
	assert.Equal(t, string(a), string(c))
}

func TestBuild_FloatNoiseDoesNotChangeHash(t *testing.T) {
	b := NewBuilder()
	noisy := sampleProfile()
	amount := noisy.Columns["amount"]
	amount.Numeric.Average = f64(42.1234568 - 1e-9)
	noisy.Columns["amount"] = amount

	base, err := b.Build(orders, schema, sampleProfile(), nil)
	require.NoError(t, err)
	other, err := b.Build(orders, schema, noisy, nil)
	require.NoError(t, err)
	assert.Equal(t, base.ContentHash, other.ContentHash)
}

func TestBuild_ContentChangeChangesHash(t *testing.T) {
	b := NewBuilder()
	changed := sampleProfile()
	changed.RowCount = 1001

	base, err := b.Build(orders, schema, sampleProfile(), nil)
	require.NoError(t, err)
	other, err := b.Build(orders, schema, changed, nil)
	require.NoError(t, err)
	assert.Equal(t, base.ID, other.ID)
	assert.NotEqual(t, base.ContentHash, other.ContentHash)
}

func TestBuild_Sections(t *testing.T) {
	lineage := []model.LineageRef{
		{Direction: model.LineageUpstream, Table: "prod.raw.orders"},
		{Direction: model.LineageDownstream, Table: "prod.bi.revenue"},
		{Direction: model.LineageUpstream, Table: "prod.raw.orders"},
	}
	doc, err := NewBuilder().Build(orders, schema, sampleProfile(), lineage)
	require.NoError(t, err)

	assert.Equal(t, schema, doc.Body.Columns, "columns keep schema order")
	require.Len(t, doc.Body.Statistics, 2)
	assert.Equal(t, "amount", doc.Body.Statistics[0].Name, "statistics are sorted by name")
	assert.Equal(t, 42.123457, *doc.Body.Statistics[0].Profile.Numeric.Average)
	assert.Equal(t, 0.9, doc.Body.Quality.Completeness["amount"])
	assert.Equal(t, []model.LineageRef{
		{Direction: model.LineageDownstream, Table: "prod.bi.revenue"},
		{Direction: model.LineageUpstream, Table: "prod.raw.orders"},
	}, doc.Body.Lineage)

	var raw map[string]json.RawMessage
	data, _ := json.Marshal(doc.Body)
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "lineage")
}

func TestBuild_LineageOmittedWhenEmpty(t *testing.T) {
	doc, err := NewBuilder().Build(orders, schema, sampleProfile(), nil)
	require.NoError(t, err)

	data, err := json.Marshal(doc.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"lineage"`)
}

func TestBuild_NonFiniteValuesDropped(t *testing.T) {
	p := sampleProfile()
	amount := p.Columns["amount"]
	amount.NullRatio = f64(math.NaN())
	amount.Numeric = &model.NumericStats{Min: f64(math.Inf(-1)), Max: f64(99.99), Quartiles: []float64{1, math.Inf(1)}}
	p.Columns["amount"] = amount

	doc, err := NewBuilder().Build(orders, schema, p, nil)
	require.NoError(t, err)

	stats := doc.Body.Statistics[0].Profile
	assert.Nil(t, stats.NullRatio)
	assert.Nil(t, stats.Numeric.Min)
	assert.Equal(t, 99.99, *stats.Numeric.Max)
	assert.Nil(t, stats.Numeric.Quartiles)
	assert.NotContains(t, doc.Body.Quality.Completeness, "amount")
}

func TestBuild_DoesNotMutateProfile(t *testing.T) {
	p := sampleProfile()
	_, err := NewBuilder().Build(orders, schema, p, nil)
	require.NoError(t, err)
	assert.Equal(t, 42.123456789, *p.Columns["amount"].Numeric.Average)
}

func TestBuild_Errors(t *testing.T) {
	b := NewBuilder()

	_, err := b.Build(orders, schema, nil, nil)
	assert.True(t, errors.Is(err, ErrMissingProfile))

	_, err = b.Build(orders, nil, sampleProfile(), nil)
	assert.True(t, errors.Is(err, ErrEmptySchema))
}

func TestBuild_PartialFlagsCarried(t *testing.T) {
	p := sampleProfile()
	p.Source = model.SourceFallbackQuery
	p.MarkPartial("column geo: unsupported type geometry")

	doc, err := NewBuilder().Build(orders, schema, p, nil)
	require.NoError(t, err)
	assert.True(t, doc.Partial)
	assert.Equal(t, model.SourceFallbackQuery, doc.Source)
	assert.True(t, doc.Body.Quality.Partial)
	assert.Equal(t, []string{"column geo: unsupported type geometry"}, doc.Body.Quality.Warnings)
}
