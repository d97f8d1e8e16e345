package profile

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"metadata-sync/core/model"
	"metadata-sync/core/utils"
)

// ErrUnknownPayload is returned when no field mapping matches a scan result.
var ErrUnknownPayload = errors.New("unrecognised scan result payload")

// Decode converts a FULL scan result into a canonical profile. Unknown fields are
// ignored. Columns missing a required attribute, or missing from the payload
// altogether, make the profile partial.
func Decode(payload []byte, schema []model.ColumnSchema) (*model.TableProfile, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrUnknownPayload)
	}
	doc := gjson.ParseBytes(payload)

	mapping, ok := DetectMapping(doc)
	if !ok {
		return nil, ErrUnknownPayload
	}
	if err := mapping.Validate(); err != nil {
		return nil, err
	}

	p := model.NewTableProfile(model.SourceManagedScan)
	if rc, ok := utils.ToInt64(utils.FirstOf(doc, mapping.RowCount...).Value()); ok {
		p.RowCount = rc
	} else {
		p.MarkPartial("row count missing from scan result")
	}

	declared := make(map[string]string, len(schema))
	for _, col := range schema {
		declared[col.Name] = col.Type
	}

	utils.FirstOf(doc, mapping.Columns...).ForEach(func(_, field gjson.Result) bool {
		name := utils.FirstOf(field, mapping.Name...).String()
		if name == "" {
			return true
		}
		col, missing, malformed := decodeColumn(field, mapping, p.RowCount)
		col.Name = name
		col.DeclaredType = declared[name]
		if col.DeclaredType == "" {
			col.DeclaredType = utils.FirstOf(field, mapping.Type...).String()
		}
		if len(missing) > 0 {
			p.MarkPartial(fmt.Sprintf("column %s: missing %v", name, missing))
		}
		if len(malformed) > 0 {
			p.MarkPartial(fmt.Sprintf("column %s: malformed %v", name, malformed))
		}
		p.Columns[name] = col
		return true
	})

	for _, col := range schema {
		if _, ok := p.Columns[col.Name]; !ok {
			p.Columns[col.Name] = model.ColumnProfile{Name: col.Name, DeclaredType: col.Type, Unavailable: true}
			p.MarkPartial(fmt.Sprintf("column %s: absent from scan result", col.Name))
		}
	}
	return p, nil
}

// decodeColumn resolves the attributes of one column object. It returns the required
// attributes that could not be resolved and the attributes dropped by rejected.
func decodeColumn(field gjson.Result, m FieldMapping, rowCount int64) (model.ColumnProfile, []Attribute, []Attribute) {
	get := func(attr Attribute) gjson.Result {
		return utils.FirstOf(field, m.Attributes[attr]...)
	}
	var malformed []Attribute
	float := func(attr Attribute) *float64 {
		raw := get(attr)
		f := utils.Float64Ptr(raw.Value())
		if f == nil && rejected(raw) {
			malformed = append(malformed, attr)
		}
		return f
	}
	integer := func(attr Attribute) *int64 {
		raw := get(attr)
		i := utils.Int64Ptr(raw.Value())
		if i == nil && rejected(raw) {
			malformed = append(malformed, attr)
		}
		return i
	}
	var col model.ColumnProfile

	col.NullRatio = float(AttrNullRatio)
	col.DistinctCount = integer(AttrDistinctCount)
	if col.DistinctCount == nil {
		// Newer payloads only report a ratio.
		if ratio := float(AttrDistinctRatio); ratio != nil {
			n := int64(math.Round(*ratio * float64(rowCount)))
			col.DistinctCount = &n
		}
	}

	numeric := model.NumericStats{
		Min:     float(AttrMin),
		Max:     float(AttrMax),
		Average: float(AttrAverage),
		StdDev:  float(AttrStdDev),
	}
	get(AttrQuartiles).ForEach(func(_, q gjson.Result) bool {
		if f, ok := utils.ToFloat64(q.Value()); ok {
			numeric.Quartiles = append(numeric.Quartiles, f)
		} else if rejected(q) {
			malformed = append(malformed, AttrQuartiles)
			numeric.Quartiles = nil
			return false
		}
		return true
	})
	if numeric.Min != nil || numeric.Max != nil || numeric.Average != nil || numeric.StdDev != nil || len(numeric.Quartiles) > 0 {
		col.Numeric = &numeric
	}

	str := model.StringStats{
		MinLen: integer(AttrMinLength),
		MaxLen: integer(AttrMaxLength),
		AvgLen: float(AttrAvgLength),
	}
	if str.MinLen != nil || str.MaxLen != nil || str.AvgLen != nil {
		col.String = &str
	}

	get(AttrTopValues).ForEach(func(_, tv gjson.Result) bool {
		count, _ := utils.ToInt64(utils.FirstOf(tv, m.TopCount...).Value())
		entry := model.TopValue{
			Value: utils.ToString(utils.FirstOf(tv, m.TopValue...).Value()),
			Count: count,
		}
		if ratio, ok := utils.ToFloat64(utils.FirstOf(tv, m.TopRatio...).Value()); ok {
			entry.Ratio = ratio
		} else if rowCount > 0 {
			entry.Ratio = float64(count) / float64(rowCount)
		}
		col.TopValues = append(col.TopValues, entry)
		return true
	})
	col.TopValues = normalizeTopValues(col.TopValues)

	var missing []Attribute
	if col.NullRatio == nil {
		missing = append(missing, AttrNullRatio)
	}
	if col.DistinctCount == nil {
		missing = append(missing, AttrDistinctCount)
	}
	return col, missing, malformed
}

// rejected reports whether a statistic carries a value that cannot be kept: a
// non-finite number ("NaN", "Infinity") or a nested object or array. Other
// non-numeric strings, such as the lexical min of a text column, are skipped quietly.
func rejected(raw gjson.Result) bool {
	switch raw.Type {
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw.Str), 64)
		return err == nil && (math.IsNaN(f) || math.IsInf(f, 0))
	case gjson.JSON:
		return true
	}
	return false
}

// normalizeTopValues orders by count descending then value, and keeps at most
// model.MaxTopValues entries.
func normalizeTopValues(values []model.TopValue) []model.TopValue {
	sort.SliceStable(values, func(i, j int) bool {
		if values[i].Count != values[j].Count {
			return values[i].Count > values[j].Count
		}
		return values[i].Value < values[j].Value
	})
	if len(values) > model.MaxTopValues {
		values = values[:model.MaxTopValues]
	}
	return values
}
