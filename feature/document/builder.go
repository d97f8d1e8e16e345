package document

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"metadata-sync/core/model"
)

var (
	// ErrMissingProfile is returned when Build is called without a profile.
	ErrMissingProfile = errors.New("missing profile")
	// ErrEmptySchema is returned when the table has no columns.
	ErrEmptySchema = errors.New("empty schema")
)

// DefaultPrecision is the number of decimals floats are rounded to before hashing.
const DefaultPrecision = 6

// Builder assembles metadata documents. The zero value is not usable; use NewBuilder.
type Builder struct {
	scale float64
}

// NewBuilder creates a builder rounding floats to DefaultPrecision decimals.
func NewBuilder() *Builder {
	return &Builder{scale: math.Pow10(DefaultPrecision)}
}

// DocumentID returns the stable document id of table.
func DocumentID(table model.TableDescriptor) string {
	sum := sha256.Sum256([]byte(table.Key()))
	return "tbl_" + hex.EncodeToString(sum[:])[:32]
}

// Build merges schema, profile and lineage into a document. Rebuilding from the same
// inputs yields the same ContentHash.
func (b *Builder) Build(table model.TableDescriptor, schema []model.ColumnSchema, profile *model.TableProfile, lineage []model.LineageRef) (*model.MetadataDocument, error) {
	if profile == nil {
		return nil, fmt.Errorf("%w for %s", ErrMissingProfile, table)
	}
	if len(schema) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrEmptySchema, table)
	}

	body := model.DocumentSections{
		Table: model.TableSummary{
			Key:     table.Key(),
			Project: table.Project,
			Dataset: table.Dataset,
			Table:   table.Table,
		},
		Columns: append([]model.ColumnSchema(nil), schema...),
		Quality: model.QualitySection{
			RowCount:     profile.RowCount,
			Source:       profile.Source,
			Partial:      profile.Partial,
			Completeness: make(map[string]float64, len(profile.Columns)),
		},
		Lineage: normalizeLineage(lineage),
	}

	if len(profile.Warnings) > 0 {
		body.Quality.Warnings = append([]string(nil), profile.Warnings...)
		sort.Strings(body.Quality.Warnings)
	}

	for _, name := range profile.ColumnNames() {
		cp := b.roundColumn(profile.Columns[name])
		if cp.NullRatio != nil {
			body.Quality.Completeness[name] = b.round(1 - *cp.NullRatio)
		}
		body.Statistics = append(body.Statistics, model.ColumnStatsEntry{Name: name, Profile: cp})
	}

	hash, err := ContentHash(body)
	if err != nil {
		return nil, fmt.Errorf("failed to hash document of %s: %w", table, err)
	}

	return &model.MetadataDocument{
		ID:          DocumentID(table),
		ContentHash: hash,
		Source:      profile.Source,
		Partial:     profile.Partial,
		Body:        body,
	}, nil
}

// ContentHash returns the hex sha256 of the canonical JSON of body. Struct fields keep
// declaration order and map keys are sorted by encoding/json.
func ContentHash(body model.DocumentSections) (string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (b *Builder) round(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	r := math.Round(f*b.scale) / b.scale
	if r == 0 {
		// Avoid -0 serializing differently from 0.
		return 0
	}
	return r
}

// roundPtr drops non-finite values, which have no JSON form.
func (b *Builder) roundPtr(f *float64) *float64 {
	if f == nil || math.IsNaN(*f) || math.IsInf(*f, 0) {
		return nil
	}
	r := b.round(*f)
	return &r
}

// roundColumn returns a copy of cp with every float rounded.
func (b *Builder) roundColumn(cp model.ColumnProfile) model.ColumnProfile {
	out := cp
	out.NullRatio = b.roundPtr(cp.NullRatio)
	if cp.Numeric != nil {
		n := model.NumericStats{
			Min:     b.roundPtr(cp.Numeric.Min),
			Max:     b.roundPtr(cp.Numeric.Max),
			Average: b.roundPtr(cp.Numeric.Average),
			StdDev:  b.roundPtr(cp.Numeric.StdDev),
		}
		for _, q := range cp.Numeric.Quartiles {
			if math.IsNaN(q) || math.IsInf(q, 0) {
				n.Quartiles = nil
				break
			}
			n.Quartiles = append(n.Quartiles, b.round(q))
		}
		out.Numeric = &n
	}
	if cp.String != nil {
		s := *cp.String
		s.AvgLen = b.roundPtr(cp.String.AvgLen)
		out.String = &s
	}
	if len(cp.TopValues) > 0 {
		out.TopValues = make([]model.TopValue, len(cp.TopValues))
		for i, tv := range cp.TopValues {
			tv.Ratio = b.round(tv.Ratio)
			out.TopValues[i] = tv
		}
	}
	return out
}

// normalizeLineage sorts and de-duplicates refs; empty input yields nil so the section
// is omitted.
func normalizeLineage(refs []model.LineageRef) []model.LineageRef {
	if len(refs) == 0 {
		return nil
	}
	seen := make(map[model.LineageRef]struct{}, len(refs))
	out := make([]model.LineageRef, 0, len(refs))
	for _, r := range refs {
		if r.Table == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Direction != out[j].Direction {
			return out[i].Direction < out[j].Direction
		}
		return out[i].Table < out[j].Table
	})
	if len(out) == 0 {
		return nil
	}
	return out
}
