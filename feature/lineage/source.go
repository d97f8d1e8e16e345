package lineage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/tidwall/gjson"

	"metadata-sync/core/model"
	"metadata-sync/core/storage"
	"metadata-sync/core/utils"
)

// Source returns the lineage of a table. A table without lineage yields nil.
type Source interface {
	Lineage(ctx context.Context, table model.TableDescriptor) ([]model.LineageRef, error)
}

// StorageSource reads per-table lineage snapshots from object storage.
// Snapshots live at <prefix><project.dataset.table>.json and look like
//
//	{"upstream": ["p.d.t"], "downstream": [{"table": "p.d.u"}]}
type StorageSource struct {
	client storage.Client
	bucket string
	prefix string
}

// NewStorageSource creates a lineage source over bucket.
func NewStorageSource(client storage.Client, bucket, prefix string) *StorageSource {
	return &StorageSource{client: client, bucket: bucket, prefix: prefix}
}

// ObjectName returns the snapshot key of table.
func (s *StorageSource) ObjectName(table model.TableDescriptor) string {
	return s.prefix + table.Key() + ".json"
}

// Lineage reads the snapshot of table. A missing snapshot is not an error.
func (s *StorageSource) Lineage(ctx context.Context, table model.TableDescriptor) ([]model.LineageRef, error) {
	name := s.ObjectName(table)
	reader, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get lineage %s: %w", name, err)
	}
	defer reader.Close()

	// Minio reports missing objects on first read.
	data, err := io.ReadAll(reader)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lineage %s: %w", name, err)
	}
	return Parse(data)
}

// Parse decodes a lineage snapshot. Entries may be plain table strings or objects
// with a "table" (or "name") field.
func Parse(data []byte) ([]model.LineageRef, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid lineage snapshot")
	}
	doc := gjson.ParseBytes(data)

	var refs []model.LineageRef
	for _, dir := range []string{model.LineageUpstream, model.LineageDownstream} {
		doc.Get(dir).ForEach(func(_, entry gjson.Result) bool {
			name := entry.String()
			if entry.IsObject() {
				name = utils.FirstOf(entry, "table", "name").String()
			}
			if ref, err := model.ParseTableDescriptor(name); err == nil {
				refs = append(refs, model.LineageRef{Direction: dir, Table: ref.Key()})
			}
			return true
		})
	}
	return refs, nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
