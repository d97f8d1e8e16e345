package reconcile

import (
	"context"
	"errors"

	"metadata-sync/core/model"
)

// ErrDocumentExists is returned by Index.Create when the id is already taken.
var ErrDocumentExists = errors.New("document already exists")

// Index is the remote search index the engine writes to.
type Index interface {
	// Get returns the record stored under id, or nil when the index has none.
	Get(ctx context.Context, id string) (*model.IndexRecord, error)

	// Create stores a new document. It returns ErrDocumentExists when id is taken.
	Create(ctx context.Context, doc *model.MetadataDocument) error

	// Update replaces the document stored under id.
	Update(ctx context.Context, id string, doc *model.MetadataDocument) error
}
