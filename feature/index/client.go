package index

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"metadata-sync/core/model"
	"metadata-sync/core/reconcile"
	"metadata-sync/core/remote"
)

// Client talks to the search index REST API. It implements reconcile.Index.
type Client struct {
	http   *remote.Client
	prefix string
}

var _ reconcile.Index = (*Client)(nil)

// NewClient creates an index client from cfg.
func NewClient(cfg Config) (*Client, error) {
	rc, err := remote.NewClient(remote.Options{
		BaseURL: cfg.Endpoint,
		Token:   cfg.Token,
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	prefix := "/documents"
	if cfg.Name != "" {
		prefix = "/indexes/" + url.PathEscape(cfg.Name) + "/documents"
	}
	return &Client{http: rc, prefix: prefix}, nil
}

// storedDocument is the wire form of a document. The index echoes the metadata fields
// back on reads.
type storedDocument struct {
	ID           string                 `json:"id"`
	ContentHash  string                 `json:"content_hash"`
	Source       model.ProfileSource    `json:"source"`
	Partial      bool                   `json:"partial"`
	Fidelity     []string               `json:"fidelity,omitempty"`
	LastSyncedAt *time.Time             `json:"last_synced_at,omitempty"`
	Body         model.DocumentSections `json:"body"`
}

// Get returns the stored record, or nil when the index has no document with id.
func (c *Client) Get(ctx context.Context, id string) (*model.IndexRecord, error) {
	var stored storedDocument
	err := c.http.DoJSON(ctx, http.MethodGet, c.path(id), url.Values{"fields": {"id,content_hash,source,partial,fidelity,last_synced_at"}}, nil, &stored)
	if errors.Is(err, remote.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec := &model.IndexRecord{
		DocumentID:     id,
		LastSyncedHash: stored.ContentHash,
		Source:         stored.Source,
		Partial:        stored.Partial,
		Fidelity:       stored.Fidelity,
	}
	if stored.LastSyncedAt != nil {
		rec.LastSyncedAt = *stored.LastSyncedAt
	}
	return rec, nil
}

// Create stores a new document. A 409 is reported as reconcile.ErrDocumentExists.
func (c *Client) Create(ctx context.Context, doc *model.MetadataDocument) error {
	err := c.http.DoJSON(ctx, http.MethodPost, c.prefix, nil, toStored(doc), nil)
	if errors.Is(err, remote.ErrAlreadyExists) {
		return fmt.Errorf("%w: %s", reconcile.ErrDocumentExists, doc.ID)
	}
	return err
}

// Update replaces the document stored under id.
func (c *Client) Update(ctx context.Context, id string, doc *model.MetadataDocument) error {
	return c.http.DoJSON(ctx, http.MethodPut, c.path(id), nil, toStored(doc), nil)
}

func (c *Client) path(id string) string {
	return c.prefix + "/" + url.PathEscape(id)
}

func toStored(doc *model.MetadataDocument) storedDocument {
	return storedDocument{
		ID:          doc.ID,
		ContentHash: doc.ContentHash,
		Source:      doc.Source,
		Partial:     doc.Partial,
		Fidelity:    doc.Fidelity(),
		Body:        doc.Body,
	}
}
