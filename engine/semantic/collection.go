// Package semantic owns the vector collection: a Backend (Qdrant, pgvector or
// in-memory) paired with the embedding function used for documents and
// queries.
package semantic

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/WessleyAI/tourvec/engine/filter"
)

// Collection is a handle to a named vector collection with its embedding
// function attached.
type Collection struct {
	name    string
	backend Backend
	embed   Embedder
	logger  *slog.Logger
}

// Open gets or creates the collection and returns a handle to it.
func Open(ctx context.Context, name string, backend Backend, embed Embedder, dims int, logger *slog.Logger) (*Collection, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := backend.EnsureCollection(ctx, dims); err != nil {
		return nil, err
	}
	logger.Debug("collection ready", "collection", name, "dims", dims)
	return &Collection{name: name, backend: backend, embed: embed, logger: logger}, nil
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Close releases the backend.
func (c *Collection) Close() error { return c.backend.Close() }

// Count returns the number of stored records.
func (c *Collection) Count(ctx context.Context) (int, error) {
	return c.backend.Count(ctx)
}

// Add embeds each record's document and writes the records.
func (c *Collection) Add(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Document
	}
	vecs, err := c.embed.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("semantic: embed %d documents: %w", len(texts), err)
	}
	if len(vecs) != len(records) {
		return fmt.Errorf("semantic: embedder returned %d vectors for %d documents", len(vecs), len(records))
	}
	points := make([]VectorRecord, len(records))
	for i, r := range records {
		points[i] = VectorRecord{Record: r, Embedding: vecs[i]}
	}
	return c.backend.Upsert(ctx, points)
}

// UpsertMetadata writes records' metadata back by id, merging with what is
// stored. Nothing is re-embedded.
func (c *Collection) UpsertMetadata(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	return c.backend.SetMetadata(ctx, records)
}

// Get returns the records matching where exactly; no similarity involved.
func (c *Collection) Get(ctx context.Context, where *filter.Predicate) ([]Record, error) {
	return c.backend.Get(ctx, where)
}

// Query embeds text and returns up to limit nearest records matching where.
func (c *Collection) Query(ctx context.Context, text string, where *filter.Predicate, limit int) ([]Hit, error) {
	vecs, err := c.embed.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("semantic: embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("semantic: embedder returned %d vectors for 1 query", len(vecs))
	}
	return c.backend.Search(ctx, vecs[0], where, limit)
}
