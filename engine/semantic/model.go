package semantic

import (
	"context"
	"maps"

	"github.com/WessleyAI/tourvec/engine/filter"
)

// Record is one stored document: id, structured metadata and the text body.
type Record struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata"`
	Document string         `json:"document"`
}

// Clone returns a copy whose metadata map can be mutated independently.
func (r Record) Clone() Record {
	r.Metadata = maps.Clone(r.Metadata)
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	return r
}

// VectorRecord is a Record with its embedding, as written to a backend.
type VectorRecord struct {
	Record
	Embedding []float32
}

// Hit is a similarity-search result. Distance is cosine distance: 0 means
// identical, larger is less similar. It is kept at full precision so the
// relevance cutoff sees the value the backend computed.
type Hit struct {
	Record
	Distance float64 `json:"distance"`
}

// Backend is a persistent vector collection. Implementations: VectorStore
// (Qdrant), PGVectorStore and MemoryStore.
type Backend interface {
	// EnsureCollection creates the collection (cosine space) if missing.
	EnsureCollection(ctx context.Context, dims int) error
	Count(ctx context.Context) (int, error)
	// Upsert writes full records, replacing any previous version by id.
	Upsert(ctx context.Context, records []VectorRecord) error
	// SetMetadata merges each record's metadata into the stored one by id.
	// Keys absent from the patch keep their stored values; the embedding and
	// document are untouched.
	SetMetadata(ctx context.Context, records []Record) error
	// Get returns every record matching where (nil matches all).
	Get(ctx context.Context, where *filter.Predicate) ([]Record, error)
	// Search returns up to limit nearest records matching where, closest first.
	Search(ctx context.Context, embedding []float32, where *filter.Predicate, limit int) ([]Hit, error)
	Close() error
}

// Embedder maps texts to fixed-dimension vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
