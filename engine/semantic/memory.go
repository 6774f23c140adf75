package semantic

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/WessleyAI/tourvec/engine/filter"
)

// MemoryStore is an in-process Backend with exact cosine search. Records are
// returned in insertion order, which makes it the reference backend for tests
// and small datasets.
type MemoryStore struct {
	mu     sync.RWMutex
	dims   int
	order  []string
	points map[string]VectorRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{points: make(map[string]VectorRecord)}
}

func (m *MemoryStore) EnsureCollection(_ context.Context, dims int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dims == 0 {
		m.dims = dims
	}
	return nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order), nil
}

func (m *MemoryStore) Upsert(_ context.Context, records []VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		if m.dims > 0 && len(r.Embedding) != m.dims {
			return fmt.Errorf("semantic: record %s has %d dims, collection has %d", r.ID, len(r.Embedding), m.dims)
		}
	}
	for _, r := range records {
		if _, ok := m.points[r.ID]; !ok {
			m.order = append(m.order, r.ID)
		}
		m.points[r.ID] = VectorRecord{
			Record:    r.Record.Clone(),
			Embedding: slices.Clone(r.Embedding),
		}
	}
	return nil
}

// SetMetadata merges metadata by id. Unknown ids are ignored.
func (m *MemoryStore) SetMetadata(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		p, ok := m.points[r.ID]
		if !ok {
			continue
		}
		meta := maps.Clone(p.Metadata)
		if meta == nil {
			meta = map[string]any{}
		}
		maps.Copy(meta, r.Metadata)
		p.Metadata = meta
		m.points[r.ID] = p
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, where *filter.Predicate) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for _, id := range m.order {
		p := m.points[id]
		if where.Match(p.Metadata) {
			out = append(out, p.Record.Clone())
		}
	}
	return out, nil
}

// Search scores every matching record. Ties keep insertion order.
func (m *MemoryStore) Search(_ context.Context, embedding []float32, where *filter.Predicate, limit int) ([]Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var hits []Hit
	for _, id := range m.order {
		p := m.points[id]
		if !where.Match(p.Metadata) {
			continue
		}
		d, err := cosineDistance(embedding, p.Embedding)
		if err != nil {
			return nil, fmt.Errorf("semantic: search %s: %w", id, err)
		}
		hits = append(hits, Hit{Record: p.Record.Clone(), Distance: d})
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
	if limit >= 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *MemoryStore) Close() error { return nil }

// cosineDistance returns 1 - cos(a, b). A zero vector is maximally distant.
func cosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1, nil
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), nil
}

var _ Backend = (*MemoryStore)(nil)
