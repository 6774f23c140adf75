package semantic

import (
	"context"
	"testing"

	"github.com/WessleyAI/tourvec/engine/filter"
)

func seedMemory(t *testing.T) *MemoryStore {
	t.Helper()
	m := NewMemoryStore()
	ctx := context.Background()
	if err := m.EnsureCollection(ctx, 2); err != nil {
		t.Fatal(err)
	}
	err := m.Upsert(ctx, []VectorRecord{
		{Record: Record{ID: "0", Metadata: map[string]any{"city": "Taipei", "created_at": int64(10)}}, Embedding: []float32{1, 0}},
		{Record: Record{ID: "1", Metadata: map[string]any{"city": "Tainan", "created_at": int64(20)}}, Embedding: []float32{0, 1}},
		{Record: Record{ID: "2", Metadata: map[string]any{"city": "Taipei", "created_at": int64(30)}}, Embedding: []float32{1, 0}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestMemory_CountAndGet(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()
	if n, _ := m.Count(ctx); n != 3 {
		t.Fatalf("count = %d", n)
	}
	recs, err := m.Get(ctx, filter.In("city", "Taipei"))
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].ID != "0" || recs[1].ID != "2" {
		t.Fatalf("unexpected: %+v", recs)
	}
}

func TestMemory_UpsertReplaces(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()
	err := m.Upsert(ctx, []VectorRecord{{Record: Record{ID: "1", Metadata: map[string]any{"city": "Hualien"}}, Embedding: []float32{0, 1}}})
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := m.Count(ctx); n != 3 {
		t.Fatalf("count = %d", n)
	}
	recs, _ := m.Get(ctx, filter.Eq("city", "Hualien"))
	if len(recs) != 1 {
		t.Fatal("record not replaced")
	}
}

func TestMemory_DimensionMismatch(t *testing.T) {
	m := seedMemory(t)
	err := m.Upsert(context.Background(), []VectorRecord{{Record: Record{ID: "9"}, Embedding: []float32{1, 0, 0}}})
	if err == nil {
		t.Fatal("expected dimension error")
	}
}

func TestMemory_SetMetadataMerges(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()
	err := m.SetMetadata(ctx, []Record{
		{ID: "0", Metadata: map[string]any{"display_name": "X"}},
		{ID: "missing", Metadata: map[string]any{"display_name": "Y"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	recs, _ := m.Get(ctx, filter.Eq("display_name", "X"))
	if len(recs) != 1 || recs[0].Metadata["city"] != "Taipei" {
		t.Fatalf("merge lost fields: %+v", recs)
	}
	if n, _ := m.Count(ctx); n != 3 {
		t.Fatal("unknown id must not create a record")
	}
}

func TestMemory_GetReturnsCopies(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()
	recs, _ := m.Get(ctx, filter.Eq("city", "Tainan"))
	recs[0].Metadata["city"] = "changed"
	again, _ := m.Get(ctx, filter.Eq("city", "Tainan"))
	if len(again) != 1 {
		t.Fatal("caller mutation leaked into the store")
	}
}

func TestMemory_SearchOrderAndLimit(t *testing.T) {
	m := seedMemory(t)
	hits, err := m.Search(context.Background(), []float32{1, 0}, nil, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 || hits[0].ID != "0" || hits[1].ID != "2" {
		t.Fatalf("ties should keep insertion order: %+v", hits)
	}
	if hits[0].Distance > 1e-6 {
		t.Fatalf("identical vectors should have distance 0, got %v", hits[0].Distance)
	}
}

func TestMemory_SearchFiltered(t *testing.T) {
	m := seedMemory(t)
	hits, err := m.Search(context.Background(), []float32{1, 0}, filter.Gte("created_at", 20), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 || hits[0].ID != "2" || hits[1].ID != "1" {
		t.Fatalf("unexpected: %+v", hits)
	}
}

func TestCosineDistance(t *testing.T) {
	d, _ := cosineDistance([]float32{1, 0}, []float32{0, 1})
	if d < 0.999 || d > 1.001 {
		t.Fatalf("orthogonal distance = %v", d)
	}
	d, _ = cosineDistance([]float32{0, 0}, []float32{1, 0})
	if d != 1 {
		t.Fatalf("zero vector distance = %v", d)
	}
	if _, err := cosineDistance([]float32{1}, []float32{1, 0}); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestNewBackendKinds(t *testing.T) {
	b, err := NewBackend(KindMemory, "", "TRAVEL")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.(*MemoryStore); !ok {
		t.Fatalf("expected *MemoryStore, got %T", b)
	}
	if _, err := NewBackend("sqlite", "", "TRAVEL"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if _, err := NewBackend(KindPGVector, "postgres://localhost/db", "bad-name"); err == nil {
		t.Fatal("expected error for invalid collection name")
	}
}
