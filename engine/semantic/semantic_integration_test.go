//go:build integration

package semantic

import (
	"context"
	"os"
	"testing"

	"github.com/WessleyAI/tourvec/engine/filter"
)

func qdrantAddr() string {
	if v := os.Getenv("QDRANT_URL"); v != "" {
		return v
	}
	return "localhost:6334"
}

func testStore(t *testing.T, collection string) *VectorStore {
	t.Helper()
	vs, err := New(qdrantAddr(), collection)
	if err != nil {
		t.Fatalf("connect qdrant: %v", err)
	}
	t.Cleanup(func() {
		vs.DeleteCollection(context.Background())
		vs.Close()
	})
	return vs
}

func seedQdrant(t *testing.T, vs *VectorStore) {
	t.Helper()
	ctx := context.Background()
	if err := vs.EnsureCollection(ctx, 4); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	// Calling again should be idempotent
	if err := vs.EnsureCollection(ctx, 4); err != nil {
		t.Fatalf("EnsureCollection (idempotent): %v", err)
	}
	records := []VectorRecord{
		{Record: Record{ID: "0", Document: "night market", Metadata: map[string]any{"name": "Shilin", "city": "Taipei", "category": "Food", "created_at": int64(100)}}, Embedding: []float32{1, 0, 0, 0}},
		{Record: Record{ID: "1", Document: "old cafe", Metadata: map[string]any{"name": "Old Cafe", "city": "Tainan", "category": "Food", "created_at": int64(200)}}, Embedding: []float32{0.9, 0.1, 0, 0}},
		{Record: Record{ID: "2", Document: "temple", Metadata: map[string]any{"name": "Temple", "city": "Tainan", "category": "Culture", "created_at": int64(300)}}, Embedding: []float32{0, 1, 0, 0}},
	}
	if err := vs.Upsert(ctx, records); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
}

func TestQdrant_CountAndSearch(t *testing.T) {
	vs := testStore(t, "test_tourvec_search")
	seedQdrant(t, vs)
	ctx := context.Background()

	if n, err := vs.Count(ctx); err != nil || n != 3 {
		t.Fatalf("Count: %d, %v", n, err)
	}
	hits, err := vs.Search(ctx, []float32{1, 0, 0, 0}, filter.In("city", "Tainan"), 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 || hits[0].Metadata["name"] != "Old Cafe" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if hits[0].Metadata["created_at"] != int64(200) {
		t.Fatalf("created_at came back as %T", hits[0].Metadata["created_at"])
	}
}

func TestQdrant_RangeFilter(t *testing.T) {
	vs := testStore(t, "test_tourvec_range")
	seedQdrant(t, vs)

	recs, err := vs.Get(context.Background(), filter.And(filter.Gte("created_at", 150), filter.Lte("created_at", 300)))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
}

func TestQdrant_SetMetadataMerges(t *testing.T) {
	vs := testStore(t, "test_tourvec_merge")
	seedQdrant(t, vs)
	ctx := context.Background()

	if err := vs.SetMetadata(ctx, []Record{{ID: "1", Metadata: map[string]any{"display_name": "New Cafe"}}}); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	recs, err := vs.Get(ctx, filter.Eq("name", "Old Cafe"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(recs) != 1 || recs[0].Metadata["display_name"] != "New Cafe" || recs[0].Metadata["city"] != "Tainan" {
		t.Fatalf("unexpected record: %+v", recs)
	}
	if recs[0].Document != "old cafe" || recs[0].ID != "1" {
		t.Fatal("document or id lost")
	}
}
