package semantic

import (
	"context"
	"errors"
	"testing"
)

// keywordEmbedder maps text to a 2-d vector: x if it mentions "cafe", y otherwise.
type keywordEmbedder struct {
	calls int
	err   error
	short bool
}

func (k *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	k.calls++
	if k.err != nil {
		return nil, k.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		if len(t) >= 4 && t[len(t)-4:] == "cafe" {
			out = append(out, []float32{1, 0})
		} else {
			out = append(out, []float32{0, 1})
		}
	}
	if k.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func TestCollection_AddQuery(t *testing.T) {
	ctx := context.Background()
	c, err := Open(ctx, "TRAVEL", NewMemoryStore(), &keywordEmbedder{}, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Name() != "TRAVEL" {
		t.Fatal("name")
	}
	err = c.Add(ctx, []Record{
		{ID: "0", Document: "a park", Metadata: map[string]any{"name": "Park"}},
		{ID: "1", Document: "a cafe", Metadata: map[string]any{"name": "Cafe"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := c.Count(ctx); n != 2 {
		t.Fatalf("count = %d", n)
	}
	hits, err := c.Query(ctx, "best cafe", nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != "1" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestCollection_EmptyWritesSkipEmbedder(t *testing.T) {
	ctx := context.Background()
	emb := &keywordEmbedder{}
	c, _ := Open(ctx, "TRAVEL", NewMemoryStore(), emb, 2, nil)
	if err := c.Add(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if err := c.UpsertMetadata(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if emb.calls != 0 {
		t.Fatal("embedder should not be called")
	}
}

func TestCollection_EmbedErrors(t *testing.T) {
	ctx := context.Background()
	c, _ := Open(ctx, "TRAVEL", NewMemoryStore(), &keywordEmbedder{err: errors.New("quota")}, 2, nil)
	if err := c.Add(ctx, []Record{{ID: "0"}}); err == nil {
		t.Fatal("expected embed error on add")
	}
	if _, err := c.Query(ctx, "q", nil, 1); err == nil {
		t.Fatal("expected embed error on query")
	}

	c, _ = Open(ctx, "TRAVEL", NewMemoryStore(), &keywordEmbedder{short: true}, 2, nil)
	if err := c.Add(ctx, []Record{{ID: "0"}, {ID: "1"}}); err == nil {
		t.Fatal("expected vector count mismatch")
	}
}
