package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/WessleyAI/tourvec/engine/semantic"
	"github.com/WessleyAI/tourvec/pkg/config"
)

type lenEmbedder struct{}

func (lenEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

const csvData = `Name,Type,Address,Tel,City,Town,CreateDate,HostWords
Old Cafe,food,1 Main St,123,Tainan,West,2023-01-10,coffee and cake
Old Temple,temple,2 Main St,456,Tainan,West,2023-02-11,historic temple
`

func TestOverride(t *testing.T) {
	s := "a"
	override(&s, "")
	if s != "a" {
		t.Fatal("empty override must keep value")
	}
	override(&s, "b")
	if s != "b" {
		t.Fatal("override not applied")
	}
}

func TestLoadTwiceSkips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "places.csv")
	if err := os.WriteFile(path, []byte(csvData), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	coll, err := semantic.Open(ctx, "TRAVEL", semantic.NewMemoryStore(), lenEmbedder{}, 2, logger)
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Config{Collection: "TRAVEL", DatasetPath: path, Location: time.UTC}

	for range 2 {
		if err := load(ctx, coll, cfg, logger); err != nil {
			t.Fatal(err)
		}
		n, err := coll.Count(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if n != 2 {
			t.Fatalf("expected 2 records, got %d", n)
		}
	}
}

func TestLoadMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(path, []byte("Name,City\nx,y\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	coll, _ := semantic.Open(ctx, "TRAVEL", semantic.NewMemoryStore(), lenEmbedder{}, 2, logger)
	err := load(ctx, coll, config.Config{DatasetPath: path, Location: time.UTC}, logger)
	if err == nil || !strings.Contains(err.Error(), "missing required columns") {
		t.Fatalf("got %v", err)
	}
}
