// Package ingest loads the tourist-site dataset into the vector collection
// through a read, validate, embed and store pipeline.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/WessleyAI/tourvec/engine/domain"
	"github.com/WessleyAI/tourvec/engine/semantic"
	"github.com/WessleyAI/tourvec/pkg/fn"
	"github.com/WessleyAI/tourvec/pkg/resilience"
)

// EmbedBatchSize is the max documents per embedding request.
const EmbedBatchSize = 100

// Collection is the part of semantic.Collection the loader writes through.
type Collection interface {
	Count(ctx context.Context) (int, error)
	Add(ctx context.Context, records []semantic.Record) error
}

// Options configures a Loader. Zero values are usable.
type Options struct {
	// Location converts CreateDate; nil means time.Local.
	Location *time.Location
	// Limiter throttles embedding batches; nil means unlimited.
	Limiter *resilience.Limiter
	Logger  *slog.Logger
}

// Result summarizes a Load call.
type Result struct {
	Path    string `json:"path"`
	Skipped bool   `json:"skipped"`
	// Count is the number of records written, or the number already present
	// when the load was skipped.
	Count   int `json:"count"`
	Batches int `json:"batches"`
}

// Loader is the bulk dataset loader.
type Loader struct {
	coll    Collection
	loc     *time.Location
	limiter *resilience.Limiter
	log     *slog.Logger
}

// NewLoader creates a Loader writing to coll.
func NewLoader(coll Collection, opts Options) *Loader {
	l := &Loader{coll: coll, loc: opts.Location, limiter: opts.Limiter, log: opts.Logger}
	if l.loc == nil {
		l.loc = time.Local
	}
	if l.limiter == nil {
		l.limiter = resilience.NewLimiter(resilience.LimiterOpts{})
	}
	if l.log == nil {
		l.log = slog.Default()
	}
	return l
}

// Load reads the CSV at path into the collection. A collection that already
// holds records is left alone. Nothing is written unless every row is valid.
func (l *Loader) Load(ctx context.Context, path string) (Result, error) {
	n, err := l.coll.Count(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("ingest: count: %w", err)
	}
	if n > 0 {
		l.log.Info("collection already populated, skipping load", "path", path, "count", n)
		return Result{Path: path, Skipped: true, Count: n}, nil
	}

	start := time.Now()
	written, err := l.pipeline()(ctx, path).Unwrap()
	if err != nil {
		return Result{}, err
	}
	res := Result{Path: path, Count: fn.Sum(written, func(n int) int { return n }), Batches: len(written)}
	l.log.Info("dataset loaded", "path", path, "count", res.Count, "batches", res.Batches, "duration", time.Since(start))
	return res, nil
}

// pipeline: read → validate → batch → embed+store. Each batch result is
// the number of records it wrote.
func (l *Loader) pipeline() fn.Stage[string, []int] {
	read := fn.TracedStage("ingest.read", fn.TryStage(l.readFile))
	validate := fn.TracedStage("ingest.validate", fn.TryStage(Validate))
	batch := fn.MapStage(func(places []domain.Place) [][]semantic.Record {
		return fn.Chunk(fn.Map(places, ToRecord), EmbedBatchSize)
	})
	store := fn.TracedStage("ingest.store",
		fn.Each(resilience.LimiterStageWait(l.limiter, fn.TryStage(l.addBatch))))

	return fn.Then(fn.Then(fn.Then(read, validate), batch), store)
}

func (l *Loader) readFile(_ context.Context, path string) ([]domain.Place, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open dataset: %w", err)
	}
	defer f.Close()
	places, err := ReadPlaces(f, filepath.Base(path), l.loc)
	if err != nil {
		return nil, err
	}
	l.log.Debug("dataset read", "path", path, "rows", len(places))
	return places, nil
}

func (l *Loader) addBatch(ctx context.Context, records []semantic.Record) (int, error) {
	if err := l.coll.Add(ctx, records); err != nil {
		return 0, fmt.Errorf("ingest: add batch at id %s: %w", records[0].ID, err)
	}
	l.log.Debug("batch stored", "first_id", records[0].ID, "size", len(records))
	return len(records), nil
}

// Validate checks every place and returns the first failure.
func Validate(_ context.Context, places []domain.Place) ([]domain.Place, error) {
	for i, p := range places {
		if err := domain.ValidatePlace(i, p); err != nil {
			return nil, err
		}
	}
	return places, nil
}

// ToRecord maps a place onto its stored form: metadata plus the description
// as the document.
func ToRecord(p domain.Place) semantic.Record {
	return semantic.Record{ID: p.ID, Metadata: p.Metadata(), Document: p.Description}
}
