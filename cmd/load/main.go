// Command load reads the tourist-site CSV into the vector collection. A
// collection that already holds records is left untouched.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/WessleyAI/tourvec/engine/ingest"
	"github.com/WessleyAI/tourvec/engine/semantic"
	"github.com/WessleyAI/tourvec/pkg/config"
	"github.com/WessleyAI/tourvec/pkg/embedding"
	"github.com/WessleyAI/tourvec/pkg/resilience"
)

func main() {
	var (
		envFile    = flag.String("env", ".env", "optional .env file")
		dataset    = flag.String("dataset", "", "CSV path (default DATASET_PATH)")
		collection = flag.String("collection", "", "collection name (default COLLECTION)")
		store      = flag.String("store", "", "backend: qdrant, pgvector or memory (default TOURVEC_STORE)")
	)
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	override(&cfg.DatasetPath, *dataset)
	override(&cfg.Collection, *collection)
	override(&cfg.Store, *store)
	if os.Getenv("LOG_FORMAT") == "" {
		cfg.LogFormat = "text"
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("load failed", "err", err)
		os.Exit(1)
	}
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	backend, err := semantic.NewBackend(cfg.Store, cfg.BackendAddr(), cfg.Collection)
	if err != nil {
		return err
	}
	defer backend.Close()

	embed, err := embedding.New(ctx, cfg.Embedding)
	if err != nil {
		return err
	}
	defer embed.Close()

	coll, err := semantic.Open(ctx, cfg.Collection, backend, embed, cfg.EmbedDims, logger)
	if err != nil {
		return err
	}
	return load(ctx, coll, cfg, logger)
}

func load(ctx context.Context, coll ingest.Collection, cfg config.Config, logger *slog.Logger) error {
	loader := ingest.NewLoader(coll, ingest.Options{
		Location: cfg.Location,
		Limiter:  resilience.NewLimiter(resilience.LimiterOpts{Rate: cfg.EmbedRPS, Burst: 1}),
		Logger:   logger,
	})
	res, err := loader.Load(ctx, cfg.DatasetPath)
	if err != nil {
		return err
	}
	logger.Info("done", "collection", cfg.Collection, "skipped", res.Skipped, "count", res.Count, "batches", res.Batches)
	return nil
}
