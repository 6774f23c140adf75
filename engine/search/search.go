// Package search answers natural-language questions over the place
// collection and implements the rename-then-requery flow.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/WessleyAI/tourvec/engine/domain"
	"github.com/WessleyAI/tourvec/engine/filter"
	"github.com/WessleyAI/tourvec/engine/semantic"
	"github.com/WessleyAI/tourvec/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("engine/search")

// Store is the part of semantic.Collection the service needs.
type Store interface {
	Query(ctx context.Context, text string, where *filter.Predicate, limit int) ([]semantic.Hit, error)
	Get(ctx context.Context, where *filter.Predicate) ([]semantic.Record, error)
	UpsertMetadata(ctx context.Context, records []semantic.Record) error
}

// Notifier is told about completed renames. Failures are logged only.
type Notifier interface {
	PlacesRenamed(ctx context.Context, ev RenameEvent) error
}

// RenameEvent describes a completed bulk rename.
type RenameEvent struct {
	StoreName    string    `json:"store_name"`
	NewStoreName string    `json:"new_store_name"`
	IDs          []string  `json:"ids"`
	At           time.Time `json:"at"`
}

// RenameRequest is the input of RenameAndSearch. Cities and Categories
// constrain only the requery.
type RenameRequest struct {
	Question     string   `json:"question"`
	StoreName    string   `json:"store_name"`
	NewStoreName string   `json:"new_store_name"`
	Cities       []string `json:"cities,omitempty"`
	Categories   []string `json:"categories,omitempty"`
}

// Deps holds the optional collaborators of a Service.
type Deps struct {
	Notifier Notifier
	Metrics  *Metrics
	Logger   *slog.Logger
}

// Service runs queries and renames against one collection.
type Service struct {
	store    Store
	builder  filter.Builder
	notifier Notifier
	metrics  *Metrics
	logger   *slog.Logger
}

// New creates a Service.
func New(store Store, builder filter.Builder, deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics(metrics.New())
	}
	return &Service{
		store:    store,
		builder:  builder,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
	}
}

// Run queries the store and returns the display names of the relevant hits,
// closest first. An empty result is not an error.
func (s *Service) Run(ctx context.Context, question string, where *filter.Predicate, preferDisplay bool) ([]string, error) {
	ctx, span := tracer.Start(ctx, "search.run", trace.WithAttributes(
		attribute.String("filter", where.String()),
		attribute.StringSlice("filter.fields", where.Fields()),
		attribute.Bool("prefer_display", preferDisplay),
	))
	defer span.End()
	start := time.Now()
	defer s.metrics.Latency.Since(start)
	s.metrics.Queries.Inc()

	hits, err := s.store.Query(ctx, question, where, ResultLimit)
	if err != nil {
		s.metrics.Failures.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("search: query: %w", err)
	}

	ranked := Rank(hits)
	names := make([]string, len(ranked))
	for i, h := range ranked {
		names[i] = DisplayName(h.Metadata, preferDisplay)
	}
	span.SetAttributes(attribute.Int("hits", len(hits)), attribute.Int("results", len(names)))
	s.logger.Debug("search done", "hits", len(hits), "results", len(names))
	return names, nil
}

// Search answers question under the optional city, category and date
// constraints.
func (s *Service) Search(ctx context.Context, question string, opts filter.Options) ([]string, error) {
	return s.Run(ctx, question, s.builder.Build(opts), false)
}

// RenameAndSearch sets display_name to NewStoreName on every record named
// exactly StoreName, then reruns the question preferring display names.
// Zero matches is a normal outcome: nothing is written and the query runs
// as usual.
func (s *Service) RenameAndSearch(ctx context.Context, req RenameRequest) ([]string, error) {
	ctx, span := tracer.Start(ctx, "search.rename", trace.WithAttributes(
		attribute.String("store_name", req.StoreName),
	))
	defer span.End()

	ids, err := s.rename(ctx, req.StoreName, req.NewStoreName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("renamed", len(ids)))

	if len(ids) > 0 && s.notifier != nil {
		ev := RenameEvent{StoreName: req.StoreName, NewStoreName: req.NewStoreName, IDs: ids, At: time.Now().UTC()}
		if err := s.notifier.PlacesRenamed(ctx, ev); err != nil {
			s.logger.Warn("rename notification failed", "store_name", req.StoreName, "err", err)
		}
	}

	where := s.builder.Build(filter.Options{Cities: req.Cities, Categories: req.Categories})
	return s.Run(ctx, req.Question, where, true)
}

func (s *Service) rename(ctx context.Context, storeName, newStoreName string) ([]string, error) {
	matches, err := s.store.Get(ctx, filter.Eq(domain.KeyName, storeName))
	if err != nil {
		return nil, fmt.Errorf("search: lookup %q: %w", storeName, err)
	}
	if len(matches) == 0 {
		s.logger.Info("rename matched no records", "store_name", storeName)
		return nil, nil
	}

	patched := make([]semantic.Record, len(matches))
	ids := make([]string, len(matches))
	for i, m := range matches {
		rec := m.Clone()
		rec.Metadata[domain.KeyDisplayName] = newStoreName
		patched[i] = rec
		ids[i] = m.ID
	}
	if err := s.store.UpsertMetadata(ctx, patched); err != nil {
		return nil, fmt.Errorf("search: rename %q: %w", storeName, err)
	}
	s.metrics.Renamed.Add(int64(len(ids)))
	s.logger.Info("records renamed", "store_name", storeName, "new_store_name", newStoreName, "count", len(ids))
	return ids, nil
}
