// Package main runs the tourvec API: HTTP and optional NATS front ends over
// the search service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/WessleyAI/tourvec/engine/filter"
	"github.com/WessleyAI/tourvec/engine/search"
	"github.com/WessleyAI/tourvec/engine/semantic"
	"github.com/WessleyAI/tourvec/pkg/config"
	"github.com/WessleyAI/tourvec/pkg/embedding"
	"github.com/WessleyAI/tourvec/pkg/metrics"
	"github.com/nats-io/nats.go"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func main() {
	envFile := flag.String("env", ".env", "optional .env file")
	flag.Parse()

	opts := append(appOptions(*envFile), fx.WithLogger(fxLogger))
	fx.New(opts...).Run()
}

func fxLogger(l *slog.Logger) fxevent.Logger {
	return &fxevent.SlogLogger{Logger: l}
}

func appOptions(envFile string) []fx.Option {
	return []fx.Option{
		fx.Supply(envPath(envFile)),
		fx.Provide(
			loadConfig,
			provideLogger,
			metrics.New,
			search.NewMetrics,
			provideBackend,
			provideEmbedder,
			provideCollection,
			provideNATS,
			provideService,
			newHandler,
		),
		fx.Invoke(serveNATS, startHTTP),
	}
}

type envPath string

func loadConfig(p envPath) (config.Config, error) {
	return config.Load(string(p))
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger := cfg.Logger()
	slog.SetDefault(logger)
	return logger
}

func provideBackend(lc fx.Lifecycle, cfg config.Config) (semantic.Backend, error) {
	b, err := semantic.NewBackend(cfg.Store, cfg.BackendAddr(), cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("%s connect: %w", cfg.Store, err)
	}
	lc.Append(fx.StopHook(b.Close))
	return b, nil
}

func provideEmbedder(lc fx.Lifecycle, cfg config.Config) (embedding.Client, error) {
	c, err := embedding.New(context.Background(), cfg.Embedding)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(c.Close))
	return c, nil
}

func provideCollection(cfg config.Config, b semantic.Backend, e embedding.Client, reg *metrics.Registry, logger *slog.Logger) (*semantic.Collection, error) {
	ctx := context.Background()
	coll, err := semantic.Open(ctx, cfg.Collection, b, e, cfg.EmbedDims, logger)
	if err != nil {
		return nil, err
	}
	n, err := coll.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		logger.Warn("collection is empty; run cmd/load first", "collection", cfg.Collection)
	}
	reg.Gauge("tourvec_collection_records", "Records in the collection at startup.").Set(int64(n))
	return coll, nil
}

// provideNATS returns a nil connection when NATS_URL is unset.
func provideNATS(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) (*nats.Conn, error) {
	if cfg.NATSURL == "" {
		return nil, nil
	}
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("tourvec-api"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	logger.Info("nats connected", "url", nc.ConnectedUrl())
	lc.Append(fx.StopHook(nc.Drain))
	return nc, nil
}

func provideService(cfg config.Config, coll *semantic.Collection, nc *nats.Conn, m *search.Metrics, logger *slog.Logger) *search.Service {
	deps := search.Deps{Metrics: m, Logger: logger}
	if nc != nil {
		deps.Notifier = natsNotifier{nc: nc}
	}
	return search.New(coll, filter.NewBuilder(cfg.Location), deps)
}

func startHTTP(lc fx.Lifecycle, cfg config.Config, handler http.Handler, logger *slog.Logger) {
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			logger.Info("api server starting", "port", cfg.Port, "store", cfg.Store, "collection", cfg.Collection)
			go func() {
				if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("http server failed", "err", err)
				}
			}()
			return nil
		},
		OnStop: srv.Shutdown,
	})
}
