package main

import (
	"context"
	"log/slog"

	"github.com/WessleyAI/tourvec/engine/search"
	"github.com/WessleyAI/tourvec/pkg/natsutil"
	"github.com/nats-io/nats.go"
)

// NATS subjects served and published by the API.
const (
	SubjectSearch  = "tourvec.search"
	SubjectRename  = "tourvec.rename"
	SubjectRenamed = "tourvec.places.renamed"

	queueGroup = "tourvec-api"
)

type natsNotifier struct {
	nc *nats.Conn
}

func (n natsNotifier) PlacesRenamed(ctx context.Context, ev search.RenameEvent) error {
	return natsutil.Publish(ctx, n.nc, SubjectRenamed, ev)
}

func runSearch(ctx context.Context, svc *search.Service, req search.SearchRequest) ([]string, error) {
	opts, err := req.Options()
	if err != nil {
		return nil, err
	}
	return svc.Search(ctx, req.Question, opts)
}

func runRename(ctx context.Context, svc *search.Service, req search.RenameRequest) ([]string, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return svc.RenameAndSearch(ctx, req)
}

func errorResponse(err error) search.Response {
	return search.Response{Names: []string{}, Error: err.Error()}
}

// serveNATS registers the request/reply handlers. It is a no-op without a
// connection.
func serveNATS(nc *nats.Conn, svc *search.Service, logger *slog.Logger) error {
	if nc == nil {
		return nil
	}
	if _, err := natsutil.Handle(nc, SubjectSearch, queueGroup, func(ctx context.Context, req search.SearchRequest) (search.Response, error) {
		names, err := runSearch(ctx, svc, req)
		return search.Response{Names: names}, err
	}, errorResponse); err != nil {
		return err
	}
	if _, err := natsutil.Handle(nc, SubjectRename, queueGroup, func(ctx context.Context, req search.RenameRequest) (search.Response, error) {
		names, err := runRename(ctx, svc, req)
		return search.Response{Names: names}, err
	}, errorResponse); err != nil {
		return err
	}
	logger.Info("nats handlers registered", "subjects", []string{SubjectSearch, SubjectRename})
	return nil
}
