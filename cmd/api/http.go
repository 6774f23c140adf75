package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/WessleyAI/tourvec/engine/domain"
	"github.com/WessleyAI/tourvec/engine/search"
	"github.com/WessleyAI/tourvec/pkg/config"
	"github.com/WessleyAI/tourvec/pkg/metrics"
	"github.com/WessleyAI/tourvec/pkg/mid"
)

func newHandler(cfg config.Config, svc *search.Service, reg *metrics.Registry, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/search", handleSearch(svc, logger))
	mux.HandleFunc("POST /api/rename", handleRename(svc, logger))
	mux.Handle("GET /metrics", reg.Handler())

	return mid.Chain(mux,
		mid.Recover(logger),
		mid.OTel("tourvec-api"),
		mid.Logger(logger),
		mid.Metrics(reg),
		mid.CORS(cfg.CORSOrigin),
	)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleSearch(svc *search.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req search.SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		names, err := runSearch(r.Context(), svc, req)
		if err != nil {
			writeServiceError(w, logger, "search", err)
			return
		}
		writeJSON(w, http.StatusOK, search.Response{Names: names})
	}
}

func handleRename(svc *search.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req search.RenameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		names, err := runRename(r.Context(), svc, req)
		if err != nil {
			writeServiceError(w, logger, "rename", err)
			return
		}
		writeJSON(w, http.StatusOK, search.Response{Names: names})
	}
}

// badRequest reports whether err is the caller's fault.
func badRequest(err error) bool {
	var ve *domain.ValidationError
	return errors.As(err, &ve)
}

func writeServiceError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	if badRequest(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	logger.Error(op+" failed", "err", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, search.Response{Names: []string{}, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
