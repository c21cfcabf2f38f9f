// Package api serves the read-only JSON surface backing the public
// map/dashboard.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amirulm/aidlog/internal/repository"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Server wires the read-only HTTP handlers.
type Server struct {
	repo   repository.ActivityRepository
	logger *slog.Logger
}

// NewRouter builds the HTTP router.
func NewRouter(repo repository.ActivityRepository, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	srv := &Server{repo: repo, logger: logger}

	r.Get("/healthz", srv.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/activities", srv.handleList)
	r.Get("/api/activities/{id}", srv.handleGet)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultLimit)
	if limit > maxLimit {
		limit = maxLimit
	}
	offset := queryInt(r, "offset", 0)

	recs, err := s.repo.ListRecent(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("listing activities failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"activities": recs,
		"count":      len(recs),
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	idOrPrefix := chi.URLParam(r, "id")

	id, err := s.repo.ResolveID(r.Context(), idOrPrefix)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "activity not found")
		return
	case errors.Is(err, repository.ErrAmbiguousID):
		writeError(w, http.StatusConflict, "id prefix matches more than one activity")
		return
	case err != nil:
		s.logger.Error("resolving activity id failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	rec, err := s.repo.Get(r.Context(), id)
	if err != nil {
		s.logger.Error("loading activity failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
