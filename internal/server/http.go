package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/auraxis/internal/model"
	"github.com/alfredjeanlab/auraxis/internal/store"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *StatusServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/sinks", s.handleListSinks)
	mux.HandleFunc("GET /v1/sinks/{id}", s.handleGetSink)
	mux.HandleFunc("DELETE /v1/sinks/{id}", s.handleDeleteSink)
	mux.HandleFunc("POST /v1/reconcile/{class}", s.handleReconcile)
	return AuthMiddleware(authToken, mux)
}

// handleHealth handles GET /v1/health.
func (s *StatusServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus handles GET /v1/status.
func (s *StatusServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ticks": s.Statuses()})
}

// handleListSinks handles GET /v1/sinks with optional class and flagged filters.
func (s *StatusServer) handleListSinks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	class := model.Class(q.Get("class"))
	if class != "" && !class.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown class "+strconv.Quote(string(class)))
		return
	}
	flagged := false
	if v := q.Get("flagged"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "flagged must be a boolean")
			return
		}
		flagged = b
	}

	rows, err := s.registry.ListAllRows(r.Context())
	if err != nil {
		s.logger.Error("list sinks failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list sinks")
		return
	}
	out := make([]*model.Row, 0, len(rows))
	for _, row := range rows {
		if class != "" && row.Class != class {
			continue
		}
		if flagged && !row.Error {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, map[string]any{"sinks": out, "total": len(out)})
}

// handleGetSink handles GET /v1/sinks/{id}.
func (s *StatusServer) handleGetSink(w http.ResponseWriter, r *http.Request) {
	row, err := s.registry.GetRow(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "sink not found")
		return
	}
	if err != nil {
		s.logger.Error("get sink failed", "id", r.PathValue("id"), "err", err)
		writeError(w, http.StatusInternalServerError, "failed to get sink")
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// handleDeleteSink handles DELETE /v1/sinks/{id}.
func (s *StatusServer) handleDeleteSink(w http.ResponseWriter, r *http.Request) {
	err := s.registry.DeleteRow(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "sink not found")
		return
	}
	if err != nil {
		s.logger.Error("delete sink failed", "id", r.PathValue("id"), "err", err)
		writeError(w, http.StatusInternalServerError, "failed to delete sink")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReconcile handles POST /v1/reconcile/{class}. The tick runs on the
// request context, so a client disconnect cancels it.
func (s *StatusServer) handleReconcile(w http.ResponseWriter, r *http.Request) {
	class := model.Class(strings.ReplaceAll(r.PathValue("class"), "-", "_"))
	if !class.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown class "+strconv.Quote(r.PathValue("class")))
		return
	}
	st, err := s.tick(r.Context(), class, TriggerAPI)
	if err != nil {
		s.logger.Error("api reconcile failed", "class", class, "err", err)
		writeJSON(w, http.StatusInternalServerError, st)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
