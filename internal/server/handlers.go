package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/neardup/internal/config"
	"github.com/hyperjump/neardup/internal/embedding"
	"github.com/hyperjump/neardup/internal/models"
	"github.com/hyperjump/neardup/internal/storage"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req models.CompareRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("compare request", zap.Int("documents", len(req.Documents)), zap.Float64("threshold", req.Threshold))
	report, err := s.runner.CompareDocuments(r.Context(), req)
	if err != nil {
		s.fail(w, "compare", err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleDedupe(w http.ResponseWriter, r *http.Request) {
	var req models.DedupeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("dedupe request", zap.Int("texts", len(req.Texts)), zap.String("policy", req.Policy))
	resp, err := s.runner.DedupeTexts(r.Context(), req)
	if err != nil {
		s.fail(w, "dedupe", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !s.storeEnabled(w) {
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil || limit <= 0 {
		s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	limit = min(limit, maxListLimit)

	runs, err := s.store.ListRuns(r.Context(), offset, limit)
	if err != nil {
		s.fail(w, "list runs", err)
		return
	}
	total, err := s.store.CountRuns(r.Context())
	if err != nil {
		s.fail(w, "count runs", err)
		return
	}
	if runs == nil {
		runs = []models.RunSummary{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"runs": runs, "total": total})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if !s.storeEnabled(w) {
		return
	}
	id := chi.URLParam(r, "id")
	report, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		s.fail(w, "get run", err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if !s.storeEnabled(w) {
		return
	}
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete run request", zap.String("id", id))
	if err := s.store.DeleteRun(r.Context(), id); err != nil {
		s.fail(w, "delete run", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"config": map[string]any{
			"embedding_provider":    s.config.Embedding.Provider,
			"embedding_model":       s.config.Embedding.ModelName,
			"embedding_dimensions":  s.config.Embedding.Dimensions,
			"batch_size":            s.config.Embedding.BatchSize,
			"chunk_size":            s.config.Chunking.ChunkSize,
			"chunk_overlap":         s.config.Chunking.Overlap,
			"min_chars":             s.config.Chunking.MinChars,
			"document_threshold":    s.config.Dedup.DocumentThreshold,
			"row_threshold":         s.config.Dedup.RowThreshold,
			"representative_policy": s.config.Dedup.RepresentativePolicy,
			"database_path":         s.config.Storage.DatabasePath,
		},
	}
	if s.store != nil {
		count, err := s.store.CountRuns(r.Context())
		if err != nil {
			s.fail(w, "status: count runs", err)
			return
		}
		resp["runs"] = count
		if sized, ok := s.store.(interface{ SizeBytes() (int64, error) }); ok {
			if n, err := sized.SizeBytes(); err == nil {
				resp["disk_usage_bytes"] = n
			}
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) storeEnabled(w http.ResponseWriter) bool {
	if s.store == nil {
		s.respondError(w, http.StatusNotImplemented, "run storage is not configured")
		return false
	}
	return true
}

// fail maps err to a status code and writes it.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, config.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, embedding.ErrProvider):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
