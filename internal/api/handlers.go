package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"wms-sap-sync/internal/store"
	"wms-sap-sync/pkg/errors"

	"github.com/go-chi/chi/v5"
)

const defaultRunLimit = 10

// Response is the envelope for successful responses
type Response[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, &healthResponse{Status: "available", Version: s.config.Version})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if param := r.URL.Query().Get("limit"); param != "" {
		l, err := strconv.Atoi(param)
		if err != nil || l <= 0 {
			s.writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = l
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list runs")
		s.writeJSONError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	s.writeJSON(w, http.StatusOK, &Response[[]store.SyncRun]{
		Success: true,
		Message: "Latest reconciliation runs",
		Data:    runs,
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeJSONError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	run, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		if reconcilerErr, ok := errors.AsReconcilerError(err); ok && reconcilerErr.Code == errors.CodeRecordNotFound {
			s.writeJSONError(w, http.StatusNotFound, "run not found")
			return
		}
		s.logger.WithError(err).WithField("run_id", id).Error("Failed to get run")
		s.writeJSONError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	s.writeJSON(w, http.StatusOK, &Response[*store.SyncRun]{Success: true, Data: run})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Warn("Failed to write response")
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, &ErrorResponse{Error: message})
}
