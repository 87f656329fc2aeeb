package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/joescharf/mergeq/internal/conflict"
	"github.com/joescharf/mergeq/internal/consensus"
	"github.com/joescharf/mergeq/internal/readiness"
	"github.com/joescharf/mergeq/internal/store"
	"github.com/joescharf/mergeq/internal/workflow"
)

// Server provides the REST API handlers.
type Server struct {
	store  store.Store
	logger *slog.Logger
}

// NewServer creates a new API server over the run history.
func NewServer(s store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: s, logger: logger}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/runs", s.listRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", s.getRun)
	mux.HandleFunc("GET /api/v1/runs/{id}/results", s.listRunResults)
	mux.HandleFunc("GET /api/v1/prs/{number}/history", s.prHistory)

	mux.HandleFunc("POST /api/v1/readiness", s.evaluateReadiness)
	mux.HandleFunc("POST /api/v1/classify", s.classifyConflict)
	mux.HandleFunc("POST /api/v1/consensus", s.aggregateReviews)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- Runs ---

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("list runs failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found: "+id)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) listRunResults(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.GetRun(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found: "+id)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	results, err := s.store.ListPRResults(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) prHistory(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || number <= 0 {
		writeError(w, http.StatusBadRequest, "invalid pull request number")
		return
	}
	results, err := s.store.ListPRHistory(r.Context(), number)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// --- Decisions ---

type readinessResponse struct {
	readiness.Verdict
	Failing []readiness.Check `json:"failing"`
}

func (s *Server) evaluateReadiness(w http.ResponseWriter, r *http.Request) {
	var m readiness.Metadata
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	v := readiness.Evaluate(m)
	failing := v.Failing()
	if failing == nil {
		failing = []readiness.Check{}
	}
	writeJSON(w, http.StatusOK, readinessResponse{Verdict: v, Failing: failing})
}

type classifyRequest struct {
	Path        string `json:"path"`
	Content     string `json:"content"`
	SizeBytes   int    `json:"size_bytes"`
	MarkerCount int    `json:"marker_count"`
}

func (s *Server) classifyConflict(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	if req.Content != "" {
		writeJSON(w, http.StatusOK, conflict.ProfileContent(req.Path, req.Content))
		return
	}
	writeJSON(w, http.StatusOK, conflict.Classify(req.Path, req.SizeBytes, req.MarkerCount))
}

type consensusRequest struct {
	Reviews           []workflow.ReviewText `json:"reviews"`
	RequiredApprovals int                   `json:"required_approvals"`
}

func (s *Server) aggregateReviews(w http.ResponseWriter, r *http.Request) {
	var req consensusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	opinions, res, err := workflow.AggregateTexts(req.Reviews, req.RequiredApprovals)
	if err != nil {
		if errors.Is(err, consensus.ErrNoOpinions) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"opinions":  opinions,
		"consensus": res,
		"summary":   res.Summary(),
	})
}
