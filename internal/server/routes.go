package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flowsmith/socratic/internal/engine"
	"github.com/flowsmith/socratic/internal/knowledge"
	"github.com/flowsmith/socratic/internal/session"
)

func (s *Server) registerRoutes(r chi.Router) {
	r.Get("/healthz", s.handleHealth)
	r.Get("/api/metrics", s.handleMetrics)

	r.Post("/api/sessions", s.handleCreateSession)
	r.Delete("/api/sessions/{id}", s.handleEndSession)
	r.Get("/api/sessions/{id}/question", s.handleNextQuestion)
	r.Post("/api/sessions/{id}/answer", s.handleSubmitAnswer)
	r.Get("/api/sessions/{id}/memory", s.handleMemory)

	r.Post("/api/knowledge/search", s.handleKnowledgeSearch)

	r.Get("/ws/session", s.handleWebSocket)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"breaker": stats.BreakerState,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Stats())
}

type createSessionRequest struct {
	Domain string `json:"domain"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := s.engine.StartSession(r.Context(), req.Domain)
	if errors.Is(err, engine.ErrSessionLimit) {
		http.Error(w, err.Error(), http.StatusTooManyRequests)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.engine.EndSession(r.Context(), id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNextQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	q, err := s.engine.NextQuestion(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if q == nil {
		// Questioning disabled or the generated question was rejected.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type submitAnswerRequest struct {
	Answer string `json:"answer"`
}

type submitAnswerResponse struct {
	Question       any `json:"question"`
	Expertise      any `json:"expertise,omitempty"`
	Sophistication int `json:"sophistication"`
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Answer == "" {
		http.Error(w, "answer is required", http.StatusBadRequest)
		return
	}

	res, err := s.engine.SubmitAnswer(r.Context(), id, req.Answer)
	if err != nil {
		if errors.Is(err, engine.ErrNoPendingQuestion) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeEngineError(w, err)
		return
	}

	out := submitAnswerResponse{Sophistication: res.Sophistication}
	if res.Question != nil {
		out.Question = res.Question
	}
	if res.Expertise != nil {
		out.Expertise = res.Expertise
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, s.engine.Memory(id))
}

type knowledgeSearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (s *Server) handleKnowledgeSearch(w http.ResponseWriter, r *http.Request) {
	var req knowledgeSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	if s.knowledge == nil {
		writeJSON(w, http.StatusOK, knowledge.Result{Items: []knowledge.Source{}})
		return
	}

	res, err := s.knowledge.QueryMultipleSources(r.Context(), knowledge.Query{
		Text:              req.Query,
		IncludeWebSearch:  true,
		IncludeMCPServers: true,
		Limit:             req.Limit,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeEngineError maps engine failures onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
	case errors.Is(err, engine.ErrUnavailable):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
