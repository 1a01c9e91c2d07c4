package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/finsight/internal/api"
	"github.com/cloo-solutions/finsight/internal/api/middleware"
	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/service"
)

type QueryAnswerer interface {
	Answer(ctx context.Context, question, sessionID string) (*service.AnswerOutcome, error)
}

type QueryHandler struct {
	svc QueryAnswerer
}

func NewQueryHandler(svc QueryAnswerer) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type QueryRequest struct {
	Question string `json:"question"`
}

type SourceCitationResponse struct {
	DocumentID     string  `json:"document_id"`
	PageNumbers    []int   `json:"page_numbers"`
	RelevanceScore float32 `json:"relevance_score"`
	Snippet        string  `json:"snippet"`
}

type QueryResponse struct {
	Success         bool                     `json:"success"`
	Answer          string                   `json:"answer"`
	Sources         []SourceCitationResponse `json:"sources"`
	ChunksRetrieved int                      `json:"chunks_retrieved"`
	QueryTimeMS     int64                    `json:"query_time_ms"`
	QueryType       string                   `json:"query_type,omitempty"`
	AgentCalls      []string                 `json:"agent_calls,omitempty"`
	ReasoningSteps  []domain.ReasoningStep   `json:"reasoning_steps,omitempty"`
}

func outcomeToResponse(o *service.AnswerOutcome) *QueryResponse {
	sources := make([]SourceCitationResponse, len(o.Result.Sources))
	for i, s := range o.Result.Sources {
		sources[i] = SourceCitationResponse{
			DocumentID:     s.DocumentID,
			PageNumbers:    s.PageNumbers,
			RelevanceScore: s.RelevanceScore,
			Snippet:        s.Snippet,
		}
	}

	return &QueryResponse{
		Success:         o.Result.Success,
		Answer:          o.Result.Answer,
		Sources:         sources,
		ChunksRetrieved: o.Result.ChunksRetrieved,
		QueryTimeMS:     o.Result.QueryTime.Milliseconds(),
		QueryType:       o.QueryType,
		AgentCalls:      o.AgentCalls,
		ReasoningSteps:  o.Reasoning,
	}
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	outcome, err := h.svc.Answer(r.Context(), req.Question, sessionID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, outcomeToResponse(outcome))
}
