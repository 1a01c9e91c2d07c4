package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/finsight/internal/domain"
)

// QueryLogEntry is one recorded question, kept for evaluation and
// retrieval tuning.
type QueryLogEntry struct {
	SessionID       string
	Question        string
	QueryType       string
	AgentCalls      []string
	ChunksRetrieved int
	Success         bool
	DurationMS      int64
}

// QueryLogRecorder persists query log entries.
type QueryLogRecorder interface {
	CreateQueryLog(ctx context.Context, entry QueryLogEntry) (string, error)
}

// AnswerOutcome is what an answering strategy produces for one question.
// QueryType and AgentCalls are empty when the direct engine answered.
type AnswerOutcome struct {
	Result     *domain.QueryResult
	QueryType  string
	AgentCalls []string
	Reasoning  []domain.ReasoningStep
}

// Answerer produces an answer for a question within a session. The
// direct retrieval engine and the agent workflow both satisfy it.
type Answerer interface {
	Answer(ctx context.Context, question, sessionID string) (*AnswerOutcome, error)
}

// QueryService fronts the configured answering strategy and records
// every question to the query log.
type QueryService struct {
	answerer Answerer
	queryLog QueryLogRecorder
}

func NewQueryService(answerer Answerer, queryLog QueryLogRecorder) *QueryService {
	return &QueryService{
		answerer: answerer,
		queryLog: queryLog,
	}
}

// Answer runs the question through the answering strategy. Query log
// writes are best effort and never fail the request.
func (s *QueryService) Answer(ctx context.Context, question, sessionID string) (*AnswerOutcome, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrEmptyQuestion
	}

	start := time.Now()
	outcome, err := s.answerer.Answer(ctx, question, sessionID)

	entry := QueryLogEntry{
		SessionID:  sessionID,
		Question:   question,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if outcome != nil {
		entry.QueryType = outcome.QueryType
		entry.AgentCalls = outcome.AgentCalls
		entry.Success = outcome.Result != nil && outcome.Result.Success
		if outcome.Result != nil {
			entry.ChunksRetrieved = outcome.Result.ChunksRetrieved
		}
	}
	if s.queryLog != nil {
		if _, logErr := s.queryLog.CreateQueryLog(ctx, entry); logErr != nil {
			log.Printf("failed to record query log for session %s: %v", sessionID, logErr)
		}
	}

	return outcome, err
}

// DirectAnswerer adapts the retrieval engine to the Answerer interface.
type DirectAnswerer struct {
	engine *RetrievalQueryEngine
}

func NewDirectAnswerer(engine *RetrievalQueryEngine) *DirectAnswerer {
	return &DirectAnswerer{engine: engine}
}

func (a *DirectAnswerer) Answer(ctx context.Context, question, sessionID string) (*AnswerOutcome, error) {
	result, err := a.engine.Query(ctx, question, sessionID)
	if err != nil {
		return nil, err
	}
	return &AnswerOutcome{Result: result}, nil
}
