package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/telemetry"
)

// NoInformationAnswer is returned when retrieval finds nothing relevant
// enough to ground an answer. A deliberate non-failure: insufficient
// grounding is a correct refusal, not an error.
const NoInformationAnswer = "I don't have enough information in the documents to answer that question."

const citationSnippetChars = 200

// QueryEmbedder embeds a single question.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// VectorSearcher serves session-filtered similarity search.
type VectorSearcher interface {
	Search(ctx context.Context, queryVector []float32, sessionID string, topK int, minScore float32) ([]*domain.SearchResult, error)
}

// EngineConfig holds the retrieval and generation settings for the engine.
type EngineConfig struct {
	PrimaryLLM  string
	FallbackLLM string
	Temperature float32
	MaxTokens   int
	TopK        int
	MinScore    float32
}

// RetrievalQueryEngine answers a question from indexed document chunks:
// embed the question, search the index, build a grounded prompt, generate
// with a primary model and fall back to a secondary one on failure.
type RetrievalQueryEngine struct {
	embedder QueryEmbedder
	searcher VectorSearcher
	llm      LLMClient
	cfg      EngineConfig
}

func NewRetrievalQueryEngine(embedder QueryEmbedder, searcher VectorSearcher, llm LLMClient, cfg EngineConfig) (*RetrievalQueryEngine, error) {
	if cfg.PrimaryLLM == "" {
		return nil, fmt.Errorf("primary LLM cannot be empty")
	}
	if cfg.FallbackLLM == "" {
		return nil, fmt.Errorf("fallback LLM cannot be empty")
	}
	if cfg.TopK <= 0 {
		return nil, fmt.Errorf("top-k must be positive, got %d", cfg.TopK)
	}
	if cfg.MinScore < 0 || cfg.MinScore > 1 {
		return nil, fmt.Errorf("min score must be between 0.0 and 1.0, got %g", cfg.MinScore)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	return &RetrievalQueryEngine{
		embedder: embedder,
		searcher: searcher,
		llm:      llm,
		cfg:      cfg,
	}, nil
}

// Query runs the full retrieval pipeline for one question inside one
// session. It returns an error only when the question is blank, embedding
// or search fail, or both the primary and fallback models fail.
func (e *RetrievalQueryEngine) Query(ctx context.Context, question, sessionID string) (*domain.QueryResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrEmptyQuestion
	}

	ctx, span := telemetry.StartSpan(ctx, "query_engine.query", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "retrieval_query",
	})
	defer span.End()

	start := time.Now()

	queryVector, err := e.embedder.EmbedQuery(ctx, question)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewQueryError("failed to embed query", err)
	}

	results, err := e.searcher.Search(ctx, queryVector, sessionID, e.cfg.TopK, e.cfg.MinScore)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewQueryError("failed to search vector index", err)
	}

	if len(results) == 0 {
		log.Printf("no chunks above min score %.2f for session %s, returning refusal", e.cfg.MinScore, sessionID)
		return &domain.QueryResult{
			Success:   true,
			Answer:    NoInformationAnswer,
			Sources:   []domain.SourceCitation{},
			QueryTime: time.Since(start),
		}, nil
	}

	prompt := buildGroundedPrompt(results, question)

	answer, err := e.complete(ctx, prompt)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewQueryError("both primary and fallback models failed", err)
	}

	return &domain.QueryResult{
		Success:         true,
		Answer:          answer,
		Sources:         citationsFromResults(results),
		ChunksRetrieved: len(results),
		QueryTime:       time.Since(start),
	}, nil
}

// complete calls the primary model and retries once against the fallback
// model when the primary fails.
func (e *RetrievalQueryEngine) complete(ctx context.Context, prompt string) (string, error) {
	req := CompletionRequest{
		Model:       e.cfg.PrimaryLLM,
		Messages:    []ChatMessage{{Role: RoleUser, Content: prompt}},
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens,
	}

	answer, primaryErr := e.llm.Complete(ctx, req)
	if primaryErr == nil {
		return answer, nil
	}

	log.Printf("primary model %s failed, retrying with fallback %s: %v", e.cfg.PrimaryLLM, e.cfg.FallbackLLM, primaryErr)

	req.Model = e.cfg.FallbackLLM
	answer, fallbackErr := e.llm.Complete(ctx, req)
	if fallbackErr != nil {
		return "", fmt.Errorf("primary: %v; fallback: %w", primaryErr, fallbackErr)
	}
	return answer, nil
}

// buildGroundedPrompt labels each retrieved chunk with its page range and
// instructs the model to answer from the supplied context only.
func buildGroundedPrompt(results []*domain.SearchResult, question string) string {
	contextParts := make([]string, 0, len(results))
	for _, r := range results {
		contextParts = append(contextParts, fmt.Sprintf("%s: %s", pageCitation(r.PageNumbers), r.Content))
	}

	return fmt.Sprintf(`You are a financial document analysis assistant. Answer the question based ONLY on the provided context from financial documents.

RULES:
- Only use information from the context below
- Cite sources using [Page X] format in your answer
- If the context doesn't contain relevant information, say "%s"
- Be accurate and factual
- Do not make up or infer information that isn't explicitly stated in the context

CONTEXT:
%s

QUESTION: %s

ANSWER:`, NoInformationAnswer, strings.Join(contextParts, "\n\n"), question)
}

func pageCitation(pages []int) string {
	if len(pages) == 0 {
		return "[Page ?]"
	}
	if len(pages) == 1 {
		return fmt.Sprintf("[Page %d]", pages[0])
	}
	min, max := pages[0], pages[0]
	for _, p := range pages[1:] {
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}
	return fmt.Sprintf("[Page %d-%d]", min, max)
}

// citationsFromResults cites every retrieved chunk, not only the ones the
// model mentioned, so the caller always sees the full grounding set.
func citationsFromResults(results []*domain.SearchResult) []domain.SourceCitation {
	citations := make([]domain.SourceCitation, 0, len(results))
	for _, r := range results {
		snippet := r.Content
		if len(snippet) > citationSnippetChars {
			snippet = snippet[:citationSnippetChars]
		}
		citations = append(citations, domain.SourceCitation{
			DocumentID:     r.DocumentID,
			PageNumbers:    r.PageNumbers,
			RelevanceScore: r.Score,
			Snippet:        snippet,
		})
	}
	return citations
}
