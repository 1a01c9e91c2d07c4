package agents

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/cloo-solutions/finsight/internal/domain"
)

// DefaultExecutorConcurrency bounds simultaneous sub-query pipelines so a
// five-way decomposition cannot fan out into five concurrent LLM calls.
const DefaultExecutorConcurrency = 3

// QueryRunner answers one sub-query. Satisfied by the retrieval engine.
type QueryRunner interface {
	Query(ctx context.Context, question, sessionID string) (*domain.QueryResult, error)
}

// Executor runs every sub-query through the retrieval engine, in parallel
// or sequentially per the decomposer's verdict. A failing sub-query
// produces a failed result slot; it never aborts its siblings.
type Executor struct {
	engine      QueryRunner
	concurrency int
}

func NewExecutor(engine QueryRunner, concurrency int) *Executor {
	if concurrency <= 0 {
		concurrency = DefaultExecutorConcurrency
	}
	return &Executor{engine: engine, concurrency: concurrency}
}

// Execute fills state.SubResults with one result per sub-query, in
// sub-query order regardless of completion order.
func (e *Executor) Execute(ctx context.Context, state *domain.AgentState) {
	start := time.Now()

	if len(state.SubQueries) == 0 {
		state.SubResults = []domain.QueryResult{}
		state.RecordStep(domain.ReasoningStep{
			Agent:      "executor",
			Action:     "sub_query_execution",
			Output:     map[string]any{"sub_results_count": 0},
			DurationMS: time.Since(start).Milliseconds(),
		})
		return
	}

	results := make([]domain.QueryResult, len(state.SubQueries))

	if state.ExecutionOrder == domain.ExecutionSequential {
		for i, subQuery := range state.SubQueries {
			results[i] = e.runOne(ctx, subQuery, state.SessionID)
		}
	} else {
		e.runParallel(ctx, state.SubQueries, state.SessionID, results)
	}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}

	state.SubResults = results
	state.RecordStep(domain.ReasoningStep{
		Agent:  "executor",
		Action: "sub_query_execution",
		Input:  map[string]any{"sub_queries": state.SubQueries, "execution_order": string(state.ExecutionOrder)},
		Output: map[string]any{
			"sub_results_count": len(results),
			"succeeded":         succeeded,
		},
		DurationMS: time.Since(start).Milliseconds(),
	})

	log.Printf("executed %d sub-queries (%s, %d succeeded) in %dms",
		len(results), state.ExecutionOrder, succeeded, time.Since(start).Milliseconds())
}

// runParallel writes each result into its own slot, so no slot locking is
// needed and output order matches sub-query order.
func (e *Executor) runParallel(ctx context.Context, subQueries []string, sessionID string, results []domain.QueryResult) {
	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup

	for i, subQuery := range subQueries {
		wg.Add(1)
		go func(i int, subQuery string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = e.runOne(ctx, subQuery, sessionID)
		}(i, subQuery)
	}
	wg.Wait()
}

func (e *Executor) runOne(ctx context.Context, subQuery, sessionID string) domain.QueryResult {
	result, err := e.engine.Query(ctx, subQuery, sessionID)
	if err != nil {
		log.Printf("sub-query failed: %q: %v", subQuery, err)
		return domain.QueryResult{
			Success:      false,
			ErrorMessage: err.Error(),
		}
	}
	return *result
}
