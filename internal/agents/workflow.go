package agents

import (
	"context"
	"log"
	"time"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/service"
	"github.com/cloo-solutions/finsight/internal/telemetry"
)

// workflowState names a stage of the orchestration state machine.
type workflowState string

const (
	stateStart          workflowState = "START"
	stateClassified     workflowState = "CLASSIFIED"
	stateDirectAnswered workflowState = "DIRECT_ANSWERED"
	stateDecomposed     workflowState = "DECOMPOSED"
	stateExecuted       workflowState = "EXECUTED"
	stateSynthesized    workflowState = "SYNTHESIZED"
	stateDone           workflowState = "DONE"
)

// Workflow orchestrates the agents for one question. Simple questions go
// straight to the retrieval engine; complex ones run through
// decomposition, bounded-parallel execution and synthesis.
type Workflow struct {
	router      *Router
	decomposer  *Decomposer
	executor    *Executor
	synthesizer *Synthesizer
	engine      QueryRunner
	// timeout bounds one whole workflow run. Zero means no deadline
	// beyond the caller's context.
	timeout time.Duration
}

func NewWorkflow(router *Router, decomposer *Decomposer, executor *Executor, synthesizer *Synthesizer, engine QueryRunner, timeout time.Duration) *Workflow {
	return &Workflow{
		router:      router,
		decomposer:  decomposer,
		executor:    executor,
		synthesizer: synthesizer,
		engine:      engine,
		timeout:     timeout,
	}
}

// Run drives the state machine to completion for one question. The
// returned state always carries a final answer unless the direct path's
// retrieval itself failed, which is the one hard failure that propagates.
func (w *Workflow) Run(ctx context.Context, question, sessionID string) (*domain.AgentState, error) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	ctx, span := telemetry.StartSpan(ctx, "agents.workflow", telemetry.SpanAttributes{
		SessionID: sessionID,
		Agent:     "workflow",
		Operation: "multi_agent_query",
	})
	defer span.End()

	state := &domain.AgentState{
		OriginalQuestion: question,
		SessionID:        sessionID,
	}

	current := stateStart
	for current != stateDone {
		telemetry.AddBreadcrumb(ctx, "workflow", string(current))
		switch current {
		case stateStart:
			w.router.Classify(ctx, state)
			current = stateClassified

		case stateClassified:
			if state.QueryType == domain.QueryTypeComplex {
				w.decomposer.Decompose(ctx, state)
				current = stateDecomposed
			} else {
				result, err := w.engine.Query(ctx, question, sessionID)
				if err != nil {
					span.SetError(err)
					return nil, err
				}
				state.SubResults = []domain.QueryResult{*result}
				state.FinalAnswer = result.Answer
				state.AllSources = result.Sources
				current = stateDirectAnswered
			}

		case stateDirectAnswered:
			current = stateDone

		case stateDecomposed:
			w.executor.Execute(ctx, state)
			current = stateExecuted

		case stateExecuted:
			w.synthesizer.Synthesize(ctx, state)
			current = stateSynthesized

		case stateSynthesized:
			current = stateDone
		}
	}

	log.Printf("workflow finished for session %s: type=%s agents=%v", sessionID, state.QueryType, state.AgentCalls)
	return state, nil
}

// Answer adapts Run to the query service's answering contract.
func (w *Workflow) Answer(ctx context.Context, question, sessionID string) (*service.AnswerOutcome, error) {
	state, err := w.Run(ctx, question, sessionID)
	if err != nil {
		return nil, err
	}

	chunksRetrieved := 0
	success := false
	for _, r := range state.SubResults {
		chunksRetrieved += r.ChunksRetrieved
		if r.Success {
			success = true
		}
	}

	return &service.AnswerOutcome{
		Result: &domain.QueryResult{
			Success:         success,
			Answer:          state.FinalAnswer,
			Sources:         state.AllSources,
			ChunksRetrieved: chunksRetrieved,
			ErrorMessage:    state.Error,
		},
		QueryType:  string(state.QueryType),
		AgentCalls: state.AgentCalls,
		Reasoning:  state.ReasoningSteps,
	}, nil
}
