package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/service"
)

type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) Complete(ctx context.Context, req service.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func newState(question string) *domain.AgentState {
	return &domain.AgentState{
		OriginalQuestion: question,
		SessionID:        "session-1",
	}
}

func TestRouter_Classify_Complex(t *testing.T) {
	llm := new(MockLLM)
	router := NewRouter(llm, "gpt-4o-mini")

	llm.On("Complete", mock.Anything, mock.MatchedBy(func(req service.CompletionRequest) bool {
		return req.JSONMode && req.Temperature == 0.0 && len(req.Messages) == 2
	})).Return(`{"type": "complex", "reasoning": "Requires comparing two quarters."}`, nil).Once()

	state := newState("Compare Q3 and Q4 revenue")
	router.Classify(context.Background(), state)

	assert.Equal(t, domain.QueryTypeComplex, state.QueryType)
	assert.Equal(t, "Requires comparing two quarters.", state.ComplexityReasoning)
	require.Len(t, state.ReasoningSteps, 1)
	assert.Equal(t, "router", state.ReasoningSteps[0].Agent)
	assert.Equal(t, "query_classification", state.ReasoningSteps[0].Action)
	assert.Equal(t, []string{"router"}, state.AgentCalls)
}

func TestRouter_Classify_Simple(t *testing.T) {
	llm := new(MockLLM)
	router := NewRouter(llm, "gpt-4o-mini")

	llm.On("Complete", mock.Anything, mock.Anything).
		Return(`{"type": "simple", "reasoning": "Single fact lookup."}`, nil).Once()

	state := newState("What was Q3 revenue?")
	router.Classify(context.Background(), state)

	assert.Equal(t, domain.QueryTypeSimple, state.QueryType)
}

func TestRouter_Classify_ModelFailureDefaultsToSimple(t *testing.T) {
	llm := new(MockLLM)
	router := NewRouter(llm, "gpt-4o-mini")

	llm.On("Complete", mock.Anything, mock.Anything).
		Return("", errors.New("rate limited")).Once()

	state := newState("Compare Q3 and Q4 revenue")
	router.Classify(context.Background(), state)

	assert.Equal(t, domain.QueryTypeSimple, state.QueryType)
	assert.Contains(t, state.Error, "Router error")
	require.Len(t, state.ReasoningSteps, 1)
	assert.Equal(t, "classification_failed", state.ReasoningSteps[0].Action)
}

func TestRouter_Classify_InvalidJSONDefaultsToSimple(t *testing.T) {
	llm := new(MockLLM)
	router := NewRouter(llm, "gpt-4o-mini")

	llm.On("Complete", mock.Anything, mock.Anything).
		Return("not json at all", nil).Once()

	state := newState("Compare Q3 and Q4 revenue")
	router.Classify(context.Background(), state)

	assert.Equal(t, domain.QueryTypeSimple, state.QueryType)
	require.Len(t, state.ReasoningSteps, 1)
	assert.Equal(t, "classification_failed", state.ReasoningSteps[0].Action)
}

func TestRouter_Classify_UnknownTypeDefaultsToSimple(t *testing.T) {
	llm := new(MockLLM)
	router := NewRouter(llm, "gpt-4o-mini")

	llm.On("Complete", mock.Anything, mock.Anything).
		Return(`{"type": "moderate", "reasoning": "Somewhere in between."}`, nil).Once()

	state := newState("What was Q3 revenue?")
	router.Classify(context.Background(), state)

	assert.Equal(t, domain.QueryTypeSimple, state.QueryType)
	assert.Contains(t, state.ComplexityReasoning, "Invalid classification returned")
}
