package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/finsight/internal/domain"
)

func TestDecomposer_Decompose_Parallel(t *testing.T) {
	llm := new(MockLLM)
	decomposer := NewDecomposer(llm, "gpt-4o-mini", 5)

	llm.On("Complete", mock.Anything, mock.Anything).Return(`{
		"sub_queries": [
			"What were iPhone sales in Q3?",
			"What were iPhone sales in Q4?",
			"What factors affected iPhone sales?"
		],
		"execution_order": "parallel",
		"reasoning": "Independent lookups."
	}`, nil).Once()

	state := newState("How did iPhone sales compare Q3 vs Q4 and what drove the change?")
	decomposer.Decompose(context.Background(), state)

	require.Len(t, state.SubQueries, 3)
	assert.Equal(t, "What were iPhone sales in Q3?", state.SubQueries[0])
	assert.Equal(t, domain.ExecutionParallel, state.ExecutionOrder)
	assert.Equal(t, "Independent lookups.", state.DecompositionReasoning)
	require.Len(t, state.ReasoningSteps, 1)
	assert.Equal(t, "query_decomposition", state.ReasoningSteps[0].Action)
}

func TestDecomposer_Decompose_Sequential(t *testing.T) {
	llm := new(MockLLM)
	decomposer := NewDecomposer(llm, "gpt-4o-mini", 5)

	llm.On("Complete", mock.Anything, mock.Anything).Return(`{
		"sub_queries": ["What are the revenue streams?", "Which stream grew fastest?"],
		"execution_order": "sequential",
		"reasoning": "Second depends on first."
	}`, nil).Once()

	state := newState("What are the revenue streams and which grew fastest?")
	decomposer.Decompose(context.Background(), state)

	assert.Equal(t, domain.ExecutionSequential, state.ExecutionOrder)
}

func TestDecomposer_Decompose_TruncatesToMax(t *testing.T) {
	llm := new(MockLLM)
	decomposer := NewDecomposer(llm, "gpt-4o-mini", 5)

	llm.On("Complete", mock.Anything, mock.Anything).Return(`{
		"sub_queries": ["q1", "q2", "q3", "q4", "q5", "q6", "q7"],
		"execution_order": "parallel",
		"reasoning": "Too many."
	}`, nil).Once()

	state := newState("A very broad question")
	decomposer.Decompose(context.Background(), state)

	assert.Len(t, state.SubQueries, 5)
	assert.Equal(t, []string{"q1", "q2", "q3", "q4", "q5"}, state.SubQueries)
}

func TestDecomposer_Decompose_InvalidOrderDefaultsToParallel(t *testing.T) {
	llm := new(MockLLM)
	decomposer := NewDecomposer(llm, "gpt-4o-mini", 5)

	llm.On("Complete", mock.Anything, mock.Anything).Return(`{
		"sub_queries": ["q1", "q2"],
		"execution_order": "whatever",
		"reasoning": "r"
	}`, nil).Once()

	state := newState("question")
	decomposer.Decompose(context.Background(), state)

	assert.Equal(t, domain.ExecutionParallel, state.ExecutionOrder)
}

func TestDecomposer_Decompose_ModelFailureFallsBackToSingleQuery(t *testing.T) {
	llm := new(MockLLM)
	decomposer := NewDecomposer(llm, "gpt-4o-mini", 5)

	llm.On("Complete", mock.Anything, mock.Anything).
		Return("", errors.New("timeout")).Once()

	state := newState("Compare revenue and expenses across quarters")
	decomposer.Decompose(context.Background(), state)

	require.Len(t, state.SubQueries, 1)
	assert.Equal(t, state.OriginalQuestion, state.SubQueries[0])
	assert.Equal(t, domain.ExecutionParallel, state.ExecutionOrder)
	assert.Contains(t, state.Error, "Decomposer error")
	require.Len(t, state.ReasoningSteps, 1)
	assert.Equal(t, "decomposition_failed", state.ReasoningSteps[0].Action)
}

func TestDecomposer_Decompose_EmptySubQueriesFallsBack(t *testing.T) {
	llm := new(MockLLM)
	decomposer := NewDecomposer(llm, "gpt-4o-mini", 5)

	llm.On("Complete", mock.Anything, mock.Anything).
		Return(`{"sub_queries": ["  ", ""], "execution_order": "parallel", "reasoning": "r"}`, nil).Once()

	state := newState("question")
	decomposer.Decompose(context.Background(), state)

	assert.Equal(t, []string{"question"}, state.SubQueries)
	assert.Equal(t, "decomposition_failed", state.ReasoningSteps[0].Action)
}
