package agents

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/service"
)

const decomposerSystemPrompt = `You are a query decomposition expert. Your task is to break complex questions into 2-5 simple, independently answerable sub-queries.

Guidelines:
1. Each sub-query must be independently answerable from document search
2. Sub-queries should cover all aspects of the original question
3. Use clear, specific language (avoid pronouns like "it", "they")
4. Include context in each sub-query so it stands alone
5. Limit to 5 sub-queries maximum to control costs

Execution Order:
- "parallel": Sub-queries are independent and can run simultaneously
- "sequential": Later sub-queries depend on earlier results

Return JSON format:
{
    "sub_queries": ["query1", "query2", ...],
    "execution_order": "parallel" or "sequential",
    "reasoning": "Brief explanation of decomposition strategy"
}

Examples:

Input: "How did iPhone sales compare Q3 vs Q4 and what drove the change?"
Output: {
    "sub_queries": [
        "What were Apple's iPhone sales figures in Q3?",
        "What were Apple's iPhone sales figures in Q4?",
        "What factors or events affected iPhone sales during Q3 and Q4?"
    ],
    "execution_order": "parallel",
    "reasoning": "Need Q3 and Q4 sales data plus contributing factors. All queries independent."
}

Input: "What are the main revenue streams and which grew fastest year-over-year?"
Output: {
    "sub_queries": [
        "What are the main revenue streams or business segments?",
        "What was the year-over-year growth rate for each revenue stream?"
    ],
    "execution_order": "sequential",
    "reasoning": "Need to identify revenue streams first, then compare their growth rates."
}

Input: "Compare gross margin to operating margin and explain the difference"
Output: {
    "sub_queries": [
        "What is the gross margin percentage?",
        "What is the operating margin percentage?",
        "What are the key differences between gross margin and operating margin?"
    ],
    "execution_order": "parallel",
    "reasoning": "All queries can be answered independently from financial definitions and data."
}`

// Decomposer breaks a complex question into independently answerable
// sub-queries. A failed decomposition degrades to a single sub-query,
// which makes the rest of the workflow behave like the direct path.
type Decomposer struct {
	llm           service.LLMClient
	model         string
	maxSubQueries int
}

func NewDecomposer(llm service.LLMClient, model string, maxSubQueries int) *Decomposer {
	if maxSubQueries <= 0 {
		maxSubQueries = 5
	}
	return &Decomposer{llm: llm, model: model, maxSubQueries: maxSubQueries}
}

// Decompose sets SubQueries and ExecutionOrder on the state. It never
// returns an error; failures fall back to the original question as the
// single sub-query.
func (d *Decomposer) Decompose(ctx context.Context, state *domain.AgentState) {
	start := time.Now()
	question := state.OriginalQuestion

	resp, err := d.llm.Complete(ctx, service.CompletionRequest{
		Model: d.model,
		Messages: []service.ChatMessage{
			{Role: service.RoleSystem, Content: decomposerSystemPrompt},
			{Role: service.RoleUser, Content: "Original Question: " + question},
		},
		Temperature: 0.0,
		MaxTokens:   500,
		JSONMode:    true,
	})
	if err != nil {
		d.fallback(state, start, err.Error())
		return
	}
	if !gjson.Valid(resp) {
		d.fallback(state, start, "JSON parse error")
		return
	}

	subQueries := make([]string, 0, d.maxSubQueries)
	for _, q := range gjson.Get(resp, "sub_queries").Array() {
		if s := strings.TrimSpace(q.String()); s != "" {
			subQueries = append(subQueries, s)
		}
	}
	if len(subQueries) == 0 {
		d.fallback(state, start, "no sub-queries returned")
		return
	}
	if len(subQueries) > d.maxSubQueries {
		log.Printf("decomposer generated %d sub-queries, limiting to %d", len(subQueries), d.maxSubQueries)
		subQueries = subQueries[:d.maxSubQueries]
	}

	order := gjson.Get(resp, "execution_order").String()
	if order != string(domain.ExecutionParallel) && order != string(domain.ExecutionSequential) {
		log.Printf("invalid execution order %q, defaulting to parallel", order)
		order = string(domain.ExecutionParallel)
	}
	reasoning := gjson.Get(resp, "reasoning").String()

	state.SubQueries = subQueries
	state.ExecutionOrder = domain.ExecutionOrder(order)
	state.DecompositionReasoning = reasoning
	state.RecordStep(domain.ReasoningStep{
		Agent:  "decomposer",
		Action: "query_decomposition",
		Input:  map[string]any{"question": question},
		Output: map[string]any{
			"sub_queries":     subQueries,
			"execution_order": order,
			"reasoning":       reasoning,
		},
		DurationMS: time.Since(start).Milliseconds(),
	})

	log.Printf("query decomposed into %d sub-queries (%s) in %dms",
		len(subQueries), order, time.Since(start).Milliseconds())
}

// fallback degrades to the original question as a single sub-query.
func (d *Decomposer) fallback(state *domain.AgentState, start time.Time, cause string) {
	log.Printf("decomposition failed (%s), falling back to single query", cause)

	state.SubQueries = []string{state.OriginalQuestion}
	state.ExecutionOrder = domain.ExecutionParallel
	state.Error = fmt.Sprintf("Decomposer error: %s", cause)
	state.RecordStep(domain.ReasoningStep{
		Agent:      "decomposer",
		Action:     "decomposition_failed",
		Input:      map[string]any{"question": state.OriginalQuestion},
		Output:     map[string]any{"error": cause, "fallback": "single_query"},
		DurationMS: time.Since(start).Milliseconds(),
	})
}
