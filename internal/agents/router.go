package agents

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tidwall/gjson"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/service"
)

const routerSystemPrompt = `You are a query classifier for a financial document Q&A system.

Classify each question as either SIMPLE or COMPLEX.

SIMPLE queries:
- Ask for a single fact or metric
- Reference one document section
- No comparisons or multi-step reasoning

Examples:
- "What was Apple's total revenue in 2024?"
- "Who is the CEO?"
- "What is the company's mission statement?"
- "How many employees does the company have?"

COMPLEX queries:
- Ask multiple questions at once
- Require comparisons (time periods, products, metrics)
- Need multi-step reasoning
- Span multiple document sections

Examples:
- "How did iPhone sales compare in Q3 vs Q4 and what drove the change?"
- "What are the top 3 revenue drivers and how did they change year-over-year?"
- "Compare R&D spending between 2023 and 2024 and explain the investments"
- "What were the biggest risks and how does management plan to address them?"

Return JSON only:
{
    "type": "simple" or "complex",
    "reasoning": "Brief explanation of classification"
}`

// Router classifies questions as simple or complex using a small, cheap
// model. Misclassifying complex as simple still yields a usable direct
// answer, so every failure mode falls back to simple.
type Router struct {
	llm   service.LLMClient
	model string
}

func NewRouter(llm service.LLMClient, model string) *Router {
	return &Router{llm: llm, model: model}
}

// Classify sets QueryType and ComplexityReasoning on the state. It never
// returns an error; failures default to simple and note the cause.
func (r *Router) Classify(ctx context.Context, state *domain.AgentState) {
	start := time.Now()
	question := state.OriginalQuestion

	resp, err := r.llm.Complete(ctx, service.CompletionRequest{
		Model: r.model,
		Messages: []service.ChatMessage{
			{Role: service.RoleSystem, Content: routerSystemPrompt},
			{Role: service.RoleUser, Content: "Classify this query:\n\n" + question},
		},
		Temperature: 0.0,
		MaxTokens:   200,
		JSONMode:    true,
	})
	if err != nil {
		log.Printf("router model call failed, defaulting to simple: %v", err)
		state.QueryType = domain.QueryTypeSimple
		state.ComplexityReasoning = "Classification failed, defaulting to simple query"
		state.Error = fmt.Sprintf("Router error: %v", err)
		state.RecordStep(domain.ReasoningStep{
			Agent:      "router",
			Action:     "classification_failed",
			Input:      map[string]any{"question": question},
			Output:     map[string]any{"error": err.Error(), "fallback": "simple"},
			DurationMS: time.Since(start).Milliseconds(),
		})
		return
	}

	if !gjson.Valid(resp) {
		log.Printf("router returned invalid JSON, defaulting to simple")
		state.QueryType = domain.QueryTypeSimple
		state.ComplexityReasoning = "Classification failed (JSON parse error), defaulting to simple query"
		state.RecordStep(domain.ReasoningStep{
			Agent:      "router",
			Action:     "classification_failed",
			Input:      map[string]any{"question": question},
			Output:     map[string]any{"error": "JSON parse error", "fallback": "simple"},
			DurationMS: time.Since(start).Milliseconds(),
		})
		return
	}

	queryType := gjson.Get(resp, "type").String()
	reasoning := gjson.Get(resp, "reasoning").String()
	if reasoning == "" {
		reasoning = "No reasoning provided"
	}
	if queryType != string(domain.QueryTypeSimple) && queryType != string(domain.QueryTypeComplex) {
		log.Printf("router returned invalid query type %q, defaulting to simple", queryType)
		reasoning = fmt.Sprintf("Invalid classification returned: %s. Defaulting to simple.", queryType)
		queryType = string(domain.QueryTypeSimple)
	}

	state.QueryType = domain.QueryType(queryType)
	state.ComplexityReasoning = reasoning
	state.RecordStep(domain.ReasoningStep{
		Agent:      "router",
		Action:     "query_classification",
		Input:      map[string]any{"question": question},
		Output:     map[string]any{"type": queryType, "reasoning": reasoning},
		DurationMS: time.Since(start).Milliseconds(),
	})

	log.Printf("query classified as %q in %dms", queryType, time.Since(start).Milliseconds())
}
