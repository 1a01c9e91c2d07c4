package agents

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/service"
)

const synthesizerSystemPrompt = `You are an expert at synthesizing information from multiple sources.
Your task is to combine sub-answers into a comprehensive, coherent response.

Requirements:
1. Directly address the original question
2. Integrate information from all sub-answers smoothly
3. Maintain logical flow and structure
4. Be clear and concise
5. Use markdown formatting for readability
6. Do NOT invent information not present in sub-answers
7. If sub-answers contain conflicting information, acknowledge it

Style Guidelines:
- Use proper paragraphs and sections
- Use bullet points or numbered lists when appropriate
- Bold key terms or numbers
- Keep the tone professional and informative`

const synthesisFallbackDisclaimer = "*Note: the answers below were combined without synthesis due to a temporary issue.*"

// Synthesizer combines sub-answers into one coherent final answer. On
// model failure it concatenates the sub-answers with a disclaimer so the
// retrieved information is never discarded.
type Synthesizer struct {
	llm   service.LLMClient
	model string
}

func NewSynthesizer(llm service.LLMClient, model string) *Synthesizer {
	return &Synthesizer{llm: llm, model: model}
}

// Synthesize sets FinalAnswer and AllSources on the state. It never
// returns an error.
func (s *Synthesizer) Synthesize(ctx context.Context, state *domain.AgentState) {
	start := time.Now()

	state.AllSources = dedupeSources(state.SubResults)
	synthesisContext := buildSynthesisContext(state.SubQueries, state.SubResults)

	userPrompt := fmt.Sprintf(`Original Question: %s

Sub-Answers:
%s

Provide a comprehensive final answer that directly addresses the original question by synthesizing the information above:`,
		state.OriginalQuestion, synthesisContext)

	answer, err := s.llm.Complete(ctx, service.CompletionRequest{
		Model: s.model,
		Messages: []service.ChatMessage{
			{Role: service.RoleSystem, Content: synthesizerSystemPrompt},
			{Role: service.RoleUser, Content: userPrompt},
		},
		Temperature: 0.3,
		MaxTokens:   1000,
	})
	if err != nil {
		log.Printf("synthesis failed, falling back to concatenation: %v", err)
		state.FinalAnswer = concatenateSubAnswers(state.SubQueries, state.SubResults)
		state.Error = fmt.Sprintf("Synthesizer error: %v", err)
		state.RecordStep(domain.ReasoningStep{
			Agent:      "synthesizer",
			Action:     "synthesis_failed",
			Input:      map[string]any{"original_question": state.OriginalQuestion},
			Output:     map[string]any{"error": err.Error(), "fallback": "concatenation"},
			DurationMS: time.Since(start).Milliseconds(),
		})
		return
	}

	state.FinalAnswer = answer
	state.RecordStep(domain.ReasoningStep{
		Agent:  "synthesizer",
		Action: "answer_synthesis",
		Input: map[string]any{
			"original_question": state.OriginalQuestion,
			"sub_results_count": len(state.SubResults),
		},
		Output: map[string]any{
			"final_answer_length": len(answer),
			"total_sources":       len(state.AllSources),
		},
		DurationMS: time.Since(start).Milliseconds(),
	})

	log.Printf("synthesis completed in %dms (%d sources, %d chars)",
		time.Since(start).Milliseconds(), len(state.AllSources), len(answer))
}

// buildSynthesisContext pairs each sub-question with its answer and page
// references. Failed sub-queries are skipped so the model never sees
// error text as evidence.
func buildSynthesisContext(subQueries []string, subResults []domain.QueryResult) string {
	parts := make([]string, 0, len(subResults))
	for i, result := range subResults {
		if i >= len(subQueries) {
			break
		}
		if !result.Success {
			continue
		}

		sourceInfo := ""
		if len(result.Sources) > 0 {
			refs := make([]string, 0, len(result.Sources))
			for _, src := range result.Sources {
				pages := make([]string, len(src.PageNumbers))
				for j, p := range src.PageNumbers {
					pages[j] = strconv.Itoa(p)
				}
				refs = append(refs, "Page "+strings.Join(pages, ", "))
			}
			sourceInfo = "\nSources: " + strings.Join(refs, "; ")
		}

		parts = append(parts, fmt.Sprintf("Sub-Question %d: %s\nAnswer: %s%s",
			i+1, subQueries[i], result.Answer, sourceInfo))
	}
	return strings.Join(parts, "\n\n")
}

// concatenateSubAnswers is the degraded rendering when the synthesis
// model is unavailable.
func concatenateSubAnswers(subQueries []string, subResults []domain.QueryResult) string {
	parts := []string{synthesisFallbackDisclaimer}
	for i, result := range subResults {
		if i >= len(subQueries) || !result.Success {
			continue
		}
		parts = append(parts, fmt.Sprintf("**%s**\n%s", subQueries[i], result.Answer))
	}
	return strings.Join(parts, "\n\n")
}

// dedupeSources unions all citations, dropping (document, page-set)
// duplicates while preserving first-seen order.
func dedupeSources(subResults []domain.QueryResult) []domain.SourceCitation {
	var all []domain.SourceCitation
	for _, result := range subResults {
		for _, src := range result.Sources {
			dup := false
			for _, existing := range all {
				if existing.SamePages(src) {
					dup = true
					break
				}
			}
			if !dup {
				all = append(all, src)
			}
		}
	}
	if all == nil {
		all = []domain.SourceCitation{}
	}
	return all
}
