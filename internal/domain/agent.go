package domain

// QueryType is the router's verdict on a question.
type QueryType string

const (
	QueryTypeSimple  QueryType = "simple"
	QueryTypeComplex QueryType = "complex"
)

// ExecutionOrder controls how sub-queries are scheduled.
type ExecutionOrder string

const (
	ExecutionParallel   ExecutionOrder = "parallel"
	ExecutionSequential ExecutionOrder = "sequential"
)

// ReasoningStep logs one agent action for transparency in responses.
type ReasoningStep struct {
	Agent      string         `json:"agent"`
	Action     string         `json:"action"`
	Input      map[string]any `json:"input,omitempty"`
	Output     map[string]any `json:"output,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

// AgentState is the accumulator threaded through the orchestration
// workflow. Created at query start, mutated by one stage at a time
// (the executor writes disjoint slots of SubResults), discarded once
// the response is returned.
type AgentState struct {
	OriginalQuestion string
	SessionID        string

	QueryType           QueryType
	ComplexityReasoning string

	SubQueries             []string
	ExecutionOrder         ExecutionOrder
	DecompositionReasoning string

	SubResults []QueryResult

	FinalAnswer string
	AllSources  []SourceCitation

	ReasoningSteps []ReasoningStep
	AgentCalls     []string
	Error          string
}

// RecordStep appends a reasoning step and notes the agent invocation.
func (s *AgentState) RecordStep(step ReasoningStep) {
	s.ReasoningSteps = append(s.ReasoningSteps, step)
	s.AgentCalls = append(s.AgentCalls, step.Agent)
}
