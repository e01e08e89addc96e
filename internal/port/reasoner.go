package port

import "context"

// ReasoningRequest asks the reasoning collaborator to judge one check.
type ReasoningRequest struct {
	CheckID    string         `json:"check_id"`
	Question   string         `json:"question"`
	Context    map[string]any `json:"context"`
	References []string       `json:"references,omitempty"`
}

// ReasoningResponse is the collaborator's verdict. Status is PASS, FAIL or WARNING.
type ReasoningResponse struct {
	Status         string  `json:"status"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
	RequiresReview bool    `json:"requires_review"`
	Model          string  `json:"model,omitempty"`
	// References names the excerpts that were put in front of the model.
	References []string `json:"references,omitempty"`
}

// Reasoner abstracts an LLM-backed judgement service.
type Reasoner interface {
	Reason(ctx context.Context, req ReasoningRequest) (*ReasoningResponse, error)
	Name() string
}

// Passage is one retrieved regulation excerpt.
type Passage struct {
	Source string
	Text   string
	Score  float64
}

// Retriever returns the k passages most relevant to query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Passage, error)
}
