package llm

import (
	"context"
)

// Request carries everything a provider needs to grade one free-text answer
type Request struct {
	Question        string
	ReferenceAnswer string
	StudentAnswer   string
	Criteria        map[string]float64     // criterion name -> max points
	Context         map[string]interface{} // anti-cheat enrichment, see anticheat pkg
}

// EvalResult is a provider's scored verdict on one answer
type EvalResult struct {
	CriteriaScores map[string]float64 `json:"criteriaScores"`
	TotalScore     float64            `json:"totalScore"`
	Feedback       string             `json:"feedback"`
	Provider       string             `json:"provider"`

	// Optional integrity verdicts the model may attach when anti-cheat
	// context is present. Persisted as-is, never validated locally.
	IntegrityScore    *float64 `json:"integrityScore,omitempty"`
	IntegrityFeedback string   `json:"integrityFeedback,omitempty"`
	AIProbability     *float64 `json:"aiProbability,omitempty"`
	PlagiarismFound   *bool    `json:"plagiarismFound,omitempty"`
	PenaltyNote       string   `json:"penaltyNote,omitempty"`
}

// Provider grades free-text answers against a backing model
type Provider interface {
	Name() string
	Evaluate(ctx context.Context, req Request) (*EvalResult, error)
}

// zeroResult builds an all-zero result carrying diagnostic feedback
func zeroResult(provider, feedback string) *EvalResult {
	return &EvalResult{
		CriteriaScores: map[string]float64{},
		TotalScore:     0,
		Feedback:       feedback,
		Provider:       provider,
	}
}
