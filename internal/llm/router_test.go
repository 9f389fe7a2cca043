package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubProvider struct {
	name   string
	result *EvalResult
	err    error
	calls  int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Evaluate(_ context.Context, _ Request) (*EvalResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func okResult(score float64) *EvalResult {
	return &EvalResult{
		CriteriaScores: map[string]float64{"correctness": score},
		TotalScore:     score,
		Feedback:       "graded",
	}
}

func TestSelectProvider(t *testing.T) {
	cloud := &stubProvider{name: "Cloud"}
	local := &stubProvider{name: "Local"}
	r := NewRouter(cloud, local, StrategyHybrid, true)

	tests := []struct {
		name     string
		strategy Strategy
		priority Priority
		want     string
	}{
		{"cloud strategy", StrategyCloud, PriorityNormal, "Cloud"},
		{"local strategy", StrategyLocal, PriorityCritical, "Local"},
		{"hybrid normal", StrategyHybrid, PriorityNormal, "Local"},
		{"hybrid critical", StrategyHybrid, PriorityCritical, "Cloud"},
		{"unknown falls back to default", Strategy("turbo"), PriorityCritical, "Cloud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.selectProvider(tt.strategy, tt.priority)
			if got.Name() != tt.want {
				t.Errorf("selectProvider(%q, %q) = %s, want %s", tt.strategy, tt.priority, got.Name(), tt.want)
			}
		})
	}
}

func TestEvaluateTextAnswerSuccess(t *testing.T) {
	cloud := &stubProvider{name: "Cloud", result: okResult(80)}
	local := &stubProvider{name: "Local", result: okResult(60)}
	r := NewRouter(cloud, local, StrategyHybrid, true)

	res := r.EvaluateTextAnswer(context.Background(), Request{}, StrategyCloud, PriorityNormal)

	if res.TotalScore != 80 {
		t.Errorf("TotalScore = %v, want 80", res.TotalScore)
	}
	if res.Provider != "Cloud" {
		t.Errorf("Provider = %q, want Cloud", res.Provider)
	}
	if local.calls != 0 {
		t.Errorf("fallback provider was called %d times, want 0", local.calls)
	}
}

func TestEvaluateTextAnswerFallbackOnError(t *testing.T) {
	cloud := &stubProvider{name: "Cloud", err: errors.New("connection refused")}
	local := &stubProvider{name: "Local", result: okResult(75)}
	r := NewRouter(cloud, local, StrategyHybrid, true)

	res := r.EvaluateTextAnswer(context.Background(), Request{}, StrategyCloud, PriorityNormal)

	if res.TotalScore != 75 {
		t.Errorf("TotalScore = %v, want 75", res.TotalScore)
	}
	if res.Provider != "Local (Fallback)" {
		t.Errorf("Provider = %q, want \"Local (Fallback)\"", res.Provider)
	}
}

func TestEvaluateTextAnswerFallbackOnErrorMarker(t *testing.T) {
	cloud := &stubProvider{name: "Cloud", result: zeroResult("Cloud", "Error: authentication failed (401), check the provider API key")}
	local := &stubProvider{name: "Local", result: okResult(50)}
	r := NewRouter(cloud, local, StrategyHybrid, true)

	res := r.EvaluateTextAnswer(context.Background(), Request{}, StrategyCloud, PriorityNormal)

	if res.Provider != "Local (Fallback)" {
		t.Errorf("Provider = %q, want \"Local (Fallback)\"", res.Provider)
	}
}

func TestEvaluateTextAnswerZeroScoreWithoutMarkerIsNotFailure(t *testing.T) {
	// A legitimate zero grade must not trigger fallback.
	zero := okResult(0)
	zero.Feedback = "the answer is entirely incorrect"
	cloud := &stubProvider{name: "Cloud", result: zero}
	local := &stubProvider{name: "Local", result: okResult(90)}
	r := NewRouter(cloud, local, StrategyHybrid, true)

	res := r.EvaluateTextAnswer(context.Background(), Request{}, StrategyCloud, PriorityNormal)

	if res.Provider != "Cloud" {
		t.Errorf("Provider = %q, want Cloud (no fallback)", res.Provider)
	}
	if local.calls != 0 {
		t.Errorf("fallback provider was called %d times, want 0", local.calls)
	}
}

func TestEvaluateTextAnswerDoubleFailure(t *testing.T) {
	cloud := &stubProvider{name: "Cloud", err: errors.New("timeout")}
	local := &stubProvider{name: "Local", err: errors.New("connection refused")}
	r := NewRouter(cloud, local, StrategyHybrid, true)

	res := r.EvaluateTextAnswer(context.Background(), Request{}, StrategyCloud, PriorityNormal)

	if res.TotalScore != 0 {
		t.Errorf("TotalScore = %v, want 0", res.TotalScore)
	}
	if res.Provider != "None" {
		t.Errorf("Provider = %q, want None", res.Provider)
	}
	if !strings.Contains(res.Feedback, "Cloud") || !strings.Contains(res.Feedback, "Local") {
		t.Errorf("feedback should name both failures, got %q", res.Feedback)
	}
}

func TestEvaluateTextAnswerFallbackDisabled(t *testing.T) {
	cloud := &stubProvider{name: "Cloud", err: errors.New("timeout")}
	local := &stubProvider{name: "Local", result: okResult(75)}
	r := NewRouter(cloud, local, StrategyHybrid, false)

	res := r.EvaluateTextAnswer(context.Background(), Request{}, StrategyCloud, PriorityNormal)

	if res.Provider != "None" {
		t.Errorf("Provider = %q, want None", res.Provider)
	}
	if local.calls != 0 {
		t.Errorf("fallback provider was called %d times with fallback disabled", local.calls)
	}
}
