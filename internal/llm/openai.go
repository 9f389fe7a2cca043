package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/eduforge/gradex/internal/metrics"
)

// OpenAIProvider grades answers through an OpenAI-compatible chat endpoint.
// Both the hosted cloud model and a local runtime (Ollama, vLLM, ...) are
// served by this adapter; only base URL, key and model differ.
type OpenAIProvider struct {
	name     string
	api      *openai.Client
	model    string
	template string
	timeout  time.Duration
	hasKey   bool
}

// NewOpenAIProvider creates a provider adapter. An empty template selects the
// built-in grading prompt.
func NewOpenAIProvider(name, baseURL, apiKey, model, template string, timeout time.Duration) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIProvider{
		name:     name,
		api:      openai.NewClientWithConfig(config),
		model:    model,
		template: template,
		timeout:  timeout,
		hasKey:   apiKey != "",
	}
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

// Evaluate sends one grading request to the backing model. Configuration
// problems come back as zero-score results with explanatory feedback,
// transport failures as zero-score results carrying the "Error" marker the
// router keys on, and unparseable replies as an error.
func (p *OpenAIProvider) Evaluate(ctx context.Context, req Request) (*EvalResult, error) {
	if !p.hasKey {
		return zeroResult(p.name, "provider credentials not configured, answer was not graded"), nil
	}

	prompt, err := p.buildPrompt(req)
	if err != nil {
		log.Warn().Err(err).Str("provider", p.name).Msg("Prompt template misconfigured")
		return zeroResult(p.name, fmt.Sprintf("prompt template misconfigured: %v", err)), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.api.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	})
	metrics.LLMRequestDuration.WithLabelValues(p.name).Observe(time.Since(start).Seconds())

	if err != nil {
		log.Error().Err(err).Str("provider", p.name).Msg("LLM request failed")
		return zeroResult(p.name, "Error: "+transportHint(err)), nil
	}
	if len(resp.Choices) == 0 {
		return zeroResult(p.name, "Error: model returned no choices"), nil
	}

	raw := resp.Choices[0].Message.Content
	log.Debug().Str("provider", p.name).Str("raw", raw).Msg("LLM response")

	obj, err := Repair(raw)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", p.name, err)
	}
	return p.toResult(obj), nil
}

func (p *OpenAIProvider) buildPrompt(req Request) (string, error) {
	if p.template == "" {
		return buildDefaultPrompt(req), nil
	}
	body, err := formatTemplate(p.template, promptVars(req))
	if err != nil {
		return "", err
	}
	// Behavioral context is appended after the template so operators do not
	// have to thread it through their own placeholders.
	var sb strings.Builder
	sb.WriteString(body)
	sb.WriteString("\n\n")
	writeContextSection(&sb, req.Context)
	return sb.String(), nil
}

// modelResponse mirrors the JSON shape models are instructed to return
type modelResponse struct {
	CriteriaScores    map[string]float64 `json:"criteria_scores"`
	TotalScore        *float64           `json:"total_score"`
	Score             *float64           `json:"score"`
	Feedback          string             `json:"feedback"`
	IntegrityScore    *float64           `json:"integrity_score"`
	IntegrityFeedback string             `json:"integrity_feedback"`
	AIProbability     *float64           `json:"ai_probability"`
	PlagiarismFound   *bool              `json:"plagiarism_found"`
	PenaltyNote       string             `json:"penalty_note"`
}

func (p *OpenAIProvider) toResult(obj map[string]interface{}) *EvalResult {
	buf, _ := json.Marshal(obj)
	var mr modelResponse
	if err := json.Unmarshal(buf, &mr); err != nil {
		// Object parsed but with unexpected field types; keep what we can.
		log.Warn().Err(err).Str("provider", p.name).Msg("Unexpected response field types")
	}

	total := 0.0
	switch {
	case mr.TotalScore != nil:
		total = *mr.TotalScore
	case mr.Score != nil:
		total = *mr.Score
	default:
		for _, v := range mr.CriteriaScores {
			total += v
		}
	}
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}

	if mr.CriteriaScores == nil {
		mr.CriteriaScores = map[string]float64{}
	}
	return &EvalResult{
		CriteriaScores:    mr.CriteriaScores,
		TotalScore:        total,
		Feedback:          mr.Feedback,
		Provider:          p.name,
		IntegrityScore:    mr.IntegrityScore,
		IntegrityFeedback: mr.IntegrityFeedback,
		AIProbability:     mr.AIProbability,
		PlagiarismFound:   mr.PlagiarismFound,
		PenaltyNote:       mr.PenaltyNote,
	}
}

// transportHint maps transport failures to operator-actionable messages
func transportHint(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return "authentication failed (401), check the provider API key"
		case http.StatusForbidden:
			return "authorization failed (403), the key lacks access to this model"
		case http.StatusTooManyRequests:
			return "provider rate limit exceeded (429)"
		default:
			return fmt.Sprintf("provider returned status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "provider request timed out"
	}
	return fmt.Sprintf("provider request failed: %v", err)
}
