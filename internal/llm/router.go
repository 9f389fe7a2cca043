package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/eduforge/gradex/internal/metrics"
)

// Strategy selects which backing model grades an answer
type Strategy string

const (
	StrategyLocal  Strategy = "local"
	StrategyCloud  Strategy = "cloud"
	StrategyHybrid Strategy = "hybrid"
)

// Priority influences hybrid provider selection
type Priority string

const (
	PriorityNormal   Priority = "normal"
	PriorityCritical Priority = "critical"
)

// failureMarker is the feedback substring a zero-score result must carry to
// count as a provider failure.
const failureMarker = "Error"

// Router selects a provider by strategy and retries once on the sibling
// provider when fallback is enabled.
type Router struct {
	cloud           Provider
	local           Provider
	defaultStrategy Strategy
	fallbackEnabled bool
}

func NewRouter(cloud, local Provider, defaultStrategy Strategy, fallbackEnabled bool) *Router {
	switch defaultStrategy {
	case StrategyLocal, StrategyCloud, StrategyHybrid:
	default:
		defaultStrategy = StrategyHybrid
	}
	return &Router{
		cloud:           cloud,
		local:           local,
		defaultStrategy: defaultStrategy,
		fallbackEnabled: fallbackEnabled,
	}
}

// selectProvider resolves strategy and priority to a concrete provider.
// Unknown strategies fall back to the router's default.
func (r *Router) selectProvider(strategy Strategy, priority Priority) Provider {
	switch strategy {
	case StrategyCloud:
		return r.cloud
	case StrategyLocal:
		return r.local
	case StrategyHybrid:
		if priority == PriorityCritical {
			return r.cloud
		}
		return r.local
	default:
		if strategy != r.defaultStrategy {
			return r.selectProvider(r.defaultStrategy, priority)
		}
		return r.local
	}
}

// other returns the sibling provider for the fallback swap
func (r *Router) other(p Provider) Provider {
	if p == r.cloud {
		return r.local
	}
	return r.cloud
}

// EvaluateTextAnswer grades one free-text answer. It always returns a
// non-nil result: on double failure the result is all-zero with provider
// "None" and feedback naming both failures.
func (r *Router) EvaluateTextAnswer(ctx context.Context, req Request, strategy Strategy, priority Priority) *EvalResult {
	primary := r.selectProvider(strategy, priority)

	res, err := primary.Evaluate(ctx, req)
	if !isFailure(res, err) {
		res.Provider = primary.Name()
		return res
	}
	primaryFailure := describeFailure(res, err)
	log.Warn().
		Str("provider", primary.Name()).
		Str("failure", primaryFailure).
		Msg("Primary provider failed")

	if !r.fallbackEnabled {
		return zeroResult("None", fmt.Sprintf("%s failed (%s), fallback disabled", primary.Name(), primaryFailure))
	}

	fallback := r.other(primary)
	metrics.LLMFallbacks.Inc()

	res, err = fallback.Evaluate(ctx, req)
	if !isFailure(res, err) {
		res.Provider = fallback.Name() + " (Fallback)"
		return res
	}
	fallbackFailure := describeFailure(res, err)
	log.Error().
		Str("primary", primary.Name()).
		Str("fallback", fallback.Name()).
		Msg("Both providers failed")

	return zeroResult("None", fmt.Sprintf(
		"%s failed (%s); %s failed (%s)",
		primary.Name(), primaryFailure, fallback.Name(), fallbackFailure,
	))
}

// isFailure reports whether a provider call should trigger fallback: an
// error, or a zero total score whose feedback carries the failure marker.
func isFailure(res *EvalResult, err error) bool {
	if err != nil || res == nil {
		return true
	}
	return res.TotalScore == 0 && strings.Contains(res.Feedback, failureMarker)
}

func describeFailure(res *EvalResult, err error) string {
	if err != nil {
		return err.Error()
	}
	if res == nil {
		return "nil result"
	}
	return res.Feedback
}
