package anticheat

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/eduforge/gradex/internal/models"
)

// EventSource reads behavioral telemetry for one submission
type EventSource interface {
	EventsBySubmission(ctx context.Context, submissionID string) ([]models.Event, error)
}

// Searcher checks a text fragment against an external search index
type Searcher interface {
	Found(ctx context.Context, query string) (bool, error)
	MaxQueryLength() int
}

// Aggregator builds the anti-cheat context merged into an LLM grading
// request. It has no authority over scores; it only enriches the request.
type Aggregator struct {
	events            EventSource
	search            Searcher
	countDanglingAway bool
}

func New(events EventSource, search Searcher, countDanglingAway bool) *Aggregator {
	return &Aggregator{
		events:            events,
		search:            search,
		countDanglingAway: countDanglingAway,
	}
}

// BuildContext assembles the enrichment map for one answer, honoring only
// the checks the question enables. Collaborator failures degrade to neutral
// signals and are never raised past this boundary.
func (a *Aggregator) BuildContext(ctx context.Context, q *models.Question, submissionID, answerText string) map[string]interface{} {
	enriched := map[string]interface{}{}

	if q.EventLogCheckEnabled {
		a.addEventContext(ctx, enriched, q, submissionID)
	}
	if q.PlagiarismCheckEnabled {
		enriched["plagiarismScore"] = a.plagiarismScore(ctx, answerText)
	}
	if q.AICheckEnabled {
		enriched["aiCheckEnabled"] = true
	}
	return enriched
}

func (a *Aggregator) addEventContext(ctx context.Context, enriched map[string]interface{}, q *models.Question, submissionID string) {
	events, err := a.events.EventsBySubmission(ctx, submissionID)
	if err != nil {
		log.Warn().Err(err).Str("submissionId", submissionID).Msg("Failed to load telemetry events")
		return
	}

	// Keep events tagged to this question plus untagged submission-level ones.
	filtered := events[:0:0]
	for _, ev := range events {
		if ev.QuestionID == "" || ev.QuestionID == q.ID {
			filtered = append(filtered, ev)
		}
	}

	tl := ReconstructTimeline(filtered, a.countDanglingAway)
	enriched["eventLog"] = tl.EventLog
	enriched["awayTimeSeconds"] = tl.AwayTimeSeconds
	enriched["totalTimeSeconds"] = tl.TotalTimeSeconds
	enriched["focusTimeSeconds"] = tl.FocusTimeSeconds
	enriched["pasteAttempts"] = tl.PasteAttempts
}

// plagiarismScore runs the binary web-match check: 1.0 when the search index
// returns anything for a representative fragment, 0.0 otherwise (including
// every error path).
func (a *Aggregator) plagiarismScore(ctx context.Context, answerText string) float64 {
	fragment := representativeFragment(answerText)
	if fragment == "" {
		return 0.0
	}
	if limit := a.search.MaxQueryLength(); len(fragment) > limit {
		fragment = fragment[:limit]
	}

	found, err := a.search.Found(ctx, fragment)
	if err != nil {
		log.Warn().Err(err).Msg("Plagiarism search failed, treating as no match")
		return 0.0
	}
	if found {
		return 1.0
	}
	return 0.0
}

// representativeFragment picks the longest sentence of at least 30
// characters, the piece most likely to produce a meaningful verbatim match.
func representativeFragment(text string) string {
	longest := ""
	for _, sentence := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	}) {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) >= 30 && len(sentence) > len(longest) {
			longest = sentence
		}
	}
	return longest
}
