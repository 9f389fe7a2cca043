package evaluator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/eduforge/gradex/internal/geometry"
	"github.com/eduforge/gradex/internal/llm"
	"github.com/eduforge/gradex/internal/metrics"
	"github.com/eduforge/gradex/internal/models"
)

// SubmissionStore is the persistence surface the orchestrator needs
type SubmissionStore interface {
	GetSubmission(ctx context.Context, submissionID string) (*models.Submission, error)
	GetQuestion(ctx context.Context, questionID string) (*models.Question, error)
	GetAnswersBySubmission(ctx context.Context, submissionID string) (map[string]*models.Answer, error)
	SaveAnswerEvaluation(ctx context.Context, answerID string, evaluation map[string]interface{}, score float64) error
	UpdateSubmissionStatus(ctx context.Context, submissionID string, status models.SubmissionStatus) error
	SaveSubmissionResult(ctx context.Context, submissionID string, result *models.SubmissionResult) error
}

// TextGrader grades free-text answers; satisfied by llm.Router
type TextGrader interface {
	EvaluateTextAnswer(ctx context.Context, req llm.Request, strategy llm.Strategy, priority llm.Priority) *llm.EvalResult
}

// ContextBuilder assembles anti-cheat enrichment; satisfied by anticheat.Aggregator
type ContextBuilder interface {
	BuildContext(ctx context.Context, q *models.Question, submissionID, answerText string) map[string]interface{}
}

// Service orchestrates grading of one submission: per-answer dispatch by
// question kind, failure isolation, and the weighted aggregate.
type Service struct {
	store     SubmissionStore
	grader    TextGrader
	anticheat ContextBuilder
	geoConfig geometry.Config
	strategy  llm.Strategy
}

func NewService(store SubmissionStore, grader TextGrader, anticheat ContextBuilder, geoConfig geometry.Config, strategy llm.Strategy) *Service {
	return &Service{
		store:     store,
		grader:    grader,
		anticheat: anticheat,
		geoConfig: geoConfig,
		strategy:  strategy,
	}
}

// EvaluateSubmission runs one grading pass. Re-invoking on a Completed
// submission is a no-op unless force is set. A per-answer failure forces
// that answer to score 0 and grading continues; only orchestration-level
// failures (missing records, result write) abort and leave the submission
// in Evaluating for operator-visible retries.
func (s *Service) EvaluateSubmission(ctx context.Context, submissionID string, force bool) (*models.SubmissionResult, error) {
	start := time.Now()

	submission, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		metrics.SubmissionsGraded.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}

	if submission.Status == models.StatusCompleted && !force {
		log.Warn().Str("submissionId", submissionID).Msg("Submission already completed, skipping re-grade")
		return submission.Result, nil
	}

	if submission.Status != models.StatusEvaluating {
		if err := s.store.UpdateSubmissionStatus(ctx, submissionID, models.StatusEvaluating); err != nil {
			metrics.SubmissionsGraded.WithLabelValues("failed").Inc()
			return nil, fmt.Errorf("failed to mark submission evaluating: %w", err)
		}
	}

	answers, err := s.store.GetAnswersBySubmission(ctx, submissionID)
	if err != nil {
		metrics.SubmissionsGraded.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}

	breakdown := make([]models.AnswerBreakdown, 0, len(submission.AnswerIDs))

	for _, answerID := range submission.AnswerIDs {
		answer, ok := answers[answerID]
		if !ok {
			log.Error().Str("submissionId", submissionID).Str("answerId", answerID).Msg("Answer record missing, scored 0")
			breakdown = append(breakdown, models.AnswerBreakdown{QuestionID: "", Score: 0, Difficulty: 1, Weight: 1})
			continue
		}

		question, evaluation, score := s.gradeAnswerIsolated(ctx, submission, answer)

		if err := s.store.SaveAnswerEvaluation(ctx, answer.ID, evaluation, score); err != nil {
			log.Error().Err(err).Str("answerId", answer.ID).Msg("Failed to persist answer evaluation")
		}

		difficulty := 1
		questionID := answer.QuestionID
		if question != nil {
			difficulty = question.Difficulty
		}
		weight := DifficultyWeight(difficulty)
		breakdown = append(breakdown, models.AnswerBreakdown{
			QuestionID: questionID,
			Score:      score,
			Difficulty: clampDifficulty(difficulty),
			Weight:     weight,
		})
	}

	result := aggregate(breakdown)

	if err := s.store.SaveSubmissionResult(ctx, submissionID, result); err != nil {
		metrics.SubmissionsGraded.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to save submission result: %w", err)
	}

	metrics.SubmissionsGraded.WithLabelValues("completed").Inc()
	metrics.GradingDuration.Observe(time.Since(start).Seconds())
	log.Info().
		Str("submissionId", submissionID).
		Float64("percentage", result.Percentage).
		Str("grade", result.Grade).
		Msg("Submission graded")

	return result, nil
}

// gradeAnswerIsolated dispatches one answer and converts every failure,
// panics included, into a zero score so a single bad answer never aborts
// the submission.
func (s *Service) gradeAnswerIsolated(ctx context.Context, submission *models.Submission, answer *models.Answer) (question *models.Question, evaluation map[string]interface{}, score float64) {
	kind := "unknown"
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("answerId", answer.ID).
				Interface("panic", r).
				Msg("Panic while grading answer, scored 0")
			evaluation = map[string]interface{}{"error": fmt.Sprintf("grading panic: %v", r)}
			score = 0
			metrics.AnswersGraded.WithLabelValues(kind, "failed").Inc()
		}
	}()

	question, err := s.store.GetQuestion(ctx, answer.QuestionID)
	if err != nil {
		log.Error().Err(err).Str("answerId", answer.ID).Msg("Failed to load question, answer scored 0")
		metrics.AnswersGraded.WithLabelValues(kind, "failed").Inc()
		return nil, map[string]interface{}{"error": err.Error()}, 0
	}
	kind = string(question.Kind)

	evaluation, score, err = s.gradeAnswer(ctx, submission, question, answer)
	if err != nil {
		log.Error().Err(err).
			Str("answerId", answer.ID).
			Str("kind", kind).
			Msg("Failed to grade answer, scored 0")
		metrics.AnswersGraded.WithLabelValues(kind, "failed").Inc()
		return question, map[string]interface{}{"error": err.Error()}, 0
	}

	metrics.AnswersGraded.WithLabelValues(kind, "graded").Inc()
	return question, evaluation, score
}

// gradeAnswer dispatches by question kind
func (s *Service) gradeAnswer(ctx context.Context, submission *models.Submission, question *models.Question, answer *models.Answer) (map[string]interface{}, float64, error) {
	switch question.Kind {
	case models.KindFreeText:
		return s.gradeFreeText(ctx, submission, question, answer)
	case models.KindRegionAnnotation:
		return s.gradeRegions(question, answer)
	case models.KindChoice:
		return s.gradeChoice(question, answer), choiceScore(question, answer), nil
	default:
		return nil, 0, fmt.Errorf("unsupported question kind %q", question.Kind)
	}
}

func (s *Service) gradeFreeText(ctx context.Context, submission *models.Submission, question *models.Question, answer *models.Answer) (map[string]interface{}, float64, error) {
	enrichment := s.anticheat.BuildContext(ctx, question, submission.ID, answer.StudentText)

	priority := llm.PriorityNormal
	if question.Difficulty >= 4 {
		priority = llm.PriorityCritical
	}

	res := s.grader.EvaluateTextAnswer(ctx, llm.Request{
		Question:        question.Text,
		ReferenceAnswer: question.ReferenceText,
		StudentAnswer:   answer.StudentText,
		Criteria:        question.ScoringCriteria,
		Context:         enrichment,
	}, s.strategy, priority)

	evaluation := map[string]interface{}{
		"provider":       res.Provider,
		"criteriaScores": res.CriteriaScores,
		"feedback":       res.Feedback,
	}
	if res.IntegrityScore != nil {
		evaluation["integrityScore"] = *res.IntegrityScore
	}
	if res.IntegrityFeedback != "" {
		evaluation["integrityFeedback"] = res.IntegrityFeedback
	}
	if res.AIProbability != nil {
		evaluation["aiProbability"] = *res.AIProbability
	}
	if res.PlagiarismFound != nil {
		evaluation["plagiarismFound"] = *res.PlagiarismFound
	}
	if res.PenaltyNote != "" {
		evaluation["penaltyNote"] = res.PenaltyNote
	}
	return evaluation, res.TotalScore, nil
}

func (s *Service) gradeRegions(question *models.Question, answer *models.Answer) (map[string]interface{}, float64, error) {
	references := question.ReferenceRegions
	if len(references) == 0 {
		// Questions without their own reference set fall back to the
		// reference annotations attached to the question image.
		references = question.ImageRegions
	}

	cfg := s.geoConfig
	cfg.AllowPartial = question.AllowPartial

	res := geometry.Score(answer.StudentRegions, references, cfg)
	evaluation := map[string]interface{}{
		"iou":               res.IoU,
		"recall":            res.Recall,
		"precision":         res.Precision,
		"totalScore":        res.TotalScore,
		"iouScoresPerMatch": res.MatchIoUs,
	}
	return evaluation, res.TotalScore, nil
}

func (s *Service) gradeChoice(question *models.Question, answer *models.Answer) map[string]interface{} {
	return map[string]interface{}{
		"expected": question.ReferenceChoice,
		"given":    answer.StudentText,
		"correct":  choiceScore(question, answer) == 100,
	}
}

// choiceScore is literal case-insensitive equality; an empty reference key
// is never correct.
func choiceScore(question *models.Question, answer *models.Answer) float64 {
	reference := strings.TrimSpace(question.ReferenceChoice)
	if reference == "" {
		return 0
	}
	if strings.EqualFold(strings.TrimSpace(answer.StudentText), reference) {
		return 100
	}
	return 0
}

// DifficultyWeight maps difficulty 1..5 to weight 1.0..3.0
func DifficultyWeight(difficulty int) float64 {
	return 1 + float64(clampDifficulty(difficulty)-1)*0.5
}

func clampDifficulty(d int) int {
	if d < 1 {
		return 1
	}
	if d > 5 {
		return 5
	}
	return d
}

// aggregate computes the difficulty-weighted submission result
func aggregate(breakdown []models.AnswerBreakdown) *models.SubmissionResult {
	weightedScore := 0.0
	weightedMax := 0.0
	totalScore := 0.0
	for _, b := range breakdown {
		weightedScore += b.Score * b.Weight
		weightedMax += 100 * b.Weight
		totalScore += b.Score
	}

	percentage := 0.0
	if weightedMax > 0 {
		percentage = weightedScore / weightedMax * 100
	}

	return &models.SubmissionResult{
		TotalScore: totalScore,
		Percentage: percentage,
		Grade:      letterGrade(percentage),
		Breakdown:  breakdown,
	}
}

func letterGrade(percentage float64) string {
	switch {
	case percentage >= 90:
		return "5"
	case percentage >= 75:
		return "4"
	case percentage >= 60:
		return "3"
	default:
		return "2"
	}
}
