package evaluator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/eduforge/gradex/internal/geometry"
	"github.com/eduforge/gradex/internal/llm"
	"github.com/eduforge/gradex/internal/models"
)

type stubStore struct {
	submission       *models.Submission
	questions        map[string]*models.Question
	answers          map[string]*models.Answer
	failQuestionID   string
	getSubmissionErr error
	saveResultErr    error

	savedEvals  map[string]float64
	savedResult *models.SubmissionResult
	statuses    []models.SubmissionStatus
}

func (s *stubStore) GetSubmission(_ context.Context, id string) (*models.Submission, error) {
	if s.getSubmissionErr != nil {
		return nil, s.getSubmissionErr
	}
	return s.submission, nil
}

func (s *stubStore) GetQuestion(_ context.Context, id string) (*models.Question, error) {
	if id == s.failQuestionID {
		return nil, errors.New("question lookup exploded")
	}
	q, ok := s.questions[id]
	if !ok {
		return nil, fmt.Errorf("question %s not found", id)
	}
	return q, nil
}

func (s *stubStore) GetAnswersBySubmission(_ context.Context, _ string) (map[string]*models.Answer, error) {
	return s.answers, nil
}

func (s *stubStore) SaveAnswerEvaluation(_ context.Context, answerID string, _ map[string]interface{}, score float64) error {
	if s.savedEvals == nil {
		s.savedEvals = map[string]float64{}
	}
	s.savedEvals[answerID] = score
	return nil
}

func (s *stubStore) UpdateSubmissionStatus(_ context.Context, _ string, status models.SubmissionStatus) error {
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *stubStore) SaveSubmissionResult(_ context.Context, _ string, result *models.SubmissionResult) error {
	if s.saveResultErr != nil {
		return s.saveResultErr
	}
	s.savedResult = result
	return nil
}

type stubGrader struct {
	score float64
	calls int
}

func (g *stubGrader) EvaluateTextAnswer(_ context.Context, _ llm.Request, _ llm.Strategy, _ llm.Priority) *llm.EvalResult {
	g.calls++
	return &llm.EvalResult{TotalScore: g.score, Feedback: "graded", Provider: "Stub"}
}

type stubContext struct{}

func (stubContext) BuildContext(_ context.Context, _ *models.Question, _, _ string) map[string]interface{} {
	return map[string]interface{}{}
}

func newTestService(store *stubStore, grader *stubGrader) *Service {
	return NewService(store, grader, stubContext{}, geometry.DefaultConfig(), llm.StrategyHybrid)
}

func freeTextFixture(difficulties map[string]int) *stubStore {
	store := &stubStore{
		questions: map[string]*models.Question{},
		answers:   map[string]*models.Answer{},
	}
	ids := []string{}
	for id, d := range difficulties {
		qID := "q-" + id
		store.questions[qID] = &models.Question{ID: qID, Kind: models.KindFreeText, Difficulty: d, Text: "?"}
		store.answers[id] = &models.Answer{ID: id, QuestionID: qID, StudentText: "answer"}
		ids = append(ids, id)
	}
	store.submission = &models.Submission{ID: "sub", Status: models.StatusEvaluating, AnswerIDs: ids}
	return store
}

func TestWeightedAggregate(t *testing.T) {
	// {score 73, difficulty 1} and {score 71, difficulty 2}:
	// (73*1.0 + 71*1.5) / (100*1.0 + 100*1.5) * 100 = 71.2
	breakdown := []models.AnswerBreakdown{
		{Score: 73, Difficulty: 1, Weight: DifficultyWeight(1)},
		{Score: 71, Difficulty: 2, Weight: DifficultyWeight(2)},
	}
	result := aggregate(breakdown)

	if math.Abs(result.Percentage-71.2) > 1e-9 {
		t.Errorf("Percentage = %v, want 71.2", result.Percentage)
	}
	if result.Grade != "3" {
		t.Errorf("Grade = %q, want 3", result.Grade)
	}
}

func TestDifficultyWeight(t *testing.T) {
	tests := []struct {
		difficulty int
		want       float64
	}{
		{1, 1.0}, {2, 1.5}, {3, 2.0}, {4, 2.5}, {5, 3.0},
		{0, 1.0}, {9, 3.0}, // clamped
	}
	for _, tt := range tests {
		if got := DifficultyWeight(tt.difficulty); got != tt.want {
			t.Errorf("DifficultyWeight(%d) = %v, want %v", tt.difficulty, got, tt.want)
		}
	}
}

func TestLetterGrade(t *testing.T) {
	tests := []struct {
		percentage float64
		want       string
	}{
		{95, "5"}, {90, "5"}, {89.9, "4"}, {75, "4"}, {74.9, "3"}, {60, "3"}, {59.9, "2"}, {0, "2"},
	}
	for _, tt := range tests {
		if got := letterGrade(tt.percentage); got != tt.want {
			t.Errorf("letterGrade(%v) = %q, want %q", tt.percentage, got, tt.want)
		}
	}
}

func TestEvaluateSubmissionFailureIsolation(t *testing.T) {
	// Answer a2's question lookup fails; a1 and a3 must still be graded and
	// the submission must still complete.
	store := &stubStore{
		submission: &models.Submission{ID: "sub", Status: models.StatusEvaluating, AnswerIDs: []string{"a1", "a2", "a3"}},
		questions: map[string]*models.Question{
			"q1": {ID: "q1", Kind: models.KindFreeText, Difficulty: 1, Text: "?"},
			"q3": {ID: "q3", Kind: models.KindFreeText, Difficulty: 1, Text: "?"},
		},
		answers: map[string]*models.Answer{
			"a1": {ID: "a1", QuestionID: "q1", StudentText: "x"},
			"a2": {ID: "a2", QuestionID: "q2", StudentText: "y"},
			"a3": {ID: "a3", QuestionID: "q3", StudentText: "z"},
		},
		failQuestionID: "q2",
	}
	grader := &stubGrader{score: 80}
	svc := newTestService(store, grader)

	result, err := svc.EvaluateSubmission(context.Background(), "sub", false)
	if err != nil {
		t.Fatalf("EvaluateSubmission() error: %v", err)
	}

	if store.savedResult == nil {
		t.Fatal("submission result was not persisted")
	}
	if store.savedEvals["a1"] != 80 || store.savedEvals["a3"] != 80 {
		t.Errorf("healthy answers scored %v/%v, want 80/80", store.savedEvals["a1"], store.savedEvals["a3"])
	}
	if store.savedEvals["a2"] != 0 {
		t.Errorf("failing answer scored %v, want 0", store.savedEvals["a2"])
	}
	if len(result.Breakdown) != 3 {
		t.Errorf("breakdown rows = %d, want 3", len(result.Breakdown))
	}
}

func TestEvaluateSubmissionChoice(t *testing.T) {
	tests := []struct {
		name      string
		reference string
		given     string
		want      float64
	}{
		{"exact match", "B", "B", 100},
		{"case-insensitive match", "b", "B", 100},
		{"whitespace trimmed", "B", "  b ", 100},
		{"wrong choice", "B", "C", 0},
		{"empty reference never correct", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubStore{
				submission: &models.Submission{ID: "sub", Status: models.StatusEvaluating, AnswerIDs: []string{"a1"}},
				questions: map[string]*models.Question{
					"q1": {ID: "q1", Kind: models.KindChoice, Difficulty: 1, ReferenceChoice: tt.reference},
				},
				answers: map[string]*models.Answer{
					"a1": {ID: "a1", QuestionID: "q1", StudentText: tt.given},
				},
			}
			svc := newTestService(store, &stubGrader{})

			if _, err := svc.EvaluateSubmission(context.Background(), "sub", false); err != nil {
				t.Fatalf("EvaluateSubmission() error: %v", err)
			}
			if store.savedEvals["a1"] != tt.want {
				t.Errorf("score = %v, want %v", store.savedEvals["a1"], tt.want)
			}
		})
	}
}

func TestEvaluateSubmissionRegionFallbackToImageRegions(t *testing.T) {
	region := models.Region{Shape: "box", X: 0, Y: 0, Width: 10, Height: 10}
	store := &stubStore{
		submission: &models.Submission{ID: "sub", Status: models.StatusEvaluating, AnswerIDs: []string{"a1"}},
		questions: map[string]*models.Question{
			"q1": {
				ID: "q1", Kind: models.KindRegionAnnotation, Difficulty: 2,
				ImageRegions: []models.Region{region}, // no ReferenceRegions
			},
		},
		answers: map[string]*models.Answer{
			"a1": {ID: "a1", QuestionID: "q1", StudentRegions: []models.Region{region}},
		},
	}
	svc := newTestService(store, &stubGrader{})

	if _, err := svc.EvaluateSubmission(context.Background(), "sub", false); err != nil {
		t.Fatalf("EvaluateSubmission() error: %v", err)
	}
	if math.Abs(store.savedEvals["a1"]-100) > 1e-9 {
		t.Errorf("score = %v, want 100 via image-region fallback", store.savedEvals["a1"])
	}
}

func TestEvaluateSubmissionCompletedIsNoOp(t *testing.T) {
	existing := &models.SubmissionResult{Percentage: 88, Grade: "4"}
	store := &stubStore{
		submission: &models.Submission{ID: "sub", Status: models.StatusCompleted, Result: existing, AnswerIDs: []string{"a1"}},
	}
	grader := &stubGrader{score: 10}
	svc := newTestService(store, grader)

	result, err := svc.EvaluateSubmission(context.Background(), "sub", false)
	if err != nil {
		t.Fatalf("EvaluateSubmission() error: %v", err)
	}
	if result != existing {
		t.Error("no-op re-grade should return the existing result")
	}
	if grader.calls != 0 {
		t.Errorf("grader called %d times on a completed submission", grader.calls)
	}
	if store.savedResult != nil {
		t.Error("no-op re-grade must not overwrite the stored result")
	}
}

func TestEvaluateSubmissionForceRegrade(t *testing.T) {
	store := freeTextFixture(map[string]int{"a1": 1})
	store.submission.Status = models.StatusCompleted
	store.submission.Result = &models.SubmissionResult{Percentage: 10, Grade: "2"}
	grader := &stubGrader{score: 95}
	svc := newTestService(store, grader)

	result, err := svc.EvaluateSubmission(context.Background(), "sub", true)
	if err != nil {
		t.Fatalf("EvaluateSubmission() error: %v", err)
	}
	if grader.calls != 1 {
		t.Errorf("grader calls = %d, want 1", grader.calls)
	}
	if result.Grade != "5" {
		t.Errorf("Grade = %q, want 5 after forced re-grade", result.Grade)
	}
}

func TestEvaluateSubmissionOrchestrationErrors(t *testing.T) {
	t.Run("missing submission aborts", func(t *testing.T) {
		store := &stubStore{getSubmissionErr: errors.New("not found")}
		svc := newTestService(store, &stubGrader{})

		if _, err := svc.EvaluateSubmission(context.Background(), "sub", false); err == nil {
			t.Fatal("expected error for missing submission")
		}
		if store.savedResult != nil {
			t.Error("no result must be written on orchestration failure")
		}
	})

	t.Run("result write failure surfaces", func(t *testing.T) {
		store := freeTextFixture(map[string]int{"a1": 1})
		store.saveResultErr = errors.New("write failed")
		svc := newTestService(store, &stubGrader{score: 50})

		if _, err := svc.EvaluateSubmission(context.Background(), "sub", false); err == nil {
			t.Fatal("expected error when the result write fails")
		}
	})
}
