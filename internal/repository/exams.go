package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/eduforge/gradex/internal/models"
)

const (
	questionsCollection   = "questions"
	answersCollection     = "answers"
	submissionsCollection = "submissions"
)

var ErrNotFound = fmt.Errorf("record not found")

// ExamsRepository reads exam definitions and submissions and writes back
// grading results.
type ExamsRepository struct {
	mongoRepo *MongoRepository
}

func NewExamsRepository(mongoRepo *MongoRepository) *ExamsRepository {
	return &ExamsRepository{
		mongoRepo: mongoRepo,
	}
}

func (r *ExamsRepository) GetSubmission(ctx context.Context, submissionID string) (*models.Submission, error) {
	var submission models.Submission
	err := r.mongoRepo.FindOne(ctx, submissionsCollection, bson.M{"_id": submissionID}).Decode(&submission)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("submission %s: %w", submissionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find submission: %w", err)
	}
	return &submission, nil
}

func (r *ExamsRepository) GetQuestion(ctx context.Context, questionID string) (*models.Question, error) {
	var question models.Question
	err := r.mongoRepo.FindOne(ctx, questionsCollection, bson.M{"_id": questionID}).Decode(&question)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("question %s: %w", questionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find question: %w", err)
	}
	return &question, nil
}

// GetAnswersBySubmission returns all answers of a submission keyed by id;
// callers restore exam order from Submission.AnswerIDs.
func (r *ExamsRepository) GetAnswersBySubmission(ctx context.Context, submissionID string) (map[string]*models.Answer, error) {
	cursor, err := r.mongoRepo.FindMany(ctx, answersCollection, bson.M{"submissionId": submissionID})
	if err != nil {
		return nil, fmt.Errorf("failed to find answers: %w", err)
	}
	defer cursor.Close(ctx)

	var answers []*models.Answer
	if err := cursor.All(ctx, &answers); err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}

	byID := make(map[string]*models.Answer, len(answers))
	for _, a := range answers {
		byID[a.ID] = a
	}
	return byID, nil
}

// SaveAnswerEvaluation writes the terminal grading blob and score for one answer
func (r *ExamsRepository) SaveAnswerEvaluation(ctx context.Context, answerID string, evaluation map[string]interface{}, score float64) error {
	now := time.Now()
	update := bson.M{"$set": bson.M{
		"evaluation": evaluation,
		"score":      score,
		"gradedAt":   now,
	}}
	if _, err := r.mongoRepo.UpdateOne(ctx, answersCollection, bson.M{"_id": answerID}, update); err != nil {
		return fmt.Errorf("failed to save answer evaluation: %w", err)
	}
	return nil
}

func (r *ExamsRepository) UpdateSubmissionStatus(ctx context.Context, submissionID string, status models.SubmissionStatus) error {
	update := bson.M{"$set": bson.M{"status": status}}
	if _, err := r.mongoRepo.UpdateOne(ctx, submissionsCollection, bson.M{"_id": submissionID}, update); err != nil {
		return fmt.Errorf("failed to update submission status: %w", err)
	}
	return nil
}

// SaveSubmissionResult persists the aggregate and marks the submission Completed
func (r *ExamsRepository) SaveSubmissionResult(ctx context.Context, submissionID string, result *models.SubmissionResult) error {
	now := time.Now()
	update := bson.M{"$set": bson.M{
		"result":   result,
		"status":   models.StatusCompleted,
		"gradedAt": now,
	}}
	if _, err := r.mongoRepo.UpdateOne(ctx, submissionsCollection, bson.M{"_id": submissionID}, update); err != nil {
		return fmt.Errorf("failed to save submission result: %w", err)
	}
	return nil
}
