package evaluator

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/eduforge/gradex/internal/infra/redis"
	"github.com/eduforge/gradex/internal/models"
)

// GradingJob grades one submission on the worker pool
type GradingJob struct {
	SubmissionID string
	Force        bool
	Service      *Service
	RedisClient  *redis.Client
}

// Execute runs the grading pass and mirrors progress into Redis. Grading
// failures are reported through the status key; the error return is reserved
// for the pool's logging.
func (j *GradingJob) Execute(ctx context.Context) error {
	if err := UpdateStatus(ctx, j.RedisClient, j.SubmissionID, models.StepGrading); err != nil {
		log.Warn().Err(err).Str("submissionId", j.SubmissionID).Msg("Failed to update grading status")
	}

	if _, err := j.Service.EvaluateSubmission(ctx, j.SubmissionID, j.Force); err != nil {
		if statusErr := UpdateStatus(ctx, j.RedisClient, j.SubmissionID, models.StepFailed); statusErr != nil {
			log.Warn().Err(statusErr).Str("submissionId", j.SubmissionID).Msg("Failed to update failed status")
		}
		return err
	}

	if err := UpdateStatus(ctx, j.RedisClient, j.SubmissionID, models.StepCompleted); err != nil {
		log.Warn().Err(err).Str("submissionId", j.SubmissionID).Msg("Failed to update completed status")
	}
	return nil
}
