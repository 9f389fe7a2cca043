package evaluator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/eduforge/gradex/internal/infra/redis"
	"github.com/eduforge/gradex/internal/models"
)

// UpdateStatus records the grading step for a submission so polling clients
// can follow progress without hitting the database.
func UpdateStatus(ctx context.Context, redisClient *redis.Client, submissionID string, step models.Step) error {
	validSteps := map[models.Step]bool{
		models.StepIdle:      true,
		models.StepQueued:    true,
		models.StepStarted:   true,
		models.StepGrading:   true,
		models.StepCompleted: true,
		models.StepFailed:    true,
	}
	if !validSteps[step] {
		return fmt.Errorf("unknown step: %s", step)
	}

	rkey := "grading_status:" + submissionID

	err := redisClient.Set(ctx, rkey, string(step), 12*time.Hour).Err()
	if err != nil {
		log.Error().Err(err).
			Str("step", string(step)).
			Str("submissionId", submissionID).
			Str("redisKey", rkey).
			Msg("Failed to update status in Redis")
		return fmt.Errorf("failed to update status in Redis: %w", err)
	}

	log.Trace().
		Str("step", string(step)).
		Str("submissionId", submissionID).
		Msg("Status updated in Redis")

	return nil
}
