package stream

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	maxEnqueueAttempts = 3
	baseBackoff        = 500 * time.Millisecond
)

// RetryHandler retries transient dispatch failures and dead-letters
// messages that cannot be handed to the grading pool. Grading itself is
// never retried here; a grading pass runs at most once per trigger.
type RetryHandler struct {
	client        *redis.Client
	deadLetterKey string
}

func NewRetryHandler(client *redis.Client, deadLetterKey string) *RetryHandler {
	return &RetryHandler{
		client:        client,
		deadLetterKey: deadLetterKey,
	}
}

// RetryWithBackoff runs fn up to maxEnqueueAttempts times with linear
// backoff; on exhaustion the message is moved to the dead-letter stream.
func (r *RetryHandler) RetryWithBackoff(ctx context.Context, fn func() error, messageID string, fields map[string]interface{}) error {
	var lastErr error
	for attempt := 1; attempt <= maxEnqueueAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		log.Warn().
			Err(lastErr).
			Str("message_id", messageID).
			Int("attempt", attempt).
			Msg("Dispatch attempt failed")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * baseBackoff):
		}
	}

	r.SendToDeadLetter(ctx, messageID, fields, lastErr.Error())
	return lastErr
}

// SendToDeadLetter parks an unprocessable message for operator inspection
func (r *RetryHandler) SendToDeadLetter(ctx context.Context, messageID string, fields map[string]interface{}, reason string) {
	values := map[string]interface{}{
		"original_id": messageID,
		"reason":      reason,
		"failed_at":   time.Now().Format(time.RFC3339),
	}
	for k, v := range fields {
		values[k] = v
	}

	if err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.deadLetterKey,
		Values: values,
	}).Err(); err != nil {
		log.Error().Err(err).
			Str("message_id", messageID).
			Msg("Failed to write message to dead-letter stream")
		return
	}

	log.Info().
		Str("message_id", messageID).
		Str("reason", reason).
		Msg("Message moved to dead-letter stream")
}
