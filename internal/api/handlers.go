package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/eduforge/gradex/internal/config"
	"github.com/eduforge/gradex/internal/evaluator"
	"github.com/eduforge/gradex/internal/infra/redis"
	"github.com/eduforge/gradex/internal/models"
	"github.com/eduforge/gradex/internal/repository"
)

// Handler holds dependencies for handlers
type Handler struct {
	cfg            *config.Config
	examsRepo      *repository.ExamsRepository
	service        *evaluator.Service
	redisClient    *redis.Client
	gradingSem     chan struct{} // Semaphore for bounded concurrency
	gradingTimeout time.Duration
}

// NewHandler creates a new handler
func NewHandler(
	cfg *config.Config,
	examsRepo *repository.ExamsRepository,
	service *evaluator.Service,
	redisClient *redis.Client,
) *Handler {
	sem := make(chan struct{}, cfg.MaxConcurrentGrading)

	return &Handler{
		cfg:            cfg,
		examsRepo:      examsRepo,
		service:        service,
		redisClient:    redisClient,
		gradingSem:     sem,
		gradingTimeout: cfg.GradingTimeout,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

// Evaluate accepts a grading request, queues the submission and returns 202.
// Grading itself runs asynchronously; clients poll the status endpoint.
func (h *Handler) Evaluate(c *gin.Context) {
	var req models.GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	ctx := c.Request.Context()
	submission, err := h.examsRepo.GetSubmission(ctx, req.SubmissionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error: "Submission not found",
				Code:  "SUBMISSION_NOT_FOUND",
			})
			return
		}
		log.Error().Err(err).Str("submissionId", req.SubmissionID).Msg("Failed to load submission")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to load submission",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	// A completed submission is not re-graded unless the caller forces it
	if submission.Status == models.StatusCompleted && !req.Force {
		if err := evaluator.UpdateStatus(ctx, h.redisClient, req.SubmissionID, models.StepCompleted); err != nil {
			log.Warn().Err(err).Str("submissionId", req.SubmissionID).Msg("Failed to update completed status")
		}
		c.JSON(http.StatusOK, models.GradeResponse{
			Step:         models.StepCompleted,
			SubmissionID: req.SubmissionID,
		})
		return
	}

	// Acquire semaphore (bounded concurrency)
	select {
	case h.gradingSem <- struct{}{}:
	case <-ctx.Done():
		c.JSON(http.StatusRequestTimeout, models.ErrorResponse{
			Error: "Request cancelled",
			Code:  "REQUEST_TIMEOUT",
		})
		return
	}

	if err := evaluator.UpdateStatus(ctx, h.redisClient, req.SubmissionID, models.StepQueued); err != nil {
		log.Warn().Err(err).Str("submissionId", req.SubmissionID).Msg("Failed to update queued status")
	}

	// Return 202 Accepted immediately
	c.JSON(http.StatusAccepted, models.GradeResponse{
		Step:         models.StepQueued,
		SubmissionID: req.SubmissionID,
	})

	go h.processGrading(req.SubmissionID, req.Force)
}

// processGrading runs the grading pass asynchronously
func (h *Handler) processGrading(submissionID string, force bool) {
	defer func() { <-h.gradingSem }() // Release semaphore

	ctx, cancel := context.WithTimeout(context.Background(), h.gradingTimeout)
	defer cancel()

	job := &evaluator.GradingJob{
		SubmissionID: submissionID,
		Force:        force,
		Service:      h.service,
		RedisClient:  h.redisClient,
	}
	if err := job.Execute(ctx); err != nil {
		log.Error().Err(err).Str("submissionId", submissionID).Msg("Grading failed")
		return
	}

	log.Debug().Str("submissionId", submissionID).Msg("Grading completed successfully")
}

// Status reports the current grading step for a submission
func (h *Handler) Status(c *gin.Context) {
	submissionID := c.Param("id")
	if submissionID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "submission id is required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	ctx := c.Request.Context()
	step, err := h.redisClient.Get(ctx, "grading_status:"+submissionID).Result()
	if err != nil {
		// Missing key means grading was never queued or the key expired
		c.JSON(http.StatusOK, models.GradeResponse{
			Step:         models.StepIdle,
			SubmissionID: submissionID,
		})
		return
	}

	c.JSON(http.StatusOK, models.GradeResponse{
		Step:         models.Step(step),
		SubmissionID: submissionID,
	})
}

// Result returns the stored grading result for a submission
func (h *Handler) Result(c *gin.Context) {
	submissionID := c.Param("id")

	ctx := c.Request.Context()
	submission, err := h.examsRepo.GetSubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error: "Submission not found",
				Code:  "SUBMISSION_NOT_FOUND",
			})
			return
		}
		log.Error().Err(err).Str("submissionId", submissionID).Msg("Failed to load submission")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to load submission",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	if submission.Result == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: "Submission has not been graded yet",
			Code:  "RESULT_NOT_READY",
		})
		return
	}

	c.JSON(http.StatusOK, submission.Result)
}
