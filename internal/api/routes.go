package api

import (
	"github.com/gin-gonic/gin"

	"github.com/eduforge/gradex/internal/config"
	"github.com/eduforge/gradex/internal/evaluator"
	"github.com/eduforge/gradex/internal/infra/redis"
	"github.com/eduforge/gradex/internal/repository"
)

func SetupRoutes(
	cfg *config.Config,
	examsRepo *repository.ExamsRepository,
	service *evaluator.Service,
	redisClient *redis.Client,
) *gin.Engine {
	router := gin.Default()

	handler := NewHandler(cfg, examsRepo, service, redisClient)

	rateLimiter := NewRateLimiter(cfg.RateLimitRPS, int(cfg.RateLimitRPS*2))

	router.Use(ErrorHandlerMiddleware())

	// Health endpoint (no auth)
	router.GET("/health", handler.Health)

	// API routes (with auth and rate limiting)
	api := router.Group("/api/v1")
	api.Use(JWTAuthMiddleware(cfg.JWTSecret))
	api.Use(RateLimitMiddleware(rateLimiter))
	{
		api.POST("/evaluate", handler.Evaluate)
		api.GET("/submissions/:id/status", handler.Status)
		api.GET("/submissions/:id/result", handler.Result)
	}

	return router
}
