package config

import (
	"fmt"
	"time"

	"github.com/eduforge/gradex/internal/configs/env"
)

// Config holds all configuration for the application
type Config struct {
	// MongoDB
	MongoURI    string
	MongoDBName string

	// Redis
	RedisHost               string
	RedisPassword           string
	RedisStreamKey          string
	RedisConsumerGroup      string
	RedisDeadLetterKey      string
	StreamRetentionDuration time.Duration

	// LLM providers
	LLMStrategy        string // local | cloud | hybrid
	LLMFallbackEnabled bool
	LLMTimeout         time.Duration
	CloudAPIKey        string
	CloudBaseURL       string
	CloudModel         string
	LocalAPIKey        string
	LocalBaseURL       string
	LocalModel         string
	PromptTemplate     string

	// Plagiarism web search
	SearchBaseURL string
	SearchAPIKey  string
	SearchCX      string
	SearchTimeout time.Duration

	// Anti-cheat
	CountDanglingAway bool

	// Region scoring
	RegionIoUWeight            float64
	RegionRecallWeight         float64
	RegionPrecisionWeight      float64
	RegionIoUThreshold         float64
	RegionInclusionThreshold   float64
	RegionMinCoverageThreshold float64
	RegionLoyaltyFactor        float64

	// JWT
	JWTSecret string
	JWTIssuer string

	// Rate Limiting
	RateLimitRPS float64

	// Concurrency
	MaxConcurrentGrading int
	GradingTimeout       time.Duration

	// Logging
	LogLevel string

	// Server
	ServerPort string
}

func Load() (*Config, error) {
	cfg := &Config{}

	// MongoDB
	cfg.MongoURI = env.GetEnv("MONGO_URI", "")
	cfg.MongoDBName = env.GetEnv("MONGO_DB_NAME", "")

	// Redis
	cfg.RedisHost = env.GetEnv("REDIS_HOST", "localhost:6379")
	cfg.RedisPassword = env.GetEnv("REDIS_PASSWORD", "")
	cfg.RedisStreamKey = env.GetEnv("REDIS_STREAM_KEY", "grading:stream")
	cfg.RedisConsumerGroup = env.GetEnv("REDIS_CONSUMER_GROUP", "grading:group")
	cfg.RedisDeadLetterKey = env.GetEnv("REDIS_DEAD_LETTER_KEY", "grading:dlq")
	retentionHours := env.GetEnvInt("STREAM_RETENTION_DURATION", 24)
	cfg.StreamRetentionDuration = time.Duration(retentionHours) * time.Hour

	// LLM providers
	cfg.LLMStrategy = env.GetEnv("LLM_STRATEGY", "hybrid")
	cfg.LLMFallbackEnabled = env.GetEnvBool("LLM_FALLBACK_ENABLED", true)
	cfg.LLMTimeout = env.GetEnvDuration("LLM_TIMEOUT", 60*time.Second)
	cfg.CloudAPIKey = env.GetEnv("CLOUD_LLM_API_KEY", "")
	cfg.CloudBaseURL = env.GetEnv("CLOUD_LLM_BASE_URL", "")
	cfg.CloudModel = env.GetEnv("CLOUD_LLM_MODEL", "gpt-4o-mini")
	cfg.LocalAPIKey = env.GetEnv("LOCAL_LLM_API_KEY", "ollama")
	cfg.LocalBaseURL = env.GetEnv("LOCAL_LLM_BASE_URL", "http://localhost:11434/v1")
	cfg.LocalModel = env.GetEnv("LOCAL_LLM_MODEL", "llama3.1")
	cfg.PromptTemplate = env.GetEnv("LLM_PROMPT_TEMPLATE", "")

	// Plagiarism web search
	cfg.SearchBaseURL = env.GetEnv("SEARCH_BASE_URL", "https://www.googleapis.com/customsearch/v1")
	cfg.SearchAPIKey = env.GetEnv("SEARCH_API_KEY", "")
	cfg.SearchCX = env.GetEnv("SEARCH_ENGINE_ID", "")
	cfg.SearchTimeout = env.GetEnvDuration("SEARCH_TIMEOUT", 10*time.Second)

	// Anti-cheat
	cfg.CountDanglingAway = env.GetEnvBool("ANTICHEAT_COUNT_DANGLING_AWAY", false)

	// Region scoring
	cfg.RegionIoUWeight = env.GetEnvFloat("REGION_IOU_WEIGHT", 0.5)
	cfg.RegionRecallWeight = env.GetEnvFloat("REGION_RECALL_WEIGHT", 0.3)
	cfg.RegionPrecisionWeight = env.GetEnvFloat("REGION_PRECISION_WEIGHT", 0.2)
	cfg.RegionIoUThreshold = env.GetEnvFloat("REGION_IOU_THRESHOLD", 0.5)
	cfg.RegionInclusionThreshold = env.GetEnvFloat("REGION_INCLUSION_THRESHOLD", 0.8)
	cfg.RegionMinCoverageThreshold = env.GetEnvFloat("REGION_MIN_COVERAGE_THRESHOLD", 0.05)
	cfg.RegionLoyaltyFactor = env.GetEnvFloat("REGION_LOYALTY_FACTOR", 2.0)

	// JWT
	cfg.JWTSecret = env.GetEnv("JWT_SECRET", "")
	cfg.JWTIssuer = env.GetEnv("JWT_ISSUER", "gradex")

	// Rate Limiting
	cfg.RateLimitRPS = env.GetEnvFloat("RATE_LIMIT_RPS", 10.0)

	// Concurrency
	cfg.MaxConcurrentGrading = env.GetEnvInt("MAX_CONCURRENT_GRADING", 5)
	timeoutMinutes := env.GetEnvInt("GRADING_TIMEOUT_MINUTES", 30)
	cfg.GradingTimeout = time.Duration(timeoutMinutes) * time.Minute

	// Logging
	cfg.LogLevel = env.GetEnv("LOG_LEVEL", "info")

	// Server
	cfg.ServerPort = env.GetEnv("SERVER_PORT", "8080")

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.MongoDBName == "" {
		return fmt.Errorf("MONGO_DB_NAME is required")
	}
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.LLMStrategy {
	case "local", "cloud", "hybrid":
	default:
		return fmt.Errorf("LLM_STRATEGY must be one of local, cloud, hybrid")
	}
	if c.MaxConcurrentGrading <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_GRADING must be greater than 0")
	}
	if c.StreamRetentionDuration <= 0 {
		return fmt.Errorf("STREAM_RETENTION_DURATION must be greater than 0")
	}
	weightSum := c.RegionIoUWeight + c.RegionRecallWeight + c.RegionPrecisionWeight
	if weightSum < 0.999 || weightSum > 1.001 {
		return fmt.Errorf("region scoring weights must sum to 1, got %.3f", weightSum)
	}
	if c.RegionLoyaltyFactor <= 0 {
		return fmt.Errorf("REGION_LOYALTY_FACTOR must be greater than 0")
	}
	return nil
}
