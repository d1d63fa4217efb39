package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all process configuration for the pricer
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Redis (pricing result cache)
	Redis RedisConfig

	// API
	API APIConfig

	// Pricing settings file (YAML)
	PricingConfigPath string

	// Scheduler
	RepriceSchedule string // cron expression with seconds, empty disables the job

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   LogFileConfig

	// Circuit breaker around the result cache
	Breaker BreakerConfig
}

// LogFileConfig enables a rotated JSON log file next to stdout
type LogFileConfig struct {
	Path       string // empty disables file logging
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// BreakerConfig holds circuit breaker tuning values
type BreakerConfig struct {
	Enabled      bool
	MaxRequests  uint32        // probes allowed while half-open
	Interval     time.Duration // closed-state count reset period
	Timeout      time.Duration // open-state duration
	MinRequests  uint32
	FailureRatio float64
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	TTL      time.Duration
}

// APIConfig holds HTTP API tuning values
type APIConfig struct {
	RateLimit    float64 // requests per second
	RateBurst    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// DQN training runs per client (needs Redis)
	TrainLimit  int
	TrainWindow time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			TTL:      getEnvAsDuration("REDIS_TTL", "10m"),
		},

		API: APIConfig{
			RateLimit:    getEnvAsFloat("API_RATE_LIMIT", 20),
			RateBurst:    getEnvAsInt("API_RATE_BURST", 40),
			ReadTimeout:  getEnvAsDuration("API_READ_TIMEOUT", "15s"),
			WriteTimeout: getEnvAsDuration("API_WRITE_TIMEOUT", "120s"),
			TrainLimit:   getEnvAsInt("TRAIN_RATE_LIMIT", 5),
			TrainWindow:  getEnvAsDuration("TRAIN_RATE_WINDOW", "1m"),
		},

		PricingConfigPath: getEnv("PRICING_CONFIG", ""),
		RepriceSchedule:   getEnv("REPRICE_SCHEDULE", "0 */15 * * * *"),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogFile: LogFileConfig{
			Path:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvAsInt("LOG_FILE_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_FILE_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvAsInt("LOG_FILE_MAX_AGE_DAYS", 30),
			Compress:   getEnvAsBool("LOG_FILE_COMPRESS", true),
		},

		Breaker: BreakerConfig{
			Enabled:      getEnvAsBool("BREAKER_ENABLED", true),
			MaxRequests:  uint32(getEnvAsInt("BREAKER_MAX_REQUESTS", 1)),
			Interval:     getEnvAsDuration("BREAKER_INTERVAL", "60s"),
			Timeout:      getEnvAsDuration("BREAKER_TIMEOUT", "30s"),
			MinRequests:  uint32(getEnvAsInt("BREAKER_MIN_REQUESTS", 5)),
			FailureRatio: getEnvAsFloat("BREAKER_FAILURE_RATIO", 0.5),
		},
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.API.RateLimit <= 0 {
		return fmt.Errorf("API_RATE_LIMIT must be positive")
	}
	if c.API.RateBurst < 1 {
		return fmt.Errorf("API_RATE_BURST must be at least 1")
	}

	if c.LogFile.Path != "" && c.LogFile.MaxSizeMB < 1 {
		return fmt.Errorf("LOG_FILE_MAX_SIZE_MB must be at least 1")
	}

	if c.Breaker.Enabled && (c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1) {
		return fmt.Errorf("BREAKER_FAILURE_RATIO must be in (0, 1]")
	}

	if c.API.TrainLimit < 1 {
		return fmt.Errorf("TRAIN_RATE_LIMIT must be at least 1")
	}

	if c.PricingConfigPath != "" {
		if _, err := os.Stat(c.PricingConfigPath); err != nil {
			return fmt.Errorf("PRICING_CONFIG %q: %w", c.PricingConfigPath, err)
		}
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
