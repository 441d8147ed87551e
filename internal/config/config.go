package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port       string
	Env        string
	AppName    string
	AppVersion string
	LogLevel   string

	DatabaseURL string

	// Model artifact locations. LabelsPath is optional; when the file exists it
	// overrides the classifier's own class ordering.
	ModelPath  string
	LabelsPath string

	// AllowDegradedStart lets the API come up without a model artifact and serve
	// flags-only analysis. Refused in production.
	AllowDegradedStart bool

	CORSAllowedOrigins []string

	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	HealthCheckEnabled bool

	// Input bounds enforced at the HTTP boundary.
	MinTextChars int
	MaxTextChars int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		AppName:            getEnv("APP_NAME", "Serenity Risk API"),
		AppVersion:         getEnv("APP_VERSION", "1.0.0"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		ModelPath:          getEnv("MODEL_PATH", "models/text_classifier.json"),
		LabelsPath:         getEnv("LABELS_PATH", "models/labels.json"),
		AllowDegradedStart: getEnvAsBool("ALLOW_DEGRADED_START", false),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:8080"}),
		RateLimitEnabled:   getEnvAsBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests:  getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:    getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		HealthCheckEnabled: getEnvAsBool("HEALTH_CHECK_ENABLED", true),
		MinTextChars:       getEnvAsInt("MIN_TEXT_CHARS", 1),
		MaxTextChars:       getEnvAsInt("MAX_TEXT_CHARS", 4000),
	}
}

// IsProduction reports whether the service runs in the production environment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Validate checks settings that must hold before serving traffic.
func (c *Config) Validate() error {
	var errs []string

	if c.IsProduction() && c.AllowDegradedStart {
		errs = append(errs, "ALLOW_DEGRADED_START must be disabled in production")
	}
	if c.MinTextChars < 1 {
		errs = append(errs, "MIN_TEXT_CHARS must be at least 1")
	}
	if c.MaxTextChars < c.MinTextChars {
		errs = append(errs, "MAX_TEXT_CHARS must be >= MIN_TEXT_CHARS")
	}
	if c.RateLimitEnabled && (c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0) {
		errs = append(errs, "rate limit requires positive RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, ", "))
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
