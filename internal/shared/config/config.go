package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"reflection-backend/internal/retry"
	"reflection-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	CORSAllowOrigin []string
	DatabaseURL     string
	RedisURL        string
	JWTSecret       string

	LLMProvider        string
	LLMModel           string
	OpenAIBaseURL      string
	LLMTimeout         time.Duration
	RetryMaxAttempts   int
	RetryBaseDelay     time.Duration
	RetryMultiplier    float64
	RetryJitter        time.Duration
	StructuredFallback bool

	DailyGenerationLimit int
	RateLimitPerMinute   int

	ArchiveStore  string
	LocalStoreDir string
	AWSRegion     string
	S3Bucket      string
	S3Prefix      string
	SSEKMSKeyID   string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")
	if env == "production" && dbURL == "" {
		telemetry.Warn("config.database_url_missing", map[string]any{"env": env})
	}

	defaults := retry.DefaultPolicy()
	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:     dbURL,
		RedisURL:        getEnv("REDIS_URL", ""),
		JWTSecret:       getEnv("JWT_SECRET", ""),

		LLMProvider:        normalizeProvider(getEnv("LLM_PROVIDER", "openai")),
		LLMModel:           getEnv("LLM_MODEL", ""),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),
		LLMTimeout:         time.Duration(getInt("OPENAI_TIMEOUT_SECONDS", 120)) * time.Second,
		RetryMaxAttempts:   getInt("LLM_RETRY_MAX_ATTEMPTS", defaults.MaxAttempts),
		RetryBaseDelay:     getMillis("LLM_RETRY_BASE_DELAY_MS", defaults.BaseDelay),
		RetryMultiplier:    getFloat("LLM_RETRY_MULTIPLIER", defaults.Multiplier),
		RetryJitter:        getMillis("LLM_RETRY_JITTER_MS", defaults.Jitter),
		StructuredFallback: getBool("STRUCTURED_REFLECTION_FALLBACK", false),

		DailyGenerationLimit: getInt("GENERATION_DAILY_LIMIT", 20),
		RateLimitPerMinute:   getInt("RATE_LIMIT_PER_MINUTE", 30),

		ArchiveStore:  normalizeStoreType(getEnv("ARCHIVE_STORE", "none")),
		LocalStoreDir: getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:     getEnv("AWS_REGION", ""),
		S3Bucket:      getEnv("S3_BUCKET", ""),
		S3Prefix:      getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:   getEnv("SSE_KMS_KEY_ID", ""),
	}
}

// IsProduction reports whether the process runs with ENV=production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// RetryPolicy returns the configured policy, or the default when the
// overrides do not form a valid policy.
func (c Config) RetryPolicy() retry.Policy {
	p := retry.Policy{
		MaxAttempts: c.RetryMaxAttempts,
		BaseDelay:   c.RetryBaseDelay,
		Multiplier:  c.RetryMultiplier,
		Jitter:      c.RetryJitter,
	}
	if err := p.Validate(); err != nil {
		telemetry.Warn("config.retry_policy_invalid", map[string]any{"error": err})
		return retry.DefaultPolicy()
	}
	return p
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		telemetry.Warn("config.invalid_int", map[string]any{"key": key, "value": raw})
		return def
	}
	return v
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		telemetry.Warn("config.invalid_float", map[string]any{"key": key, "value": raw})
		return def
	}
	return v
}

func getMillis(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		telemetry.Warn("config.invalid_millis", map[string]any{"key": key, "value": raw})
		return def
	}
	return time.Duration(v) * time.Millisecond
}

func getBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "gemini", "google":
		return "gemini"
	default:
		return "openai"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "local":
		return "local"
	default:
		return "none"
	}
}
