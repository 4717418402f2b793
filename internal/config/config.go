package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string
	LogFile  string

	DefaultLanguage     string
	KnowledgeBaseSource string

	ResponderProvider         string
	ResponderFallbackProvider string
	ResponderURL              string
	ResponderTimeout          time.Duration
	ResponderHistoryTurns     int
	ResponderMaxTokens        int
	BedrockModelID            string
	GeminiAPIKey              string
	GeminiModelID             string
	OpenAIAPIKey              string
	OpenAIModel               string
	OpenAIBaseURL             string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	TranscriptTTL time.Duration

	DatabaseURL string

	LeadEmailRecipients []string
	LeadDeliveryTimeout time.Duration
	SendGridAPIKey      string
	SendGridFromEmail   string
	SendGridFromName    string
	SESFromEmail        string
	SESFromName         string
	LeadQueueURL        string

	AdminJWTSecret     string
	AdminJWTIssuer     string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	SessionIdleTimeout time.Duration
}

// Load reads configuration from the environment, after loading a .env file
// when one is present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		DefaultLanguage:     strings.ToLower(getEnv("DEFAULT_LANGUAGE", "it")),
		KnowledgeBaseSource: getEnv("KNOWLEDGE_BASE_SOURCE", ""),

		ResponderProvider:         strings.ToLower(strings.TrimSpace(getEnv("RESPONDER_PROVIDER", "none"))),
		ResponderFallbackProvider: strings.ToLower(strings.TrimSpace(getEnv("RESPONDER_FALLBACK_PROVIDER", "none"))),
		ResponderURL:              getEnv("RESPONDER_URL", ""),
		ResponderTimeout:          getEnvAsDuration("RESPONDER_TIMEOUT", 8*time.Second),
		ResponderHistoryTurns:     getEnvAsInt("RESPONDER_HISTORY_TURNS", 10),
		ResponderMaxTokens:        getEnvAsInt("RESPONDER_MAX_TOKENS", 400),
		BedrockModelID:            getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:              getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:             getEnv("GEMINI_MODEL_ID", "gemini-1.5-flash"),
		OpenAIAPIKey:              getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:               getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:             getEnv("OPENAI_BASE_URL", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		TranscriptTTL: getEnvAsDuration("TRANSCRIPT_TTL", 24*time.Hour),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		LeadEmailRecipients: getEnvAsList("LEAD_EMAIL_RECIPIENTS"),
		LeadDeliveryTimeout: getEnvAsDuration("LEAD_DELIVERY_TIMEOUT", 30*time.Second),
		SendGridAPIKey:      getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail:   getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:    getEnv("SENDGRID_FROM_NAME", ""),
		SESFromEmail:        getEnv("SES_FROM_EMAIL", ""),
		SESFromName:         getEnv("SES_FROM_NAME", ""),
		LeadQueueURL:        getEnv("LEAD_QUEUE_URL", ""),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		AdminJWTIssuer:     getEnv("ADMIN_JWT_ISSUER", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),
		SessionIdleTimeout: getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
	}
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

// getEnvAsList splits a comma-separated variable, dropping blank entries.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
