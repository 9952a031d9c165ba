// Package config provides environment configuration for the assistant.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// WhatsApp (Evolution API) settings
	EvolutionAPIURL      string
	EvolutionAPIKey      string
	EvolutionInstance    string
	WebhookSecret        string
	MessagingHTTPTimeout time.Duration

	// NATS settings
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings (admin API)
	JWTSecret     string
	JWTExpiration time.Duration

	// Knowledge base settings
	OpenAIAPIKey    string
	AnthropicAPIKey string
	KBProvider      string
	KBModel         string
	KBTimeout       time.Duration
	KBCacheSize     int

	// SMTP settings
	SMTPServer   string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string

	// Calendar settings
	CalendarAPIURL string
	CalendarID     string
	CalendarToken  string

	// Structured store (PostgREST) settings
	StoreURL    string
	StoreAPIKey string

	// Session settings
	SessionTimeout       time.Duration
	MaxConversationTurns int
	SessionSweepInterval time.Duration

	// Turn processing
	TurnTimeout      time.Duration
	MaxMessageLength int

	// Audio transcription
	MaxAudioSizeMB int

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// WhatsApp
		EvolutionAPIURL:      getEnv("EVOLUTION_API_URL", ""),
		EvolutionAPIKey:      getEnv("EVOLUTION_API_KEY", ""),
		EvolutionInstance:    getEnv("EVOLUTION_INSTANCE_NAME", ""),
		WebhookSecret:        getEnv("WEBHOOK_SECRET", ""),
		MessagingHTTPTimeout: getDurationEnv("MESSAGING_HTTP_TIMEOUT", 10*time.Second),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// JWT
		JWTSecret:     getEnv("JWT_SECRET", "development-secret-change-in-production"),
		JWTExpiration: getDurationEnv("JWT_EXPIRATION", 15*time.Minute),

		// Knowledge base
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		KBProvider:      getEnv("KB_PROVIDER", "openai"),
		KBModel:         getEnv("KB_MODEL", ""),
		KBTimeout:       getDurationEnv("KB_TIMEOUT", 30*time.Second),
		KBCacheSize:     getIntEnv("KB_CACHE_SIZE", 128),

		// SMTP
		SMTPServer:   getEnv("SMTP_SERVER", ""),
		SMTPPort:     getIntEnv("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		// Calendar
		CalendarAPIURL: getEnv("CALENDAR_API_URL", ""),
		CalendarID:     getEnv("CALENDAR_ID", "primary"),
		CalendarToken:  getEnv("CALENDAR_TOKEN", ""),

		// Structured store
		StoreURL:    getEnv("SUPABASE_URL", ""),
		StoreAPIKey: getEnv("SUPABASE_KEY", ""),

		// Sessions
		SessionTimeout:       getDurationEnv("SESSION_TIMEOUT", 30*time.Minute),
		MaxConversationTurns: getIntEnv("MAX_CONVERSATION_HISTORY", 10),
		SessionSweepInterval: getDurationEnv("SESSION_SWEEP_INTERVAL", 5*time.Minute),

		// Turn processing
		TurnTimeout:      getDurationEnv("TURN_TIMEOUT", 60*time.Second),
		MaxMessageLength: getIntEnv("MAX_MESSAGE_LENGTH", 4000),

		// Audio
		MaxAudioSizeMB: getIntEnv("MAX_AUDIO_SIZE_MB", 25),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
