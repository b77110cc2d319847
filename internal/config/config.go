package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Gmail        GmailConfig
	Smtp         SmtpConfig
	Gemini       GeminiConfig
	Agent        AgentConfig
	Push         PushConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// GmailConfig describes the watched mailbox and API credentials.
type GmailConfig struct {
	// WatchAddress is the inbox the Pub/Sub watch is registered on. It is
	// also the tenant key when an inbound message carries no To header.
	WatchAddress string
	// OutboundAddress is the address replies are sent from; inbound mail
	// from this address is the service talking to itself and is dropped.
	OutboundAddress string
	TokenFile       string
	APIBaseURL      string
}

// SmtpConfig holds outbound mail delivery values. An empty password puts
// the sender in mock mode where replies are logged instead of dialed out.
type SmtpConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// GeminiConfig configures the reasoning capability client.
type GeminiConfig struct {
	APIKey    string
	Model     string
	MaxTokens int32
}

// AgentConfig bounds the reasoning loop.
type AgentConfig struct {
	MaxToolRounds int
}

// PushConfig configures webhook push authentication. An empty secret
// disables verification for local development.
type PushConfig struct {
	TokenSecret string
	Audience    string
}

// NotificationConfig configures notification sinks for domain events.
type NotificationConfig struct {
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-agent"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Gmail: GmailConfig{
			WatchAddress:    getEnv("GMAIL_WATCH_ADDRESS", "support@example.com"),
			OutboundAddress: getEnv("GMAIL_OUTBOUND_ADDRESS", "support@example.com"),
			TokenFile:       getEnv("GMAIL_TOKEN_FILE", "token.json"),
			APIBaseURL:      getEnv("GMAIL_API_BASE_URL", "https://gmail.googleapis.com/gmail/v1"),
		},
		Smtp: SmtpConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
		},
		Gemini: GeminiConfig{
			APIKey:    os.Getenv("GEMINI_API_KEY"),
			Model:     getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			MaxTokens: int32(getEnvAsInt("GEMINI_MAX_OUTPUT_TOKENS", 1024)),
		},
		Agent: AgentConfig{
			MaxToolRounds: getEnvAsInt("AGENT_MAX_TOOL_ROUNDS", 10),
		},
		Push: PushConfig{
			TokenSecret: os.Getenv("PUSH_TOKEN_SECRET"),
			Audience:    getEnv("PUSH_TOKEN_AUDIENCE", "support-agent"),
		},
		Notification: NotificationConfig{
			WebhookURL: os.Getenv("NOTIFICATION_WEBHOOK_URL"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
