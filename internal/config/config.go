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
	Classifier   ClassifierConfig
	Search       SearchConfig
	GenAI        GenAIConfig
	TicketStore  TicketStoreConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
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

// ClassifierConfig holds the classification policy knobs.
type ClassifierConfig struct {
	SimilarityThreshold   float64
	RunbookMatchThreshold float64
	IncidentTopK          int
	RunbookTopK           int
	DefaultSeverity       string
	RegressionSeverity    string
}

// SearchConfig points at the similarity-search service.
type SearchConfig struct {
	BaseURL        string
	APIKey         string
	IndexName      string
	TimeoutSeconds int
}

// GenAIConfig points at the OpenAI-compatible completion service.
type GenAIConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	MaxTokens      int
	TimeoutSeconds int
}

// TicketStoreConfig holds object-store connection values for tickets.
type TicketStoreConfig struct {
	Endpoint        string
	AccessKey       string
	SecretKey       string
	Bucket          string
	UseSSL          bool
	IncidentsPrefix string
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

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig holds outbound notification endpoints.
type NotificationConfig struct {
	WebhookURL            string
	WebhookTimeoutSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "incident-iq"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 60),
		},
		Classifier: ClassifierConfig{
			SimilarityThreshold:   getEnvAsFloat("SIMILARITY_THRESHOLD", 0.7),
			RunbookMatchThreshold: getEnvAsFloat("RUNBOOK_MATCH_THRESHOLD", 0.7),
			IncidentTopK:          getEnvAsInt("INCIDENT_TOP_K", 5),
			RunbookTopK:           getEnvAsInt("RUNBOOK_TOP_K", 3),
			DefaultSeverity:       getEnv("DEFAULT_SEVERITY", "MEDIUM"),
			RegressionSeverity:    getEnv("REGRESSION_SEVERITY", "HIGH"),
		},
		Search: SearchConfig{
			BaseURL:        getEnv("SEARCH_BASE_URL", "http://127.0.0.1:9200"),
			APIKey:         os.Getenv("SEARCH_API_KEY"),
			IndexName:      getEnv("SEARCH_INDEX_NAME", "incident-responder"),
			TimeoutSeconds: getEnvAsInt("SEARCH_TIMEOUT_SECONDS", 15),
		},
		GenAI: GenAIConfig{
			BaseURL:        getEnv("GENAI_BASE_URL", "https://api.openai.com"),
			APIKey:         os.Getenv("GENAI_API_KEY"),
			Model:          getEnv("GENAI_MODEL", "gpt-4o-mini"),
			MaxTokens:      getEnvAsInt("GENAI_MAX_TOKENS", 500),
			TimeoutSeconds: getEnvAsInt("GENAI_TIMEOUT_SECONDS", 30),
		},
		TicketStore: TicketStoreConfig{
			Endpoint:        getEnv("TICKETSTORE_ENDPOINT", "127.0.0.1:9000"),
			AccessKey:       os.Getenv("TICKETSTORE_ACCESS_KEY"),
			SecretKey:       os.Getenv("TICKETSTORE_SECRET_KEY"),
			Bucket:          getEnv("TICKETSTORE_BUCKET", "incident-responder-poc"),
			UseSSL:          getEnvAsBool("TICKETSTORE_USE_SSL", false),
			IncidentsPrefix: getEnv("TICKETSTORE_INCIDENTS_PREFIX", "incidents/"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			WebhookURL:            getEnv("NOTIFY_WEBHOOK_URL", ""),
			WebhookTimeoutSeconds: getEnvAsInt("NOTIFY_WEBHOOK_TIMEOUT_SECONDS", 10),
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

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
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
