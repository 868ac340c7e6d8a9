package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string
	LogLevel       string
	JWTSecret      string
	// InternalAudience is the token audience required on the event ingest
	// endpoint.
	InternalAudience string

	DBDriver    string // "postgres" or "sqlite"
	DatabaseURL string
	SQLitePath  string
	// NotificationStore keeps notifications in the database ("gorm") or in
	// process memory ("memory").
	NotificationStore string

	RedisURL string

	// EventSource selects where domain events are consumed from: "redis" or "kafka".
	EventSource   string
	EventQueueKey string
	EventWorkers  int
	// EventDedupTTL is how long handled event ids are remembered in redis.
	// Zero disables deduplication.
	EventDedupTTL time.Duration
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaGroupID  string

	// PushDriver selects the live delivery transport: "redis" or "hub".
	PushDriver  string
	PushTimeout time.Duration

	BoardLookup     string // "database" or "meilisearch"
	MeiliSearchHost string
	MeiliMasterKey  string
	// BoardSyncSchedule is the cron expression for copying boards into meilisearch.
	// Empty disables the job.
	BoardSyncSchedule string

	DefaultLocale string
	PageLimit     int
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		JWTSecret:      os.Getenv("JWT_SECRET"),

		InternalAudience: getEnv("INTERNAL_AUDIENCE", "boardpush-internal"),

		DBDriver:          getEnv("DB_DRIVER", "postgres"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		SQLitePath:        getEnv("SQLITE_PATH", "file:boardpush.db?_pragma=busy_timeout(5000)"),
		NotificationStore: getEnv("NOTIFICATION_STORE", "gorm"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		EventSource:   getEnv("EVENT_SOURCE", "redis"),
		EventQueueKey: getEnv("EVENT_QUEUE_KEY", "domain_events"),
		KafkaBrokers:  splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "board.events"),
		KafkaGroupID:  getEnv("KAFKA_GROUP_ID", "push-dispatcher"),

		PushDriver: getEnv("PUSH_DRIVER", "redis"),

		BoardLookup:     getEnv("BOARD_LOOKUP", "database"),
		MeiliSearchHost: getEnv("MEILISEARCH_HOST", "http://localhost:7700"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		BoardSyncSchedule: getEnv("BOARD_SYNC_SCHEDULE", "@every 10m"),

		DefaultLocale: getEnv("DEFAULT_LOCALE", "ko"),
	}

	var err error
	cfg.PushTimeout, err = parseDuration(getEnv("PUSH_TIMEOUT", "3s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PUSH_TIMEOUT: %w", err)
	}
	cfg.EventDedupTTL, err = parseDuration(getEnv("EVENT_DEDUP_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid EVENT_DEDUP_TTL: %w", err)
	}
	cfg.EventWorkers, err = strconv.Atoi(getEnv("EVENT_WORKERS", "16"))
	if err != nil || cfg.EventWorkers < 1 {
		return nil, fmt.Errorf("invalid EVENT_WORKERS: %q", os.Getenv("EVENT_WORKERS"))
	}
	cfg.PageLimit, err = strconv.Atoi(getEnv("NOTIFICATION_PAGE_LIMIT", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFICATION_PAGE_LIMIT: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	switch c.NotificationStore {
	case "gorm", "memory":
	default:
		return fmt.Errorf("unknown NOTIFICATION_STORE %q", c.NotificationStore)
	}
	switch c.EventSource {
	case "redis", "kafka":
	default:
		return fmt.Errorf("unknown EVENT_SOURCE %q", c.EventSource)
	}
	switch c.PushDriver {
	case "redis", "hub":
	default:
		return fmt.Errorf("unknown PUSH_DRIVER %q", c.PushDriver)
	}
	switch c.BoardLookup {
	case "database", "meilisearch":
	default:
		return fmt.Errorf("unknown BOARD_LOOKUP %q", c.BoardLookup)
	}
	if c.JWTSecret == "" && c.AppEnv != "development" {
		return fmt.Errorf("JWT_SECRET is required outside development")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
