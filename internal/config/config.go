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
	Auth         AuthConfig
	SLA          SLAConfig
	Broker       BrokerConfig
	RateLimit    RateLimitConfig
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

// AuthConfig defines token verification parameters. Tokens are issued by the
// helpdesk platform; this service only verifies them.
type AuthConfig struct {
	JWTSecret             string
	Issuer                string
	AccessTokenTTLMinutes int
}

// SLAConfig tunes policy caching and the breach sweeper.
type SLAConfig struct {
	PolicyStalenessSeconds  int
	SnapshotCacheTTLSeconds int
	SweepIntervalSeconds    int
	SweepLookbackDays       int
	BreachDedupeHours       int
	EnsureDefaultsOnStart   bool
}

// BrokerConfig points at the NATS server receiving SLA events. An empty URL
// disables publishing.
type BrokerConfig struct {
	NATSURL       string
	Stream        string
	SubjectPrefix string
	ClientName    string
}

// RateLimitConfig bounds administrative mutations.
type RateLimitConfig struct {
	GlobalPerSecond float64
	GlobalBurst     int
	ActorPerSecond  float64
	ActorBurst      int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
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
			Name:                  getEnv("APP_NAME", "sla-service"),
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
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			Issuer:                os.Getenv("AUTH_JWT_ISSUER"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		SLA: SLAConfig{
			PolicyStalenessSeconds:  getEnvAsInt("SLA_POLICY_STALENESS_SECONDS", 5),
			SnapshotCacheTTLSeconds: getEnvAsInt("SLA_SNAPSHOT_CACHE_TTL_SECONDS", 5),
			SweepIntervalSeconds:    getEnvAsInt("SLA_SWEEP_INTERVAL_SECONDS", 60),
			SweepLookbackDays:       getEnvAsInt("SLA_SWEEP_LOOKBACK_DAYS", 30),
			BreachDedupeHours:       getEnvAsInt("SLA_BREACH_DEDUPE_HOURS", 24),
			EnsureDefaultsOnStart:   getEnvAsBool("SLA_ENSURE_DEFAULTS_ON_START", true),
		},
		Broker: BrokerConfig{
			NATSURL:       os.Getenv("NATS_URL"),
			Stream:        getEnv("NATS_STREAM", "SLA_EVENTS"),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "helpdesk.sla"),
			ClientName:    getEnv("NATS_CLIENT_NAME", "sla-service"),
		},
		RateLimit: RateLimitConfig{
			GlobalPerSecond: getEnvAsFloat("RATE_LIMIT_GLOBAL_RPS", 50),
			GlobalBurst:     getEnvAsInt("RATE_LIMIT_GLOBAL_BURST", 100),
			ActorPerSecond:  getEnvAsFloat("RATE_LIMIT_ACTOR_RPS", 2),
			ActorBurst:      getEnvAsInt("RATE_LIMIT_ACTOR_BURST", 5),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
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

// PolicyStaleness returns the window after which cached policies are reloaded.
func (s SLAConfig) PolicyStaleness() time.Duration {
	return seconds(s.PolicyStalenessSeconds)
}

// SnapshotCacheTTL returns how long compliance snapshots stay in Redis.
func (s SLAConfig) SnapshotCacheTTL() time.Duration {
	return seconds(s.SnapshotCacheTTLSeconds)
}

// SweepInterval returns the breach sweeper period; zero disables the sweeper.
func (s SLAConfig) SweepInterval() time.Duration {
	return seconds(s.SweepIntervalSeconds)
}

// SweepLookback bounds how far back the sweeper looks for open tickets.
func (s SLAConfig) SweepLookback() time.Duration {
	if s.SweepLookbackDays <= 0 {
		return 0
	}
	return time.Duration(s.SweepLookbackDays) * 24 * time.Hour
}

// BreachDedupeTTL returns how long a reported breach suppresses repeats.
func (s SLAConfig) BreachDedupeTTL() time.Duration {
	if s.BreachDedupeHours <= 0 {
		return 0
	}
	return time.Duration(s.BreachDedupeHours) * time.Hour
}

// Enabled reports whether events should be forwarded to NATS.
func (b BrokerConfig) Enabled() bool {
	return b.NATSURL != ""
}

func seconds(v int) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v) * time.Second
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
