package config

import (
	"fmt"
	"os"
	"path/filepath"
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
	Analytics    AnalyticsConfig
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

// RedisConfig holds Redis connection values. An empty Addr disables the result cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior. File enables a rotating log file next to stdout.
type LoggerConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// AnalyticsConfig locates the ticket export and tunes analysis.
type AnalyticsConfig struct {
	DataDir           string
	SourceFile        string
	BackupDir         string
	MaxBackups        int
	MaxUploadBytes    int64
	CacheTTLSeconds   int
	PreferredEncoding string
	UnknownBreach     string
	NarrativeRows     int
	RulesFile         string
	RefreshSeconds    int
}

// NotificationConfig holds alerting knobs.
type NotificationConfig struct {
	WebhookURL        string
	SLAAlertThreshold float64
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	alertThreshold, err := strconv.ParseFloat(getEnv("ALERT_SLA_THRESHOLD", "80"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ALERT_SLA_THRESHOLD: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	dataDir := getEnv("ANALYTICS_DATA_DIR", "data")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-analytics"),
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
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 10),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 5),
		},
		Analytics: AnalyticsConfig{
			DataDir:           dataDir,
			SourceFile:        getEnv("ANALYTICS_SOURCE_FILE", "glpi.csv"),
			BackupDir:         getEnv("ANALYTICS_BACKUP_DIR", filepath.Join(dataDir, "backups")),
			MaxBackups:        getEnvAsInt("ANALYTICS_MAX_BACKUPS", 10),
			MaxUploadBytes:    int64(getEnvAsInt("ANALYTICS_MAX_UPLOAD_BYTES", 16<<20)),
			CacheTTLSeconds:   getEnvAsInt("ANALYTICS_CACHE_TTL_SECONDS", 300),
			PreferredEncoding: os.Getenv("ANALYTICS_PREFERRED_ENCODING"),
			UnknownBreach:     getEnv("ANALYTICS_UNKNOWN_BREACH", "compliant"),
			NarrativeRows:     getEnvAsInt("ANALYTICS_NARRATIVE_ROWS", 200),
			RulesFile:         os.Getenv("ANALYTICS_RULES_FILE"),
			RefreshSeconds:    getEnvAsInt("ANALYTICS_REFRESH_SECONDS", 0),
		},
		Notification: NotificationConfig{
			WebhookURL:        os.Getenv("NOTIFY_WEBHOOK_URL"),
			SLAAlertThreshold: alertThreshold,
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

// SourcePath is the full path of the active ticket export.
func (a AnalyticsConfig) SourcePath() string {
	return filepath.Join(a.DataDir, a.SourceFile)
}

// RefreshInterval is how often the export is re-analyzed in the background. Zero disables it.
func (a AnalyticsConfig) RefreshInterval() time.Duration {
	if a.RefreshSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RefreshSeconds) * time.Second
}

// CacheTTL returns how long cached reports stay valid.
func (a AnalyticsConfig) CacheTTL() time.Duration {
	if a.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(a.CacheTTLSeconds) * time.Second
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
