package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env string

	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Lifecycle LifecycleConfig
	Events    EventsConfig
	Worker    WorkerConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

// LifecycleConfig tunes the profile lifecycle engine.
type LifecycleConfig struct {
	OverdueDays          int
	AnalyticsCacheTTL    time.Duration
	EnableAnalyticsCache bool
	CacheNamespace       string
}

// EventsConfig controls lifecycle event publication to Redis.
type EventsConfig struct {
	Enabled       bool
	ChannelPrefix string
	Workers       int
	BufferSize    int
	MaxRetries    int
	RetryDelay    time.Duration
}

// WorkerConfig holds the pipeline worker's schedules and listeners.
type WorkerConfig struct {
	ReconcileSchedule string
	OverdueSchedule   string
	ReconcileOnStart  bool
	JobTimeout        time.Duration
	MetricsAddr       string
}

// Load reads configuration from an optional .env file and the environment.
// Environment variables win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{Env: v.GetString("ENV")}

	cfg.Database = DatabaseConfig{
		Host:            v.GetString("DB_HOST"),
		Port:            v.GetInt("DB_PORT"),
		User:            v.GetString("DB_USER"),
		Password:        v.GetString("DB_PASSWORD"),
		Name:            v.GetString("DB_NAME"),
		SSLMode:         v.GetString("DB_SSL_MODE"),
		MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), time.Hour),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Lifecycle = LifecycleConfig{
		OverdueDays:          v.GetInt("OVERDUE_DAYS"),
		AnalyticsCacheTTL:    parseDuration(v.GetString("ANALYTICS_CACHE_TTL"), 10*time.Minute),
		EnableAnalyticsCache: v.GetBool("ENABLE_ANALYTICS_CACHE"),
		CacheNamespace:       v.GetString("CACHE_NAMESPACE"),
	}

	cfg.Events = EventsConfig{
		Enabled:       v.GetBool("ENABLE_EVENTS"),
		ChannelPrefix: v.GetString("EVENTS_CHANNEL_PREFIX"),
		Workers:       v.GetInt("EVENTS_WORKERS"),
		BufferSize:    v.GetInt("EVENTS_BUFFER_SIZE"),
		MaxRetries:    v.GetInt("EVENTS_MAX_RETRIES"),
		RetryDelay:    parseDuration(v.GetString("EVENTS_RETRY_DELAY"), time.Second),
	}

	cfg.Worker = WorkerConfig{
		ReconcileSchedule: strings.TrimSpace(v.GetString("RECONCILE_SCHEDULE")),
		OverdueSchedule:   strings.TrimSpace(v.GetString("OVERDUE_SCHEDULE")),
		ReconcileOnStart:  v.GetBool("RECONCILE_ON_START"),
		JobTimeout:        parseDuration(v.GetString("JOB_TIMEOUT"), 5*time.Minute),
		MetricsAddr:       v.GetString("METRICS_ADDR"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "project_pipeline")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("OVERDUE_DAYS", 7)
	v.SetDefault("ANALYTICS_CACHE_TTL", "10m")
	v.SetDefault("ENABLE_ANALYTICS_CACHE", true)
	v.SetDefault("CACHE_NAMESPACE", "pipeline")

	v.SetDefault("ENABLE_EVENTS", true)
	v.SetDefault("EVENTS_CHANNEL_PREFIX", "pipeline")
	v.SetDefault("EVENTS_WORKERS", 2)
	v.SetDefault("EVENTS_BUFFER_SIZE", 256)
	v.SetDefault("EVENTS_MAX_RETRIES", 3)
	v.SetDefault("EVENTS_RETRY_DELAY", "1s")

	v.SetDefault("RECONCILE_SCHEDULE", "@every 1h")
	v.SetDefault("OVERDUE_SCHEDULE", "0 8 * * *")
	v.SetDefault("RECONCILE_ON_START", true)
	v.SetDefault("JOB_TIMEOUT", "5m")
	v.SetDefault("METRICS_ADDR", ":9102")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
