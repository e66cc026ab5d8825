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
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Cache     CacheConfig
	Timetable TimetableConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig tunes the Redis-backed read caches for workload and conflict
// summaries.
type CacheConfig struct {
	Enabled      bool
	WorkloadTTL  time.Duration
	ConflictsTTL time.Duration
}

// TimetableConfig carries per-organization scheduling policy. Caps are
// configuration rather than constants so deployments can tighten or relax
// them without a rebuild.
type TimetableConfig struct {
	DaysPerWeek           int
	PeriodsPerDay         int
	WeeklyPeriodCap       int
	MaxConsecutivePeriods int
	StrictConsecutive     bool
	CommitRetries         int
}

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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled:      v.GetBool("ENABLE_CACHE"),
		WorkloadTTL:  parseDuration(v.GetString("CACHE_WORKLOAD_TTL"), 5*time.Minute),
		ConflictsTTL: parseDuration(v.GetString("CACHE_CONFLICTS_TTL"), time.Minute),
	}

	cfg.Timetable = TimetableConfig{
		DaysPerWeek:           v.GetInt("TIMETABLE_DAYS_PER_WEEK"),
		PeriodsPerDay:         v.GetInt("TIMETABLE_PERIODS_PER_DAY"),
		WeeklyPeriodCap:       v.GetInt("TIMETABLE_WEEKLY_PERIOD_CAP"),
		MaxConsecutivePeriods: v.GetInt("TIMETABLE_MAX_CONSECUTIVE"),
		StrictConsecutive:     v.GetBool("TIMETABLE_STRICT_CONSECUTIVE"),
		CommitRetries:         v.GetInt("TIMETABLE_COMMIT_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "timetable_service")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_WORKLOAD_TTL", "5m")
	v.SetDefault("CACHE_CONFLICTS_TTL", "1m")

	v.SetDefault("TIMETABLE_DAYS_PER_WEEK", 6)
	v.SetDefault("TIMETABLE_PERIODS_PER_DAY", 10)
	v.SetDefault("TIMETABLE_WEEKLY_PERIOD_CAP", 30)
	v.SetDefault("TIMETABLE_MAX_CONSECUTIVE", 3)
	v.SetDefault("TIMETABLE_STRICT_CONSECUTIVE", false)
	v.SetDefault("TIMETABLE_COMMIT_RETRIES", 3)
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

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
