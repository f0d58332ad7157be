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

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Enrollment EnrollmentConfig
	Calendar   CalendarConfig
	Events     EventsConfig
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
	AutoMigrate  bool
	LockTimeout  time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// EnrollmentConfig tunes the seat ledger and the promotion worker pool.
type EnrollmentConfig struct {
	PromotionWorkers    int
	PromotionBuffer     int
	PromotionRetries    int
	PromotionRetryDelay time.Duration
	LockRetries         int
	LockRetryDelay      time.Duration
	RecoverOnStart      bool
}

// CalendarConfig controls iCalendar export and conflict matrix caching.
type CalendarConfig struct {
	ProductID        string
	UIDDomain        string
	ConflictCacheTTL time.Duration
}

// EventsConfig selects the domain event transport. An empty NATSURL falls back
// to structured log output.
type EventsConfig struct {
	NATSURL       string
	SubjectPrefix string
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
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
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
		LockTimeout:  parseDuration(v.GetString("DB_LOCK_TIMEOUT"), 2*time.Second),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Enrollment = EnrollmentConfig{
		PromotionWorkers:    v.GetInt("ENROLLMENT_PROMOTION_WORKERS"),
		PromotionBuffer:     v.GetInt("ENROLLMENT_PROMOTION_BUFFER"),
		PromotionRetries:    v.GetInt("ENROLLMENT_PROMOTION_RETRIES"),
		PromotionRetryDelay: parseDuration(v.GetString("ENROLLMENT_PROMOTION_RETRY_DELAY"), 2*time.Second),
		LockRetries:         v.GetInt("ENROLLMENT_LOCK_RETRIES"),
		LockRetryDelay:      parseDuration(v.GetString("ENROLLMENT_LOCK_RETRY_DELAY"), 50*time.Millisecond),
		RecoverOnStart:      v.GetBool("ENROLLMENT_RECOVER_ON_START"),
	}

	cfg.Calendar = CalendarConfig{
		ProductID:        v.GetString("CALENDAR_PRODUCT_ID"),
		UIDDomain:        v.GetString("CALENDAR_UID_DOMAIN"),
		ConflictCacheTTL: parseDuration(v.GetString("CALENDAR_CONFLICT_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Events = EventsConfig{
		NATSURL:       v.GetString("NATS_URL"),
		SubjectPrefix: v.GetString("EVENTS_SUBJECT_PREFIX"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "academic_registrar")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)
	v.SetDefault("DB_LOCK_TIMEOUT", "2s")

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENROLLMENT_PROMOTION_WORKERS", 2)
	v.SetDefault("ENROLLMENT_PROMOTION_BUFFER", 256)
	v.SetDefault("ENROLLMENT_PROMOTION_RETRIES", 5)
	v.SetDefault("ENROLLMENT_PROMOTION_RETRY_DELAY", "2s")
	v.SetDefault("ENROLLMENT_LOCK_RETRIES", 3)
	v.SetDefault("ENROLLMENT_LOCK_RETRY_DELAY", "50ms")
	v.SetDefault("ENROLLMENT_RECOVER_ON_START", true)

	v.SetDefault("CALENDAR_PRODUCT_ID", "-//Academic Registrar//Timetable Export//EN")
	v.SetDefault("CALENDAR_UID_DOMAIN", "registrar.local")
	v.SetDefault("CALENDAR_CONFLICT_CACHE_TTL", "5m")

	v.SetDefault("NATS_URL", "")
	v.SetDefault("EVENTS_SUBJECT_PREFIX", "registrar")
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
