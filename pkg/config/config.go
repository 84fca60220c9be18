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

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Pairing       PairingConfig
	Attendance    AttendanceConfig
	Closeout      CloseoutConfig
	Notifications NotificationsConfig
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

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PairingConfig tunes the single-slot card pairing session.
type PairingConfig struct {
	SessionTTL time.Duration
}

// AttendanceConfig carries schedule defaults used when an organization has no
// stored settings, plus cache tuning for settings snapshots.
type AttendanceConfig struct {
	LateToleranceMinutes int
	DayResetTime         string
	SchoolStart          string
	SchoolEnd            string
	ConfigCacheTTL       time.Duration
}

// CloseoutConfig drives the end-of-day sweep scheduler.
type CloseoutConfig struct {
	Enabled       bool
	TriggerTime   string
	CheckInterval time.Duration
}

// NotificationsConfig tunes the background notification dispatcher.
type NotificationsConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
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

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Pairing = PairingConfig{
		SessionTTL: parseDuration(v.GetString("PAIRING_SESSION_TTL"), 30*time.Second),
	}

	cfg.Attendance = AttendanceConfig{
		LateToleranceMinutes: v.GetInt("ATTENDANCE_LATE_TOLERANCE_MINUTES"),
		DayResetTime:         v.GetString("ATTENDANCE_DAY_RESET_TIME"),
		SchoolStart:          v.GetString("ATTENDANCE_SCHOOL_START"),
		SchoolEnd:            v.GetString("ATTENDANCE_SCHOOL_END"),
		ConfigCacheTTL:       parseDuration(v.GetString("ATTENDANCE_CONFIG_CACHE_TTL"), time.Minute),
	}

	cfg.Closeout = CloseoutConfig{
		Enabled:       v.GetBool("CLOSEOUT_ENABLED"),
		TriggerTime:   v.GetString("CLOSEOUT_TRIGGER_TIME"),
		CheckInterval: parseDuration(v.GetString("CLOSEOUT_CHECK_INTERVAL"), time.Minute),
	}

	cfg.Notifications = NotificationsConfig{
		Workers:    v.GetInt("NOTIFICATIONS_WORKERS"),
		BufferSize: v.GetInt("NOTIFICATIONS_BUFFER_SIZE"),
		MaxRetries: v.GetInt("NOTIFICATIONS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("NOTIFICATIONS_RETRY_DELAY"), time.Second),
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
	v.SetDefault("DB_NAME", "attendance_engine")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PAIRING_SESSION_TTL", "30s")

	v.SetDefault("ATTENDANCE_LATE_TOLERANCE_MINUTES", 15)
	v.SetDefault("ATTENDANCE_DAY_RESET_TIME", "04:00")
	v.SetDefault("ATTENDANCE_SCHOOL_START", "09:00")
	v.SetDefault("ATTENDANCE_SCHOOL_END", "17:50")
	v.SetDefault("ATTENDANCE_CONFIG_CACHE_TTL", "1m")

	v.SetDefault("CLOSEOUT_ENABLED", true)
	v.SetDefault("CLOSEOUT_TRIGGER_TIME", "18:00")
	v.SetDefault("CLOSEOUT_CHECK_INTERVAL", "1m")

	v.SetDefault("NOTIFICATIONS_WORKERS", 2)
	v.SetDefault("NOTIFICATIONS_BUFFER_SIZE", 64)
	v.SetDefault("NOTIFICATIONS_MAX_RETRIES", 3)
	v.SetDefault("NOTIFICATIONS_RETRY_DELAY", "1s")
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
