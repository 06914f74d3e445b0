package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	SinkLog   = "log"
	SinkRedis = "redis"
	SinkSES   = "ses"

	appDirName = "substitute-finder"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	DataDir   string

	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Notify   NotifyConfig
	Auth     AuthConfig
	Seed     SeedConfig
}

type DatabaseConfig struct {
	Driver       string
	Path         string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	// LockTimeout bounds how long a caller waits for the store's exclusive guard.
	LockTimeout time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Channel  string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// NotifyConfig selects the notification sink and fan-out width.
type NotifyConfig struct {
	Sink         string
	Concurrency  int
	OnCreate     bool
	SESFromEmail string
	AWSRegion    string
}

// AuthConfig tunes credential hashing.
type AuthConfig struct {
	BcryptCost int
}

// SeedConfig controls demo data bootstrap.
type SeedConfig struct {
	OnStart       bool
	AdminPassword string
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
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.DataDir = v.GetString("DATA_DIR")
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}

	dbPath := v.GetString("DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(cfg.DataDir, "database.db")
	}
	cfg.Database = DatabaseConfig{
		Driver:       strings.ToLower(v.GetString("DB_DRIVER")),
		Path:         dbPath,
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		LockTimeout:  parseDuration(v.GetString("DB_LOCK_TIMEOUT"), 5*time.Second),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		Channel:  v.GetString("REDIS_CHANNEL"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Notify = NotifyConfig{
		Sink:         strings.ToLower(v.GetString("NOTIFY_SINK")),
		Concurrency:  v.GetInt("NOTIFY_CONCURRENCY"),
		OnCreate:     v.GetBool("NOTIFY_ON_CREATE"),
		SESFromEmail: v.GetString("SES_FROM_EMAIL"),
		AWSRegion:    v.GetString("AWS_REGION"),
	}
	if cfg.Notify.Concurrency <= 0 {
		cfg.Notify.Concurrency = 1
	}

	cfg.Auth = AuthConfig{BcryptCost: v.GetInt("BCRYPT_COST")}

	cfg.Seed = SeedConfig{
		OnStart:       v.GetBool("SEED_ON_START"),
		AdminPassword: v.GetString("SEED_ADMIN_PASSWORD"),
	}

	return cfg, nil
}

// DefaultDataDir returns the per-user application data directory, falling back
// to the working directory when the OS does not expose one.
func DefaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		base, err = os.Getwd()
		if err != nil {
			base = "."
		}
	}
	return filepath.Join(base, appDirName)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("DATA_DIR", "")

	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("DB_PATH", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "substitute_finder")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_LOCK_TIMEOUT", "5s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_CHANNEL", "substitute-finder:notifications")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("NOTIFY_SINK", SinkLog)
	v.SetDefault("NOTIFY_CONCURRENCY", 4)
	v.SetDefault("NOTIFY_ON_CREATE", false)
	v.SetDefault("SES_FROM_EMAIL", "")
	v.SetDefault("AWS_REGION", "")

	v.SetDefault("BCRYPT_COST", 10)

	v.SetDefault("SEED_ON_START", false)
	v.SetDefault("SEED_ADMIN_PASSWORD", "admin")
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
