package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aura-webinar/liveclass/pkg/database"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	AWS      AWSConfig
	RTC      RTCConfig
	Live     LiveConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	ConnLife time.Duration
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds settings for validating bearer tokens from the identity provider.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and the recordings bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	RecordingsBucket     string
	PresignExpireMinutes int
}

// RTCConfig selects and configures the RTC credential issuer.
type RTCConfig struct {
	Provider      string // "zego" or "jwt"
	AppID         uint32 // ZEGO app id
	ServerSecret  string // ZEGO server secret (32 chars)
	SigningSecret string // HS256 secret for the jwt provider
	Issuer        string // app id reported by the jwt provider
}

// LiveConfig holds live-session timing rules.
type LiveConfig struct {
	StartLead     time.Duration // start accepted this long before scheduledAt
	StartGrace    time.Duration // schedule entry stays startable this long after scheduledAt
	Lookahead     time.Duration // furthest future entry considered
	CredentialTTL time.Duration
	CallTimeout   time.Duration // bound on every external call
	PollInterval  time.Duration // advertised to viewers
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// PoolOptions returns the pgx pool tuning.
func (c DatabaseConfig) PoolOptions() database.PoolOptions {
	return database.PoolOptions{MaxConns: int32(c.MaxConns), MaxConnLifetime: c.ConnLife}
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	appID, err := strconv.ParseUint(getEnv("ZEGO_APP_ID", "0"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("ZEGO_APP_ID: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "liveclass"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
			ConnLife: getEnvDuration("DB_CONN_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", ""),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			RecordingsBucket:     getEnv("AWS_S3_RECORDINGS_BUCKET", "liveclass-recordings"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		RTC: RTCConfig{
			Provider:      strings.ToLower(getEnv("RTC_PROVIDER", "jwt")),
			AppID:         uint32(appID),
			ServerSecret:  getEnv("ZEGO_SERVER_SECRET", ""),
			SigningSecret: getEnv("RTC_SIGNING_SECRET", ""),
			Issuer:        getEnv("RTC_ISSUER", "liveclass"),
		},
		Live: LiveConfig{
			StartLead:     getEnvDuration("LIVE_START_LEAD", 10*time.Minute),
			StartGrace:    getEnvDuration("LIVE_START_GRACE", 2*time.Hour),
			Lookahead:     getEnvDuration("LIVE_LOOKAHEAD", 2*time.Hour),
			CredentialTTL: getEnvDuration("LIVE_CREDENTIAL_TTL", time.Hour),
			CallTimeout:   getEnvDuration("LIVE_CALL_TIMEOUT", 5*time.Second),
			PollInterval:  getEnvDuration("LIVE_POLL_INTERVAL", 5*time.Second),
		},
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
