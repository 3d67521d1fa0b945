package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// RedisConfig holds optional Redis settings. When Addr is empty the server
// runs with in-memory cache and rate-limit stores instead.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig holds credential signing and verification settings.
type AuthConfig struct {
	// Secret signs session tokens. Required; the server refuses to start
	// without it.
	Secret string
	// TokenExpiry is how long a minted token stays valid.
	TokenExpiry time.Duration
	// CookieName is the cookie carrying the token. The cookie takes
	// precedence over the Authorization header when both are present.
	CookieName string
	// VerifyTimeout bounds principal lookup during verification. On
	// timeout the request fails closed.
	VerifyTimeout time.Duration
}

// WindowConfig is one sliding-window limiter instance: at most MaxAttempts
// admissions per client key within the trailing Window.
type WindowConfig struct {
	Window      time.Duration
	MaxAttempts int
}

// RateLimitConfig holds the independently configured limiter instances.
type RateLimitConfig struct {
	// General applies to all API traffic.
	General WindowConfig
	// Auth applies to register/login attempts.
	Auth WindowConfig
	// Expensive applies to costly endpoints such as asset uploads.
	Expensive WindowConfig
	// LoginDelayAfter is the attempt count past which the progressive
	// delay variant starts slowing login responses.
	LoginDelayAfter int
	// LoginMaxDelay caps the artificial login delay.
	LoginMaxDelay time.Duration
}

// CacheConfig holds TTLs per cached route class.
type CacheConfig struct {
	PublicTTL time.Duration
	HealthTTL time.Duration
}

// SyncConfig holds live-sync (websocket) settings.
type SyncConfig struct {
	// AutosaveQuiescence is how long a connection must stay quiet before
	// a coalesced edit burst is persisted.
	AutosaveQuiescence time.Duration
	// IdleTimeout is how long a silent connection is kept before it is
	// presumed dead and deregistered.
	IdleTimeout time.Duration
	// SendBuffer is the per-connection outbound queue length; a watcher
	// whose queue fills up is dropped from its group.
	SendBuffer int
}

// MinIOConfig holds object storage settings for S3-compatible asset storage.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost   string
	Port      string
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Sync      SyncConfig
	MinIO     MinIOConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"), // default only for non-sensitive value
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			Secret:        getEnv("JWT_SECRET", ""),
			TokenExpiry:   time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,
			CookieName:    getEnv("AUTH_COOKIE_NAME", "devdeck_token"),
			VerifyTimeout: time.Duration(getEnvInt("AUTH_VERIFY_TIMEOUT_MS", 2000)) * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			General: WindowConfig{
				Window:      time.Duration(getEnvInt("RATE_GENERAL_WINDOW_SEC", 60)) * time.Second,
				MaxAttempts: getEnvInt("RATE_GENERAL_MAX", 120),
			},
			Auth: WindowConfig{
				Window:      time.Duration(getEnvInt("RATE_AUTH_WINDOW_SEC", 900)) * time.Second,
				MaxAttempts: getEnvInt("RATE_AUTH_MAX", 10),
			},
			Expensive: WindowConfig{
				Window:      time.Duration(getEnvInt("RATE_AI_WINDOW_SEC", 3600)) * time.Second,
				MaxAttempts: getEnvInt("RATE_AI_MAX", 20),
			},
			LoginDelayAfter: getEnvInt("RATE_LOGIN_DELAY_AFTER", 3),
			LoginMaxDelay:   time.Duration(getEnvInt("RATE_LOGIN_MAX_DELAY_MS", 5000)) * time.Millisecond,
		},
		Cache: CacheConfig{
			PublicTTL: time.Duration(getEnvInt("CACHE_PUBLIC_TTL_SEC", 300)) * time.Second,
			HealthTTL: time.Duration(getEnvInt("CACHE_HEALTH_TTL_SEC", 5)) * time.Second,
		},
		Sync: SyncConfig{
			AutosaveQuiescence: time.Duration(getEnvInt("AUTOSAVE_QUIESCENCE_MS", 2000)) * time.Millisecond,
			IdleTimeout:        time.Duration(getEnvInt("WS_IDLE_TIMEOUT_SEC", 120)) * time.Second,
			SendBuffer:         getEnvInt("WS_SEND_BUFFER", 32),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
