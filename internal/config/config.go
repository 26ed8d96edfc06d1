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
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	TokenStore TokenStoreConfig
	OAuth      OAuthConfig
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

// AuthConfig defines token issuance parameters. The signing secret and
// TTLs are loaded once at startup and never mutated.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	RefreshTokenTTLHours  int
	BcryptCost            int
	PersistTimeoutSeconds int
}

// TokenStoreConfig defines the per-partition cache policy. Access and
// refresh partitions carry independent TTLs and key prefixes.
type TokenStoreConfig struct {
	AccessPrefix     string
	RefreshPrefix    string
	AccessTTLMinutes int
	RefreshTTLHours  int
	OpTimeoutMillis  int
}

// OAuthConfig configures the GitHub organization membership check.
type OAuthConfig struct {
	APIBaseURL            string
	Organization          string
	RequestTimeoutSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "user-management-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
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
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 15),
			RefreshTokenTTLHours:  getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_HOURS", 24),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			PersistTimeoutSeconds: getEnvAsInt("AUTH_PERSIST_TIMEOUT_SECONDS", 5),
		},
		TokenStore: TokenStoreConfig{
			AccessPrefix:     getEnv("TOKEN_STORE_ACCESS_PREFIX", "tokens:access"),
			RefreshPrefix:    getEnv("TOKEN_STORE_REFRESH_PREFIX", "tokens:refresh"),
			AccessTTLMinutes: getEnvAsInt("TOKEN_STORE_ACCESS_TTL_MINUTES", 15),
			RefreshTTLHours:  getEnvAsInt("TOKEN_STORE_REFRESH_TTL_HOURS", 24),
			OpTimeoutMillis:  getEnvAsInt("TOKEN_STORE_OP_TIMEOUT_MILLIS", 500),
		},
		OAuth: OAuthConfig{
			APIBaseURL:            getEnv("OAUTH_GITHUB_API_BASE_URL", "https://api.github.com"),
			Organization:          getEnv("OAUTH_GITHUB_ORGANIZATION", ""),
			RequestTimeoutSeconds: getEnvAsInt("OAUTH_REQUEST_TIMEOUT_SECONDS", 10),
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

// AccessTokenTTL returns the access token validity window.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	if a.AccessTokenTTLMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token validity window.
func (a AuthConfig) RefreshTokenTTL() time.Duration {
	if a.RefreshTokenTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(a.RefreshTokenTTLHours) * time.Hour
}

// PersistTimeout bounds the write-behind token persistence call.
func (a AuthConfig) PersistTimeout() time.Duration {
	if a.PersistTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(a.PersistTimeoutSeconds) * time.Second
}

// AccessTTL returns the access partition expiration.
func (t TokenStoreConfig) AccessTTL() time.Duration {
	if t.AccessTTLMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(t.AccessTTLMinutes) * time.Minute
}

// RefreshTTL returns the refresh partition expiration.
func (t TokenStoreConfig) RefreshTTL() time.Duration {
	if t.RefreshTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(t.RefreshTTLHours) * time.Hour
}

// OpTimeout bounds every store call so a slow cache cannot stall requests.
func (t TokenStoreConfig) OpTimeout() time.Duration {
	if t.OpTimeoutMillis <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(t.OpTimeoutMillis) * time.Millisecond
}

// RequestTimeout bounds the outbound membership lookup.
func (o OAuthConfig) RequestTimeout() time.Duration {
	if o.RequestTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(o.RequestTimeoutSeconds) * time.Second
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
