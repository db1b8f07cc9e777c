package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MinJWTSecretLength is the minimum HS256 key size in bytes
const MinJWTSecretLength = 32

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Email     EmailConfig
}

type ServerConfig struct {
	Port            string
	Env             string
	LogLevel        string
	APIPrefix       string
	ServiceName     string
	Version         string
	AllowedOrigins  []string
	TrustedProxies  []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL               string
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	AutoMigrate       bool
}

type AuthConfig struct {
	JWTSecret            string
	JWTExpiresIn         time.Duration
	JWTIssuer            string
	BcryptCost           int
	RevalidateUsers      bool
	RevocationFailClosed bool
	CleanupInterval      time.Duration
	TimingDelayBaseMs    int
	TimingDelayRandomMs  int
	AdminEmail           string
	AdminPassword        string
}

type RateLimitConfig struct {
	Limit     int
	Window    time.Duration
	AuthLimit int
}

type RedisConfig struct {
	URL      string
	PoolSize int
}

// Enabled reports whether a Redis URL was configured
func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

type EmailConfig struct {
	AWSRegion   string
	FromAddress string
}

// Enabled reports whether outbound email is configured
func (c EmailConfig) Enabled() bool {
	return c.FromAddress != ""
}

// Load reads configuration from the environment, after loading .env if
// present, and validates it
func Load() (*Config, error) {
	cfg := Read()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads configuration without validating it. Tools that only need the
// database, such as the seeder, use it together with DatabaseConfig.Validate.
func Read() *Config {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "3000"),
			Env:             env,
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			APIPrefix:       normalizePrefix(getEnv("API_PREFIX", "")),
			ServiceName:     getEnv("SERVICE_NAME", "auth-service"),
			Version:         getEnv("APP_VERSION", "1.0.0"),
			AllowedOrigins:  parseAllowedOrigins(env),
			TrustedProxies:  getEnvAsList("TRUSTED_PROXIES"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:               getEnv("DATABASE_URL", ""),
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "auth_service"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 2)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Auth: AuthConfig{
			JWTSecret:            getEnv("JWT_SECRET", ""),
			JWTExpiresIn:         getEnvAsRequiredDuration("JWT_EXPIRES_IN", 24*time.Hour),
			JWTIssuer:            getEnv("JWT_ISSUER", "auth-service"),
			BcryptCost:           getEnvAsInt("BCRYPT_COST", 12),
			RevalidateUsers:      getEnvAsBool("AUTH_REVALIDATE_USERS", true),
			RevocationFailClosed: getEnvAsBool("AUTH_REVOCATION_FAIL_CLOSED", false),
			CleanupInterval:      getEnvAsDuration("TOKEN_CLEANUP_INTERVAL", 1*time.Hour),
			TimingDelayBaseMs:    getEnvAsInt("AUTH_TIMING_DELAY_BASE_MS", 100),
			TimingDelayRandomMs:  getEnvAsInt("AUTH_TIMING_DELAY_RANDOM_MS", 50),
			AdminEmail:           getEnv("ADMIN_EMAIL", ""),
			AdminPassword:        getEnv("ADMIN_PASSWORD", ""),
		},
		RateLimit: RateLimitConfig{
			Limit:     getEnvAsInt("RATE_LIMIT_LIMIT", 100),
			Window:    getEnvAsDuration("RATE_LIMIT_WINDOW", 60*time.Second),
			AuthLimit: getEnvAsInt("AUTH_RATE_LIMIT", 10),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 10),
		},
		Email: EmailConfig{
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		},
	}

	return cfg
}

// Validate checks the settings the service cannot start without
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if err := validateJWTSecret(c.Auth.JWTSecret); err != nil {
		return err
	}
	if c.Auth.JWTExpiresIn <= 0 {
		return fmt.Errorf("JWT_EXPIRES_IN must be a positive duration such as 24h or 7d")
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if c.RateLimit.Limit <= 0 || c.RateLimit.AuthLimit <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	return nil
}

// IsProduction reports whether ENV is production
func (c *ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

func validateJWTSecret(secret string) error {
	if len(secret) < MinJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters (got %d)", MinJWTSecretLength, len(secret))
	}

	weakSecrets := []string{
		"secret", "changeme", "password", "default", "example",
		"your-secret-key", "your-super-secret-jwt-key",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if strings.HasPrefix(secretLower, weak) && len(strings.Trim(secretLower[len(weak):], "-_0123456789")) == 0 {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

// Validate checks that a connection target is configured
func (c *DatabaseConfig) Validate() error {
	if c.URL == "" && c.Password == "" {
		return fmt.Errorf("DATABASE_URL or DB_PASSWORD is required")
	}
	return nil
}

// DSN returns DATABASE_URL when set, otherwise a URL built from the DB_* parts
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

// getEnvAsDuration falls back to defaultVal when the value does not parse
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}
	if duration, ok := parseDuration(value); ok {
		return duration
	}
	return defaultVal
}

// getEnvAsRequiredDuration returns 0 for an unparsable value so that
// Validate rejects it instead of running with the default
func getEnvAsRequiredDuration(key string, defaultVal time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}
	duration, _ := parseDuration(value)
	return duration
}

var durationUnits = map[byte]time.Duration{
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// parseDuration accepts Go durations ("24h"), plain seconds ("60") and whole
// days or weeks ("7d", "2w")
func parseDuration(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if duration, err := time.ParseDuration(value); err == nil {
		return duration, true
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, true
	}
	if n := len(value); n > 1 {
		if unit, ok := durationUnits[value[n-1]]; ok {
			if count, err := strconv.Atoi(value[:n-1]); err == nil {
				return time.Duration(count) * unit, true
			}
		}
	}
	return 0, false
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return "/" + prefix
}

func parseAllowedOrigins(env string) []string {
	if origins := getEnvAsList("ALLOWED_ORIGINS"); origins != nil {
		return origins
	}
	if env == "production" {
		return []string{}
	}

	return []string{
		"http://localhost:3000",
		"http://localhost:3001",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
}
