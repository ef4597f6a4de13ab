// Package config loads the application configuration from the environment
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// API contains API server configuration
	API APIConfig
	// Auth contains token and session configuration
	Auth AuthConfig
	// Policy contains password and lockout policy settings
	Policy PolicyConfig
	// Audit contains audit trail settings
	Audit AuditConfig
	// Database contains database configuration
	Database DatabaseConfig
	// Jobs contains maintenance scheduler settings
	Jobs JobsConfig
	// Redis contains the optional Redis connection used for job locking
	Redis RedisConfig
	// Log contains logger settings
	Log LogConfig

	// Rate Limiting Configuration
	RateLimit struct {
		Requests int // Number of requests allowed per window
		Window   int // Time window in seconds
		Burst    int // Maximum burst size
	}
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname
	Host string
	// Port is the database server port
	Port int
	// User is the database username
	User string
	// Password is the database password
	Password string
	// DBName is the database name
	DBName string
	// SSLMode is the SSL mode for the database connection
	SSLMode string
	// MigrationsPath is the path to database migrations
	MigrationsPath string
}

// APIConfig contains API server settings
type APIConfig struct {
	// Port is the server port to listen on
	Port string
	// Environment is "production" or anything else for development
	Environment string
}

// AuthConfig contains token settings
type AuthConfig struct {
	// JWTSecret is the secret key used to sign JWT tokens
	JWTSecret string
	// AccessTokenDuration is the lifetime of access tokens and the session cookie
	AccessTokenDuration time.Duration
	// RefreshTokenDuration is the lifetime of refresh tokens
	RefreshTokenDuration time.Duration
	// RefreshRotation replaces the refresh token on every refresh when true
	RefreshRotation bool
	// SecureCookies sets the Secure attribute on the session cookie
	SecureCookies bool
	// RegistrationOpen determines if self registration is allowed
	RegistrationOpen bool
	// HashCost is the bcrypt cost factor
	HashCost int
}

// PolicyConfig contains password and lockout policy settings
type PolicyConfig struct {
	// PasswordMinAge is the minimum time between self-service password changes
	PasswordMinAge time.Duration
	// HistoryDepth is the number of previous passwords checked for reuse
	HistoryDepth int
	// LockoutThreshold is the number of consecutive failures that locks an account
	LockoutThreshold int
	// LockoutDuration is how long a locked account stays locked
	LockoutDuration time.Duration
}

// AuditConfig contains audit trail settings
type AuditConfig struct {
	// RetentionDays is the age after which audit entries are swept
	RetentionDays int
	// WriteTimeout bounds a single audit insert
	WriteTimeout time.Duration
}

// JobsConfig contains cron schedules for maintenance jobs
type JobsConfig struct {
	// Enabled turns the maintenance scheduler on
	Enabled bool
	// TokenCleanupSchedule is the cron spec for expired refresh token cleanup
	TokenCleanupSchedule string
	// AuditRetentionSchedule is the cron spec for the audit retention sweep
	AuditRetentionSchedule string
	// LockTTL bounds how long a job lock is held
	LockTTL time.Duration
}

// RedisConfig contains Redis connection settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LogConfig contains logger settings
type LogConfig struct {
	Level string
}

// LoadFromEnv retrieves configuration from environment variables
func (c *Config) LoadFromEnv() error {
	c.API = APIConfig{
		Port:        getEnvOrDefault("API_PORT", "8080"),
		Environment: getEnvOrDefault("APP_ENV", "development"),
	}
	c.Database = DatabaseConfig{
		Host:           getEnvOrDefault("DB_HOST", "localhost"),
		Port:           getEnvAsInt("DB_PORT", 5432),
		User:           getEnvOrDefault("DB_USER", "postgres"),
		Password:       getEnvOrDefault("DB_PASSWORD", "postgres"),
		DBName:         getEnvOrDefault("DB_NAME", "registrar"),
		SSLMode:        getEnvOrDefault("DB_SSL_MODE", "disable"),
		MigrationsPath: getEnvOrDefault("DB_MIGRATIONS_PATH", "migrations"),
	}
	c.Auth = AuthConfig{
		JWTSecret:            os.Getenv("JWT_SECRET"),
		AccessTokenDuration:  getEnvAsDuration("ACCESS_TOKEN_DURATION", time.Hour),
		RefreshTokenDuration: getEnvAsDuration("REFRESH_TOKEN_DURATION", 7*24*time.Hour),
		RefreshRotation:      getEnvAsBool("REFRESH_ROTATION", true),
		SecureCookies:        getEnvAsBool("SECURE_COOKIES", true),
		RegistrationOpen:     getEnvAsBool("REGISTRATION_OPEN", true),
		HashCost:             getEnvAsInt("HASH_COST", 10),
	}
	c.Policy = PolicyConfig{
		PasswordMinAge:   getEnvAsDuration("PASSWORD_MIN_AGE", 24*time.Hour),
		HistoryDepth:     getEnvAsInt("PASSWORD_HISTORY_DEPTH", 5),
		LockoutThreshold: getEnvAsInt("LOCKOUT_THRESHOLD", 5),
		LockoutDuration:  getEnvAsDuration("LOCKOUT_DURATION", 15*time.Minute),
	}
	c.Audit = AuditConfig{
		RetentionDays: getEnvAsInt("AUDIT_RETENTION_DAYS", 90),
		WriteTimeout:  getEnvAsDuration("AUDIT_WRITE_TIMEOUT", 3*time.Second),
	}
	c.Jobs = JobsConfig{
		Enabled:                getEnvAsBool("JOBS_ENABLED", true),
		TokenCleanupSchedule:   getEnvOrDefault("TOKEN_CLEANUP_SCHEDULE", "0 * * * *"),
		AuditRetentionSchedule: getEnvOrDefault("AUDIT_RETENTION_SCHEDULE", "0 3 * * *"),
		LockTTL:                getEnvAsDuration("JOB_LOCK_TTL", 10*time.Minute),
	}
	c.Redis = RedisConfig{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getEnvAsInt("REDIS_DB", 0),
	}
	c.Log = LogConfig{
		Level: getEnvOrDefault("LOG_LEVEL", "info"),
	}

	// Load rate limit configuration
	c.RateLimit.Requests = getEnvAsInt("RATE_LIMIT_REQUESTS", 1000)
	c.RateLimit.Window = getEnvAsInt("RATE_LIMIT_WINDOW", 60)
	c.RateLimit.Burst = getEnvAsInt("RATE_LIMIT_BURST", 50)

	return c.Validate()
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Auth.AccessTokenDuration <= 0 || c.Auth.RefreshTokenDuration <= 0 {
		return fmt.Errorf("token durations must be positive")
	}
	if c.Policy.HistoryDepth < 0 {
		return fmt.Errorf("PASSWORD_HISTORY_DEPTH must not be negative")
	}
	if c.Policy.LockoutThreshold < 1 {
		return fmt.Errorf("LOCKOUT_THRESHOLD must be at least 1")
	}
	if c.Audit.RetentionDays < 1 {
		return fmt.Errorf("AUDIT_RETENTION_DAYS must be at least 1")
	}
	return nil
}

// getEnvAsInt retrieves an environment variable and converts it to an integer
func getEnvAsInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvAsBool retrieves an environment variable and converts it to a boolean
func getEnvAsBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvAsDuration retrieves an environment variable as a time.Duration ("15m", "168h")
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvOrDefault(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
