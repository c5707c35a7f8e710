package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Fare         FareConfig
	Verification VerificationConfig
	Email        EmailConfig
	SMS          SMSConfig
	AWS          AWSConfig
	Firebase     FirebaseConfig
	Session      SessionConfig
	CORS         CORSConfig
	Log          LogConfig
}

type ServerConfig struct {
	Port    string
	Env     string
	BaseURL string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Name         string
	User         string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// DSN returns the postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

// RedisConfig is optional. An empty URL disables Redis and the token
// blacklist falls back to the database.
type RedisConfig struct {
	URL string
}

type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type FareConfig struct {
	BaseFare        float64
	PerKmRate       float64
	Currency        string
	AverageSpeedKmh float64
}

type VerificationConfig struct {
	PhoneCodeTTL    time.Duration
	MaxAttempts     int
	RateLimitMax    int
	RateLimitWindow time.Duration
	ResetTokenTTL   time.Duration
}

type EmailConfig struct {
	Provider string // smtp, ses or log
	From     string
	FromName string
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
}

type SMSConfig struct {
	Provider   string // mock, africastalking or sns
	SenderID   string
	ATUsername string
	ATAPIKey   string
	ATBaseURL  string
}

type AWSConfig struct {
	Region string
}

type FirebaseConfig struct {
	ServiceAccountPath string
}

type SessionConfig struct {
	Secret       string
	CookieSecure bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// .env is optional outside development
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			Env:     getEnv("APP_ENV", "development"),
			BaseURL: strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Name:         getEnv("DB_NAME", "rideon"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxLifetime:  parseDuration(getEnv("DB_CONN_MAX_LIFETIME", "1h"), time.Hour),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "change-me"),
			AccessTTL:  parseDuration(getEnv("JWT_ACCESS_TTL", "7h"), 7*time.Hour),
			RefreshTTL: parseDuration(getEnv("JWT_REFRESH_TTL", "72h"), 72*time.Hour),
		},
		Fare: FareConfig{
			BaseFare:        getEnvAsFloat64("BASE_FARE", 100.00),
			PerKmRate:       getEnvAsFloat64("PER_KM_RATE", 50.00),
			Currency:        getEnv("FARE_CURRENCY", "NGN"),
			AverageSpeedKmh: getEnvAsFloat64("AVERAGE_SPEED_KMH", 30),
		},
		Verification: VerificationConfig{
			PhoneCodeTTL:    parseDuration(getEnv("PHONE_CODE_TTL", "10m"), 10*time.Minute),
			MaxAttempts:     getEnvAsInt("PHONE_CODE_MAX_ATTEMPTS", 3),
			RateLimitMax:    getEnvAsInt("VERIFY_RATE_LIMIT_MAX", 3),
			RateLimitWindow: parseDuration(getEnv("VERIFY_RATE_LIMIT_WINDOW", "60s"), time.Minute),
			ResetTokenTTL:   parseDuration(getEnv("PASSWORD_RESET_TTL", "24h"), 24*time.Hour),
		},
		Email: EmailConfig{
			Provider: getEnv("EMAIL_PROVIDER", "log"),
			From:     getEnv("EMAIL_FROM", "no-reply@rideon.ng"),
			FromName: getEnv("EMAIL_FROM_NAME", "RideOn"),
			SMTPHost: getEnv("SMTP_HOST", ""),
			SMTPPort: getEnv("SMTP_PORT", "587"),
			SMTPUser: getEnv("SMTP_USER", ""),
			SMTPPass: getEnv("SMTP_PASSWORD", ""),
		},
		SMS: SMSConfig{
			Provider:   getEnv("SMS_PROVIDER", "mock"),
			SenderID:   getEnv("SMS_SENDER_ID", "RideOn"),
			ATUsername: getEnv("AT_USERNAME", ""),
			ATAPIKey:   getEnv("AT_API_KEY", ""),
			ATBaseURL:  getEnv("AT_BASE_URL", "https://api.africastalking.com/version1/messaging"),
		},
		AWS: AWSConfig{
			Region: getEnv("AWS_REGION", "eu-west-1"),
		},
		Firebase: FirebaseConfig{
			ServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		},
		Session: SessionConfig{
			Secret:       getEnv("SESSION_SECRET", "change-me-too"),
			CookieSecure: getEnvAsBool("SESSION_COOKIE_SECURE", false),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// IsProduction reports whether the server runs with APP_ENV=production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Database.Host == "" || c.Database.Name == "" {
		return fmt.Errorf("DB_HOST and DB_NAME are required")
	}
	if c.IsProduction() && (c.JWT.Secret == "change-me" || c.Session.Secret == "change-me-too") {
		return fmt.Errorf("JWT_SECRET and SESSION_SECRET must be set in production")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.Fare.BaseFare < 0 || c.Fare.PerKmRate < 0 {
		return fmt.Errorf("BASE_FARE and PER_KM_RATE must not be negative")
	}
	if c.Verification.PhoneCodeTTL <= 0 {
		return fmt.Errorf("PHONE_CODE_TTL must be positive")
	}
	switch c.SMS.Provider {
	case "mock", "africastalking", "sns":
	default:
		return fmt.Errorf("unsupported SMS_PROVIDER %q", c.SMS.Provider)
	}
	switch c.Email.Provider {
	case "log", "smtp", "ses":
	default:
		return fmt.Errorf("unsupported EMAIL_PROVIDER %q", c.Email.Provider)
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}
