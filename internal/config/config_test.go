package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PHONE_CODE_TTL", "")
	t.Setenv("SMS_PROVIDER", "")
	t.Setenv("EMAIL_PROVIDER", "")
	t.Setenv("APP_ENV", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7*time.Hour, cfg.JWT.AccessTTL)
	assert.Equal(t, 72*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, 100.0, cfg.Fare.BaseFare)
	assert.Equal(t, 50.0, cfg.Fare.PerKmRate)
	assert.Equal(t, "NGN", cfg.Fare.Currency)
	assert.Equal(t, 10*time.Minute, cfg.Verification.PhoneCodeTTL)
	assert.Equal(t, 3, cfg.Verification.MaxAttempts)
	assert.Equal(t, 3, cfg.Verification.RateLimitMax)
	assert.Equal(t, time.Minute, cfg.Verification.RateLimitWindow)
	assert.Equal(t, 24*time.Hour, cfg.Verification.ResetTokenTTL)
	assert.Equal(t, "mock", cfg.SMS.Provider)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PHONE_CODE_TTL", "15m")
	t.Setenv("BASE_FARE", "250.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.Verification.PhoneCodeTTL)
	assert.Equal(t, 250.5, cfg.Fare.BaseFare)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown sms provider", func(c *Config) { c.SMS.Provider = "pigeon" }, true},
		{"unknown email provider", func(c *Config) { c.Email.Provider = "fax" }, true},
		{"negative fare", func(c *Config) { c.Fare.PerKmRate = -1 }, true},
		{"default secret in production", func(c *Config) { c.Server.Env = "production" }, true},
		{"zero code ttl", func(c *Config) { c.Verification.PhoneCodeTTL = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server:       ServerConfig{Port: "8080", Env: "development"},
				Database:     DatabaseConfig{Host: "localhost", Name: "rideon"},
				JWT:          JWTConfig{Secret: "change-me", AccessTTL: time.Hour, RefreshTTL: time.Hour},
				Fare:         FareConfig{BaseFare: 100, PerKmRate: 50},
				Verification: VerificationConfig{PhoneCodeTTL: time.Minute},
				SMS:          SMSConfig{Provider: "mock"},
				Email:        EmailConfig{Provider: "log"},
				Session:      SessionConfig{Secret: "change-me-too"},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
