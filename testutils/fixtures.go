package testutils

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tech-arch1tect/seminary/config"
)

// ReferenceTime is a Sunday, 10:00 UTC.
var ReferenceTime = time.Date(2025, time.March, 9, 10, 0, 0, 0, time.UTC)

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "Test Seminary",
			URL:  "https://seminary.test",
			Env:  "test",
		},
		Log: config.LogConfig{Level: "error", Format: "json", Output: "stdout"},
		Auth: config.AuthConfig{
			MinLength:           8,
			RequireUpper:        true,
			RequireLower:        true,
			RequireNumber:       true,
			RequireSpecial:      false,
			BcryptCost:          bcrypt.MinCost,
			LoginTokenBytes:     32,
			LoginTokenExpiry:    24 * time.Hour,
			PasswordResetExpiry: time.Hour,
		},
		JWT: config.JWTConfig{
			SecretKey:    "k9Qz7LmX2pW4vR8tY6uN3bH5jD1fG0sA",
			Algorithm:    "HS256",
			AccessExpiry: 15 * time.Minute,
			Issuer:       "seminary-test",
		},
		Session: config.SessionConfig{
			Enabled:  true,
			Store:    "memory",
			Name:     "seminary_session",
			MaxAge:   24 * time.Hour,
			Path:     "/",
			HttpOnly: true,
			SameSite: "lax",
		},
		CSRF: config.CSRFConfig{
			Enabled:        true,
			TokenLength:    32,
			TokenLookup:    "header:X-CSRF-Token",
			CookieName:     "_csrf",
			CookiePath:     "/",
			CookieMaxAge:   86400,
			CookieSameSite: "strict",
		},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         ":memory:",
			AutoMigrate: true,
		},
		Mail: config.MailConfig{
			Transport:   "log",
			FromAddress: "noreply@seminary.test",
			FromName:    "Test Seminary",
		},
		Storage: config.StorageConfig{
			Driver:        "local",
			MaxUploadSize: 10 << 20,
		},
		Retention: config.RetentionConfig{
			Enabled:  true,
			Interval: 24 * time.Hour,
		},
		RateLimit: config.RateLimitConfig{
			Store:      "memory",
			AuthRate:   100,
			AuthPeriod: time.Minute,
			CountMode:  config.CountFailures,
		},
	}
}

var TestPasswords = struct {
	Valid       string
	TooShort    string
	NoUpper     string
	NoLower     string
	NoNumber    string
	WithSpecial string
}{
	Valid:       "Password123",
	TooShort:    "Pass1",
	NoUpper:     "password123",
	NoLower:     "PASSWORD123",
	NoNumber:    "Password",
	WithSpecial: "Password123!",
}
