package testutils

import (
	"time"

	"github.com/expensio/expensio/config"
	"golang.org/x/crypto/bcrypt"
)

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "Expensio Test",
			URL:  "http://localhost:8080",
		},
		Auth: config.AuthConfig{
			MinLength:     8,
			RequireLetter: true,
			RequireNumber: true,
			BcryptCost:    bcrypt.MinCost,
		},
		JWT: config.JWTConfig{
			SecretKey:    "test-secret-key-32-chars-long!!",
			Algorithm:    "HS256",
			AccessExpiry: 30 * time.Minute,
			Issuer:       "test-issuer",
		},
		RefreshToken: config.RefreshTokenConfig{
			Expiry:          7 * 24 * time.Hour,
			TokenLength:     32,
			CleanupInterval: time.Hour,
		},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         ":memory:",
			AutoMigrate: true,
		},
	}
}

var TestPasswords = struct {
	Valid    string
	TooShort string
	NoLetter string
	NoNumber string
}{
	Valid:    "Passw0rd",
	TooShort: "Pass1",
	NoLetter: "12345678",
	NoNumber: "password",
}

var TestUsers = struct {
	ValidEmail   string
	SecondEmail  string
	InvalidEmail string
	Password     string
}{
	ValidEmail:   "u@example.com",
	SecondEmail:  "other@example.com",
	InvalidEmail: "not-an-email",
	Password:     "Passw0rd",
}
