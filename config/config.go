package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig          `envPrefix:"EXPENSIO_APP_"`
	Server       ServerConfig       `envPrefix:"EXPENSIO_SERVER_"`
	Log          LogConfig          `envPrefix:"EXPENSIO_LOG_"`
	Database     DatabaseConfig     `envPrefix:"EXPENSIO_DB_"`
	JWT          JWTConfig          `envPrefix:"EXPENSIO_JWT_"`
	RefreshToken RefreshTokenConfig `envPrefix:"EXPENSIO_REFRESH_TOKEN_"`
	Auth         AuthConfig         `envPrefix:"EXPENSIO_AUTH_"`
}

type AppConfig struct {
	Name string `env:"NAME" envDefault:"Expensio"`
	URL  string `env:"URL" envDefault:"http://localhost:8080"`
}

type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Host string `env:"HOST" envDefault:"localhost"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite"`
	DSN         string `env:"DSN" envDefault:"expensio.db"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

type JWTConfig struct {
	SecretKey    string        `env:"SECRET_KEY,required"`
	Algorithm    string        `env:"ALGORITHM" envDefault:"HS256"`
	AccessExpiry time.Duration `env:"ACCESS_EXPIRY" envDefault:"30m"`
	Issuer       string        `env:"ISSUER" envDefault:"expensio"`
}

type RefreshTokenConfig struct {
	Expiry          time.Duration `env:"EXPIRY" envDefault:"168h"`
	TokenLength     int           `env:"TOKEN_LENGTH" envDefault:"32"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
}

type AuthConfig struct {
	MinLength     int  `env:"MIN_LENGTH" envDefault:"8"`
	RequireLetter bool `env:"REQUIRE_LETTER" envDefault:"true"`
	RequireNumber bool `env:"REQUIRE_NUMBER" envDefault:"true"`
	BcryptCost    int  `env:"BCRYPT_COST" envDefault:"10"`
}

func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	return env.Parse(cfg)
}
