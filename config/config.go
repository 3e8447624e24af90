// Package config handles loading and validation of application configuration
// from environment variables and optional config files.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/wayfarer-app/wayfarer-backend/logger"
)

// Environment represents the application's running environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"

	minSecretLength = 32
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT"`
	Port           string      `mapstructure:"PORT"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS"`
	JwtSecretKey   string      `mapstructure:"JWT_SECRET_KEY"`
	FrontendURL    string      `mapstructure:"FRONTEND_URL"`
}

// DatabaseConfig holds PostgreSQL connection details.
type DatabaseConfig struct {
	Host           string `mapstructure:"HOST"`
	Port           int    `mapstructure:"PORT"`
	User           string `mapstructure:"USER"`
	Password       string `mapstructure:"PASSWORD"`
	Name           string `mapstructure:"NAME"`
	SSLMode        string `mapstructure:"SSL_MODE"`
	MaxConnections int    `mapstructure:"MAX_CONNECTIONS"`
}

// URL returns a postgres:// connection URL suitable for pgx and
// golang-migrate.
func (c *DatabaseConfig) URL() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		sslmode,
	)
}

// RedisConfig holds Redis connection details for the event publisher.
type RedisConfig struct {
	Address  string `mapstructure:"ADDRESS"`
	Password string `mapstructure:"PASSWORD"`
	DB       int    `mapstructure:"DB"`
}

// EmailConfig holds configuration for sending invitation emails.
type EmailConfig struct {
	FromAddress  string `mapstructure:"FROM_ADDRESS"`
	FromName     string `mapstructure:"FROM_NAME"`
	ResendAPIKey string `mapstructure:"RESEND_API_KEY"`
}

// PaymentGatewayConfig holds the external payment gateway credentials.
type PaymentGatewayConfig struct {
	APIURL        string `mapstructure:"API_URL"`
	APIKey        string `mapstructure:"API_KEY"`
	WebhookSecret string `mapstructure:"WEBHOOK_SECRET"`
}

// Config is the root application configuration.
type Config struct {
	Server         ServerConfig         `mapstructure:"SERVER"`
	Database       DatabaseConfig       `mapstructure:"DB"`
	Redis          RedisConfig          `mapstructure:"REDIS"`
	Email          EmailConfig          `mapstructure:"EMAIL"`
	PaymentGateway PaymentGatewayConfig `mapstructure:"PAYMENT"`
}

// LoadConfig reads configuration from the environment (and an optional
// config.yaml alongside the binary) and validates it.
func LoadConfig() (*Config, error) {
	log := logger.GetLogger()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Debugw("No config file found, using environment only")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Infow("Configuration loaded",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"dbHost", cfg.Database.Host,
		"dbURL", logger.MaskConnectionString(cfg.Database.URL()),
	)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER.ENVIRONMENT", string(EnvDevelopment))
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	v.SetDefault("DB.HOST", "localhost")
	v.SetDefault("DB.PORT", 5432)
	v.SetDefault("DB.NAME", "wayfarer")
	v.SetDefault("DB.SSL_MODE", "disable")
	v.SetDefault("DB.MAX_CONNECTIONS", 10)
	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.DB", 0)
}

// Validate checks required settings, with stricter rules in production.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.JwtSecretKey == "" {
		problems = append(problems, "SERVER.JWT_SECRET_KEY is required")
	} else if c.Server.Environment == EnvProduction && len(c.Server.JwtSecretKey) < minSecretLength {
		problems = append(problems, fmt.Sprintf("SERVER.JWT_SECRET_KEY must be at least %d characters in production", minSecretLength))
	}
	if c.Database.User == "" {
		problems = append(problems, "DB.USER is required")
	}
	if c.Server.Environment == EnvProduction {
		if c.Database.Password == "" {
			problems = append(problems, "DB.PASSWORD is required in production")
		}
		if c.Database.SSLMode == "disable" {
			problems = append(problems, "DB.SSL_MODE must not be disable in production")
		}
		if c.PaymentGateway.WebhookSecret == "" {
			problems = append(problems, "PAYMENT.WEBHOOK_SECRET is required in production")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
