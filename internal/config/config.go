package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	API    APIConfig    `mapstructure:"api"`
	Server ServerConfig `mapstructure:"server"`
	JWT    JWTConfig    `mapstructure:"jwt"`
	Log    LogConfig    `mapstructure:"log"`
}

// APIConfig configures the portal client side.
type APIConfig struct {
	BaseURL       string        `mapstructure:"base_url" envconfig:"API_BASE_URL"`
	Timeout       time.Duration `mapstructure:"timeout" envconfig:"API_TIMEOUT"`
	SubmitTimeout time.Duration `mapstructure:"submit_timeout" envconfig:"API_SUBMIT_TIMEOUT"`
	TokenFile     string        `mapstructure:"token_file" envconfig:"API_TOKEN_FILE"`
}

// ServerConfig configures the reference backend.
type ServerConfig struct {
	Port           int `mapstructure:"port" envconfig:"SERVER_PORT"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds" envconfig:"SERVER_TIMEOUT_SECONDS"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret" envconfig:"JWT_SECRET"`
	ExpiryHours int    `mapstructure:"expiry_hours" envconfig:"JWT_EXPIRY_HOURS"`
}

type LogConfig struct {
	Level   string `mapstructure:"level" envconfig:"LOG_LEVEL"`
	Console bool   `mapstructure:"console" envconfig:"LOG_CONSOLE"`
}

// Load reads config.yml from the working directory or ./config and applies
// PORTAL_* environment overrides on top.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	cfg := defaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No file is fine: defaults plus env cover the common case.
	} else if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("portal", cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:       "http://localhost:4000",
			Timeout:       30 * time.Second,
			SubmitTimeout: 30 * time.Second,
			TokenFile:     ".portal-token",
		},
		Server: ServerConfig{
			Port:           4000,
			TimeoutSeconds: 30,
		},
		JWT: JWTConfig{
			Secret:      "dev-secret-change-me",
			ExpiryHours: 24,
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
	}
}
