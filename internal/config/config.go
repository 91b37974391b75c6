// Package config loads relay settings from defaults, an optional YAML file,
// a .env file and the environment, in that order of precedence (lowest
// first).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults for the upstream provider.
const (
	DefaultProviderURL   = "https://ai.gateway.lovable.dev/v1"
	DefaultModel         = "google/gemini-2.5-pro"
	DefaultAddr          = ":8080"
	DefaultMaxUploadSize = 10 << 20
)

// Config is the full relay configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Provider ProviderConfig `yaml:"provider"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr            string `yaml:"addr"`
	MaxUploadSize   int64  `yaml:"max_upload_size"`
	ShutdownSeconds int    `yaml:"shutdown_seconds"`
}

type ProviderConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			MaxUploadSize:   DefaultMaxUploadSize,
			ShutdownSeconds: 15,
		},
		Provider: ProviderConfig{
			BaseURL: DefaultProviderURL,
			Model:   DefaultModel,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration. path may be empty; a missing .env file is
// not an error.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Provider.BaseURL) == "" {
		return errors.New("config: provider.base_url is required")
	}
	if strings.TrimSpace(c.Provider.Model) == "" {
		return errors.New("config: provider.model is required")
	}
	if c.Server.MaxUploadSize <= 0 {
		return errors.New("config: server.max_upload_size must be positive")
	}
	if c.Server.ShutdownSeconds <= 0 {
		return errors.New("config: server.shutdown_seconds must be positive")
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(target *string, keys ...string) {
		for _, key := range keys {
			if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
				*target = strings.TrimSpace(v)
				return
			}
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		cfg.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	str(&cfg.Server.Addr, "DEEPTRUST_ADDR")
	str(&cfg.Provider.BaseURL, "DEEPTRUST_PROVIDER_URL", "AI_GATEWAY_URL")
	str(&cfg.Provider.APIKey, "DEEPTRUST_PROVIDER_API_KEY", "AI_GATEWAY_API_KEY")
	str(&cfg.Provider.Model, "DEEPTRUST_MODEL", "AI_MODEL")
	str(&cfg.Log.Level, "DEEPTRUST_LOG_LEVEL")

	if v, ok := lookup("DEEPTRUST_MAX_UPLOAD_SIZE"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: DEEPTRUST_MAX_UPLOAD_SIZE: %w", err)
		}
		cfg.Server.MaxUploadSize = n
	}
	if v, ok := lookup("DEEPTRUST_SHUTDOWN_SECONDS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: DEEPTRUST_SHUTDOWN_SECONDS: %w", err)
		}
		cfg.Server.ShutdownSeconds = n
	}
	if v, ok := lookup("DEEPTRUST_LOG_DEVELOPMENT"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: DEEPTRUST_LOG_DEVELOPMENT: %w", err)
		}
		cfg.Log.Development = b
	}
	return nil
}
