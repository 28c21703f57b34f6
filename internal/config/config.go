// Package config содержит логику чтения конфигурации агента панели мерчанта.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultRunAddress     = "localhost:8080"
	defaultCurrencySymbol = "₦"
	defaultLoaderRetries  = 3
	defaultLoaderDelay    = time.Second
)

// Config содержит параметры конфигурации агента.
type Config struct {
	RunAddress      string        `env:"RUN_ADDRESS"`
	BackendURL      string        `env:"BACKEND_API_URL"`
	DatabaseURI     string        `env:"DATABASE_URI"`
	RedisAddress    string        `env:"REDIS_ADDRESS"`
	CurrencySymbol  string        `env:"CURRENCY_SYMBOL"`
	LoaderRetries   int           `env:"LOADER_MAX_RETRIES"`
	LoaderBaseDelay time.Duration `env:"LOADER_BASE_DELAY"`
}

// Parse считывает конфигурацию из .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	// .env необязателен: при его отсутствии работаем с окружением процесса
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envCfg := *cfg

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.BackendURL, "b", "", "commerce backend API base URL")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI for credential storage")
	flag.StringVar(&cfg.RedisAddress, "r", "", "redis address for credential storage")
	flag.StringVar(&cfg.CurrencySymbol, "c", defaultCurrencySymbol, "currency symbol for amount display")
	flag.IntVar(&cfg.LoaderRetries, "retries", defaultLoaderRetries, "retries for merchant and onboarding loads")
	flag.DurationVar(&cfg.LoaderBaseDelay, "retry-delay", defaultLoaderDelay, "base delay of exponential backoff")

	flag.Parse()

	if envCfg.RunAddress != "" {
		cfg.RunAddress = envCfg.RunAddress
	}
	if envCfg.BackendURL != "" {
		cfg.BackendURL = envCfg.BackendURL
	}
	if envCfg.DatabaseURI != "" {
		cfg.DatabaseURI = envCfg.DatabaseURI
	}
	if envCfg.RedisAddress != "" {
		cfg.RedisAddress = envCfg.RedisAddress
	}
	if envCfg.CurrencySymbol != "" {
		cfg.CurrencySymbol = envCfg.CurrencySymbol
	}
	// ноль допустим для числовых параметров, поэтому учитываем само наличие переменной
	if _, ok := os.LookupEnv("LOADER_MAX_RETRIES"); ok {
		cfg.LoaderRetries = envCfg.LoaderRetries
	}
	if _, ok := os.LookupEnv("LOADER_BASE_DELAY"); ok {
		cfg.LoaderBaseDelay = envCfg.LoaderBaseDelay
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.BackendURL == "" {
		return errors.New("backend API URL is required (BACKEND_API_URL or -b)")
	}
	if c.LoaderRetries < 0 {
		return fmt.Errorf("loader retries must not be negative, got %d", c.LoaderRetries)
	}
	if c.LoaderBaseDelay <= 0 {
		return fmt.Errorf("loader base delay must be positive, got %s", c.LoaderBaseDelay)
	}
	return nil
}
