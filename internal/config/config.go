package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendAPI      = "api"
	BackendPostgres = "postgres"

	defaultAPIURL = "https://api.eclipse.org"
)

// Config is loaded from an optional YAML file (ECA_CONFIG_FILE) and then
// overridden by environment variables.
type Config struct {
	Env        string `yaml:"env"`
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`

	// Backend selects where accounts, bots and projects come from.
	Backend     string `yaml:"backend"`
	DatabaseURL string `yaml:"database_url"`

	AccountsAPIURL string        `yaml:"accounts_api_url"`
	BotsAPIURL     string        `yaml:"bots_api_url"`
	ProjectsAPIURL string        `yaml:"projects_api_url"`
	APIToken       string        `yaml:"api_token"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`

	ValidationTimeout time.Duration `yaml:"validation_timeout"`
	ValidationWorkers int           `yaml:"validation_workers"`
	StatusWorkers     int           `yaml:"status_workers"`
	StatusQueue       int           `yaml:"status_queue"`
}

func defaults() Config {
	return Config{
		Env:               "development",
		ListenAddr:        ":8080",
		LogLevel:          "info",
		Backend:           BackendAPI,
		AccountsAPIURL:    defaultAPIURL,
		BotsAPIURL:        defaultAPIURL,
		ProjectsAPIURL:    "https://projects.eclipse.org",
		CacheTTL:          10 * time.Minute,
		HTTPTimeout:       10 * time.Second,
		ValidationTimeout: 30 * time.Second,
		ValidationWorkers: 8,
		StatusWorkers:     0,
		StatusQueue:       256,
	}
}

func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv("ECA_CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.Env = getenv("APP_ENV", cfg.Env)
	cfg.ListenAddr = getenv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.Backend = strings.ToLower(getenv("REGISTRY_BACKEND", cfg.Backend))
	cfg.DatabaseURL = getenv("DATABASE_URL", cfg.DatabaseURL)
	cfg.AccountsAPIURL = getenv("ACCOUNTS_API_URL", cfg.AccountsAPIURL)
	cfg.BotsAPIURL = getenv("BOTS_API_URL", cfg.BotsAPIURL)
	cfg.ProjectsAPIURL = getenv("PROJECTS_API_URL", cfg.ProjectsAPIURL)
	cfg.APIToken = getenv("API_TOKEN", cfg.APIToken)
	cfg.CacheTTL = getenvDuration("REGISTRY_CACHE_TTL", cfg.CacheTTL)
	cfg.HTTPTimeout = getenvDuration("HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.ValidationTimeout = getenvDuration("VALIDATION_TIMEOUT", cfg.ValidationTimeout)
	cfg.ValidationWorkers = getenvInt("VALIDATION_WORKERS", cfg.ValidationWorkers)
	cfg.StatusWorkers = getenvInt("STATUS_WORKERS", cfg.StatusWorkers)
	cfg.StatusQueue = getenvInt("STATUS_QUEUE", cfg.StatusQueue)

	return cfg, cfg.Validate()
}

// Validate reports settings the selected backend cannot run without.
func (c Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendAPI:
		if c.AccountsAPIURL == "" || c.BotsAPIURL == "" || c.ProjectsAPIURL == "" {
			errs = append(errs, errors.New("api backend requires ACCOUNTS_API_URL, BOTS_API_URL and PROJECTS_API_URL"))
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("postgres backend requires DATABASE_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown REGISTRY_BACKEND %q", c.Backend))
	}
	if c.StatusWorkers > 0 && c.DatabaseURL == "" {
		errs = append(errs, errors.New("STATUS_WORKERS requires DATABASE_URL"))
	}
	if c.ValidationWorkers < 1 {
		errs = append(errs, errors.New("VALIDATION_WORKERS must be positive"))
	}
	return errors.Join(errs...)
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
