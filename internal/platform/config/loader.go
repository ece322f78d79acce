package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when no explicit
// path is given.
const DefaultConfigFile = ".config.yaml"

// Loader assembles configuration from defaults, an optional yaml file, and
// environment variables, in that order of precedence (later wins).
type Loader struct {
	useDotEnv bool
	path      string
}

// NewLoader creates a loader with .env support enabled.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		path:      DefaultConfigFile,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the yaml config file location.
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
	}
	return l
}

// Result captures the loaded configuration and its origin path. Path is
// empty when only defaults and environment were used.
type Result struct {
	Config *Config
	Path   string
}

// Load builds the effective configuration.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		if err := godotenv.Load(); err != nil {
			// no .env file, system environment applies as-is
		}
	}

	cfg := DefaultConfig()
	path := ""

	if data, err := os.ReadFile(l.path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", l.path, err)
		}
		path = l.path
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file %s: %w", l.path, err)
	}

	l.applyEnv(cfg)

	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{
		Config: cfg,
		Path:   path,
	}, nil
}

// applyEnv overlays PIXELRANK_* environment variables.
func (l *Loader) applyEnv(cfg *Config) {
	if v := os.Getenv("PIXELRANK_INPUT"); v != "" {
		cfg.Input.Location = v
	}
	if v := os.Getenv("PIXELRANK_OUTPUT"); v != "" {
		cfg.Output.Path = v
	}
	if v := os.Getenv("PIXELRANK_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.Concurrency = n
		}
	}
	if v := os.Getenv("PIXELRANK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PIXELRANK_WEB_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Web.Port = n
		}
	}
}

func (l *Loader) validate(cfg *Config) error {
	if cfg.Input.Location == "" {
		return fmt.Errorf("input location must not be empty")
	}
	if cfg.Output.Path == "" {
		return fmt.Errorf("output path must not be empty")
	}
	if cfg.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline concurrency must be at least 1, got %d", cfg.Pipeline.Concurrency)
	}
	if cfg.Fetch.MaxFileSize <= 0 {
		return fmt.Errorf("fetch max_file_size must be positive, got %d", cfg.Fetch.MaxFileSize)
	}
	if cfg.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %v", cfg.Fetch.Timeout)
	}
	if cfg.Web.Enabled && (cfg.Web.Port < 1 || cfg.Web.Port > 65535) {
		return fmt.Errorf("web port out of range: %d", cfg.Web.Port)
	}
	return nil
}
