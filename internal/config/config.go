package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override, e.g. TASKMATE_SERVER.
const EnvPrefix = "TASKMATE"

var ErrInvalidServer = errors.New("config: server must be an absolute http(s) URL")

// Config is the client configuration.
type Config struct {
	Server    string        `yaml:"server"`
	Timeout   time.Duration `yaml:"timeout"`
	LogLevel  string        `yaml:"log_level"`
	LogFile   string        `yaml:"log_file"`
	Theme     string        `yaml:"theme"`
	NoticeTTL time.Duration `yaml:"notice_ttl"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	cfg := &Config{
		Server:    "http://localhost:8080",
		Timeout:   10 * time.Second,
		LogLevel:  "info",
		Theme:     "classic",
		NoticeTTL: 3 * time.Second,
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.LogFile = filepath.Join(home, ".taskmate", "taskmate.log")
	}
	return cfg
}

// DefaultPath is ~/.taskmate/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".taskmate", "config.yaml")
}

// Load reads an optional .env file and an optional YAML file, then applies
// TASKMATE_* environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := env("SERVER"); v != "" {
		c.Server = v
	}
	if v := env("TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s_TIMEOUT: %w", EnvPrefix, err)
		}
		c.Timeout = d
	}
	if v := env("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv(EnvPrefix + "_LOG_FILE"); ok {
		c.LogFile = strings.TrimSpace(v)
	}
	if v := env("THEME"); v != "" {
		c.Theme = v
	}
	return nil
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + "_" + name))
}

// Validate checks the server address and timeout and normalises the server
// by dropping a trailing slash.
func (c *Config) Validate() error {
	c.Server = strings.TrimRight(strings.TrimSpace(c.Server), "/")
	u, err := url.Parse(c.Server)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidServer, c.Server)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive, got %s", c.Timeout)
	}
	if c.NoticeTTL < 0 {
		return fmt.Errorf("config: notice_ttl must not be negative, got %s", c.NoticeTTL)
	}
	return nil
}
