package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config holds runtime settings for the CoEvo CLI.
//
// Units: RequestTimeout and ReconnectInterval are time.Duration values.
// A zero ReconnectInterval disables automatic event-stream reconnection.
type Config struct {
	ServerURL         string
	APIPrefix         string
	EventsPath        string
	RequestTimeout    time.Duration
	ReconnectInterval time.Duration
	NotificationLimit int
	DBPath            string
	LogLevel          string
	LogFile           string
	MetricsAddr       string
	Archive           ArchiveConfig
}

// ArchiveConfig configures the optional S3-compatible bucket that receives
// audit exports.
type ArchiveConfig struct {
	Bucket    string `json:"bucket" yaml:"bucket"`
	Region    string `json:"region" yaml:"region"`
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
}

// Enabled reports whether an archive bucket is configured.
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000"
	c.APIPrefix = "/api"
	c.EventsPath = "/events"
	c.RequestTimeout = 15 * time.Second
	c.ReconnectInterval = 3 * time.Second
	c.NotificationLimit = 25
	c.DBPath = "coevo.db"
	c.LogLevel = "info"
	c.LogFile = ""
	c.MetricsAddr = ""
	c.Archive = ArchiveConfig{Region: "us-east-1"}
}

var (
	ErrInvalidServerURL = errors.New("invalid server url")
	ErrInvalidValue     = errors.New("invalid config value")
)

// Validate checks the assembled configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidServerURL, c.ServerURL)
	}
	if c.NotificationLimit <= 0 {
		return fmt.Errorf("%w: notification_limit must be positive", ErrInvalidValue)
	}
	if c.RequestTimeout < 0 || c.ReconnectInterval < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidValue)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment (including a .env file in the working directory), the
// config file selected by -c/--config and finally command-line flags taken
// from args. Later sources take precedence over earlier ones.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	loadDotEnv(".env")
	if err := parseEnv(cfg, lookupEnv); err != nil {
		return nil, err
	}
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
