package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/coevo/internal/flagx"
	"github.com/dmitrijs2005/coevo/internal/timex"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// FileConfig is a DTO used exclusively for config file decoding. Pointer
// fields distinguish "absent" from "zero" so that, for example,
// reconnect_interval: 0 can disable reconnection.
type FileConfig struct {
	ServerURL         *string         `json:"server_url" yaml:"server_url"`
	APIPrefix         *string         `json:"api_prefix" yaml:"api_prefix"`
	EventsPath        *string         `json:"events_path" yaml:"events_path"`
	RequestTimeout    *timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	ReconnectInterval *timex.Duration `json:"reconnect_interval" yaml:"reconnect_interval"`
	NotificationLimit *int            `json:"notification_limit" yaml:"notification_limit"`
	DBPath            *string         `json:"db_path" yaml:"db_path"`
	LogLevel          *string         `json:"log_level" yaml:"log_level"`
	LogFile           *string         `json:"log_file" yaml:"log_file"`
	MetricsAddr       *string         `json:"metrics_addr" yaml:"metrics_addr"`
	Archive           *ArchiveConfig  `json:"archive" yaml:"archive"`
}

// parseFile overlays cfg with the file named by -c/--config in args.
// Files ending in .yaml or .yml are YAML; anything else is JSON, which may
// contain comments and trailing commas.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("parse config file: %w", err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &fc); err != nil {
			return fmt.Errorf("parse config file: %w", err)
		}
	}

	fc.apply(cfg)
	return nil
}

func (fc *FileConfig) apply(cfg *Config) {
	setStr := func(src *string, dst *string) {
		if src != nil {
			*dst = *src
		}
	}
	setStr(fc.ServerURL, &cfg.ServerURL)
	setStr(fc.APIPrefix, &cfg.APIPrefix)
	setStr(fc.EventsPath, &cfg.EventsPath)
	setStr(fc.DBPath, &cfg.DBPath)
	setStr(fc.LogLevel, &cfg.LogLevel)
	setStr(fc.LogFile, &cfg.LogFile)
	setStr(fc.MetricsAddr, &cfg.MetricsAddr)

	if fc.RequestTimeout != nil {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.ReconnectInterval != nil {
		cfg.ReconnectInterval = fc.ReconnectInterval.Duration
	}
	if fc.NotificationLimit != nil {
		cfg.NotificationLimit = *fc.NotificationLimit
	}
	if fc.Archive != nil {
		if fc.Archive.Region == "" {
			fc.Archive.Region = cfg.Archive.Region
		}
		cfg.Archive = *fc.Archive
	}
}
