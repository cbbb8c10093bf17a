package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "COEVO_"

var lookupEnv = os.LookupEnv

// loadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set win; a missing file is not an error.
func loadDotEnv(path string) {
	_ = godotenv.Load(path)
}

// parseEnv overlays cfg with COEVO_* variables resolved through lookup.
func parseEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := lookup(envPrefix + name)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = d
		return nil
	}

	str("SERVER_URL", &cfg.ServerURL)
	str("API_PREFIX", &cfg.APIPrefix)
	str("EVENTS_PATH", &cfg.EventsPath)
	str("DB_PATH", &cfg.DBPath)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FILE", &cfg.LogFile)
	str("METRICS_ADDR", &cfg.MetricsAddr)
	str("ARCHIVE_BUCKET", &cfg.Archive.Bucket)
	str("ARCHIVE_REGION", &cfg.Archive.Region)
	str("ARCHIVE_ENDPOINT", &cfg.Archive.Endpoint)
	str("ARCHIVE_ACCESS_KEY", &cfg.Archive.AccessKey)
	str("ARCHIVE_SECRET_KEY", &cfg.Archive.SecretKey)

	if err := dur("REQUEST_TIMEOUT", &cfg.RequestTimeout); err != nil {
		return err
	}
	if err := dur("RECONNECT_INTERVAL", &cfg.ReconnectInterval); err != nil {
		return err
	}

	if v, ok := lookup(envPrefix + "NOTIFICATION_LIMIT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sNOTIFICATION_LIMIT: %w", envPrefix, err)
		}
		cfg.NotificationLimit = n
	}
	return nil
}
