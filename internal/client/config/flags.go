package config

import (
	"github.com/dmitrijs2005/coevo/internal/flagx"
	"github.com/spf13/pflag"
)

// RegisterFlags defines the configuration flags on fs, bound to cfg with
// cfg's current values as defaults. The CLI registers them on its root
// command so that they are accepted and documented; LoadConfig parses them
// independently.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	var config string
	fs.StringVarP(&config, "config", "c", "", "path to config file (.json, .jsonc, .yaml)")
	fs.StringVarP(&cfg.ServerURL, "server", "s", cfg.ServerURL, "backend base URL")
	fs.StringVar(&cfg.APIPrefix, "api-prefix", cfg.APIPrefix, "REST path prefix")
	fs.StringVar(&cfg.EventsPath, "events-path", cfg.EventsPath, "event stream path under the API prefix")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "default timeout for API requests")
	fs.DurationVar(&cfg.ReconnectInterval, "reconnect-interval", cfg.ReconnectInterval, "event stream reconnect interval (0 disables)")
	fs.IntVar(&cfg.NotificationLimit, "notification-limit", cfg.NotificationLimit, "number of recent notifications kept")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the local cache database")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log file (default stderr)")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "address for the Prometheus /metrics listener")
}

// parseFlags populates cfg from the configuration flags found in args.
// Arguments that are not configuration flags are filtered out first with
// flagx.FilterArgs, so subcommands and their own flags do not interfere.
func parseFlags(cfg *Config, args []string) error {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	RegisterFlags(fs, cfg)
	return fs.Parse(flagx.FilterArgs(args, flagx.Names(fs)))
}
