// Package config loads runtime configuration for the CoEvo CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment: a .env file in the working directory, then COEVO_*
//     variables (already-set variables win over .env entries).
//  3. Optional config file selected with -c/--config. YAML when the name ends
//     in .yaml/.yml, otherwise JSON with comments allowed.
//  4. Command-line flags, which override earlier values.
//
// # File schema
//
// Durations accept strings like "3s" or integer nanoseconds (timex.Duration):
//
//	{
//	  // backend
//	  "server_url": "http://127.0.0.1:8000",
//	  "api_prefix": "/api",
//	  "events_path": "/events",
//	  "request_timeout": "15s",
//	  "reconnect_interval": "3s",
//	  "notification_limit": 25,
//	  "db_path": "coevo.db",
//	  "log_level": "info",
//	  "metrics_addr": ":9102",
//	  "archive": {"bucket": "audit", "region": "us-east-1", "endpoint": "http://localhost:9000"}
//	}
package config
