// Package config loads runtime configuration for the snapsync CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the media server HTTP API
//	-p string   root path of the local photo library
//	-d string   data directory (ledger, checkpoint, credentials)
//	-w int      transfer worker count
//	-r int      retry budget per asset
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "30s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://media.local:2283",
//	  "device_id": "laptop",
//	  "library_path": "/home/me/Pictures",
//	  "data_dir": "/home/me/.snapsync",
//	  "workers": 3,
//	  "max_retries": 3,
//	  "base_delay": "1s",
//	  "max_delay": "30s",
//	  "request_timeout": "60s"
//	}
//
// Primary API
//
//   - type Config                     — runtime settings for the CLI
//   - func LoadConfig() *Config       — builds Config by applying defaults, JSON, then flags
//   - func (*Config) LoadDefaults()   — sets sensible defaults
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
