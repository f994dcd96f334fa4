package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/avolkov/snapsync/internal/retry"
)

// Config holds runtime settings for the snapsync CLI.
//
// Fields:
//   - ServerURL: base URL of the media server HTTP API.
//   - DeviceID: tag attached to every upload so the server can scope listings
//     to this client.
//   - LibraryPath: root of the local photo library to scan.
//   - DataDir: where the ledger database, checkpoint and credentials live.
//   - Workers: transfer pool width.
//   - MaxRetries: retry budget per asset.
//   - BaseDelay / MaxDelay: exponential backoff bounds between attempts.
//   - RequestTimeout: per-request HTTP timeout.
type Config struct {
	ServerURL      string
	DeviceID       string
	LibraryPath    string
	DataDir        string
	Workers        int
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:2283"
	c.DeviceID, _ = os.Hostname()
	if c.DeviceID == "" {
		c.DeviceID = "snapsync"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	c.LibraryPath = filepath.Join(home, "Pictures")
	c.DataDir = filepath.Join(home, ".snapsync")

	c.Workers = 3
	c.MaxRetries = retry.DefaultMaxRetries
	c.BaseDelay = retry.DefaultBaseDelay
	c.MaxDelay = retry.DefaultMaxDelay
	c.RequestTimeout = 60 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// RetryPolicy builds the transfer retry policy from the configured bounds.
func (c *Config) RetryPolicy() retry.Policy {
	p := retry.NewPolicy(c.MaxRetries)
	if c.BaseDelay > 0 {
		p.BaseDelay = c.BaseDelay
	}
	if c.MaxDelay > 0 {
		p.MaxDelay = c.MaxDelay
	}
	return p
}
