package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/avolkov/snapsync/internal/flagx"
	"github.com/avolkov/snapsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "30s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	ServerURL      string         `json:"server_url"`
	DeviceID       string         `json:"device_id"`
	LibraryPath    string         `json:"library_path"`
	DataDir        string         `json:"data_dir"`
	Workers        int            `json:"workers"`
	MaxRetries     int            `json:"max_retries"`
	BaseDelay      timex.Duration `json:"base_delay"`
	MaxDelay       timex.Duration `json:"max_delay"`
	RequestTimeout timex.Duration `json:"request_timeout"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Behavior:
//   - Reads and unmarshals the JSON into JsonConfig.
//   - Copies set fields into the provided Config; fields absent from the
//     JSON keep their earlier values.
//   - Panics on read or unmarshal errors (caller should recover if desired).
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config) {
	// Resolve file path from flags.
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.DeviceID != "" {
		cfg.DeviceID = jc.DeviceID
	}
	if jc.LibraryPath != "" {
		cfg.LibraryPath = jc.LibraryPath
	}
	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.Workers != 0 {
		cfg.Workers = jc.Workers
	}
	if jc.MaxRetries != 0 {
		cfg.MaxRetries = jc.MaxRetries
	}
	if jc.BaseDelay.Duration != 0 {
		cfg.BaseDelay = time.Duration(jc.BaseDelay.Duration)
	}
	if jc.MaxDelay.Duration != 0 {
		cfg.MaxDelay = time.Duration(jc.MaxDelay.Duration)
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
}
