package config

import (
	"flag"
	"os"

	"github.com/avolkov/snapsync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the media server (default from Config)
//	-p string   root path of the local photo library
//	-d string   data directory for ledger, checkpoint and credentials
//	-w int      transfer worker count
//	-r int      retry budget per asset
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-p", "-d", "-w", "-r"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the media server")
	fs.StringVar(&cfg.LibraryPath, "p", cfg.LibraryPath, "root path of the local photo library")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory for ledger, checkpoint and credentials")
	fs.IntVar(&cfg.Workers, "w", cfg.Workers, "transfer worker count")
	fs.IntVar(&cfg.MaxRetries, "r", cfg.MaxRetries, "retry budget per asset")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
