package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/avolkov/snapsync/internal/client"
	"github.com/avolkov/snapsync/internal/common"
	"github.com/avolkov/snapsync/internal/config"
	"github.com/avolkov/snapsync/internal/credentials"
	"github.com/avolkov/snapsync/internal/db"
	"github.com/avolkov/snapsync/internal/filex"
	"github.com/avolkov/snapsync/internal/library"
	"github.com/avolkov/snapsync/internal/logging"
	"github.com/avolkov/snapsync/internal/repositories/checkpoint"
	"github.com/avolkov/snapsync/internal/repositories/conflicts"
	"github.com/avolkov/snapsync/internal/repositories/ledger"
	"github.com/avolkov/snapsync/internal/services/reconcile"
	syncsvc "github.com/avolkov/snapsync/internal/services/sync"

	_ "modernc.org/sqlite"
)

// App wires the configuration, storage and services behind the CLI commands.
type App struct {
	config      *config.Config
	log         logging.Logger
	conn        *sql.DB
	ledger      ledger.Repository
	conflicts   conflicts.Repository
	checkpoints checkpoint.Store
	creds       credentials.Store
	api         client.Client
	sync        *syncsvc.Service
	reconcile   *reconcile.Engine
	reader      *bufio.Reader
	out         io.Writer
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.Default()

	if _, err := filex.EnsureDir(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	conn, err := db.Open(ctx, filepath.Join(cfg.DataDir, "ledger.db"))
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	creds := credentials.NewFileStore(cfg.DataDir)
	apiKey, err := creds.Get(ctx)
	if err != nil && !errors.Is(err, common.ErrNoCredentials) {
		_ = db.Close(conn)
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	api := client.NewHTTPClient(cfg.ServerURL, cfg.DeviceID, string(apiKey),
		client.WithTimeout(cfg.RequestTimeout))
	common.WipeByteArray(apiKey)

	ledgerRepo := ledger.NewSQLiteRepository(conn)
	conflictRepo := conflicts.NewSQLiteRepository(conn)
	checkpoints := checkpoint.NewFileStore(filepath.Join(cfg.DataDir, "checkpoint.json"))
	lib := library.NewFSLibrary(cfg.LibraryPath)

	return &App{
		config:      cfg,
		log:         log,
		conn:        conn,
		ledger:      ledgerRepo,
		conflicts:   conflictRepo,
		checkpoints: checkpoints,
		creds:       creds,
		api:         api,
		sync:        syncsvc.NewService(ledgerRepo, checkpoints, lib, api, cfg.RetryPolicy(), log),
		reconcile:   reconcile.NewEngine(ledgerRepo, conflictRepo, api, log),
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}, nil
}

// Close releases the ledger database.
func (a *App) Close() error {
	return db.Close(a.conn)
}

// Run dispatches one subcommand.
func (a *App) Run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "", "help":
		a.printHelp()
		return nil
	case "sync":
		return a.Sync(ctx, args, false)
	case "resume":
		return a.Sync(ctx, args, true)
	case "status":
		return a.Status(ctx)
	case "reconcile":
		return a.Reconcile(ctx)
	case "resolve":
		return a.Resolve(ctx, args)
	case "login":
		return a.Login(ctx)
	case "logout":
		return a.Logout(ctx)
	case "reset":
		return a.Reset(ctx)
	case "flush":
		return a.Flush(ctx)
	default:
		return fmt.Errorf("unknown command %q, run 'snapsync help'", cmd)
	}
}

func (a *App) printHelp() {
	fmt.Fprintln(a.out, `snapsync — upload-once photo library sync

Usage: snapsync [flags] <command> [command flags]

Commands:
  sync        scan the library and upload new assets
  resume      like sync, but continue from the last checkpoint
  status      show ledger counts and checkpoint state
  reconcile   diff the ledger against the server and store conflicts
  resolve     apply a decision to a pending conflict
  login       store the media server API key
  logout      remove the stored API key
  reset       delete every ledger record (asks for confirmation)
  flush       fold the ledger write-ahead log into the main database file

Flags:
  -a URL      media server base URL
  -p PATH     photo library root
  -d PATH     data directory
  -w N        transfer workers
  -r N        retry budget per asset
  -c FILE     JSON config file`)
}

// valueFlags are the global flags that consume the following argument.
// ExtractCommand needs them to tell a flag value apart from the command word.
var valueFlags = map[string]struct{}{
	"-a": {}, "-p": {}, "-d": {}, "-w": {}, "-r": {}, "-c": {}, "-config": {},
}

// ExtractCommand splits os.Args-style arguments into the subcommand and its
// arguments, skipping over the global configuration flags.
func ExtractCommand(args []string) (string, []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if _, ok := valueFlags[arg]; ok {
			i++ // skip the flag's value
			continue
		}
		if len(arg) > 0 && arg[0] == '-' {
			continue
		}
		return arg, args[i+1:]
	}
	return "", nil
}
