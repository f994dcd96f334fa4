package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/avolkov/snapsync/internal/cli"
	"github.com/avolkov/snapsync/internal/config"
)

func main() {

	cfg := config.LoadConfig()

	// Ctrl-C lets in-flight uploads finish and saves the checkpoint.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	cmd, args := cli.ExtractCommand(os.Args[1:])
	if err := app.Run(ctx, cmd, args); err != nil {
		log.Fatalf("%v", err)
	}
}
