package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"mirror-sync-go/pkg/logger"
)

func main() {
	log := logger.NewFromEnv("mirror-sync")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(log)
	if err := cmd.ExecuteContext(ctx); err != nil {
		log.Critical("app: exited with error", "err", err)
		stop()
		os.Exit(1)
	}
}
