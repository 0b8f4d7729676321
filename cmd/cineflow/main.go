package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cineflow/console/internal/cli"
	"cineflow/console/internal/config"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(cli.NewApp(cfg, os.Stdout, os.Stderr))
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
