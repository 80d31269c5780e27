package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"imagelite/internal/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	memory.ConfigureFromEnv()

	if err := newApp(os.Stdout, os.Stderr).Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "imagelite: %v\n", err)
		os.Exit(1)
	}
}
