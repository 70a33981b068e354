package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/thalib/veil/cmd/veil/internal/cli"
)

func main() {
	// Interrupts cancel the query context; a running hash is left to finish
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
