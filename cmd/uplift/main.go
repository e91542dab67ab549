// Package main provides the entry point for the uplift CLI.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := Execute(ctx)
	stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}
