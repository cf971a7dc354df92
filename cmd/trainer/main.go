package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"example.com/training/internal/runner"
)

func main() {
	log.SetPrefix("[trainer] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runner.Run(ctx, os.Stdout, runner.DefaultPackages()); err != nil {
		log.Fatalf("run failed: %v", err)
	}
}
