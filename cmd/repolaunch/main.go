// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"repolaunch/internal/config"
	"repolaunch/internal/runner"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "config.yaml", "path to the batch configuration file")
	instanceID := flag.String("instance", "", "run a single instance by id (overrides config)")
	showVersion := flag.Bool("version", false, "print version and exit")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if *showVersion {
		fmt.Printf("repolaunch v%s\n", version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *instanceID != "" {
		cfg.InstanceID = *instanceID
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := runner.New(cfg, logger).Run(ctx)
	if err != nil {
		log.Fatalf("Batch aborted: %v", err)
	}

	fmt.Printf("\n%d instances: %d succeeded, %d failed (%d skipped)\n",
		summary.Total, summary.Succeeded, summary.Failed, summary.Skipped)
	if summary.Failed > 0 {
		os.Exit(1)
	}
}
