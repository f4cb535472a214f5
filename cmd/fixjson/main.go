// Command fixjson rewrites NaN and Infinity values in JSON files as null so
// that strict parsers accept them.
//
// Usage:
//
//	fixjson [-dir data/processed] [-config crimestats.yaml] [file.json ...]
//
// Without file arguments the default file list is repaired inside -dir.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crimestats/internal/config"
	"crimestats/internal/infrastructure"
	"crimestats/internal/jsonfix"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run repairs the selected files and returns the exit code. Missing files
// are reported but only a file that is still invalid fails the run.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fixjson", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("dir", ".", "directory holding the JSON files")
	configPath := fs.String("config", "", "path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}

	logHandle, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer logHandle.Close()
	logger := logHandle.Logger

	ctx = infrastructure.EnsureRunID(ctx)

	telemetry, err := infrastructure.NewTelemetry(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize telemetry", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	summary := jsonfix.NewRepairer(logger, telemetry).RepairAll(ctx, *dir, fs.Args())

	code := 0
	for _, res := range summary.Results {
		line := fmt.Sprintf("%s: %s", res.File, res.Status)
		switch res.Status {
		case jsonfix.StatusRepaired:
			line = fmt.Sprintf("%s (%d replacements)", line, res.Replacements)
		case jsonfix.StatusFailed:
			line = fmt.Sprintf("%s (%v)", line, res.Err)
			code = 1
		}
		fmt.Fprintln(stdout, line)
	}
	fmt.Fprintln(stdout, summary.String())
	return code
}
