// Command crimestats-etl extracts a crime statistics file, cleans it through
// the transform pipeline and writes the configured outputs.
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
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"crimestats/internal/config"
	"crimestats/internal/infrastructure"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

// cliFlags holds command line overrides of the configuration
type cliFlags struct {
	configPath string
	input      string
	population string
	outDir     string
	strategy   string
	formats    string
	dsn        string
	table      string
}

func parseFlags(args []string, stderr io.Writer) (*cliFlags, error) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("crimestats-etl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configPath, "config", "", "path to a YAML config file (defaults to crimestats.yaml or configs/crimestats.yaml)")
	fs.StringVar(&f.input, "input", "", "source .csv, .xlsx or .xls file")
	fs.StringVar(&f.population, "population", "", "population reference file; enables the crime rate")
	fs.StringVar(&f.outDir, "out", "", "output directory")
	fs.StringVar(&f.strategy, "strategy", "", "missing value strategy: drop, fill_zero, fill_mean or fill_median")
	fs.StringVar(&f.formats, "formats", "", "comma separated outputs: csv, parquet, excel, sql")
	fs.StringVar(&f.dsn, "db", "", "database DSN for the sql output (sqlite path or postgres URL)")
	fs.StringVar(&f.table, "table", "", "database table name")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// apply overrides cfg with the flags that were set
func (f *cliFlags) apply(cfg *config.Config) {
	if f.input != "" {
		cfg.Paths.InputFile = f.input
	}
	if f.population != "" {
		cfg.Paths.PopulationFile = f.population
	}
	if f.outDir != "" {
		cfg.Paths.OutputDir = f.outDir
	}
	if f.strategy != "" {
		cfg.Pipeline.MissingStrategy = strings.ToLower(f.strategy)
	}
	if f.formats != "" {
		cfg.Load.Formats = nil
		for _, format := range strings.Split(f.formats, ",") {
			if format = strings.ToLower(strings.TrimSpace(format)); format != "" {
				cfg.Load.Formats = append(cfg.Load.Formats, format)
			}
		}
	}
	if f.dsn != "" {
		cfg.Load.DatabaseDSN = f.dsn
		if !cfg.Load.HasFormat(config.FormatSQL) {
			cfg.Load.Formats = append(cfg.Load.Formats, config.FormatSQL)
		}
	}
	if f.table != "" {
		cfg.Load.Table = f.table
	}
}

// run executes one ETL run and returns the process exit code
func run(ctx context.Context, args []string, stderr io.Writer) int {
	flags, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}
	flags.apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return 1
	}

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		fmt.Fprintf(stderr, "failed to resolve paths: %v\n", err)
		return 1
	}
	if err := paths.EnsureDirectories(); err != nil {
		fmt.Fprintf(stderr, "failed to create directories: %v\n", err)
		return 1
	}

	if cfg.Logging.Output != "console" && !filepath.IsAbs(cfg.Logging.FilePath) {
		cfg.Logging.FilePath = filepath.Join(paths.LogsDir, filepath.Base(cfg.Logging.FilePath))
	}
	logHandle, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer logHandle.Close()
	logger := logHandle.Logger

	ctx = infrastructure.EnsureRunID(ctx)
	paths.LogPathResolution(logger)

	telemetry, err := infrastructure.NewTelemetry(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize telemetry", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.WarnContext(ctx, "Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	logger.InfoContext(ctx, "Starting crime statistics ETL",
		slog.String("version", config.AppVersion),
		slog.String("input_file", paths.InputFile),
		slog.String("output_dir", paths.OutputDir),
		slog.Any("formats", cfg.Load.Formats))

	etl := newETL(cfg, paths, logger, telemetry)
	code := 0
	if err := etl.Run(ctx); err != nil {
		logger.ErrorContext(ctx, "ETL run failed", slog.String("error", err.Error()))
		code = 1
	}

	if cfg.Telemetry.MetricsTextfile != "" {
		metricsPath := cfg.Telemetry.MetricsTextfile
		if !filepath.IsAbs(metricsPath) {
			metricsPath = paths.OutputPath(metricsPath)
		}
		if err := telemetry.WriteMetricsTextfile(metricsPath); err != nil {
			logger.WarnContext(ctx, "Failed to write metrics textfile",
				slog.String("path", metricsPath),
				slog.String("error", err.Error()))
		}
	}

	return code
}
