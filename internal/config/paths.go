package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved locations used by one run.
// All paths are absolute.
type Paths struct {
	InputFile      string
	PopulationFile string
	OutputDir      string
	LogsDir        string
}

// ResolvePaths turns the configured paths into absolute ones, relative to the
// current working directory.
func ResolvePaths(cfg PathsConfig) (*Paths, error) {
	abs := func(p string) (string, error) {
		if p == "" || filepath.IsAbs(p) {
			return p, nil
		}
		resolved, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("failed to resolve path %s: %w", p, err)
		}
		return resolved, nil
	}

	var (
		paths Paths
		err   error
	)
	if paths.InputFile, err = abs(cfg.InputFile); err != nil {
		return nil, err
	}
	if paths.PopulationFile, err = abs(cfg.PopulationFile); err != nil {
		return nil, err
	}
	if paths.OutputDir, err = abs(cfg.OutputDir); err != nil {
		return nil, err
	}
	if paths.LogsDir, err = abs(cfg.LogsDir); err != nil {
		return nil, err
	}
	return &paths, nil
}

// EnsureDirectories creates the output and log directories if missing
func (p *Paths) EnsureDirectories() error {
	dirs := []string{p.OutputDir, p.LogsDir}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// OutputPath returns the path of a file inside the output directory
func (p *Paths) OutputPath(filename string) string {
	return filepath.Join(p.OutputDir, filename)
}

// DatasetPath returns the output path of a dataset written in the given format
func (p *Paths) DatasetPath(baseName, format string) string {
	ext := map[string]string{
		FormatCSV:     ".csv",
		FormatParquet: ".parquet",
		FormatExcel:   ".xlsx",
	}[format]
	return p.OutputPath(baseName + ext)
}

// SummaryReportPath returns <output_dir>/summary_report.json
func (p *Paths) SummaryReportPath() string {
	return p.OutputPath(SummaryReportFile)
}

// MetadataPath returns the processing metadata file path
func (p *Paths) MetadataPath() string {
	return p.OutputPath(MetadataFile)
}

// LogPathResolution logs all resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("Path resolution",
		slog.String("input_file", p.InputFile),
		slog.String("population_file", p.PopulationFile),
		slog.String("output_dir", p.OutputDir),
		slog.String("logs_dir", p.LogsDir),
	)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
