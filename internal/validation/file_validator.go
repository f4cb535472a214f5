package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "crimestats/internal/errors"
)

// SourceFormat is the tabular format of an input file
type SourceFormat string

const (
	FormatCSV   SourceFormat = "csv"
	FormatExcel SourceFormat = "excel"
)

// sourceExtensions maps recognized input extensions to their format
var sourceExtensions = map[string]SourceFormat{
	".csv":  FormatCSV,
	".xlsx": FormatExcel,
	".xls":  FormatExcel,
}

// FileValidator guards file access for the extractor, the loaders and the JSON repairer
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// DetectSourceFormat returns the input format implied by the file extension
func DetectSourceFormat(path string) (SourceFormat, error) {
	ext := strings.ToLower(filepath.Ext(path))
	format, ok := sourceExtensions[ext]
	if !ok {
		return "", apperrors.NewUnsupportedFormatError(path).WithContext("extension", ext)
	}
	return format, nil
}

// ValidateFile checks if a specific file exists and is readable.
// A missing file is reported as a NOT_FOUND AppError.
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return apperrors.NewNotFoundError(fmt.Sprintf("file %s", path)).WithContext("path", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateSourceFile checks the extension first, then existence, and returns
// the detected format.
func (v *FileValidator) ValidateSourceFile(path string) (SourceFormat, error) {
	format, err := DetectSourceFormat(path)
	if err != nil {
		v.logger.Error("Unsupported file format",
			slog.String("file", path),
			slog.String("extension", filepath.Ext(path)))
		return "", err
	}

	if err := v.ValidateFile(path); err != nil {
		return "", err
	}

	// Office lock files share the extension but are not workbooks
	if format == FormatExcel && strings.HasPrefix(filepath.Base(path), "~$") {
		v.logger.Warn("Skipping temporary Excel file",
			slog.String("file", path))
		return "", apperrors.NewUnsupportedFormatError(path).WithContext("reason", "temporary excel file")
	}

	return format, nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// EnsureParentDir creates the directory that will hold path
func (v *FileValidator) EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create destination directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("failed to create directory %s", dir), err)
	}
	return nil
}
