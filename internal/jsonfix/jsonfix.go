// Package jsonfix rewrites the non-standard NaN, Infinity and -Infinity
// tokens that some serializers emit into JSON null, then validates and
// re-indents the file. Substitution is textual; structure is only looked at
// when validating the result.
package jsonfix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"go.opentelemetry.io/otel/attribute"

	apperrors "crimestats/internal/errors"
	"crimestats/internal/infrastructure"
	"crimestats/internal/validation"
)

// DefaultFiles are the files repaired when none are named
var DefaultFiles = []string{
	"dados_criminais.json",
	"dados_criminais_sample.json",
	"estatisticas.json",
}

// invalidToken matches a NaN or infinity object value ending at a comma or closing brace
var invalidToken = regexp.MustCompile(`:\s*(NaN|-?Infinity)\s*([,}])`)

// Status is the outcome of repairing one file
type Status string

const (
	StatusNotFound     Status = "not_found"
	StatusAlreadyValid Status = "already_valid"
	StatusRepaired     Status = "repaired"
	StatusFailed       Status = "failed"
)

// Result describes what happened to one file
type Result struct {
	File         string
	Status       Status
	Replacements int
	Err          error
}

// Fixed reports whether the file is valid JSON after the run
func (r Result) Fixed() bool {
	return r.Status == StatusRepaired || r.Status == StatusAlreadyValid
}

// Summary aggregates the results of a run
type Summary struct {
	Results []Result
}

// Fixed counts files that are valid JSON after the run
func (s Summary) Fixed() int {
	n := 0
	for _, r := range s.Results {
		if r.Fixed() {
			n++
		}
	}
	return n
}

// String renders the closing line of a run, e.g. "2/3 files fixed"
func (s Summary) String() string {
	return fmt.Sprintf("%d/%d files fixed", s.Fixed(), len(s.Results))
}

// Repair substitutes invalid tokens in content, validates the result and
// returns it indented with two spaces. Key order is preserved. The number
// of substitutions is returned even when validation fails.
func Repair(content []byte) ([]byte, int, error) {
	replacements := len(invalidToken.FindAllIndex(content, -1))
	fixed := invalidToken.ReplaceAll(content, []byte(": null${2}"))

	if !json.Valid(fixed) {
		var v interface{}
		err := json.Unmarshal(fixed, &v)
		return nil, replacements, apperrors.NewParsingError("content is not valid JSON after substitution", err)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, fixed, "", "  "); err != nil {
		return nil, replacements, apperrors.NewParsingError("failed to indent JSON", err)
	}
	return out.Bytes(), replacements, nil
}

// Repairer fixes JSON files in place
type Repairer struct {
	logger    *slog.Logger
	validator *validation.FileValidator
	telemetry *infrastructure.Telemetry
}

// NewRepairer creates a repairer. telemetry may be nil.
func NewRepairer(logger *slog.Logger, telemetry *infrastructure.Telemetry) *Repairer {
	logger = infrastructure.WithComponent(logger, "jsonfix")
	return &Repairer{
		logger:    logger,
		validator: validation.NewFileValidator(logger),
		telemetry: telemetry,
	}
}

// RepairFile repairs one file. A file without invalid tokens is only
// validated and never rewritten; a file that is still invalid after
// substitution is left untouched.
func (r *Repairer) RepairFile(ctx context.Context, path string) Result {
	ctx, span := r.telemetry.StartSpan(ctx, "jsonfix.file", attribute.String("file", path))
	defer span.End()

	res := r.repairFile(ctx, path)
	span.SetAttributes(attribute.String("status", string(res.Status)))
	r.telemetry.RecordRepair(ctx, string(res.Status))
	if res.Err != nil {
		infrastructure.RecordError(ctx, res.Err)
	}
	return res
}

func (r *Repairer) repairFile(ctx context.Context, path string) Result {
	res := Result{File: path}
	name := filepath.Base(path)

	if err := r.validator.ValidateFile(path); err != nil {
		if apperrors.IsType(err, apperrors.ErrTypeNotFound) {
			r.logger.WarnContext(ctx, "File not found", slog.String("file", name))
			res.Status = StatusNotFound
		} else {
			res.Status = StatusFailed
		}
		res.Err = err
		return res
	}

	content, err := os.ReadFile(path)
	if err != nil {
		res.Status = StatusFailed
		res.Err = apperrors.NewStorageError(fmt.Sprintf("failed to read %s", path), err)
		infrastructure.WithError(r.logger, err).ErrorContext(ctx, "Failed to read file",
			slog.String("file", name))
		return res
	}

	if !invalidToken.Match(content) {
		if json.Valid(content) {
			res.Status = StatusAlreadyValid
			r.logger.InfoContext(ctx, "File already valid", slog.String("file", name))
			return res
		}
		res.Status = StatusFailed
		res.Err = apperrors.NewParsingError(fmt.Sprintf("%s is not valid JSON", name), nil)
		infrastructure.WithError(r.logger, res.Err).ErrorContext(ctx, "File is invalid and has no repairable tokens",
			slog.String("file", name))
		return res
	}

	fixed, replacements, err := Repair(content)
	res.Replacements = replacements
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		infrastructure.WithError(r.logger, err).ErrorContext(ctx, "JSON still invalid after substitution, file left untouched",
			slog.String("file", name),
			slog.Int("replacements", replacements))
		return res
	}

	info, err := os.Stat(path)
	if err != nil {
		res.Status = StatusFailed
		res.Err = apperrors.NewStorageError(fmt.Sprintf("failed to stat %s", path), err)
		return res
	}
	if err := os.WriteFile(path, fixed, info.Mode().Perm()); err != nil {
		res.Status = StatusFailed
		res.Err = apperrors.NewStorageError(fmt.Sprintf("failed to write %s", path), err)
		infrastructure.WithError(r.logger, err).ErrorContext(ctx, "Failed to write repaired file",
			slog.String("file", name))
		return res
	}

	res.Status = StatusRepaired
	r.logger.InfoContext(ctx, "File repaired",
		slog.String("file", name),
		slog.Int("replacements", replacements),
		slog.Int("size_bytes", len(fixed)))
	return res
}

// RepairAll repairs files inside dir. An empty list selects DefaultFiles.
// Absolute names are used as given.
func (r *Repairer) RepairAll(ctx context.Context, dir string, files []string) Summary {
	if len(files) == 0 {
		files = DefaultFiles
	}

	summary := Summary{Results: make([]Result, 0, len(files))}
	for _, f := range files {
		path := f
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, f)
		}
		summary.Results = append(summary.Results, r.RepairFile(ctx, path))
	}

	r.logger.InfoContext(ctx, "JSON repair finished",
		slog.Int("fixed", summary.Fixed()),
		slog.Int("total", len(summary.Results)),
		slog.String("summary", summary.String()))
	return summary
}
