package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	apperrors "crimestats/internal/errors"
)

// SaveMetadata writes metadata as indented JSON. Non-ASCII text is written
// as is and HTML characters are not escaped.
func (l *Loader) SaveMetadata(ctx context.Context, metadata interface{}, path string) error {
	return l.write(ctx, "metadata", path, 0, func(context.Context) error {
		return writeJSON(l, metadata, path)
	})
}

func writeJSON(l *Loader, v interface{}, path string) error {
	if err := l.validator.EnsureParentDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to create %s", path), err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return apperrors.NewStorageError("failed to encode json", err)
	}
	return file.Close()
}
