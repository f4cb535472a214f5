package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "crimestats/internal/errors"
	"crimestats/internal/shared/testutil"
)

func TestDetectSourceFormat(t *testing.T) {
	tests := []struct {
		path    string
		want    SourceFormat
		wantErr bool
	}{
		{path: "dados.csv", want: FormatCSV},
		{path: "DADOS.CSV", want: FormatCSV},
		{path: "ssp/dados.xlsx", want: FormatExcel},
		{path: "dados.xls", want: FormatExcel},
		{path: "dados.json", wantErr: true},
		{path: "dados", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := DetectSourceFormat(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeUnsupportedFormat))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileValidator_ValidateSourceFile(t *testing.T) {
	dir := t.TempDir()
	csvPath := testutil.WriteFile(t, dir, "dados.csv", []byte("a\n1\n"))
	lockPath := testutil.WriteFile(t, dir, "~$dados.xlsx", []byte("lock"))
	txtPath := testutil.WriteFile(t, dir, "dados.txt", []byte("x"))

	logger, handler := testutil.NewTestLogger(t)
	v := NewFileValidator(logger)

	format, err := v.ValidateSourceFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, format)

	_, err = v.ValidateSourceFile(filepath.Join(dir, "missing.csv"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))

	_, err = v.ValidateSourceFile(txtPath)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeUnsupportedFormat))

	_, err = v.ValidateSourceFile(lockPath)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeUnsupportedFormat))

	assert.True(t, handler.ContainsMessage("File does not exist"))
	assert.True(t, handler.ContainsMessage("Unsupported file format"))
}

func TestFileValidator_ValidateFile_Directory(t *testing.T) {
	v := NewFileValidator(nil)
	err := v.ValidateFile(t.TempDir())
	assert.Error(t, err)
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	v := NewFileValidator(nil)

	require.NoError(t, v.ValidateOutputDirectory(dir))
	assert.DirExists(t, dir)
	assert.NoFileExists(t, filepath.Join(dir, ".write_test"))
}

func TestFileValidator_EnsureParentDir(t *testing.T) {
	base := t.TempDir()
	v := NewFileValidator(nil)

	target := filepath.Join(base, "out", "nested", "dados.csv")
	require.NoError(t, v.EnsureParentDir(target))
	assert.DirExists(t, filepath.Dir(target))

	// a regular file in the way of the directory
	blocker := testutil.WriteFile(t, base, "blocker", []byte("x"))
	err := v.EnsureParentDir(filepath.Join(blocker, "dados.csv"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))

	_, statErr := os.Stat(blocker)
	assert.NoError(t, statErr)
}
