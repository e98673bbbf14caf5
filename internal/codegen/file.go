package codegen

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/realiad/iad-layout/internal/diff"
	"github.com/realiad/iad-layout/internal/errors"
	"github.com/realiad/iad-layout/internal/validation"
)

// Header precedes the snippet in the saved file.
const Header = "# Add this code to src/utils.py in the get_dataset_info() function\n" +
	"# Insert it before the final 'else' clause that raises ValueError\n\n"

// Result describes a saved config file.
type Result struct {
	Path    string
	Created bool
	Changed bool
	// Diff is the unified diff against the previous file; empty when the
	// file was created or is unchanged.
	Diff string
}

// FileName returns the config file name for dataset.
func FileName(dataset string) string {
	return "dataset_config_" + dataset + ".txt"
}

// WriteFile saves snippet as dir/dataset_config_<dataset>.txt. An unchanged
// file is left untouched.
func WriteFile(dir, dataset, snippet string) (*Result, error) {
	if !validation.IsPathSegment(dataset) {
		return nil, errors.Validationf("dataset name %q cannot be used as a file name", dataset)
	}

	path := filepath.Join(dir, FileName(dataset))
	content := []byte(Header + snippet)
	result := &Result{Path: path}

	previous, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		result.Created = true
		result.Changed = true
	case err != nil:
		return nil, errors.Wrapf(err, errors.CodeInternal, "read %s", path)
	case bytes.Equal(previous, content):
		return result, nil
	default:
		result.Changed = true
		result.Diff, err = diff.Unified(path+" (previous)", path, previous, content, 0)
		if err != nil {
			return nil, fmt.Errorf("diff %s: %w", path, err)
		}
	}

	if err := writeAtomic(path, content); err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "write %s", path)
	}
	return result, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".dataset-config-*.txt")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
