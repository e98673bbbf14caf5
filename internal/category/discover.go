package category

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/realiad/iad-layout/internal/errors"
)

// DefaultPattern matches the metadata files directly inside the JSON directory.
const DefaultPattern = "*.json"

// Discover lists the metadata files under dir that match pattern, sorted by path.
// The pattern is a doublestar glob relative to dir, so "**/*.json" also finds nested files.
func Discover(dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, errors.Validationf("invalid metadata pattern %q", pattern)
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundf("JSON directory not found: %s", dir)
		}
		return nil, errors.Wrapf(err, errors.CodeInternal, "stat %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.NotFoundf("JSON directory is not a directory: %s", dir)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "glob %s in %s", pattern, dir)
	}

	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, filepath.Join(dir, filepath.FromSlash(m)))
	}
	sort.Strings(paths)
	return paths, nil
}
