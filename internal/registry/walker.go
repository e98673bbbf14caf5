package registry

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/realiad/iad-layout/internal/normalize"
)

type dirEntry struct {
	name string // NFC-normalized
	path string
}

// listDirs returns the visible subdirectories of dir sorted by normalized name.
// Symlinks that point at directories count as directories. Names that
// normalize to the same label are reported once.
func listDirs(dir string) ([]dirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(entries))
	out := make([]dirEntry, 0, len(entries))
	for _, e := range entries {
		if isHidden(e.Name()) {
			continue
		}
		full := filepath.Join(dir, e.Name())
		if !e.IsDir() {
			if e.Type()&fs.ModeSymlink == 0 || !isDir(full) {
				continue
			}
		}
		name := normalize.Label(e.Name())
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, dirEntry{name: name, path: full})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}

// countFiles counts the non-directory entries below root, recursively.
// root itself may be a symlink to a directory. Symlinks below it are counted
// as files and not followed; hidden entries are skipped.
func countFiles(root string) (int, error) {
	root, err := filepath.EvalSymlinks(root)
	if err != nil {
		return 0, err
	}
	count := 0
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})
	return count, err
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
