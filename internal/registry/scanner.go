// Package registry scans a dataset tree in the category/split/label layout
// and summarizes each category for config generation.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/realiad/iad-layout/internal/errors"
	"github.com/realiad/iad-layout/internal/normalize"
	"github.com/realiad/iad-layout/internal/validation"
)

// Options configures a scan.
type Options struct {
	NormalClass string `json:"normal_class" validate:"required,pathsegment"`
}

// CategorySummary describes one category directory.
type CategorySummary struct {
	Name         string
	Train        int
	Test         int
	AnomalyTypes []string
}

// Malformed records a category directory that was skipped.
type Malformed struct {
	Name   string
	Path   string
	Reason string
}

// ScanResult is the outcome of scanning a data root.
type ScanResult struct {
	Root       string
	Categories []CategorySummary
	Malformed  []Malformed
}

// Objects returns the category names in scan order.
func (r *ScanResult) Objects() []string {
	out := make([]string, 0, len(r.Categories))
	for _, c := range r.Categories {
		out = append(out, c.Name)
	}
	return out
}

// Err reports skipped categories as a MALFORMED_TREE error, or nil.
func (r *ScanResult) Err() error {
	if len(r.Malformed) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.Malformed))
	for _, m := range r.Malformed {
		names = append(names, m.Name)
	}
	return errors.MalformedTreef("%d malformed category director%s skipped: %s",
		len(names), plural(len(names), "y", "ies"), strings.Join(names, ", ")).WithDetails(r.Malformed)
}

// Scanner reads dataset trees.
type Scanner struct {
	logger    *slog.Logger
	validator *validation.Validator
}

// NewScanner creates a scanner.
func NewScanner(logger *slog.Logger, v *validation.Validator) *Scanner {
	return &Scanner{logger: logger, validator: v}
}

// Scan summarizes every category directory under root. Category and label
// order is sorted by normalized name so regenerated configs diff cleanly.
// A category without train/ or test/ is recorded in Malformed and skipped.
func (s *Scanner) Scan(ctx context.Context, root string, opts Options) (*ScanResult, error) {
	opts.NormalClass = normalize.Label(opts.NormalClass)
	if err := s.validator.Validate(opts); err != nil {
		return nil, err
	}

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundf("data root not found: %s", root)
		}
		return nil, errors.Wrapf(err, errors.CodeInternal, "stat %s", root)
	}
	if !info.IsDir() {
		return nil, errors.NotFoundf("data root is not a directory: %s", root)
	}

	dirs, err := listDirs(root)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "read data root %s", root)
	}

	result := &ScanResult{Root: root}
	for _, d := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scan interrupted: %w", err)
		}

		summary, reason, err := s.scanCategory(d.path, d.name, opts.NormalClass)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			s.logger.Warn("skipping malformed category", "category", d.name, "path", d.path, "reason", reason)
			result.Malformed = append(result.Malformed, Malformed{Name: d.name, Path: d.path, Reason: reason})
			continue
		}

		s.logger.Debug("scanned category",
			"category", summary.Name,
			"train", summary.Train,
			"test", summary.Test,
			"anomaly_types", len(summary.AnomalyTypes),
		)
		result.Categories = append(result.Categories, summary)
	}

	return result, nil
}

func (s *Scanner) scanCategory(path, name, normalClass string) (CategorySummary, string, error) {
	trainDir := filepath.Join(path, "train")
	testDir := filepath.Join(path, "test")

	var missing []string
	for _, sub := range []string{trainDir, testDir} {
		if !isDir(sub) {
			missing = append(missing, filepath.Base(sub)+"/")
		}
	}
	if len(missing) > 0 {
		return CategorySummary{}, "missing " + strings.Join(missing, " and "), nil
	}

	trainCount, err := countFiles(trainDir)
	if err != nil {
		return CategorySummary{}, "", errors.Wrapf(err, errors.CodeInternal, "count %s", trainDir)
	}
	testCount, err := countFiles(testDir)
	if err != nil {
		return CategorySummary{}, "", errors.Wrapf(err, errors.CodeInternal, "count %s", testDir)
	}

	labelDirs, err := listDirs(testDir)
	if err != nil {
		return CategorySummary{}, "", errors.Wrapf(err, errors.CodeInternal, "read %s", testDir)
	}
	labels := make([]string, 0, len(labelDirs))
	for _, d := range labelDirs {
		if !normalize.Equal(d.name, normalClass) {
			labels = append(labels, d.name)
		}
	}

	return CategorySummary{
		Name:         name,
		Train:        trainCount,
		Test:         testCount,
		AnomalyTypes: labels,
	}, "", nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
