// Package builder materializes a symlink tree in the category/split/label
// layout from per-category JSON metadata.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/realiad/iad-layout/internal/category"
	"github.com/realiad/iad-layout/internal/errors"
	"github.com/realiad/iad-layout/internal/validation"
)

// Options configures a build run.
type Options struct {
	JSONDir   string `json:"json_dir" validate:"required"`
	ImageDir  string `json:"image_dir" validate:"required"`
	OutputDir string `json:"output_dir" validate:"required"`
	Pattern   string `json:"pattern"`
	RunID     string `json:"run_id"`
	// Overwrite allows building into an existing output directory. Category
	// subtrees that are rebuilt are cleared first.
	Overwrite bool `json:"overwrite"`
	// DryRun plans every link and reports without touching the filesystem.
	DryRun bool `json:"dry_run"`
	// OnCategory is called after each category finishes, successful or not.
	OnCategory func(CategoryReport) `json:"-"`
}

// Builder creates symlink structures.
type Builder struct {
	logger    *slog.Logger
	validator *validation.Validator
	stat      statFunc
}

// New creates a builder.
func New(logger *slog.Logger, v *validation.Validator) *Builder {
	return &Builder{
		logger:    logger,
		validator: v,
		stat:      statSource,
	}
}

// Build runs the whole pipeline: check preconditions, then load, plan, and link
// each category in turn.
//
// Fatal conditions (bad options, missing input directories, an existing output
// directory without Overwrite) return before anything is written. A category
// with malformed metadata or colliding destinations is recorded as failed and
// the run continues; in that case the full report is returned together with a
// PARTIAL_FAILURE error.
func (b *Builder) Build(ctx context.Context, opts Options) (*Report, error) {
	if err := b.validator.Validate(opts); err != nil {
		return nil, err
	}

	imageDir, err := filepath.Abs(opts.ImageDir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "resolve image directory %s", opts.ImageDir)
	}
	outputDir, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "resolve output directory %s", opts.OutputDir)
	}

	if info, statErr := os.Stat(imageDir); statErr != nil || !info.IsDir() {
		return nil, errors.NotFoundf("image directory not found: %s", imageDir)
	}
	if err := checkOutput(outputDir, opts.Overwrite); err != nil {
		return nil, err
	}

	files, err := category.Discover(opts.JSONDir, opts.Pattern)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     opts.RunID,
		OutputDir: outputDir,
		DryRun:    opts.DryRun,
		StartedAt: time.Now().UTC(),
	}

	if len(files) == 0 {
		b.logger.Warn("no metadata files matched", "json_dir", opts.JSONDir, "pattern", opts.Pattern)
	}

	if !opts.DryRun {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return nil, errors.Wrapf(err, errors.CodeInternal, "create output directory %s", outputDir)
		}
	}

	seen := make(map[string]string, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			report.finish()
			return report, fmt.Errorf("build interrupted: %w", err)
		}

		cr := b.buildCategory(file, imageDir, outputDir, opts, seen)
		report.add(cr)
		if opts.OnCategory != nil {
			opts.OnCategory(cr)
		}
	}

	report.finish()

	b.logger.Info("build complete",
		"categories", report.CategoriesProcessed,
		"failed", report.CategoriesFailed,
		"created", report.TotalCreated,
		"missing", report.TotalMissing,
		"dry_run", opts.DryRun,
	)

	if report.CategoriesFailed > 0 {
		return report, errors.PartialFailuref("%d of %d categories failed",
			report.CategoriesFailed, len(report.Categories))
	}
	return report, nil
}

// checkOutput enforces the overwrite rule before any write happens.
func checkOutput(outputDir string, overwrite bool) error {
	if _, err := os.Lstat(outputDir); os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return errors.Wrapf(err, errors.CodeInternal, "stat output directory %s", outputDir)
	}
	// A symlink to a directory is a usable output; a dangling one is not.
	if info, err := os.Stat(outputDir); err != nil || !info.IsDir() {
		return errors.OutputConflictf("output path exists and is not a directory: %s", outputDir)
	}
	if !overwrite {
		return errors.OutputConflictf("output directory already exists: %s (pass --overwrite to rebuild into it)", outputDir)
	}
	return nil
}

func (b *Builder) buildCategory(file, imageDir, outputDir string, opts Options, seen map[string]string) CategoryReport {
	log := b.logger.With("file", file)

	cat, err := category.Load(file, b.validator)
	if err != nil {
		log.Error("skipping category with malformed metadata", "error", err)
		return CategoryReport{Name: category.NameFromPath(file), Source: file, Error: err.Error()}
	}
	log = log.With("category", cat.Name)
	cr := CategoryReport{Name: cat.Name, Source: file, Skipped: cat.SkippedTrain}

	if prev, ok := seen[cat.Name]; ok {
		err := errors.LinkCollisionf("category %s is defined by both %s and %s", cat.Name, prev, file)
		log.Error("skipping duplicate category", "error", err)
		cr.Error = err.Error()
		return cr
	}
	seen[cat.Name] = file

	plan, err := BuildPlan(cat, imageDir, outputDir, b.stat)
	if err != nil {
		log.Error("skipping category with an unusable link plan", "error", err)
		cr.Error = err.Error()
		return cr
	}
	cr.Duplicates = plan.Duplicates
	cr.Train, cr.Test, cr.Masks, cr.Missing = plan.Counts()

	if cr.Skipped > 0 {
		log.Warn("train entries with a non-normal label were skipped", "skipped", cr.Skipped)
	}

	if opts.DryRun {
		cr.Created = cr.Train + cr.Test + cr.Masks
		for _, e := range plan.Entries {
			if e.Missing {
				warnMissing(log, e)
			}
		}
		return cr
	}

	if opts.Overwrite {
		if err := os.RemoveAll(plan.Root); err != nil {
			cr.Error = errors.Wrapf(err, errors.CodeInternal, "clear %s", plan.Root).Error()
			log.Error("failed to clear category output", "error", cr.Error)
			return cr
		}
	}

	created, err := b.apply(plan, log)
	cr.Created = created
	if err != nil {
		cr.Error = err.Error()
		log.Error("linking stopped", "error", err)
		return cr
	}

	log.Info("category linked",
		"train", cr.Train,
		"test", cr.Test,
		"masks", cr.Masks,
		"missing", cr.Missing,
	)
	return cr
}

// apply creates the directories and links of a plan. It stops at the first
// filesystem error and returns the number of links made so far.
func (b *Builder) apply(plan *Plan, log *slog.Logger) (int, error) {
	created := 0
	madeDirs := make(map[string]struct{})

	for _, e := range plan.Entries {
		if e.Missing {
			warnMissing(log, e)
			continue
		}

		dir := filepath.Dir(e.Destination)
		if _, ok := madeDirs[dir]; !ok {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return created, errors.Wrapf(err, errors.CodeInternal, "create %s", dir)
			}
			madeDirs[dir] = struct{}{}
		}

		if err := os.Symlink(e.Source, e.Destination); err != nil {
			if os.IsExist(err) {
				return created, errors.LinkCollisionf("link already exists: %s", e.Destination)
			}
			return created, errors.Wrapf(err, errors.CodeInternal, "link %s", e.Destination)
		}
		created++
	}

	return created, nil
}

// warnMissing logs a source that does not exist. Missing sources are counted, never fatal.
func warnMissing(log *slog.Logger, e Entry) {
	log.Warn("source not found", "error", errors.MissingSourcef("%s not found: %s", e.Kind, e.Source))
}
