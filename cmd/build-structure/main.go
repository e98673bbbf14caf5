// Package main builds a category/split/label symlink tree from per-category
// JSON metadata files.
//
// Usage:
//
//	build-structure --json_dir meta/ --image_dir /data/raw --output_dir data/widgets_symlinks
//	build-structure --json_dir meta/ --image_dir /data/raw --output_dir data/widgets_symlinks --overwrite --report run.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/realiad/iad-layout/internal/builder"
	"github.com/realiad/iad-layout/internal/config"
	"github.com/realiad/iad-layout/internal/di"
	"github.com/realiad/iad-layout/internal/di/providers"
	"github.com/realiad/iad-layout/internal/errors"
	"github.com/realiad/iad-layout/internal/id"
	"github.com/realiad/iad-layout/internal/logger"
)

const toolName = "build-structure"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.LoadBuildConfig(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errors.ExitOK
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return errors.ExitUsage
	}

	injector := di.NewContainer(cfg, providers.RunInfo{Tool: toolName, ID: id.MustRunID("build")})
	defer injector.Shutdown() //nolint:errcheck // Nothing to release for the builder

	log := do.MustInvoke[*logger.Logger](injector)
	b := do.MustInvoke[*builder.Builder](injector)
	runInfo := do.MustInvoke[providers.RunInfo](injector)

	fmt.Fprintf(stdout, "Building symlink structure in: %s\n", cfg.Build.OutputDir)
	fmt.Fprintln(stdout, strings.Repeat("=", 60))

	report, err := b.Build(ctx, builder.Options{
		JSONDir:   cfg.Build.JSONDir,
		ImageDir:  cfg.Build.ImageDir,
		OutputDir: cfg.Build.OutputDir,
		Pattern:   cfg.Build.Pattern,
		RunID:     runInfo.ID,
		Overwrite: cfg.Build.Overwrite,
		DryRun:    cfg.Build.DryRun,
		OnCategory: func(c builder.CategoryReport) {
			log.WithCategory(c.Name).Debug("category finished",
				"created", c.Created,
				"missing", c.Missing,
				"failed", c.Failed(),
			)
			if c.Failed() {
				fmt.Fprintf(stdout, "Processing %s... failed\n", c.Name)
				return
			}
			fmt.Fprintf(stdout, "Processing %s... %d links\n", c.Name, c.Created)
		},
	})

	if report != nil {
		if werr := report.WriteSummary(stdout); werr != nil {
			log.Warn("failed to print summary", "error", werr)
		}
		if cfg.Build.ReportPath != "" {
			if werr := report.WriteYAML(cfg.Build.ReportPath); werr != nil {
				log.WithError(werr).Error("failed to write report", "path", cfg.Build.ReportPath)
				if err == nil {
					err = errors.Wrap(werr, errors.CodeInternal, "write report")
				}
			} else {
				fmt.Fprintf(stdout, "Report written to: %s\n", cfg.Build.ReportPath)
			}
		}
	}

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return errors.ExitCode(err)
	}

	fmt.Fprintln(stdout, "\nNext steps:")
	fmt.Fprintf(stdout, "  1. Run: register-dataset --data_root %s --dataset_name <name>\n", cfg.Build.OutputDir)
	return errors.ExitOK
}
