// Package main scans a symlink dataset tree and generates the registration
// snippet for the anomaly-detection pipeline's get_dataset_info().
//
// Usage:
//
//	register-dataset --data_root data/widgets_symlinks --dataset_name Widgets
//	register-dataset --data_root data/widgets_symlinks --dataset_name Widgets --watch
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

	"github.com/realiad/iad-layout/internal/codegen"
	"github.com/realiad/iad-layout/internal/config"
	"github.com/realiad/iad-layout/internal/di"
	"github.com/realiad/iad-layout/internal/di/providers"
	"github.com/realiad/iad-layout/internal/errors"
	"github.com/realiad/iad-layout/internal/id"
	"github.com/realiad/iad-layout/internal/logger"
	"github.com/realiad/iad-layout/internal/registry"
	"github.com/realiad/iad-layout/internal/validation"
	"github.com/realiad/iad-layout/internal/watcher"
)

const toolName = "register-dataset"

var rule = strings.Repeat("=", 60)

type registerOptions struct {
	DataRoot    string `json:"data_root" validate:"required"`
	DatasetName string `json:"dataset_name" validate:"required,pathsegment"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.LoadRegisterConfig(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errors.ExitOK
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return errors.ExitUsage
	}

	injector := di.NewContainer(cfg, providers.RunInfo{Tool: toolName, ID: id.MustRunID("register")})
	defer injector.Shutdown() //nolint:errcheck // Watcher errors on close are not actionable

	log := do.MustInvoke[*logger.Logger](injector)
	v := do.MustInvoke[*validation.Validator](injector)

	if err := v.Validate(registerOptions{DataRoot: cfg.Register.DataRoot, DatasetName: cfg.Register.DatasetName}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return errors.ExitUsage
	}

	r := &registrar{
		cfg:     cfg.Register,
		scanner: do.MustInvoke[*registry.Scanner](injector),
		log:     log,
		out:     stdout,
	}

	if !cfg.Register.Watch {
		err = r.pass(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return errors.ExitCode(err)
	}

	// Watches are in place before the first pass so edits made during it trigger a rescan.
	w, err := do.Invoke[*watcher.Watcher](injector)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return errors.ExitInternal
	}
	if err := r.pass(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}

	fmt.Fprintf(stdout, "\nWatching %s for changes (Ctrl+C to stop)...\n", cfg.Register.DataRoot)
	if werr := w.Run(ctx, func() {
		fmt.Fprintf(stdout, "\nChange detected, rescanning %s\n", cfg.Register.DataRoot)
		if err := r.pass(ctx); err != nil {
			log.WithError(err).Warn("rescan finished with errors")
		}
	}); werr != nil {
		fmt.Fprintf(stderr, "Error: %v\n", werr)
		return errors.ExitInternal
	}

	log.Info("Stopped watching")
	return errors.ExitOK
}

// registrar runs one scan, render, and save cycle.
type registrar struct {
	cfg     config.RegisterConfig
	scanner *registry.Scanner
	log     *logger.Logger
	out     io.Writer
}

func (r *registrar) pass(ctx context.Context) error {
	fmt.Fprintf(r.out, "Scanning dataset structure in: %s\n", r.cfg.DataRoot)
	fmt.Fprintln(r.out, rule)

	result, err := r.scanner.Scan(ctx, r.cfg.DataRoot, registry.Options{NormalClass: r.cfg.NormalClass})
	if err != nil {
		return err
	}

	for _, c := range result.Categories {
		fmt.Fprintf(r.out, "  - %s: %d train, %d test samples, %d anomaly types\n",
			c.Name, c.Train, c.Test, len(c.AnomalyTypes))
	}
	for _, m := range result.Malformed {
		fmt.Fprintf(r.out, "  - %s: skipped (%s)\n", m.Name, m.Reason)
	}

	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "Found %d object categories\n", len(result.Categories))
	fmt.Fprintf(r.out, "Dataset name: %s\n", r.cfg.DatasetName)
	fmt.Fprintln(r.out, rule)

	snippet, err := codegen.Render(r.cfg.DatasetName, result.Categories)
	if err != nil {
		return err
	}

	fmt.Fprintln(r.out, "\n"+rule)
	fmt.Fprintln(r.out, "Add the following code to src/utils.py in get_dataset_info():")
	fmt.Fprintln(r.out, rule)
	fmt.Fprint(r.out, snippet)
	fmt.Fprintln(r.out, rule)

	saved, err := codegen.WriteFile(r.cfg.OutputDir, r.cfg.DatasetName, snippet)
	if err != nil {
		return err
	}
	switch {
	case saved.Created:
		fmt.Fprintf(r.out, "\nConfiguration also saved to: %s\n", saved.Path)
	case saved.Changed:
		fmt.Fprintf(r.out, "\nConfiguration updated: %s\n", saved.Path)
		fmt.Fprint(r.out, saved.Diff)
	default:
		fmt.Fprintf(r.out, "\nConfiguration unchanged: %s\n", saved.Path)
	}

	r.log.Info("registration generated",
		"dataset", r.cfg.DatasetName,
		"categories", len(result.Categories),
		"malformed", len(result.Malformed),
		"path", saved.Path,
	)

	fmt.Fprintln(r.out, "\nNext steps:")
	fmt.Fprintln(r.out, "  1. Copy the above code to src/utils.py")
	fmt.Fprintf(r.out, "  2. Run: python run_anomalydino.py --dataset %s --data_root %s\n", r.cfg.DatasetName, r.cfg.DataRoot)

	return result.Err()
}
