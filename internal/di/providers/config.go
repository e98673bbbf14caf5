// Package providers contains the service constructors registered with the container.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/realiad/iad-layout/internal/config"
	"github.com/realiad/iad-layout/internal/logger"
	"github.com/realiad/iad-layout/internal/validation"
)

// RunInfo identifies one tool invocation.
type RunInfo struct {
	Tool string
	ID   string
}

// ProvideLogger provides the structured logger tagged with the run.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	run := do.MustInvoke[RunInfo](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.Logger.Level == "debug",
		Environment: cfg.App.Environment,
	}).WithRun(run.Tool, run.ID)

	log.Debug("Starting",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
	)

	return log, nil
}

// ProvideValidator provides the shared struct validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}
