// Package di provides dependency injection configuration for the layout tools.
package di

import (
	"github.com/samber/do/v2"

	"github.com/realiad/iad-layout/internal/config"
	"github.com/realiad/iad-layout/internal/di/providers"
)

// NewContainer creates the container for one tool invocation.
// Services are built lazily, so build-structure never opens a watcher.
func NewContainer(cfg *config.Config, run providers.RunInfo) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, run)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Structure builder
	do.Provide(injector, providers.ProvideBuilder)

	// Config scanner
	do.Provide(injector, providers.ProvideScanner)
	do.Provide(injector, providers.ProvideWatcher)

	return injector
}
