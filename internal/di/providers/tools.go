package providers

import (
	"github.com/samber/do/v2"

	"github.com/realiad/iad-layout/internal/builder"
	"github.com/realiad/iad-layout/internal/config"
	"github.com/realiad/iad-layout/internal/logger"
	"github.com/realiad/iad-layout/internal/registry"
	"github.com/realiad/iad-layout/internal/validation"
	"github.com/realiad/iad-layout/internal/watcher"
)

// ProvideBuilder provides the symlink structure builder.
func ProvideBuilder(i do.Injector) (*builder.Builder, error) {
	log := do.MustInvoke[*logger.Logger](i)
	v := do.MustInvoke[*validation.Validator](i)

	return builder.New(log.Logger, v), nil
}

// ProvideScanner provides the dataset tree scanner.
func ProvideScanner(i do.Injector) (*registry.Scanner, error) {
	log := do.MustInvoke[*logger.Logger](i)
	v := do.MustInvoke[*validation.Validator](i)

	return registry.NewScanner(log.Logger, v), nil
}

// ProvideWatcher provides a watcher registered on the data root.
// The container closes it on shutdown.
func ProvideWatcher(i do.Injector) (*watcher.Watcher, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	w, err := watcher.New(log.Logger, watcher.Options{Debounce: cfg.Register.Debounce})
	if err != nil {
		return nil, err
	}
	if err := w.Watch(cfg.Register.DataRoot); err != nil {
		_ = w.Stop()
		return nil, err
	}

	log.Info("Watching data root", "path", cfg.Register.DataRoot, "debounce", cfg.Register.Debounce)
	return w, nil
}
