// ABOUTME: Loads configured modules into the command table and event bus
// ABOUTME: Skips malformed entries with warnings; unknown modules and hook failures are fatal

package modules

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/coven-clan/internal/dispatch"
	"github.com/2389/coven-clan/internal/eventbus"
	"github.com/2389/coven-clan/internal/platform"
)

// Loader registers modules from a Catalog.
type Loader struct {
	catalog Catalog
	deps    *Deps
	table   *dispatch.Table
	bus     *eventbus.Bus
	logger  *slog.Logger

	mu     sync.Mutex
	loaded []string
}

// LoaderConfig contains configuration options for the Loader.
type LoaderConfig struct {
	Catalog Catalog
	Deps    *Deps
	Table   *dispatch.Table
	Bus     *eventbus.Bus
	Logger  *slog.Logger
}

// NewLoader creates a new Loader with the given configuration.
func NewLoader(cfg LoaderConfig) *Loader {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		catalog: cfg.Catalog,
		deps:    cfg.Deps,
		table:   cfg.Table,
		bus:     cfg.Bus,
		logger:  logger.With("component", "loader"),
	}
}

// Load loads the named modules in order and returns the command schemas to
// push to the platform registry. A schema name registered twice appears once,
// with the later definition.
func (l *Loader) Load(ctx context.Context, names []string) ([]platform.CommandSchema, error) {
	var schemas []platform.CommandSchema
	index := make(map[string]int)

	for _, name := range names {
		factory, ok := l.catalog[name]
		if !ok {
			return nil, fmt.Errorf("loading module %q: %w", name, ErrUnknownModule)
		}

		mod, err := factory(l.deps)
		if err != nil {
			return nil, fmt.Errorf("loading module %q: %w", name, err)
		}
		if mod == nil || mod.Name == "" {
			l.logger.Warn("module has no name, skipping", "module", name)
			continue
		}

		commands := 0
		for i, cmd := range mod.Commands {
			if cmd == nil || cmd.Schema.Name == "" || cmd.Execute == nil {
				l.logger.Warn("invalid command, skipping", "module", mod.Name, "index", i)
				continue
			}
			if err := l.table.Set(cmd); err != nil {
				return nil, fmt.Errorf("registering command %q: %w", cmd.Schema.Name, err)
			}
			if at, dup := index[cmd.Schema.Name]; dup {
				l.logger.Debug("command replaced", "module", mod.Name, "command", cmd.Schema.Name)
				schemas[at] = cmd.Schema
			} else {
				index[cmd.Schema.Name] = len(schemas)
				schemas = append(schemas, cmd.Schema)
			}
			commands++
		}

		listeners := 0
		for i, ev := range mod.Events {
			if ev.Event == "" || ev.Handler == nil {
				l.logger.Warn("invalid listener, skipping", "module", mod.Name, "index", i)
				continue
			}
			l.bus.On(ev.Event, ev.Handler)
			listeners++
		}

		if mod.OnEnable != nil {
			if err := mod.OnEnable(ctx); err != nil {
				return nil, fmt.Errorf("enabling module %q: %w", mod.Name, err)
			}
		}

		l.mu.Lock()
		l.loaded = append(l.loaded, mod.Name)
		l.mu.Unlock()

		l.logger.Info("module loaded",
			"module", mod.Name,
			"commands", commands,
			"listeners", listeners,
		)
	}

	return schemas, nil
}

// Loaded returns the names of successfully loaded modules in load order.
func (l *Loader) Loaded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.loaded...)
}
