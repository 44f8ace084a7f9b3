// ABOUTME: Module contract, shared dependencies, and the static module catalog
// ABOUTME: Factories build modules from the host's store, client, bus, queue, and config

package modules

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/2389/coven-clan/internal/config"
	"github.com/2389/coven-clan/internal/dispatch"
	"github.com/2389/coven-clan/internal/eventbus"
	"github.com/2389/coven-clan/internal/platform"
	"github.com/2389/coven-clan/internal/store"
)

// ErrUnknownModule indicates a configured module name has no factory in the catalog.
var ErrUnknownModule = errors.New("unknown module")

// Listener subscribes a handler to a named event.
type Listener struct {
	Event   string
	Handler platform.Handler
}

// Module is one loadable feature.
type Module struct {
	Name     string
	Commands []*dispatch.Command
	Events   []Listener

	// OnEnable runs after commands and listeners are registered. An error aborts startup.
	OnEnable func(ctx context.Context) error
}

// Deps are the host services handed to every factory.
type Deps struct {
	Client platform.Client
	Store  store.Store
	Bus    *eventbus.Bus
	Queue  *eventbus.Queue
	Config *config.Config
	Logger *slog.Logger

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Clock returns the configured clock.
func (d *Deps) Clock() func() time.Time {
	if d.Now != nil {
		return d.Now
	}
	return time.Now
}

// Factory builds a module.
type Factory func(deps *Deps) (*Module, error)

// Catalog maps module names to factories.
type Catalog map[string]Factory

// Names returns the catalog's module names, sorted.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
