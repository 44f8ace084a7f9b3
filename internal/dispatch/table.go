// ABOUTME: Command definition and the process-wide command table
// ABOUTME: Set overwrites by name until Freeze; afterwards the table is read-only

package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/2389/coven-clan/internal/authz"
	"github.com/2389/coven-clan/internal/platform"
)

// ErrFrozen is returned when writing to a frozen table.
var ErrFrozen = errors.New("command table is frozen")

// ExecuteFunc runs a command.
type ExecuteFunc func(ctx context.Context, in platform.Interaction, client platform.Client) error

// Command is one registered command.
type Command struct {
	Schema platform.CommandSchema

	// Authorize maps subcommand name to its rule. The "" entry applies to
	// every invocation and is evaluated first.
	Authorize map[string]authz.Rule

	Execute ExecuteFunc
}

// Rule returns the combined rule for a subcommand.
func (c *Command) Rule(subcommand string) authz.Rule {
	base := c.Authorize[""]
	if subcommand == "" {
		return base
	}
	sub := c.Authorize[subcommand]
	switch {
	case base == nil:
		return sub
	case sub == nil:
		return base
	default:
		return authz.All(base, sub)
	}
}

// Table maps command names to commands.
type Table struct {
	mu       sync.RWMutex
	commands map[string]*Command
	order    []string
	frozen   bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{commands: make(map[string]*Command)}
}

// Set registers cmd under its schema name, replacing any earlier command of the same name.
func (t *Table) Set(cmd *Command) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return ErrFrozen
	}
	name := cmd.Schema.Name
	if _, exists := t.commands[name]; !exists {
		t.order = append(t.order, name)
	}
	t.commands[name] = cmd
	return nil
}

// Get returns the command registered under name.
func (t *Table) Get(name string) (*Command, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cmd, ok := t.commands[name]
	return cmd, ok
}

// Freeze makes the table read-only.
func (t *Table) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true
}

// Frozen reports whether Freeze was called.
func (t *Table) Frozen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frozen
}

// Len returns the number of registered commands.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.commands)
}

// Schemas returns the schemas of all commands in first-registration order.
func (t *Table) Schemas() []platform.CommandSchema {
	t.mu.RLock()
	defer t.mu.RUnlock()

	schemas := make([]platform.CommandSchema, 0, len(t.order))
	for _, name := range t.order {
		schemas = append(schemas, t.commands[name].Schema)
	}
	return schemas
}
