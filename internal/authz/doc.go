// ABOUTME: Package authz provides declarative authorization rules for commands
// ABOUTME: Rules check roles, actor identity, and channel, and carry their denial text

// Package authz expresses command gates as values. A command declares a Rule
// per subcommand and the dispatcher evaluates it before running the handler,
// so handler bodies only run for authorized callers. Identifiers come from
// configuration; an unset role or actor denies.
package authz
