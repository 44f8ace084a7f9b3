// ABOUTME: Package modules defines the feature-module contract and the startup Loader
// ABOUTME: Modules are resolved by name from a static catalog of factories

// Package modules loads feature modules into the bot.
//
// A Module bundles commands, event listeners, and an optional OnEnable hook.
// Modules are not discovered at runtime: the host supplies a Catalog mapping
// names to Factory functions, and the configured module list selects from it.
//
// Loader.Load walks the list in order. An unknown name, a factory error, or
// an OnEnable error aborts startup. A module without a name, or a command
// without a schema name or handler, is skipped with a warning. Commands go
// into the dispatch table, where a later command with the same name replaces
// the earlier one. Listeners are attached to the event bus immediately.
package modules
