// ABOUTME: Package bot hosts the platform client, store, and modules as one process
// ABOUTME: Builds the wiring from config and runs it until shutdown

// Package bot assembles coven-clan from configuration.
//
// New selects the store driver and chat platform, then prepares the command
// table, router, event bus, work queue, and module loader. Run loads the
// enabled modules, pushes their command schemas to the platform, and serves
// until the context is cancelled.
package bot
