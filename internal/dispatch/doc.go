// ABOUTME: Package dispatch owns the command table and routes interactions to handlers
// ABOUTME: Authorization rules run before handlers; every dispatch ends in a reply or a log line

// Package dispatch implements the command table built at startup and the
// Router that serves inbound interactions from it.
//
// The Table is written by the module loader and frozen before the platform
// connection starts; registering the same command name twice overwrites the
// earlier entry. The Router looks commands up by exact name, evaluates the
// command's declared authorization rule, runs the handler with panic recovery,
// and sends a generic failure reply if the handler fails before replying.
package dispatch
