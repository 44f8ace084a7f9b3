// ABOUTME: Package roster implements the clan roster module and its status message
// ABOUTME: Provides /clan and /mission, the self-healing embed sync, and the ping cooldown

// Package roster tracks clan members and their mission completion, and keeps
// a single status message in sync with that state.
//
// The Syncer renders the roster and reconciles it against the message recorded
// in the singleton embed state. If the recorded message cannot be fetched or
// edited it sends a new one and records that instead, so deleting the message
// or its channel heals on the next sync. Syncs are serialized in-process.
//
// Every roster mutation publishes platform.EventRosterChanged on the event bus
// before syncing, so caches keyed on membership can drop stale entries.
package roster
