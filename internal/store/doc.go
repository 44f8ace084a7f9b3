// Package store provides persistent storage for the roster, the tracked
// status message, and activity counters.
//
// # Architecture
//
// Three narrow interfaces are composed into Store:
//
//   - RosterStore: Member records keyed by actor id, with a completion flag
//   - EmbedStateStore: the singleton pointer to the tracked status message
//   - ActivityStore: counters keyed by (scope, actor, period)
//
// Each backend implements all three in one struct:
//
//   - SQLiteStore: modernc.org/sqlite, schema created on open
//   - MongoStore: MongoDB collections compatible with the original bot's documents
//   - MockStore: in-memory, for unit tests
//
// # Invariants
//
//   - At most one Member per actor id
//   - At most one EmbedState, keyed by EmbedStateID
//   - At most one ActivityCounter per (scope, actor, period); counts never go negative
//   - ResetActivity touches exactly one (scope, period) pair
//
// # Error Handling
//
// ErrNotFound is returned for missing members and for an embed state that
// has never been saved. Reads of missing activity counters return zero.
//
// All methods accept context.Context for cancellation support.
//
// # Testing
//
// The same conformance suite runs against MockStore and SQLiteStore
// (":memory:" and temp files). Set COVEN_CLAN_TEST_MONGO_URI to run it
// against a live MongoDB as well.
package store
