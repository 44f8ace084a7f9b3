// ABOUTME: Package activity counts weekly messages from clan members
// ABOUTME: Provides the membership cache, period keys, counters, and the /messages command

// Package activity attributes chat messages to roster members and keeps
// per-(scope, member, week) counters.
//
// Membership is read through a TTL cache in front of the roster store.
// Concurrent misses for the same actor share one store lookup. Entries are
// dropped as soon as the roster module publishes a change for that actor, so
// the TTL only bounds staleness for changes made outside the bot.
//
// Counting runs on the background queue and never blocks message intake.
package activity
