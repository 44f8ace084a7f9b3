// ABOUTME: Package platformtest provides in-memory platform fakes for tests
// ABOUTME: FakeClient records sent and edited embeds; FakeInteraction records replies

// Package platformtest implements platform.Client and platform.Interaction in
// memory so handlers, the router, and the embed synchronizer can be tested
// without a chat connection.
package platformtest
