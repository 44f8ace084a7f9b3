// ABOUTME: Package matrix adapts a mautrix client to the platform.Client contract
// ABOUTME: Text commands, notice replies, and edited status messages in Matrix rooms

// Package matrix implements platform.Client for Matrix.
//
// Matrix has no native slash commands, so commands arrive as room messages
// beginning with a prefix and are bound against the registered command
// schemas. Replies are m.notice events with HTML rendered from Markdown.
// Roles are configured as lists of user IDs.
package matrix
