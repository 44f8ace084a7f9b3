// ABOUTME: Package platform defines the chat-platform contracts the bot is written against
// ABOUTME: Adapters in subpackages bind these contracts to Discord and Matrix

// Package platform holds the platform-neutral types the rest of the bot uses:
// the Client connection, inbound Interactions and Messages, outbound Responses
// and Embeds, and the CommandSchema payload pushed to a platform's command registry.
//
// Event names are plain strings. Platform adapters publish EventInteractionCreate
// (payload Interaction) and EventMessageCreate (payload *Message). The roster
// module publishes EventRosterChanged (payload RosterChange) in-process through
// the event bus.
package platform
