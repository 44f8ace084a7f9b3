// ABOUTME: Package discord adapts a discordgo session to the platform.Client contract
// ABOUTME: Slash commands, interactions, embeds, and guild message events

// Package discord implements platform.Client on top of discordgo.
//
// Slash commands are registered with a bulk overwrite scoped to one guild,
// interactions are answered through InteractionRespond, and the status embed
// is edited in place after fetching the tracked message.
package discord
