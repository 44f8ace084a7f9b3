// ABOUTME: Platform-neutral Client, Interaction, Message and Embed contracts
// ABOUTME: Implemented by the discord and matrix adapters and by platformtest fakes

package platform

import (
	"context"
	"errors"
	"time"
)

// Event names delivered through Client.On and the event bus.
const (
	EventInteractionCreate = "interactionCreate"
	EventMessageCreate     = "messageCreate"
	EventRosterChanged     = "rosterChanged"
)

var (
	// ErrMessageNotFound indicates a tracked message no longer resolves.
	ErrMessageNotFound = errors.New("message not found")

	// ErrChannelNotFound indicates a channel cannot be resolved by the bot.
	ErrChannelNotFound = errors.New("channel not found")
)

// User is a platform account. Tag is the human-readable handle used in replies.
type User struct {
	ID  string
	Tag string
	Bot bool
}

// Message is an inbound chat message.
type Message struct {
	ID        string
	GuildID   string
	ChannelID string
	Author    User
	Content   string
	CreatedAt time.Time
}

// Embed is a rich display payload.
type Embed struct {
	Title       string
	Description string
	Timestamp   time.Time
}

// MessageRef locates a message the bot has sent.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// Response is a reply to an interaction. MentionRoles lists the only role
// mentions the platform should notify; all other mentions are suppressed.
type Response struct {
	Content      string
	Embeds       []Embed
	Ephemeral    bool
	MentionRoles []string
}

// RosterChange is the payload of EventRosterChanged.
type RosterChange struct {
	ActorID string
}

// Interaction is one inbound command invocation. A platform interaction
// accepts a single initial reply; Replied reports whether it was issued.
type Interaction interface {
	ID() string
	CommandName() string
	// Subcommand is empty for commands without subcommands.
	Subcommand() string
	UserOption(name string) (User, bool)
	IntOption(name string) (int64, bool)
	User() User
	GuildID() string
	ChannelID() string
	HasRole(roleID string) bool
	Reply(ctx context.Context, resp Response) error
	Replied() bool
}

// Handler receives an event payload.
type Handler func(ctx context.Context, payload any)

// Client is a connection to a chat platform.
type Client interface {
	// On registers a handler for a platform event and returns its remover.
	On(event string, handler Handler) (remove func())

	// RegisterCommands replaces every command registered for the deployment scope.
	RegisterCommands(ctx context.Context, schemas []CommandSchema) error

	// ChannelExists reports whether the bot can currently resolve the channel.
	ChannelExists(ctx context.Context, channelID string) bool

	SendEmbed(ctx context.Context, channelID string, embed Embed) (MessageRef, error)

	// EditEmbed fetches the referenced message and replaces its embed.
	// Any failure to fetch or edit is returned.
	EditEmbed(ctx context.Context, ref MessageRef, embed Embed) error

	MentionUser(userID string) string
	MentionRole(roleID string) string
	MentionChannel(channelID string) string

	// Run connects and blocks until ctx is cancelled or the connection fails.
	Run(ctx context.Context) error
	Close() error
}
