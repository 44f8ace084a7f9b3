// ABOUTME: Discord implementation of platform.Client over a narrow discordgo session interface
// ABOUTME: Translates gateway events into platform events and REST calls into Client operations

package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/2389/coven-clan/internal/platform"
)

// Intents requested on connect.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

// Session is the subset of *discordgo.Session the client uses.
type Session interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Config contains configuration options for the Client.
type Config struct {
	Token         string
	ApplicationID string
	GuildID       string
	Logger        *slog.Logger
}

// Client is a platform.Client for Discord.
type Client struct {
	session   Session
	appID     string
	guildID   string
	logger    *slog.Logger
	listeners platform.Listeners
	detach    []func()

	mu        sync.Mutex
	ctx       context.Context
	closeOnce sync.Once
}

// New creates a Discord client authenticated with the bot token.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("discord: token is required")
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = Intents
	return NewWithSession(session, cfg), nil
}

// NewWithSession wraps an existing session. The token in cfg is ignored.
func NewWithSession(session Session, cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		session: session,
		appID:   cfg.ApplicationID,
		guildID: cfg.GuildID,
		logger:  logger.With("component", "discord"),
		ctx:     context.Background(),
	}
	c.detach = append(c.detach,
		session.AddHandler(c.onReady),
		session.AddHandler(c.onInteractionCreate),
		session.AddHandler(c.onMessageCreate),
	)
	return c
}

func (c *Client) baseContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}

func (c *Client) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	if r.User != nil {
		c.logger.Info("✅ logged in", "user", r.User.String(), "guilds", len(r.Guilds))
	}
}

func (c *Client) onInteractionCreate(_ *discordgo.Session, ev *discordgo.InteractionCreate) {
	if ev == nil || ev.Interaction == nil || ev.Type != discordgo.InteractionApplicationCommand {
		return
	}
	c.listeners.Emit(c.baseContext(), platform.EventInteractionCreate, newInteraction(c.session, ev.Interaction))
}

func (c *Client) onMessageCreate(_ *discordgo.Session, ev *discordgo.MessageCreate) {
	if ev == nil || ev.Message == nil {
		return
	}
	c.listeners.Emit(c.baseContext(), platform.EventMessageCreate, toMessage(ev.Message))
}

// On registers a handler for a platform event.
func (c *Client) On(event string, handler platform.Handler) func() {
	return c.listeners.On(event, handler)
}

// RegisterCommands replaces the guild's slash commands with schemas.
func (c *Client) RegisterCommands(ctx context.Context, schemas []platform.CommandSchema) error {
	if c.appID == "" {
		return errors.New("discord: application id is required to register commands")
	}
	cmds, err := c.session.ApplicationCommandBulkOverwrite(c.appID, c.guildID, toCommands(schemas), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("registering commands: %w", err)
	}
	c.logger.Info("commands registered", "guild_id", c.guildID, "count", len(cmds))
	return nil
}

// ChannelExists reports whether the channel resolves for the bot.
func (c *Client) ChannelExists(ctx context.Context, channelID string) bool {
	if channelID == "" {
		return false
	}
	ch, err := c.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		c.logger.Debug("channel lookup failed", "channel_id", channelID, "error", err)
		return false
	}
	return ch != nil
}

// SendEmbed posts a new message carrying embed.
func (c *Client) SendEmbed(ctx context.Context, channelID string, embed platform.Embed) (platform.MessageRef, error) {
	msg, err := c.session.ChannelMessageSendEmbed(channelID, toEmbed(embed), discordgo.WithContext(ctx))
	if err != nil {
		return platform.MessageRef{}, fmt.Errorf("sending embed: %w", notFound(err, platform.ErrChannelNotFound))
	}
	return platform.MessageRef{ChannelID: msg.ChannelID, MessageID: msg.ID}, nil
}

// EditEmbed fetches the referenced message and replaces its embed.
func (c *Client) EditEmbed(ctx context.Context, ref platform.MessageRef, embed platform.Embed) error {
	if ref.ChannelID == "" || ref.MessageID == "" {
		return platform.ErrMessageNotFound
	}
	if _, err := c.session.ChannelMessage(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("fetching message: %w", notFound(err, platform.ErrMessageNotFound))
	}
	if _, err := c.session.ChannelMessageEditEmbed(ref.ChannelID, ref.MessageID, toEmbed(embed), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("editing message: %w", notFound(err, platform.ErrMessageNotFound))
	}
	return nil
}

func (c *Client) MentionUser(userID string) string       { return "<@" + userID + ">" }
func (c *Client) MentionRole(roleID string) string       { return "<@&" + roleID + ">" }
func (c *Client) MentionChannel(channelID string) string { return "<#" + channelID + ">" }

// Run opens the gateway connection and blocks until ctx is cancelled.
// Event handlers receive ctx.
func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	c.logger.Info("connected to discord gateway")

	<-ctx.Done()
	c.logger.Info("disconnecting from discord")
	return nil
}

// Close detaches handlers and closes the session. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		for _, d := range c.detach {
			d()
		}
		c.listeners.Clear()
		err = c.session.Close()
	})
	return err
}

var _ platform.Client = (*Client)(nil)
