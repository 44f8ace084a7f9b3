// ABOUTME: Matrix implementation of platform.Client using mautrix and the default syncer
// ABOUTME: Turns room messages into commands or counted messages and posts notices and edits

package matrix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/coven-clan/internal/platform"
	"github.com/2389/coven-clan/internal/ttlcache"
)

const (
	defaultPrefix = "!"

	// seenTTL bounds how long event IDs are remembered for replay suppression.
	seenTTL  = 30 * time.Minute
	seenSize = 10000
)

// API is the subset of *mautrix.Client used outside the sync loop.
type API interface {
	SendMessageEvent(ctx context.Context, roomID id.RoomID, eventType event.Type, contentJSON interface{}, extra ...mautrix.ReqSendEvent) (*mautrix.RespSendEvent, error)
	GetEvent(ctx context.Context, roomID id.RoomID, eventID id.EventID) (*event.Event, error)
	JoinedRooms(ctx context.Context) (*mautrix.RespJoinedRooms, error)
}

// Config contains configuration options for the Client.
type Config struct {
	Homeserver    string
	UserID        string
	AccessToken   string
	CommandPrefix string
	// ScopeID groups all rooms into one scope. Defaults to the bot's server name.
	ScopeID      string
	AllowedRooms []string
	// IgnoredUsers are treated as bots.
	IgnoredUsers []string
	Roles        map[string][]string
	Logger       *slog.Logger
}

// Client is a platform.Client for Matrix.
type Client struct {
	api       API
	mx        *mautrix.Client
	cfg       Config
	prefix    string
	scopeID   string
	logger    *slog.Logger
	listeners platform.Listeners
	seen      *ttlcache.Cache[struct{}]

	mu      sync.RWMutex
	schemas map[string]platform.CommandSchema
}

// New creates a Matrix client authenticated with an access token.
func New(cfg Config) (*Client, error) {
	if cfg.Homeserver == "" || cfg.UserID == "" || cfg.AccessToken == "" {
		return nil, errors.New("matrix: homeserver, user_id and access_token are required")
	}
	mx, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}
	c := NewWithAPI(mx, cfg)
	c.mx = mx
	return c, nil
}

// NewWithAPI wraps an existing API. Run requires a client made by New.
func NewWithAPI(api API, cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	prefix := cfg.CommandPrefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	scope := cfg.ScopeID
	if scope == "" {
		scope = ServerName(cfg.UserID)
	}
	return &Client{
		api:     api,
		cfg:     cfg,
		prefix:  prefix,
		scopeID: scope,
		logger:  logger.With("component", "matrix"),
		seen:    ttlcache.New[struct{}](seenTTL, seenSize),
		schemas: make(map[string]platform.CommandSchema),
	}
}

// On registers a handler for a platform event.
func (c *Client) On(event string, handler platform.Handler) func() {
	return c.listeners.On(event, handler)
}

// RegisterCommands replaces the schemas used to bind text commands.
func (c *Client) RegisterCommands(ctx context.Context, schemas []platform.CommandSchema) error {
	next := make(map[string]platform.CommandSchema, len(schemas))
	for _, s := range schemas {
		next[s.Name] = s
	}
	c.mu.Lock()
	c.schemas = next
	c.mu.Unlock()

	c.logger.Info("commands registered", "prefix", c.prefix, "count", len(schemas))
	return nil
}

func (c *Client) schema(name string) *platform.CommandSchema {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s, ok := c.schemas[name]; ok {
		return &s
	}
	return nil
}

func (c *Client) roomAllowed(roomID string) bool {
	return len(c.cfg.AllowedRooms) == 0 || slices.Contains(c.cfg.AllowedRooms, roomID)
}

func (c *Client) hasRole(userID, roleID string) bool {
	if roleID == "" {
		return false
	}
	return slices.Contains(c.cfg.Roles[roleID], userID)
}

// ChannelExists reports whether the bot has joined the room and may use it.
func (c *Client) ChannelExists(ctx context.Context, channelID string) bool {
	if channelID == "" || !c.roomAllowed(channelID) {
		return false
	}
	resp, err := c.api.JoinedRooms(ctx)
	if err != nil {
		c.logger.Debug("joined rooms lookup failed", "error", err)
		return false
	}
	return slices.Contains(resp.JoinedRooms, id.RoomID(channelID))
}

func (c *Client) send(ctx context.Context, roomID string, content *event.MessageEventContent) (platform.MessageRef, error) {
	resp, err := c.api.SendMessageEvent(ctx, id.RoomID(roomID), event.EventMessage, content)
	if err != nil {
		if errors.Is(err, mautrix.MNotFound) || errors.Is(err, mautrix.MForbidden) {
			err = errors.Join(platform.ErrChannelNotFound, err)
		}
		return platform.MessageRef{}, fmt.Errorf("sending to %s: %w", roomID, err)
	}
	return platform.MessageRef{ChannelID: roomID, MessageID: resp.EventID.String()}, nil
}

func (c *Client) sendResponse(ctx context.Context, roomID string, resp platform.Response) (platform.MessageRef, error) {
	var mentioned []string
	for _, role := range resp.MentionRoles {
		mentioned = append(mentioned, c.cfg.Roles[role]...)
	}
	return c.send(ctx, roomID, Notice(Markdown(resp), mentioned))
}

// SendEmbed posts embed as a notice.
func (c *Client) SendEmbed(ctx context.Context, channelID string, embed platform.Embed) (platform.MessageRef, error) {
	return c.send(ctx, channelID, Notice(embedMarkdown(embed), nil))
}

// EditEmbed replaces the referenced notice with an m.replace edit.
// Missing or redacted events are reported as platform.ErrMessageNotFound.
func (c *Client) EditEmbed(ctx context.Context, ref platform.MessageRef, embed platform.Embed) error {
	if ref.ChannelID == "" || ref.MessageID == "" {
		return platform.ErrMessageNotFound
	}
	original, err := c.api.GetEvent(ctx, id.RoomID(ref.ChannelID), id.EventID(ref.MessageID))
	if err != nil {
		if errors.Is(err, mautrix.MNotFound) {
			err = errors.Join(platform.ErrMessageNotFound, err)
		}
		return fmt.Errorf("fetching event: %w", err)
	}
	if original == nil || original.Unsigned.RedactedBecause != nil {
		return platform.ErrMessageNotFound
	}

	content := Notice(embedMarkdown(embed), nil)
	content.SetEdit(original.ID)
	_, err = c.send(ctx, ref.ChannelID, content)
	return err
}

func (c *Client) MentionUser(userID string) string       { return Pill(userID) }
func (c *Client) MentionChannel(channelID string) string { return Pill(channelID) }

// MentionRole mentions every configured holder of the role.
func (c *Client) MentionRole(roleID string) string {
	users := c.cfg.Roles[roleID]
	if len(users) == 0 {
		return "@" + roleID
	}
	pills := make([]string, 0, len(users))
	for _, u := range users {
		pills = append(pills, Pill(u))
	}
	return strings.Join(pills, " ")
}

func (c *Client) isBot(userID string) bool {
	return userID == c.cfg.UserID || slices.Contains(c.cfg.IgnoredUsers, userID)
}

// handleMessage turns a room message into an interaction or a counted message.
func (c *Client) handleMessage(ctx context.Context, evt *event.Event) {
	if evt == nil || c.seen.CheckAndMark(evt.ID.String(), struct{}{}) {
		return
	}
	if evt.Sender.String() == c.cfg.UserID {
		return
	}
	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok || content.MsgType != event.MsgText || content.RelatesTo.GetReplaceID() != "" {
		return
	}
	roomID := evt.RoomID.String()
	if !c.roomAllowed(roomID) {
		c.logger.Debug("ignoring message from non-allowed room", "room", roomID)
		return
	}

	sender := evt.Sender.String()
	author := platform.User{ID: sender, Tag: sender, Bot: c.isBot(sender)}

	if inv, ok := ParseCommand(c.prefix, content.Body); ok && !author.Bot {
		c.handleCommand(ctx, evt, author, inv)
		return
	}

	c.listeners.Emit(ctx, platform.EventMessageCreate, &platform.Message{
		ID:        evt.ID.String(),
		GuildID:   c.scopeID,
		ChannelID: roomID,
		Author:    author,
		Content:   content.Body,
		CreatedAt: time.UnixMilli(evt.Timestamp),
	})
}

func (c *Client) handleCommand(ctx context.Context, evt *event.Event, author platform.User, inv Invocation) {
	roomID := evt.RoomID.String()
	bound, err := Bind(c.prefix, inv, c.schema(inv.Name))

	var usage *UsageError
	if errors.As(err, &usage) {
		if _, sendErr := c.send(ctx, roomID, Notice(usage.Error(), nil)); sendErr != nil {
			c.logger.Warn("failed to send usage", "room", roomID, "error", sendErr)
		}
		return
	}

	c.logger.Debug("command received", "room", roomID, "sender", author.ID, "command", inv.Name)
	c.listeners.Emit(ctx, platform.EventInteractionCreate, &interaction{
		client:  c,
		eventID: evt.ID.String(),
		roomID:  roomID,
		scopeID: c.scopeID,
		actor:   author,
		bound:   bound,
	})
}

// Run syncs with the homeserver until ctx is cancelled or sync fails.
func (c *Client) Run(ctx context.Context) error {
	if c.mx == nil {
		return errors.New("matrix: client has no sync connection")
	}
	syncer, ok := c.mx.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", c.mx.Syncer)
	}
	syncer.OnSync(c.mx.DontProcessOldEvents)
	syncer.OnEventType(event.EventMessage, c.handleMessage)

	c.logger.Info("connecting to matrix homeserver", "homeserver", c.cfg.Homeserver, "user_id", c.cfg.UserID, "scope_id", c.scopeID)

	syncCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	syncErr := make(chan error, 1)
	go func() {
		syncErr <- c.mx.SyncWithContext(syncCtx)
	}()

	select {
	case <-ctx.Done():
		c.logger.Info("shutting down matrix sync")
		cancel()
		return nil
	case err := <-syncErr:
		return fmt.Errorf("matrix sync failed: %w", err)
	}
}

// Close stops syncing and releases the replay guard.
func (c *Client) Close() error {
	if c.mx != nil {
		c.mx.StopSync()
	}
	c.seen.Close()
	c.listeners.Clear()
	return nil
}

var _ platform.Client = (*Client)(nil)
