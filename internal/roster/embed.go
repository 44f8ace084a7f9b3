// ABOUTME: Renders the roster into the status embed and reconciles the tracked message
// ABOUTME: Edits in place when possible, otherwise resends and records the new message

package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/2389/coven-clan/internal/config"
	"github.com/2389/coven-clan/internal/platform"
	"github.com/2389/coven-clan/internal/store"
)

// EmptyRoster is the embed body when there are no members.
const EmptyRoster = "No members yet."

// SyncStore is the persistence the Syncer needs.
type SyncStore interface {
	ListMembers(ctx context.Context) ([]*store.Member, error)
	GetEmbedState(ctx context.Context) (*store.EmbedState, error)
	SaveEmbedState(ctx context.Context, state *store.EmbedState) error
}

// Syncer keeps the status message consistent with the roster.
type Syncer struct {
	store          SyncStore
	client         platform.Client
	defaultChannel string
	titleTemplate  string
	logger         *slog.Logger
	now            func() time.Time

	mu sync.Mutex
}

// SyncerConfig contains configuration options for the Syncer.
type SyncerConfig struct {
	Store          SyncStore
	Client         platform.Client
	DefaultChannel string
	TitleTemplate  string
	Logger         *slog.Logger
	Now            func() time.Time
}

// NewSyncer creates a new Syncer with the given configuration.
func NewSyncer(cfg SyncerConfig) *Syncer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	tmpl := cfg.TitleTemplate
	if tmpl == "" {
		tmpl = config.DefaultTitleTemplate
	}
	return &Syncer{
		store:          cfg.Store,
		client:         cfg.Client,
		defaultChannel: cfg.DefaultChannel,
		titleTemplate:  tmpl,
		logger:         logger.With("component", "embed_sync"),
		now:            now,
	}
}

// Render builds the status embed for members, listed in the given order.
func (s *Syncer) Render(members []*store.Member) platform.Embed {
	completed := 0
	lines := make([]string, 0, len(members))
	for _, m := range members {
		glyph := "❌"
		if m.Done {
			glyph = "✅"
			completed++
		}
		lines = append(lines, glyph+" "+s.client.MentionUser(m.ActorID))
	}

	description := EmptyRoster
	if len(lines) > 0 {
		description = strings.Join(lines, "\n")
	}

	title := strings.Replace(s.titleTemplate, "{completed}", strconv.Itoa(completed), 1)
	title = strings.Replace(title, "{total}", strconv.Itoa(len(members)), 1)

	return platform.Embed{
		Title:       title,
		Description: description,
		Timestamp:   s.now(),
	}
}

// StatusChannel picks where the status message lives: the channel of the
// recorded message if it still resolves, else the configured default channel
// if it resolves, else fallback.
func (s *Syncer) StatusChannel(ctx context.Context, fallback string) (string, error) {
	state, err := s.store.GetEmbedState(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return "", fmt.Errorf("loading embed state: %w", err)
	case state.ChannelID != "" && s.client.ChannelExists(ctx, state.ChannelID):
		return state.ChannelID, nil
	}

	if s.defaultChannel != "" && s.client.ChannelExists(ctx, s.defaultChannel) {
		return s.defaultChannel, nil
	}
	return fallback, nil
}

// Update renders the roster and reconciles the status message. When the
// recorded message cannot be edited a new one is sent to channelID. The
// embed state is saved on every call.
func (s *Syncer) Update(ctx context.Context, channelID string) (*store.EmbedState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, err := s.store.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	embed := s.Render(members)

	state, err := s.store.GetEmbedState(ctx)
	if errors.Is(err, store.ErrNotFound) {
		state = &store.EmbedState{ID: store.EmbedStateID}
	} else if err != nil {
		return nil, fmt.Errorf("loading embed state: %w", err)
	}

	edited := false
	if state.MessageID != "" {
		ref := platform.MessageRef{ChannelID: state.ChannelID, MessageID: state.MessageID}
		if ref.ChannelID == "" {
			ref.ChannelID = channelID
		}
		if err := s.client.EditEmbed(ctx, ref, embed); err != nil {
			s.logger.Warn("tracked status message unavailable, resending",
				"channel_id", ref.ChannelID,
				"message_id", ref.MessageID,
				"error", err,
			)
		} else {
			edited = true
		}
	}

	if !edited {
		ref, err := s.client.SendEmbed(ctx, channelID, embed)
		if err != nil {
			return nil, fmt.Errorf("sending status message: %w", err)
		}
		state.ChannelID = ref.ChannelID
		state.MessageID = ref.MessageID
		s.logger.Info("status message sent", "channel_id", ref.ChannelID, "message_id", ref.MessageID)
	}

	if err := s.store.SaveEmbedState(ctx, state); err != nil {
		return nil, fmt.Errorf("saving embed state: %w", err)
	}

	s.logger.Debug("status message synced",
		"members", len(members),
		"edited", edited,
	)
	return state, nil
}
