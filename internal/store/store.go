// ABOUTME: Store interfaces and data types for coven-clan persistence
// ABOUTME: Defines Member, EmbedState, ActivityCounter and the roster/embed/activity stores

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// EmbedStateID is the fixed key of the singleton embed state record.
const EmbedStateID = "singleton"

// Member is one roster entrant. ActorID is the platform user identifier.
type Member struct {
	ActorID   string
	Done      bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EmbedState points at the tracked status message. ChannelID and MessageID
// are empty until the first sync has sent a message.
type EmbedState struct {
	ID        string
	ChannelID string
	MessageID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ActivityKey identifies one activity counter.
type ActivityKey struct {
	ScopeID   string
	ActorID   string
	PeriodKey string
}

// ActivityCounter is the number of qualifying events for one (scope, actor, period).
type ActivityCounter struct {
	ScopeID   string
	ActorID   string
	PeriodKey string
	Count     int64
	UpdatedAt time.Time
}

// RosterStore persists the roster. Members are listed in insertion order.
type RosterStore interface {
	// UpsertMember creates the member or overwrites its completion flag.
	UpsertMember(ctx context.Context, actorID string, done bool) error
	// SetMemberDone updates an existing member only. Returns false if absent.
	SetMemberDone(ctx context.Context, actorID string, done bool) (bool, error)
	// SetAllDone sets the completion flag on every member and returns how many changed.
	SetAllDone(ctx context.Context, done bool) (int64, error)
	// RemoveMember deletes the member. Returns false if absent.
	RemoveMember(ctx context.Context, actorID string) (bool, error)
	GetMember(ctx context.Context, actorID string) (*Member, error)
	ListMembers(ctx context.Context) ([]*Member, error)
	MemberExists(ctx context.Context, actorID string) (bool, error)
}

// EmbedStateStore persists the singleton embed pointer.
type EmbedStateStore interface {
	// GetEmbedState returns ErrNotFound until the first save.
	GetEmbedState(ctx context.Context) (*EmbedState, error)
	SaveEmbedState(ctx context.Context, state *EmbedState) error
}

// ActivityStore persists windowed activity counters.
type ActivityStore interface {
	// IncrementActivity atomically adds one, creating the counter if absent, and returns the new count.
	IncrementActivity(ctx context.Context, key ActivityKey) (int64, error)
	// GetActivity returns zero for a missing counter.
	GetActivity(ctx context.Context, key ActivityKey) (int64, error)
	// TopActivity lists counters for (scope, period) by count descending, then actor id.
	TopActivity(ctx context.Context, scopeID, periodKey string, limit int) ([]*ActivityCounter, error)
	ListActivity(ctx context.Context, scopeID, periodKey string) ([]*ActivityCounter, error)
	// ResetActivity deletes the counters for (scope, period) and returns how many were removed.
	ResetActivity(ctx context.Context, scopeID, periodKey string) (int64, error)
}

// Store is the full persistence surface used by the bot.
type Store interface {
	RosterStore
	EmbedStateStore
	ActivityStore

	// Close releases any resources held by the store
	Close() error
}
