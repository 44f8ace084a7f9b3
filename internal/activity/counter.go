// ABOUTME: Weekly activity counters scoped to a server and the current period
// ABOUTME: Counts only roster members and answers the top, me, lacking, and reset queries

package activity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/2389/coven-clan/internal/platform"
	"github.com/2389/coven-clan/internal/store"
)

// CounterStore is the persistence the Counter needs.
type CounterStore interface {
	store.ActivityStore
	ListMembers(ctx context.Context) ([]*store.Member, error)
}

// Standing is one member's count for the period.
type Standing struct {
	ActorID string
	Count   int64
}

// Counter records and queries activity for the current period.
type Counter struct {
	store       CounterStore
	membership  *Membership
	location    *time.Location
	requirement int64
	maxTop      int
	now         func() time.Time
}

// CounterConfig contains configuration options for the Counter.
type CounterConfig struct {
	Store       CounterStore
	Membership  *Membership
	Location    *time.Location
	Requirement int
	MaxTop      int
	Now         func() time.Time
}

// NewCounter creates a new Counter with the given configuration.
func NewCounter(cfg CounterConfig) *Counter {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Counter{
		store:       cfg.Store,
		membership:  cfg.Membership,
		location:    loc,
		requirement: int64(cfg.Requirement),
		maxTop:      cfg.MaxTop,
		now:         now,
	}
}

// Period returns the current period key.
func (c *Counter) Period() string {
	return PeriodKey(c.now(), c.location)
}

// Requirement returns the weekly message requirement.
func (c *Counter) Requirement() int64 {
	return c.requirement
}

// MaxTop returns the largest accepted top limit.
func (c *Counter) MaxTop() int {
	return c.maxTop
}

// Increment counts msg if it comes from a roster member in a scope. The period
// is taken from msg.CreatedAt when set. It reports whether a counter was incremented.
func (c *Counter) Increment(ctx context.Context, msg *platform.Message) (bool, error) {
	if msg == nil || msg.Author.Bot || msg.GuildID == "" {
		return false, nil
	}

	member, err := c.membership.IsMember(ctx, msg.Author.ID)
	if err != nil {
		return false, err
	}
	if !member {
		return false, nil
	}

	// Count in the week the message was sent, not the week it was processed.
	sent := msg.CreatedAt
	if sent.IsZero() {
		sent = c.now()
	}
	key := store.ActivityKey{ScopeID: msg.GuildID, ActorID: msg.Author.ID, PeriodKey: PeriodKey(sent, c.location)}
	if _, err := c.store.IncrementActivity(ctx, key); err != nil {
		return false, fmt.Errorf("incrementing activity: %w", err)
	}
	return true, nil
}

// ClampTop bounds a requested top limit to [1, MaxTop].
func (c *Counter) ClampTop(requested int) int {
	if requested < 1 {
		return 1
	}
	if requested > c.maxTop {
		return c.maxTop
	}
	return requested
}

// Top returns the highest counters for scope in the current period.
func (c *Counter) Top(ctx context.Context, scopeID string, limit int) ([]*store.ActivityCounter, string, error) {
	period := c.Period()
	rows, err := c.store.TopActivity(ctx, scopeID, period, c.ClampTop(limit))
	if err != nil {
		return nil, period, fmt.Errorf("listing top activity: %w", err)
	}
	return rows, period, nil
}

// Me returns actorID's count in the current period and whether they are a member.
// Non-members get a zero count.
func (c *Counter) Me(ctx context.Context, scopeID, actorID string) (int64, bool, string, error) {
	period := c.Period()
	member, err := c.membership.IsMember(ctx, actorID)
	if err != nil {
		return 0, false, period, err
	}
	if !member {
		return 0, false, period, nil
	}

	n, err := c.store.GetActivity(ctx, store.ActivityKey{ScopeID: scopeID, ActorID: actorID, PeriodKey: period})
	if err != nil {
		return 0, true, period, fmt.Errorf("reading activity: %w", err)
	}
	return n, true, period, nil
}

// Lacking returns roster members below the requirement in the current period,
// fewest messages first. Members without a counter count as zero.
func (c *Counter) Lacking(ctx context.Context, scopeID string) ([]Standing, string, error) {
	period := c.Period()

	members, err := c.store.ListMembers(ctx)
	if err != nil {
		return nil, period, fmt.Errorf("listing members: %w", err)
	}
	counters, err := c.store.ListActivity(ctx, scopeID, period)
	if err != nil {
		return nil, period, fmt.Errorf("listing activity: %w", err)
	}

	counts := make(map[string]int64, len(counters))
	for _, ac := range counters {
		counts[ac.ActorID] = ac.Count
	}

	var lacking []Standing
	for _, m := range members {
		if n := counts[m.ActorID]; n < c.requirement {
			lacking = append(lacking, Standing{ActorID: m.ActorID, Count: n})
		}
	}
	sort.SliceStable(lacking, func(i, j int) bool {
		return lacking[i].Count < lacking[j].Count
	})
	return lacking, period, nil
}

// Reset deletes the counters of scope for the current period only.
func (c *Counter) Reset(ctx context.Context, scopeID string) (int64, string, error) {
	period := c.Period()
	n, err := c.store.ResetActivity(ctx, scopeID, period)
	if err != nil {
		return 0, period, fmt.Errorf("resetting activity: %w", err)
	}
	return n, period, nil
}
