// ABOUTME: Read-through membership cache in front of the roster store
// ABOUTME: Coalesces concurrent misses per actor and supports invalidation on roster writes

package activity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/2389/coven-clan/internal/ttlcache"
)

// membershipCacheSize bounds the number of cached actors.
const membershipCacheSize = 10000

// MemberChecker reports roster membership. store.RosterStore satisfies it.
type MemberChecker interface {
	MemberExists(ctx context.Context, actorID string) (bool, error)
}

// Membership caches roster membership for a fixed TTL.
type Membership struct {
	checker MemberChecker
	cache   *ttlcache.Cache[bool]
	group   singleflight.Group

	// generation is bumped by Invalidate. A lookup only caches its answer
	// when no invalidation happened while it was in flight.
	mu         sync.Mutex
	generation uint64
}

// NewMembership creates a membership cache. now may be nil.
func NewMembership(checker MemberChecker, ttl time.Duration, now func() time.Time) *Membership {
	var opts []ttlcache.Option[bool]
	if now != nil {
		opts = append(opts, ttlcache.WithClock[bool](now))
	}
	return &Membership{
		checker: checker,
		cache:   ttlcache.New[bool](ttl, membershipCacheSize, opts...),
	}
}

// IsMember returns the cached answer while it is younger than the TTL,
// otherwise asks the roster store and caches the result.
func (m *Membership) IsMember(ctx context.Context, actorID string) (bool, error) {
	if v, ok := m.cache.Get(actorID); ok {
		return v, nil
	}

	v, err, _ := m.group.Do(actorID, func() (any, error) {
		m.mu.Lock()
		gen := m.generation
		m.mu.Unlock()

		exists, err := m.checker.MemberExists(ctx, actorID)
		if err != nil {
			return false, err
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.generation == gen {
			m.cache.Set(actorID, exists)
		}
		return exists, nil
	})
	if err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	return v.(bool), nil
}

// Invalidate drops the cached answer for actorID, or every answer when actorID is empty.
// Lookups already in flight still answer their callers but are not cached.
func (m *Membership) Invalidate(actorID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.generation++
	if actorID == "" {
		m.cache.Clear()
		return
	}
	m.group.Forget(actorID)
	m.cache.Delete(actorID)
}

// Close stops the cache's background cleanup.
func (m *Membership) Close() {
	m.cache.Close()
}
