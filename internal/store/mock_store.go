// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite or MongoDB

package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu       sync.RWMutex
	members  map[string]*Member // keyed by actor ID
	seq      map[string]int64   // keyed by actor ID -> insertion sequence
	nextSeq  int64
	embed    *EmbedState // singleton, nil until saved
	counters map[ActivityKey]*ActivityCounter

	// Err, when set, is returned by every method. Lets tests exercise failure paths.
	Err error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		members:  make(map[string]*Member),
		seq:      make(map[string]int64),
		counters: make(map[ActivityKey]*ActivityCounter),
	}
}

// UpsertMember creates the member or overwrites its completion flag.
func (m *MockStore) UpsertMember(ctx context.Context, actorID string, done bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	now := time.Now().UTC()
	if existing, ok := m.members[actorID]; ok {
		existing.Done = done
		existing.UpdatedAt = now
		return nil
	}

	m.nextSeq++
	m.seq[actorID] = m.nextSeq
	m.members[actorID] = &Member{ActorID: actorID, Done: done, CreatedAt: now, UpdatedAt: now}
	return nil
}

// SetMemberDone updates an existing member.
func (m *MockStore) SetMemberDone(ctx context.Context, actorID string, done bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}

	existing, ok := m.members[actorID]
	if !ok {
		return false, nil
	}
	existing.Done = done
	existing.UpdatedAt = time.Now().UTC()
	return true, nil
}

// SetAllDone sets the completion flag on every member.
func (m *MockStore) SetAllDone(ctx context.Context, done bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}

	var changed int64
	for _, member := range m.members {
		if member.Done != done {
			member.Done = done
			member.UpdatedAt = time.Now().UTC()
			changed++
		}
	}
	return changed, nil
}

// RemoveMember deletes a member.
func (m *MockStore) RemoveMember(ctx context.Context, actorID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}

	if _, ok := m.members[actorID]; !ok {
		return false, nil
	}
	delete(m.members, actorID)
	delete(m.seq, actorID)
	return true, nil
}

// GetMember retrieves a member by actor ID.
func (m *MockStore) GetMember(ctx context.Context, actorID string) (*Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	member, ok := m.members[actorID]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy
	result := *member
	return &result, nil
}

// ListMembers returns members in insertion order.
func (m *MockStore) ListMembers(ctx context.Context) ([]*Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	result := make([]*Member, 0, len(m.members))
	for _, member := range m.members {
		c := *member
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool {
		return m.seq[result[i].ActorID] < m.seq[result[j].ActorID]
	})
	return result, nil
}

// MemberExists reports whether the actor is on the roster.
func (m *MockStore) MemberExists(ctx context.Context, actorID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return false, m.Err
	}

	_, ok := m.members[actorID]
	return ok, nil
}

// GetEmbedState returns the singleton embed state.
func (m *MockStore) GetEmbedState(ctx context.Context) (*EmbedState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	if m.embed == nil {
		return nil, ErrNotFound
	}
	result := *m.embed
	return &result, nil
}

// SaveEmbedState writes the singleton embed state.
func (m *MockStore) SaveEmbedState(ctx context.Context, state *EmbedState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	now := time.Now().UTC()
	saved := *state
	saved.ID = EmbedStateID
	saved.UpdatedAt = now
	if m.embed != nil {
		saved.CreatedAt = m.embed.CreatedAt
	} else {
		saved.CreatedAt = now
	}
	m.embed = &saved
	return nil
}

// IncrementActivity adds one to the counter.
func (m *MockStore) IncrementActivity(ctx context.Context, key ActivityKey) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}

	c, ok := m.counters[key]
	if !ok {
		c = &ActivityCounter{ScopeID: key.ScopeID, ActorID: key.ActorID, PeriodKey: key.PeriodKey}
		m.counters[key] = c
	}
	c.Count++
	c.UpdatedAt = time.Now().UTC()
	return c.Count, nil
}

// GetActivity returns the counter value or zero.
func (m *MockStore) GetActivity(ctx context.Context, key ActivityKey) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return 0, m.Err
	}

	if c, ok := m.counters[key]; ok {
		return c.Count, nil
	}
	return 0, nil
}

// TopActivity lists the highest counters for a scope and period.
func (m *MockStore) TopActivity(ctx context.Context, scopeID, periodKey string, limit int) ([]*ActivityCounter, error) {
	all, err := m.ListActivity(ctx, scopeID, periodKey)
	if err != nil {
		return nil, err
	}
	if limit >= 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// ListActivity lists every counter for a scope and period, highest first.
func (m *MockStore) ListActivity(ctx context.Context, scopeID, periodKey string) ([]*ActivityCounter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	var result []*ActivityCounter
	for key, c := range m.counters {
		if key.ScopeID == scopeID && key.PeriodKey == periodKey {
			cp := *c
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].ActorID < result[j].ActorID
	})
	return result, nil
}

// ResetActivity deletes counters for one scope and period.
func (m *MockStore) ResetActivity(ctx context.Context, scopeID, periodKey string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}

	var deleted int64
	for key := range m.counters {
		if key.ScopeID == scopeID && key.PeriodKey == periodKey {
			delete(m.counters, key)
			deleted++
		}
	}
	return deleted, nil
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}

// errInjected is a convenience error for tests that need a failing store.
var errInjected = errors.New("injected store failure")

// FailWith makes every subsequent call return err (or a generic failure when err is nil).
func (m *MockStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		err = errInjected
	}
	m.Err = err
}

// Compile-time interface checks.
var (
	_ Store = (*MockStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
