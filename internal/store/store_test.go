// ABOUTME: Conformance tests run against every Store implementation
// ABOUTME: Mock and SQLite always run; MongoDB runs when COVEN_CLAN_TEST_MONGO_URI is set

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T) Store

func storeFactories() map[string]storeFactory {
	return map[string]storeFactory{
		"mock": func(t *testing.T) Store {
			return NewMockStore()
		},
		"sqlite-memory": func(t *testing.T) Store {
			s, err := NewSQLiteStore(":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		"sqlite-file": func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "clan.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		"mongo": func(t *testing.T) Store {
			uri := os.Getenv("COVEN_CLAN_TEST_MONGO_URI")
			if uri == "" {
				t.Skip("COVEN_CLAN_TEST_MONGO_URI not set")
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			dbName := "coven_clan_test_" + uuid.NewString()[:8]
			s, err := NewMongoStore(ctx, uri, dbName)
			require.NoError(t, err)
			t.Cleanup(func() {
				_ = s.client.Database(dbName).Drop(context.Background())
				_ = s.Close()
			})
			return s
		},
	}
}

// forEachStore runs fn against a fresh store of every implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

// addMembers inserts members with a small gap so insertion order is unambiguous
// for stores with millisecond timestamps.
func addMembers(t *testing.T, s Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, s.UpsertMember(context.Background(), id, false))
		time.Sleep(2 * time.Millisecond)
	}
}

func memberIDs(members []*Member) []string {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ActorID)
	}
	return ids
}

func TestStore_UpsertAndGetMember(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.GetMember(ctx, "u1")
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, s.UpsertMember(ctx, "u1", false))
		m, err := s.GetMember(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "u1", m.ActorID)
		assert.False(t, m.Done)
		assert.False(t, m.CreatedAt.IsZero())

		// Re-adding overwrites the flag without duplicating the member.
		require.NoError(t, s.UpsertMember(ctx, "u1", true))
		m, err = s.GetMember(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, m.Done)

		all, err := s.ListMembers(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestStore_ListMembers_InsertionOrder(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		all, err := s.ListMembers(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)

		addMembers(t, s, "zed", "amy", "mike")
		// Updating an existing member keeps its position.
		require.NoError(t, s.UpsertMember(ctx, "zed", true))

		all, err = s.ListMembers(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"zed", "amy", "mike"}, memberIDs(all))
		assert.True(t, all[0].Done)
	})
}

func TestStore_SetMemberDone(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		ok, err := s.SetMemberDone(ctx, "ghost", true)
		require.NoError(t, err)
		assert.False(t, ok)

		exists, err := s.MemberExists(ctx, "ghost")
		require.NoError(t, err)
		assert.False(t, exists, "updating an absent member must not create it")

		addMembers(t, s, "u1")
		ok, err = s.SetMemberDone(ctx, "u1", true)
		require.NoError(t, err)
		assert.True(t, ok)

		m, err := s.GetMember(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, m.Done)
	})
}

func TestStore_SetAllDone(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		n, err := s.SetAllDone(ctx, false)
		require.NoError(t, err)
		assert.Zero(t, n)

		addMembers(t, s, "a", "b", "c")
		ok, err := s.SetMemberDone(ctx, "a", true)
		require.NoError(t, err)
		require.True(t, ok)
		_, err = s.SetMemberDone(ctx, "b", true)
		require.NoError(t, err)

		n, err = s.SetAllDone(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		all, err := s.ListMembers(ctx)
		require.NoError(t, err)
		for _, m := range all {
			assert.False(t, m.Done, "member %s", m.ActorID)
		}
	})
}

func TestStore_RemoveMember(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		ok, err := s.RemoveMember(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, ok)

		addMembers(t, s, "a", "b")
		ok, err = s.RemoveMember(ctx, "a")
		require.NoError(t, err)
		assert.True(t, ok)

		exists, err := s.MemberExists(ctx, "a")
		require.NoError(t, err)
		assert.False(t, exists)

		exists, err = s.MemberExists(ctx, "b")
		require.NoError(t, err)
		assert.True(t, exists)

		// Re-adding after removal appends to the end.
		addMembers(t, s, "a")
		all, err := s.ListMembers(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, memberIDs(all))
	})
}

func TestStore_EmbedState(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.GetEmbedState(ctx)
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, s.SaveEmbedState(ctx, &EmbedState{ChannelID: "ch1", MessageID: "m1"}))
		st, err := s.GetEmbedState(ctx)
		require.NoError(t, err)
		assert.Equal(t, EmbedStateID, st.ID)
		assert.Equal(t, "ch1", st.ChannelID)
		assert.Equal(t, "m1", st.MessageID)

		require.NoError(t, s.SaveEmbedState(ctx, &EmbedState{ChannelID: "ch2", MessageID: "m2"}))
		st, err = s.GetEmbedState(ctx)
		require.NoError(t, err)
		assert.Equal(t, "ch2", st.ChannelID)
		assert.Equal(t, "m2", st.MessageID)
	})
}

func TestStore_IncrementActivity(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		key := ActivityKey{ScopeID: "g1", ActorID: "u1", PeriodKey: "2025-W01"}

		n, err := s.GetActivity(ctx, key)
		require.NoError(t, err)
		assert.Zero(t, n)

		for i := int64(1); i <= 3; i++ {
			n, err = s.IncrementActivity(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, i, n)
		}

		n, err = s.GetActivity(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		// Other periods are independent.
		other := key
		other.PeriodKey = "2025-W02"
		n, err = s.GetActivity(ctx, other)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestStore_IncrementActivity_Concurrent(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		key := ActivityKey{ScopeID: "g1", ActorID: "u1", PeriodKey: "2025-W01"}

		// Seed the counter so concurrent upserts never race on insert.
		_, err := s.IncrementActivity(ctx, key)
		require.NoError(t, err)

		const workers = 20
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.IncrementActivity(ctx, key); err != nil {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		n, err := s.GetActivity(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(workers+1), n)
	})
}

func seedActivity(t *testing.T, s Store, scope, period string, counts map[string]int) {
	t.Helper()
	ctx := context.Background()
	for actor, c := range counts {
		for i := 0; i < c; i++ {
			_, err := s.IncrementActivity(ctx, ActivityKey{ScopeID: scope, ActorID: actor, PeriodKey: period})
			require.NoError(t, err)
		}
	}
}

func TestStore_TopActivity(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedActivity(t, s, "g1", "W1", map[string]int{"a": 2, "b": 5, "c": 2, "d": 1})
		seedActivity(t, s, "g2", "W1", map[string]int{"x": 9})
		seedActivity(t, s, "g1", "W0", map[string]int{"y": 9})

		top, err := s.TopActivity(ctx, "g1", "W1", 3)
		require.NoError(t, err)
		require.Len(t, top, 3)
		assert.Equal(t, "b", top[0].ActorID)
		assert.Equal(t, int64(5), top[0].Count)
		// Ties break by actor id.
		assert.Equal(t, "a", top[1].ActorID)
		assert.Equal(t, "c", top[2].ActorID)
		for _, c := range top {
			assert.Equal(t, "g1", c.ScopeID)
			assert.Equal(t, "W1", c.PeriodKey)
		}

		all, err := s.ListActivity(ctx, "g1", "W1")
		require.NoError(t, err)
		assert.Len(t, all, 4)

		none, err := s.TopActivity(ctx, "g3", "W1", 10)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestStore_ResetActivity(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedActivity(t, s, "g1", "W1", map[string]int{"a": 1, "b": 2})
		seedActivity(t, s, "g2", "W1", map[string]int{"a": 1})
		seedActivity(t, s, "g1", "W2", map[string]int{"a": 1})

		n, err := s.ResetActivity(ctx, "g1", "W1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		left, err := s.ListActivity(ctx, "g1", "W1")
		require.NoError(t, err)
		assert.Empty(t, left)

		for _, key := range []ActivityKey{
			{ScopeID: "g2", ActorID: "a", PeriodKey: "W1"},
			{ScopeID: "g1", ActorID: "a", PeriodKey: "W2"},
		} {
			c, err := s.GetActivity(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, int64(1), c, fmt.Sprintf("%+v", key))
		}

		n, err = s.ResetActivity(ctx, "g1", "W1")
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestMockStore_FailWith(t *testing.T) {
	s := NewMockStore()
	s.FailWith(nil)

	err := s.UpsertMember(context.Background(), "u1", false)
	assert.Error(t, err)

	boom := errors.New("boom")
	s.FailWith(boom)
	_, err = s.ListMembers(context.Background())
	assert.ErrorIs(t, err, boom)

	s.FailWith(nil)
	s.Err = nil
	assert.NoError(t, s.UpsertMember(context.Background(), "u1", false))
}

func TestSQLiteStore_FileCreated(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sub", "clan.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "clan.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.UpsertMember(ctx, "u1", true))
	require.NoError(t, s.SaveEmbedState(ctx, &EmbedState{ChannelID: "c", MessageID: "m"}))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	m, err := s.GetMember(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, m.Done)

	st, err := s.GetEmbedState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "m", st.MessageID)
}

func TestMongoFilters(t *testing.T) {
	key := ActivityKey{ScopeID: "g", ActorID: "u", PeriodKey: "2025-W10"}
	f := activityFilter(key)
	assert.Equal(t, "g", f["guildId"])
	assert.Equal(t, "u", f["userId"])
	assert.Equal(t, "2025-W10", f["weekKey"])

	p := periodFilter("g", "2025-W10")
	assert.Len(t, p, 2)
	assert.Equal(t, "u", memberFilter("u")["userId"])

	sort := activitySort()
	require.Len(t, sort, 2)
	assert.Equal(t, "count", sort[0].Key)
	assert.Equal(t, -1, sort[0].Value)
}
