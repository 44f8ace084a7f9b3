// ABOUTME: Tests for the status message Syncer and the ping cooldown
// ABOUTME: Covers rendering, edit-in-place, self-healing resend, channel resolution, and serialization

package roster

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-clan/internal/platform"
	"github.com/2389/coven-clan/internal/platform/platformtest"
	"github.com/2389/coven-clan/internal/store"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newSyncer(t *testing.T, channels ...string) (*Syncer, *store.MockStore, *platformtest.FakeClient) {
	t.Helper()
	st := store.NewMockStore()
	client := platformtest.NewFakeClient(channels...)
	s := NewSyncer(SyncerConfig{
		Store:          st,
		Client:         client,
		DefaultChannel: "default",
		Now:            func() time.Time { return fixedNow },
	})
	return s, st, client
}

func TestSyncer_RenderEmpty(t *testing.T) {
	s, _, _ := newSyncer(t)

	e := s.Render(nil)
	assert.Equal(t, "Clan Mission Status (0/0)", e.Title)
	assert.Equal(t, EmptyRoster, e.Description)
	assert.Equal(t, fixedNow, e.Timestamp)
}

func TestSyncer_RenderMembers(t *testing.T) {
	s, _, _ := newSyncer(t)

	e := s.Render([]*store.Member{
		{ActorID: "a", Done: false},
		{ActorID: "b", Done: true},
		{ActorID: "c", Done: true},
	})
	assert.Equal(t, "Clan Mission Status (2/3)", e.Title)
	assert.Equal(t, "❌ <@a>\n✅ <@b>\n✅ <@c>", e.Description)
}

func TestSyncer_RenderCustomTemplate(t *testing.T) {
	s := NewSyncer(SyncerConfig{
		Store:         store.NewMockStore(),
		Client:        platformtest.NewFakeClient(),
		TitleTemplate: "{completed} of {total} done",
	})
	e := s.Render([]*store.Member{{ActorID: "a", Done: true}})
	assert.Equal(t, "1 of 1 done", e.Title)
}

func TestSyncer_FirstUpdateSendsAndRecords(t *testing.T) {
	s, st, client := newSyncer(t, "status")
	ctx := context.Background()

	state, err := s.Update(ctx, "status")
	require.NoError(t, err)
	assert.Equal(t, "status", state.ChannelID)
	assert.NotEmpty(t, state.MessageID)

	saved, err := st.GetEmbedState(ctx)
	require.NoError(t, err)
	assert.Equal(t, state.MessageID, saved.MessageID)

	sent := client.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Clan Mission Status (0/0)", sent[0].Embed.Title)
	assert.Equal(t, EmptyRoster, sent[0].Embed.Description)
}

func TestSyncer_SecondUpdateEditsInPlace(t *testing.T) {
	s, st, client := newSyncer(t, "status")
	ctx := context.Background()
	require.NoError(t, st.UpsertMember(ctx, "a", false))

	first, err := s.Update(ctx, "status")
	require.NoError(t, err)
	firstID := first.MessageID

	second, err := s.Update(ctx, "status")
	require.NoError(t, err)
	assert.Equal(t, firstID, second.MessageID)

	assert.Len(t, client.Sent(), 1)
	edits := client.Edits()
	require.Len(t, edits, 1)
	assert.Equal(t, client.Sent()[0].Embed, edits[0].Embed, "identical content on repeat sync")
	assert.Equal(t, "Clan Mission Status (0/1)", edits[0].Embed.Title)
	assert.Equal(t, "❌ <@a>", edits[0].Embed.Description)

	require.NoError(t, st.UpsertMember(ctx, "a", true))
	third, err := s.Update(ctx, "status")
	require.NoError(t, err)
	assert.Equal(t, firstID, third.MessageID)

	msg, ok := client.Message(platform.MessageRef{ChannelID: "status", MessageID: firstID})
	require.True(t, ok)
	assert.Equal(t, "Clan Mission Status (1/1)", msg.Title)
	assert.Equal(t, "✅ <@a>", msg.Description)
}

func TestSyncer_SelfHealsDeletedMessage(t *testing.T) {
	s, st, client := newSyncer(t, "status")
	ctx := context.Background()

	first, err := s.Update(ctx, "status")
	require.NoError(t, err)
	client.DeleteMessage(platform.MessageRef{ChannelID: first.ChannelID, MessageID: first.MessageID})

	second, err := s.Update(ctx, "status")
	require.NoError(t, err)
	assert.NotEqual(t, first.MessageID, second.MessageID)
	assert.Equal(t, 1, client.MessageCount())

	saved, err := st.GetEmbedState(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.MessageID, saved.MessageID)
}

func TestSyncer_SelfHealsDeletedChannel(t *testing.T) {
	s, _, client := newSyncer(t, "old", "new")
	ctx := context.Background()

	_, err := s.Update(ctx, "old")
	require.NoError(t, err)
	client.RemoveChannel("old")

	state, err := s.Update(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "new", state.ChannelID)
}

func TestSyncer_SelfHealsEditFailure(t *testing.T) {
	s, _, client := newSyncer(t, "status")
	ctx := context.Background()

	first, err := s.Update(ctx, "status")
	require.NoError(t, err)

	client.EditErr = errors.New("missing permissions")
	second, err := s.Update(ctx, "status")
	require.NoError(t, err)
	assert.NotEqual(t, first.MessageID, second.MessageID)
}

func TestSyncer_SendFailure(t *testing.T) {
	s, st, client := newSyncer(t, "status")
	client.SendErr = errors.New("rate limited")

	_, err := s.Update(context.Background(), "status")
	assert.Error(t, err)

	_, err = st.GetEmbedState(context.Background())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSyncer_StoreFailure(t *testing.T) {
	s, st, _ := newSyncer(t, "status")
	st.FailWith(nil)

	_, err := s.Update(context.Background(), "status")
	assert.Error(t, err)

	_, err = s.StatusChannel(context.Background(), "here")
	assert.Error(t, err)
}

func TestSyncer_ConcurrentUpdatesKeepOneMessage(t *testing.T) {
	s, _, client := newSyncer(t, "status")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, "status")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, client.MessageCount())
	assert.Len(t, client.Sent(), 1)
}

func TestSyncer_StatusChannel(t *testing.T) {
	ctx := context.Background()

	t.Run("falls back to interaction channel", func(t *testing.T) {
		s, _, _ := newSyncer(t)
		ch, err := s.StatusChannel(ctx, "here")
		require.NoError(t, err)
		assert.Equal(t, "here", ch)
	})

	t.Run("prefers configured default", func(t *testing.T) {
		s, _, _ := newSyncer(t, "default")
		ch, err := s.StatusChannel(ctx, "here")
		require.NoError(t, err)
		assert.Equal(t, "default", ch)
	})

	t.Run("prefers recorded channel", func(t *testing.T) {
		s, st, _ := newSyncer(t, "default", "recorded")
		require.NoError(t, st.SaveEmbedState(ctx, &store.EmbedState{ChannelID: "recorded", MessageID: "m"}))
		ch, err := s.StatusChannel(ctx, "here")
		require.NoError(t, err)
		assert.Equal(t, "recorded", ch)
	})

	t.Run("skips unresolvable recorded channel", func(t *testing.T) {
		s, st, _ := newSyncer(t, "default")
		require.NoError(t, st.SaveEmbedState(ctx, &store.EmbedState{ChannelID: "gone", MessageID: "m"}))
		ch, err := s.StatusChannel(ctx, "here")
		require.NoError(t, err)
		assert.Equal(t, "default", ch)
	})
}

func TestCooldown(t *testing.T) {
	c := NewCooldown(time.Hour)
	t0 := fixedNow

	ok, _ := c.Take(t0)
	assert.True(t, ok)

	ok, remaining := c.Take(t0.Add(10 * time.Minute))
	assert.False(t, ok)
	assert.Equal(t, 50, CeilMinutes(remaining))

	// A refused attempt does not push the cooldown back.
	ok, remaining = c.Take(t0.Add(59*time.Minute + 30*time.Second))
	assert.False(t, ok)
	assert.Equal(t, 1, CeilMinutes(remaining))

	ok, _ = c.Take(t0.Add(time.Hour + time.Second))
	assert.True(t, ok)
}

func TestCeilMinutes(t *testing.T) {
	assert.Equal(t, 1, CeilMinutes(time.Second))
	assert.Equal(t, 1, CeilMinutes(time.Minute))
	assert.Equal(t, 2, CeilMinutes(time.Minute+time.Millisecond))
	assert.Equal(t, 0, CeilMinutes(0))
}
