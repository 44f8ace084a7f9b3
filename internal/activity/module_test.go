// ABOUTME: Tests for the /messages command and message counting listeners
// ABOUTME: Drives the module through the router, the event bus, and a running work queue

package activity

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-clan/internal/authz"
	"github.com/2389/coven-clan/internal/config"
	"github.com/2389/coven-clan/internal/dispatch"
	"github.com/2389/coven-clan/internal/eventbus"
	"github.com/2389/coven-clan/internal/modules"
	"github.com/2389/coven-clan/internal/platform"
	"github.com/2389/coven-clan/internal/platform/platformtest"
	"github.com/2389/coven-clan/internal/store"
)

type harness struct {
	store  *store.MockStore
	client *platformtest.FakeClient
	bus    *eventbus.Bus
	queue  *eventbus.Queue
	router *dispatch.Router
	clock  *clock
}

func newHarness(t *testing.T, members ...string) *harness {
	t.Helper()
	h := &harness{
		store:  store.NewMockStore(),
		client: platformtest.NewFakeClient("general"),
		queue:  eventbus.NewQueue(eventbus.QueueConfig{Size: 64, Workers: 2}),
		clock:  newClock(),
	}
	for _, m := range members {
		require.NoError(t, h.store.UpsertMember(context.Background(), m, false))
	}
	h.bus = eventbus.New(h.client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = h.queue.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		h.bus.Close()
	})

	mod, err := New(&modules.Deps{
		Client: h.client,
		Store:  h.store,
		Bus:    h.bus,
		Queue:  h.queue,
		Config: &config.Config{
			Roster: config.RosterConfig{StaffRoleID: "staff", PrivilegedUserID: "boss"},
			Activity: config.ActivityConfig{
				WeeklyRequirement: 3,
				TopLimit:          15,
				MembershipTTL:     time.Minute,
			},
		},
		Now: h.clock.Now,
	})
	require.NoError(t, err)
	for _, l := range mod.Events {
		h.bus.On(l.Event, l.Handler)
	}
	require.NoError(t, mod.OnEnable(ctx))

	table := dispatch.NewTable()
	for _, c := range mod.Commands {
		require.NoError(t, table.Set(c))
	}
	table.Freeze()
	h.router = dispatch.NewRouter(dispatch.RouterConfig{Table: table, Client: h.client})
	return h
}

func (h *harness) run(in *platformtest.FakeInteraction) platform.Response {
	h.router.Dispatch(context.Background(), in)
	return in.LastReply()
}

func (h *harness) say(guild, author string, bot bool) {
	h.client.Emit(context.Background(), platform.EventMessageCreate, &platform.Message{
		ID:      "m",
		GuildID: guild,
		Author:  platform.User{ID: author, Bot: bot},
	})
}

func (h *harness) count(t *testing.T, actor string) int64 {
	t.Helper()
	n, err := h.store.GetActivity(context.Background(), store.ActivityKey{ScopeID: "guild-1", ActorID: actor, PeriodKey: "2025-W11"})
	require.NoError(t, err)
	return n
}

var (
	alice = platform.User{ID: "alice", Tag: "alice#0001"}
	boss  = platform.User{ID: "boss", Tag: "boss#0002"}
)

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(&modules.Deps{})
	assert.Error(t, err)
}

func TestNew_BadTimezone(t *testing.T) {
	_, err := New(&modules.Deps{
		Client: platformtest.NewFakeClient(),
		Store:  store.NewMockStore(),
		Queue:  eventbus.NewQueue(eventbus.QueueConfig{}),
		Config: &config.Config{Activity: config.ActivityConfig{Timezone: "Mars/Olympus"}},
	})
	assert.Error(t, err)
}

func TestSchema(t *testing.T) {
	mod, err := New(&modules.Deps{
		Client: platformtest.NewFakeClient(),
		Store:  store.NewMockStore(),
		Queue:  eventbus.NewQueue(eventbus.QueueConfig{}),
		Config: &config.Config{},
	})
	require.NoError(t, err)
	require.Len(t, mod.Commands, 1)

	schema := mod.Commands[0].Schema
	assert.Equal(t, "messages", schema.Name)
	for _, sub := range []string{"top", "me", "lacking", "reset"} {
		_, ok := schema.Subcommand(sub)
		assert.True(t, ok, sub)
	}
	top, _ := schema.Subcommand("top")
	limit := top.Options[0]
	assert.Equal(t, platform.OptionInteger, limit.Type)
	require.NotNil(t, limit.MinValue)
	require.NotNil(t, limit.MaxValue)
	assert.Equal(t, int64(1), *limit.MinValue)
	assert.Equal(t, int64(25), *limit.MaxValue)
}

func TestMessages_CountsMembersOnly(t *testing.T) {
	h := newHarness(t, "alice")

	h.say("guild-1", "alice", false)
	h.say("guild-1", "alice", false)
	h.say("guild-1", "stranger", false)
	h.say("guild-1", "alice", true)
	h.say("", "alice", false)

	require.Eventually(t, func() bool { return h.count(t, "alice") == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, h.count(t, "stranger"))
	assert.Zero(t, h.queue.Failed())
}

func TestMessages_RosterChangeInvalidatesMembership(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	reply := h.run(platformtest.NewInteraction("messages", "me", platform.User{ID: "bob"}))
	require.True(t, strings.Contains(reply.Content, "not in the clan"))

	require.NoError(t, h.store.UpsertMember(ctx, "bob", false))
	h.bus.Emit(ctx, platform.EventRosterChanged, platform.RosterChange{ActorID: "bob"})

	h.say("guild-1", "bob", false)
	require.Eventually(t, func() bool { return h.count(t, "bob") == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestMessages_TopEmpty(t *testing.T) {
	h := newHarness(t, "alice")

	reply := h.run(platformtest.NewInteraction("messages", "top", alice))
	assert.Equal(t, "No clan messages counted yet this week.", reply.Content)
	assert.True(t, reply.Ephemeral)
}

func TestMessages_Top(t *testing.T) {
	h := newHarness(t)
	counts := map[string]int{}
	for i := 0; i < 20; i++ {
		counts[fmt.Sprintf("u%02d", i)] = i + 1
	}
	seed(t, h.store, "guild-1", "2025-W11", counts)

	reply := h.run(platformtest.NewInteraction("messages", "top", alice).WithInt("limit", 2))
	require.Len(t, reply.Embeds, 1)
	assert.False(t, reply.Ephemeral)
	assert.Equal(t, "Top 2 (clan) — 2025-W11", reply.Embeds[0].Title)
	assert.Equal(t, "**1.** <@u19> — `20`\n**2.** <@u18> — `19`", reply.Embeds[0].Description)

	reply = h.run(platformtest.NewInteraction("messages", "top", alice).WithInt("limit", 25))
	require.Len(t, reply.Embeds, 1)
	assert.Equal(t, "Top 15 (clan) — 2025-W11", reply.Embeds[0].Title, "limit is clamped")

	reply = h.run(platformtest.NewInteraction("messages", "top", alice))
	assert.Equal(t, "Top 15 (clan) — 2025-W11", reply.Embeds[0].Title, "default limit")
}

func TestMessages_Me(t *testing.T) {
	h := newHarness(t, "alice")
	seed(t, h.store, "guild-1", "2025-W11", map[string]int{"alice": 7})

	reply := h.run(platformtest.NewInteraction("messages", "me", alice))
	assert.Equal(t, "You have sent **7** message(s) this week (2025-W11).", reply.Content)
	assert.True(t, reply.Ephemeral)

	reply = h.run(platformtest.NewInteraction("messages", "me", platform.User{ID: "stranger"}))
	assert.Equal(t, "You’re not in the clan, so your messages aren’t being tracked.", reply.Content)
}

func TestMessages_Lacking(t *testing.T) {
	h := newHarness(t, "a", "b", "c")
	seed(t, h.store, "guild-1", "2025-W11", map[string]int{"a": 2, "b": 5})

	reply := h.run(platformtest.NewInteraction("messages", "lacking", alice).WithRoles("staff"))
	require.Len(t, reply.Embeds, 1)
	assert.Equal(t, "Members under 3 — 2025-W11", reply.Embeds[0].Title)
	assert.Equal(t, "<@c> — `0/3`\n<@a> — `2/3`", reply.Embeds[0].Description)
}

func TestMessages_LackingEveryoneMeets(t *testing.T) {
	h := newHarness(t, "a")
	seed(t, h.store, "guild-1", "2025-W11", map[string]int{"a": 3})

	reply := h.run(platformtest.NewInteraction("messages", "lacking", alice).WithRoles("staff"))
	assert.Equal(t, "🎉 Everyone has at least **3** messages this week (2025-W11).", reply.Content)
}

func TestMessages_LackingRequiresStaff(t *testing.T) {
	h := newHarness(t, "a")

	reply := h.run(platformtest.NewInteraction("messages", "lacking", alice))
	assert.Equal(t, authz.DefaultDenial, reply.Content)
	assert.True(t, reply.Ephemeral)
}

func TestMessages_Reset(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seed(t, h.store, "guild-1", "2025-W11", map[string]int{"a": 2})
	seed(t, h.store, "guild-2", "2025-W11", map[string]int{"a": 4})

	reply := h.run(platformtest.NewInteraction("messages", "reset", alice))
	assert.Equal(t, "Insufficient permissions.", reply.Content)
	assert.Equal(t, int64(2), h.count(t, "a"))

	reply = h.run(platformtest.NewInteraction("messages", "reset", boss))
	assert.Equal(t, "✅ Reset message counts for **2025-W11** in this server.", reply.Content)
	assert.True(t, reply.Ephemeral)
	assert.Zero(t, h.count(t, "a"))

	other, err := h.store.GetActivity(ctx, store.ActivityKey{ScopeID: "guild-2", ActorID: "a", PeriodKey: "2025-W11"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), other)
}

func TestMessages_StoreFailure(t *testing.T) {
	h := newHarness(t)
	h.store.FailWith(nil)

	reply := h.run(platformtest.NewInteraction("messages", "top", alice))
	assert.Equal(t, dispatch.FailureReply, reply.Content)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "éé", truncate("ééé", 2))
}
