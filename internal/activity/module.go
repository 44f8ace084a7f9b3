// ABOUTME: Activity module with the /messages command and message counting listeners
// ABOUTME: Counting is queued off the event path; roster changes invalidate the membership cache

package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/2389/coven-clan/internal/authz"
	"github.com/2389/coven-clan/internal/config"
	"github.com/2389/coven-clan/internal/dispatch"
	"github.com/2389/coven-clan/internal/eventbus"
	"github.com/2389/coven-clan/internal/modules"
	"github.com/2389/coven-clan/internal/platform"
)

// Name is the module name used in modules.enabled.
const Name = "activity"

// maxDescription keeps embed bodies under the platform limit.
const maxDescription = 4000

// maxTopOption is the upper bound advertised for the top limit option.
const maxTopOption = 25

type activityModule struct {
	counter    *Counter
	membership *Membership
	queue      *eventbus.Queue
	logger     *slog.Logger
}

// New builds the activity module.
func New(deps *modules.Deps) (*modules.Module, error) {
	if deps.Store == nil || deps.Client == nil || deps.Queue == nil || deps.Config == nil {
		return nil, errors.New("activity: store, client, queue and config are required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("module", Name)
	cfg := deps.Config.Activity

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	ttl := cfg.MembershipTTL
	if ttl <= 0 {
		ttl = config.DefaultMembershipTTL
	}
	requirement := cfg.WeeklyRequirement
	if requirement <= 0 {
		requirement = config.DefaultWeeklyRequirement
	}
	maxTop := cfg.TopLimit
	if maxTop <= 0 {
		maxTop = config.DefaultTopLimit
	}

	membership := NewMembership(deps.Store, ttl, deps.Clock())
	m := &activityModule{
		counter: NewCounter(CounterConfig{
			Store:       deps.Store,
			Membership:  membership,
			Location:    loc,
			Requirement: requirement,
			MaxTop:      maxTop,
			Now:         deps.Clock(),
		}),
		membership: membership,
		queue:      deps.Queue,
		logger:     logger,
	}

	return &modules.Module{
		Name:     Name,
		Commands: []*dispatch.Command{m.messagesCommand(deps.Config.Roster)},
		Events: []modules.Listener{
			{Event: platform.EventMessageCreate, Handler: m.onMessage},
			{Event: platform.EventRosterChanged, Handler: m.onRosterChanged},
		},
		OnEnable: func(ctx context.Context) error {
			// Release the cache's cleanup goroutine when the host shuts down.
			go func() {
				<-ctx.Done()
				membership.Close()
			}()

			logger.Info("✅ activity enabled (clan-only message counting)",
				"period", m.counter.Period(),
				"requirement", requirement,
				"membership_ttl", ttl,
			)
			return nil
		},
	}, nil
}

func (m *activityModule) onMessage(ctx context.Context, payload any) {
	msg, ok := payload.(*platform.Message)
	if !ok || msg.Author.Bot || msg.GuildID == "" {
		return
	}
	m.queue.Submit("count_message", func(ctx context.Context) error {
		_, err := m.counter.Increment(ctx, msg)
		return err
	})
}

func (m *activityModule) onRosterChanged(ctx context.Context, payload any) {
	change, ok := payload.(platform.RosterChange)
	if !ok {
		return
	}
	m.membership.Invalidate(change.ActorID)
	m.logger.Debug("membership invalidated", "actor_id", change.ActorID)
}

func (m *activityModule) messagesCommand(roster config.RosterConfig) *dispatch.Command {
	req := m.counter.Requirement()
	return &dispatch.Command{
		Schema: platform.CommandSchema{
			Name:        "messages",
			Description: "Message count tools (weekly)",
			Options: []platform.Option{
				platform.Subcommand("top", "Show this week's top message senders (clan only)",
					platform.IntOption("limit", fmt.Sprintf("How many to show (default %d)", m.counter.MaxTop()), false, 1, maxTopOption)),
				platform.Subcommand("me", "Show your message count for this week"),
				platform.Subcommand("lacking", fmt.Sprintf("Show clan members below the weekly requirement (%d)", req)),
				platform.Subcommand("reset", "Reset this week's message counts"),
			},
		},
		Authorize: map[string]authz.Rule{
			"lacking": authz.Role(roster.StaffRoleID),
			"reset":   authz.Actor(roster.PrivilegedUserID, ""),
		},
		Execute: m.executeMessages,
	}
}

func (m *activityModule) executeMessages(ctx context.Context, in platform.Interaction, client platform.Client) error {
	switch in.Subcommand() {
	case "top":
		return m.top(ctx, in, client)
	case "me":
		return m.me(ctx, in)
	case "lacking":
		return m.lacking(ctx, in, client)
	case "reset":
		return m.reset(ctx, in)
	default:
		return fmt.Errorf("unknown subcommand %q", in.Subcommand())
	}
}

func (m *activityModule) top(ctx context.Context, in platform.Interaction, client platform.Client) error {
	limit := m.counter.MaxTop()
	if v, ok := in.IntOption("limit"); ok {
		limit = int(v)
	}

	rows, period, err := m.counter.Top(ctx, in.GuildID(), limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return in.Reply(ctx, platform.Response{Content: "No clan messages counted yet this week.", Ephemeral: true})
	}

	lines := make([]string, 0, len(rows))
	for i, r := range rows {
		lines = append(lines, fmt.Sprintf("**%d.** %s — `%d`", i+1, client.MentionUser(r.ActorID), r.Count))
	}

	return in.Reply(ctx, platform.Response{Embeds: []platform.Embed{{
		Title:       fmt.Sprintf("Top %d (clan) — %s", len(rows), period),
		Description: strings.Join(lines, "\n"),
		Timestamp:   m.counter.now(),
	}}})
}

func (m *activityModule) me(ctx context.Context, in platform.Interaction) error {
	n, member, period, err := m.counter.Me(ctx, in.GuildID(), in.User().ID)
	if err != nil {
		return err
	}
	if !member {
		return in.Reply(ctx, platform.Response{
			Content:   "You’re not in the clan, so your messages aren’t being tracked.",
			Ephemeral: true,
		})
	}
	return in.Reply(ctx, platform.Response{
		Content:   fmt.Sprintf("You have sent **%d** message(s) this week (%s).", n, period),
		Ephemeral: true,
	})
}

func (m *activityModule) lacking(ctx context.Context, in platform.Interaction, client platform.Client) error {
	standings, period, err := m.counter.Lacking(ctx, in.GuildID())
	if err != nil {
		return err
	}
	req := m.counter.Requirement()

	if len(standings) == 0 {
		return in.Reply(ctx, platform.Response{
			Content:   fmt.Sprintf("🎉 Everyone has at least **%d** messages this week (%s).", req, period),
			Ephemeral: true,
		})
	}

	lines := make([]string, 0, len(standings))
	for _, s := range standings {
		lines = append(lines, fmt.Sprintf("%s — `%d/%d`", client.MentionUser(s.ActorID), s.Count, req))
	}

	return in.Reply(ctx, platform.Response{Embeds: []platform.Embed{{
		Title:       fmt.Sprintf("Members under %d — %s", req, period),
		Description: truncate(strings.Join(lines, "\n"), maxDescription),
		Timestamp:   m.counter.now(),
	}}})
}

func (m *activityModule) reset(ctx context.Context, in platform.Interaction) error {
	n, period, err := m.counter.Reset(ctx, in.GuildID())
	if err != nil {
		return err
	}
	m.logger.Info("weekly counts reset", "scope_id", in.GuildID(), "period_key", period, "deleted", n, "actor_id", in.User().ID)
	return in.Reply(ctx, platform.Response{
		Content:   fmt.Sprintf("✅ Reset message counts for **%s** in this server.", period),
		Ephemeral: true,
	})
}

// truncate cuts s to at most max runes.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
