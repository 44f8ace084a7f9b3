// ABOUTME: Roster module with the /clan and /mission commands
// ABOUTME: Mutations publish roster changes and then sync the status message

package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/coven-clan/internal/authz"
	"github.com/2389/coven-clan/internal/config"
	"github.com/2389/coven-clan/internal/dispatch"
	"github.com/2389/coven-clan/internal/modules"
	"github.com/2389/coven-clan/internal/platform"
	"github.com/2389/coven-clan/internal/store"
)

// Name is the module name used in modules.enabled.
const Name = "roster"

// Publisher publishes in-process events. *eventbus.Bus satisfies it.
type Publisher interface {
	Emit(ctx context.Context, event string, payload any)
}

type rosterModule struct {
	store    store.RosterStore
	syncer   *Syncer
	cooldown *Cooldown
	events   Publisher
	cfg      config.RosterConfig
	logger   *slog.Logger
	now      func() time.Time
}

// New builds the roster module.
func New(deps *modules.Deps) (*modules.Module, error) {
	if deps.Store == nil || deps.Client == nil || deps.Bus == nil || deps.Config == nil {
		return nil, errors.New("roster: store, client, bus and config are required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("module", Name)
	cfg := deps.Config.Roster

	cooldown := cfg.PingCooldown
	if cooldown <= 0 {
		cooldown = config.DefaultPingCooldown
	}

	m := &rosterModule{
		store: deps.Store,
		syncer: NewSyncer(SyncerConfig{
			Store:          deps.Store,
			Client:         deps.Client,
			DefaultChannel: cfg.DefaultChannelID,
			TitleTemplate:  cfg.TitleTemplate,
			Logger:         logger,
			Now:            deps.Clock(),
		}),
		cooldown: NewCooldown(cooldown),
		events:   deps.Bus,
		cfg:      cfg,
		logger:   logger,
		now:      deps.Clock(),
	}

	return &modules.Module{
		Name:     Name,
		Commands: []*dispatch.Command{m.clanCommand(), m.missionCommand(deps.Client)},
		OnEnable: func(ctx context.Context) error {
			if cfg.DefaultChannelID != "" && !deps.Client.ChannelExists(ctx, cfg.DefaultChannelID) {
				logger.Warn("default status channel does not resolve", "channel_id", cfg.DefaultChannelID)
			}
			logger.Info("✅ roster enabled")
			return nil
		},
	}, nil
}

func (m *rosterModule) clanCommand() *dispatch.Command {
	cmd := &dispatch.Command{
		Schema: platform.CommandSchema{
			Name:        "clan",
			Description: "Manage clan members",
			Options: []platform.Option{
				platform.Subcommand("add", "Add a member to the clan",
					platform.UserOption("user", "User to add", true)),
				platform.Subcommand("remove", "Remove a member from the clan",
					platform.UserOption("user", "User to remove", true)),
			},
		},
		Execute: m.executeClan,
	}
	if m.cfg.ClanRequiresStaff {
		cmd.Authorize = map[string]authz.Rule{"": authz.Role(m.cfg.StaffRoleID)}
	}
	return cmd
}

func (m *rosterModule) missionCommand(client platform.Client) *dispatch.Command {
	pingDenial := "❌ This command can only be used in " + client.MentionChannel(m.cfg.PingChannelID) + "."
	resetAllDenial := fmt.Sprintf("Insufficient permissions, ask %s to reset.", m.cfg.PrivilegedName)

	return &dispatch.Command{
		Schema: platform.CommandSchema{
			Name:        "mission",
			Description: "Manage missions",
			Options: []platform.Option{
				platform.Subcommand("complete", "Mark a mission complete",
					platform.UserOption("user", "User to mark", true)),
				platform.Subcommand("reset", "Reset a mission to incomplete",
					platform.UserOption("user", "User to reset", true)),
				platform.Subcommand("ping", "Ping the clan helpers!"),
				platform.Subcommand("resetall", "Reset all missions"),
			},
		},
		Authorize: map[string]authz.Rule{
			"complete": authz.Role(m.cfg.StaffRoleID),
			"reset":    authz.Role(m.cfg.StaffRoleID),
			"resetall": authz.Actor(m.cfg.PrivilegedUserID, resetAllDenial),
			"ping": authz.All(
				authz.Role(m.cfg.HelperRoleID),
				authz.Channel(m.cfg.PingChannelID, pingDenial),
			),
		},
		Execute: m.executeMission,
	}
}

func (m *rosterModule) executeClan(ctx context.Context, in platform.Interaction, client platform.Client) error {
	user, ok := in.UserOption("user")
	if !ok {
		return errors.New("missing user option")
	}

	channel, err := m.syncer.StatusChannel(ctx, in.ChannelID())
	if err != nil {
		return err
	}

	switch in.Subcommand() {
	case "add":
		if err := m.store.UpsertMember(ctx, user.ID, false); err != nil {
			return fmt.Errorf("adding member: %w", err)
		}
		m.logger.Info("member added", "actor_id", user.ID, "by", in.User().ID)
		if err := ephemeral(ctx, in, fmt.Sprintf("Added %s.", user.Tag)); err != nil {
			return err
		}
	case "remove":
		if _, err := m.store.RemoveMember(ctx, user.ID); err != nil {
			return fmt.Errorf("removing member: %w", err)
		}
		m.logger.Info("member removed", "actor_id", user.ID, "by", in.User().ID)
		if err := ephemeral(ctx, in, fmt.Sprintf("Removed %s.", user.Tag)); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown subcommand %q", in.Subcommand())
	}

	return m.changed(ctx, user.ID, channel)
}

func (m *rosterModule) executeMission(ctx context.Context, in platform.Interaction, client platform.Client) error {
	if in.Subcommand() == "ping" {
		return m.ping(ctx, in, client)
	}

	channel, err := m.syncer.StatusChannel(ctx, in.ChannelID())
	if err != nil {
		return err
	}

	var actorID string
	switch in.Subcommand() {
	case "complete":
		user, ok := in.UserOption("user")
		if !ok {
			return errors.New("missing user option")
		}
		if err := m.store.UpsertMember(ctx, user.ID, true); err != nil {
			return fmt.Errorf("completing mission: %w", err)
		}
		actorID = user.ID
		if err := ephemeral(ctx, in, fmt.Sprintf("✅ Marked %s complete.", user.Tag)); err != nil {
			return err
		}
	case "reset":
		user, ok := in.UserOption("user")
		if !ok {
			return errors.New("missing user option")
		}
		// Resetting someone not on the roster is a no-op.
		if _, err := m.store.SetMemberDone(ctx, user.ID, false); err != nil {
			return fmt.Errorf("resetting mission: %w", err)
		}
		actorID = user.ID
		if err := ephemeral(ctx, in, fmt.Sprintf("❌ Reset %s.", user.Tag)); err != nil {
			return err
		}
	case "resetall":
		n, err := m.store.SetAllDone(ctx, false)
		if err != nil {
			return fmt.Errorf("resetting all missions: %w", err)
		}
		m.logger.Info("all missions reset", "changed", n, "by", in.User().ID)
		if err := ephemeral(ctx, in, "All missions have been reset."); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown subcommand %q", in.Subcommand())
	}

	return m.changed(ctx, actorID, channel)
}

func (m *rosterModule) ping(ctx context.Context, in platform.Interaction, client platform.Client) error {
	if ok, remaining := m.cooldown.Take(m.now()); !ok {
		return ephemeral(ctx, in,
			fmt.Sprintf("⏳ This command is on cooldown. Try again in %d minute(s).", CeilMinutes(remaining)))
	}

	m.logger.Info("helpers pinged", "actor_id", in.User().ID)
	return in.Reply(ctx, platform.Response{
		Content: fmt.Sprintf("%s %s needs help with their missions!",
			client.MentionRole(m.cfg.HelperRoleID), client.MentionUser(in.User().ID)),
		MentionRoles: []string{m.cfg.HelperRoleID},
	})
}

// changed publishes the roster change and syncs the status message.
// An empty actorID means the change may affect every member.
func (m *rosterModule) changed(ctx context.Context, actorID, channel string) error {
	m.events.Emit(ctx, platform.EventRosterChanged, platform.RosterChange{ActorID: actorID})

	if _, err := m.syncer.Update(ctx, channel); err != nil {
		return fmt.Errorf("syncing status message: %w", err)
	}
	return nil
}

func ephemeral(ctx context.Context, in platform.Interaction, content string) error {
	return in.Reply(ctx, platform.Response{Content: content, Ephemeral: true})
}
