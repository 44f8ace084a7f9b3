// ABOUTME: Routes inbound interactions to registered commands
// ABOUTME: Handles unknown commands, authorization denials, handler errors, and panics

package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-clan/internal/platform"
)

// Fixed user-facing replies.
const (
	UnknownCommandReply = "Unknown command."
	FailureReply        = "Something went wrong."
)

// Router dispatches interactions to commands in a Table.
type Router struct {
	table  *Table
	client platform.Client
	logger *slog.Logger
}

// RouterConfig contains configuration options for the Router.
type RouterConfig struct {
	Table  *Table
	Client platform.Client
	Logger *slog.Logger
}

// NewRouter creates a new Router with the given configuration.
func NewRouter(cfg RouterConfig) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		table:  cfg.Table,
		client: cfg.Client,
		logger: logger.With("component", "router"),
	}
}

// HandleEvent adapts Dispatch to a platform event handler.
func (r *Router) HandleEvent(ctx context.Context, payload any) {
	in, ok := payload.(platform.Interaction)
	if !ok {
		r.logger.Warn("ignoring non-interaction payload", "type", fmt.Sprintf("%T", payload))
		return
	}
	r.Dispatch(ctx, in)
}

// Dispatch serves one interaction.
func (r *Router) Dispatch(ctx context.Context, in platform.Interaction) {
	start := time.Now()
	logger := r.logger.With(
		"dispatch_id", uuid.New().String(),
		"command", in.CommandName(),
		"subcommand", in.Subcommand(),
		"actor_id", in.User().ID,
	)

	cmd, ok := r.table.Get(in.CommandName())
	if !ok {
		logger.Info("unknown command")
		r.reply(ctx, logger, in, platform.Response{Content: UnknownCommandReply, Ephemeral: true})
		return
	}

	if d := cmd.Rule(in.Subcommand()).Check(in); !d.Allowed {
		logger.Info("authorization denied")
		r.reply(ctx, logger, in, platform.Response{Content: d.Denial, Ephemeral: true})
		return
	}

	logger.Debug("→ dispatching command")

	if err := r.execute(ctx, cmd, in); err != nil {
		logger.Error("command failed", "error", err, "replied", in.Replied())
		if !in.Replied() {
			r.reply(ctx, logger, in, platform.Response{Content: FailureReply, Ephemeral: true})
		}
		return
	}

	logger.Debug("← command complete", "duration", time.Since(start))
}

func (r *Router) execute(ctx context.Context, cmd *Command, in platform.Interaction) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return cmd.Execute(ctx, in, r.client)
}

func (r *Router) reply(ctx context.Context, logger *slog.Logger, in platform.Interaction, resp platform.Response) {
	if err := in.Reply(ctx, resp); err != nil {
		logger.Warn("failed to send reply", "error", err)
	}
}
