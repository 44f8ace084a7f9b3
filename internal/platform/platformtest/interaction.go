// ABOUTME: In-memory platform.Interaction fake
// ABOUTME: Options, roles, and actor are plain fields; replies are recorded for assertions

package platformtest

import (
	"context"
	"errors"
	"sync"

	"github.com/2389/coven-clan/internal/platform"
)

// ErrAlreadyReplied mirrors the platform rule that an interaction takes one initial reply.
var ErrAlreadyReplied = errors.New("interaction already replied")

// FakeInteraction is an in-memory platform.Interaction.
type FakeInteraction struct {
	InteractionID string
	Command       string
	Sub           string
	Actor         platform.User
	Guild         string
	Channel       string
	Roles         []string
	Users         map[string]platform.User
	Ints          map[string]int64

	// ReplyErr, when set, is returned by Reply without recording it.
	ReplyErr error

	mu      sync.Mutex
	replies []platform.Response
}

// NewInteraction creates an interaction for command/subcommand invoked by actor.
func NewInteraction(command, sub string, actor platform.User) *FakeInteraction {
	return &FakeInteraction{
		InteractionID: "int-" + command + "-" + sub,
		Command:       command,
		Sub:           sub,
		Actor:         actor,
		Guild:         "guild-1",
		Channel:       "channel-1",
		Users:         make(map[string]platform.User),
		Ints:          make(map[string]int64),
	}
}

// WithUser sets a user option.
func (f *FakeInteraction) WithUser(name string, u platform.User) *FakeInteraction {
	f.Users[name] = u
	return f
}

// WithInt sets an integer option.
func (f *FakeInteraction) WithInt(name string, v int64) *FakeInteraction {
	f.Ints[name] = v
	return f
}

// WithRoles sets the actor's roles.
func (f *FakeInteraction) WithRoles(roles ...string) *FakeInteraction {
	f.Roles = roles
	return f
}

// InChannel sets the channel the interaction happened in.
func (f *FakeInteraction) InChannel(channelID string) *FakeInteraction {
	f.Channel = channelID
	return f
}

// Replies returns the recorded replies.
func (f *FakeInteraction) Replies() []platform.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.Response(nil), f.replies...)
}

// LastReply returns the most recent reply, or the zero Response.
func (f *FakeInteraction) LastReply() platform.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		return platform.Response{}
	}
	return f.replies[len(f.replies)-1]
}

func (f *FakeInteraction) ID() string          { return f.InteractionID }
func (f *FakeInteraction) CommandName() string { return f.Command }
func (f *FakeInteraction) Subcommand() string  { return f.Sub }
func (f *FakeInteraction) User() platform.User { return f.Actor }
func (f *FakeInteraction) GuildID() string     { return f.Guild }
func (f *FakeInteraction) ChannelID() string   { return f.Channel }

func (f *FakeInteraction) UserOption(name string) (platform.User, bool) {
	u, ok := f.Users[name]
	return u, ok
}

func (f *FakeInteraction) IntOption(name string) (int64, bool) {
	v, ok := f.Ints[name]
	return v, ok
}

func (f *FakeInteraction) HasRole(roleID string) bool {
	for _, r := range f.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

func (f *FakeInteraction) Reply(ctx context.Context, resp platform.Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReplyErr != nil {
		return f.ReplyErr
	}
	if len(f.replies) > 0 {
		return ErrAlreadyReplied
	}
	f.replies = append(f.replies, resp)
	return nil
}

func (f *FakeInteraction) Replied() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.replies) > 0
}

var _ platform.Interaction = (*FakeInteraction)(nil)
