// ABOUTME: platform.Interaction for a text command sent in a Matrix room
// ABOUTME: Options come from schema binding; roles come from configured user lists

package matrix

import (
	"context"
	"sync"

	"github.com/2389/coven-clan/internal/platform"
)

type interaction struct {
	client  *Client
	eventID string
	roomID  string
	scopeID string
	actor   platform.User
	bound   Bound

	mu      sync.Mutex
	replied bool
}

func (i *interaction) ID() string          { return i.eventID }
func (i *interaction) CommandName() string { return i.bound.Command }
func (i *interaction) Subcommand() string  { return i.bound.Sub }
func (i *interaction) User() platform.User { return i.actor }
func (i *interaction) GuildID() string     { return i.scopeID }
func (i *interaction) ChannelID() string   { return i.roomID }

func (i *interaction) UserOption(name string) (platform.User, bool) {
	u, ok := i.bound.Users[name]
	return u, ok
}

func (i *interaction) IntOption(name string) (int64, bool) {
	n, ok := i.bound.Ints[name]
	return n, ok
}

func (i *interaction) HasRole(roleID string) bool {
	return i.client.hasRole(i.actor.ID, roleID)
}

// Reply posts a notice in the room. Ephemeral replies are public in Matrix.
func (i *interaction) Reply(ctx context.Context, resp platform.Response) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, err := i.client.sendResponse(ctx, i.roomID, resp); err != nil {
		return err
	}
	i.replied = true
	return nil
}

func (i *interaction) Replied() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.replied
}
