// ABOUTME: platform.Interaction backed by a discordgo application command interaction
// ABOUTME: Resolves subcommands, user and integer options, and the invoking member's roles

package discord

import (
	"context"
	"slices"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/2389/coven-clan/internal/platform"
)

type interaction struct {
	session Session
	raw     *discordgo.Interaction
	data    discordgo.ApplicationCommandInteractionData
	sub     string
	options []*discordgo.ApplicationCommandInteractionDataOption

	mu      sync.Mutex
	replied bool
}

func newInteraction(session Session, raw *discordgo.Interaction) *interaction {
	in := &interaction{session: session, raw: raw, data: raw.ApplicationCommandData()}
	in.options = in.data.Options
	if len(in.options) == 1 && in.options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		in.sub = in.options[0].Name
		in.options = in.options[0].Options
	}
	return in
}

func (i *interaction) ID() string          { return i.raw.ID }
func (i *interaction) CommandName() string { return i.data.Name }
func (i *interaction) Subcommand() string  { return i.sub }
func (i *interaction) GuildID() string     { return i.raw.GuildID }
func (i *interaction) ChannelID() string   { return i.raw.ChannelID }

func (i *interaction) option(name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, o := range i.options {
		if o.Name == name {
			return o
		}
	}
	return nil
}

func (i *interaction) UserOption(name string) (platform.User, bool) {
	o := i.option(name)
	if o == nil || o.Type != discordgo.ApplicationCommandOptionUser {
		return platform.User{}, false
	}
	userID, _ := o.Value.(string)
	if userID == "" {
		return platform.User{}, false
	}
	if i.data.Resolved != nil {
		if u, ok := i.data.Resolved.Users[userID]; ok {
			return toUser(u), true
		}
	}
	return platform.User{ID: userID, Tag: userID}, true
}

func (i *interaction) IntOption(name string) (int64, bool) {
	o := i.option(name)
	if o == nil || o.Type != discordgo.ApplicationCommandOptionInteger {
		return 0, false
	}
	return o.IntValue(), true
}

func (i *interaction) User() platform.User {
	if i.raw.Member != nil && i.raw.Member.User != nil {
		return toUser(i.raw.Member.User)
	}
	return toUser(i.raw.User)
}

func (i *interaction) HasRole(roleID string) bool {
	if roleID == "" || i.raw.Member == nil {
		return false
	}
	return slices.Contains(i.raw.Member.Roles, roleID)
}

func (i *interaction) Reply(ctx context.Context, resp platform.Response) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.session.InteractionRespond(i.raw, toResponse(resp), discordgo.WithContext(ctx)); err != nil {
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
