// ABOUTME: Conversions between platform types and discordgo payloads
// ABOUTME: Command schemas, embeds, responses, messages, and REST error mapping

package discord

import (
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/2389/coven-clan/internal/platform"
)

var optionTypes = map[platform.OptionType]discordgo.ApplicationCommandOptionType{
	platform.OptionSubcommand: discordgo.ApplicationCommandOptionSubCommand,
	platform.OptionUser:       discordgo.ApplicationCommandOptionUser,
	platform.OptionInteger:    discordgo.ApplicationCommandOptionInteger,
}

// toCommands converts schemas to discordgo application commands.
func toCommands(schemas []platform.CommandSchema) []*discordgo.ApplicationCommand {
	cmds := make([]*discordgo.ApplicationCommand, 0, len(schemas))
	for _, s := range schemas {
		cmds = append(cmds, &discordgo.ApplicationCommand{
			Name:        s.Name,
			Description: s.Description,
			Options:     toOptions(s.Options),
		})
	}
	return cmds
}

func toOptions(opts []platform.Option) []*discordgo.ApplicationCommandOption {
	if len(opts) == 0 {
		return nil
	}
	out := make([]*discordgo.ApplicationCommandOption, 0, len(opts))
	for _, o := range opts {
		d := &discordgo.ApplicationCommandOption{
			Type:        optionTypes[o.Type],
			Name:        o.Name,
			Description: o.Description,
			Required:    o.Required,
			Options:     toOptions(o.Options),
		}
		if o.MinValue != nil {
			v := float64(*o.MinValue)
			d.MinValue = &v
		}
		if o.MaxValue != nil {
			d.MaxValue = float64(*o.MaxValue)
		}
		out = append(out, d)
	}
	return out
}

func toEmbed(e platform.Embed) *discordgo.MessageEmbed {
	d := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
	}
	if !e.Timestamp.IsZero() {
		d.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
	}
	return d
}

// toResponse builds an interaction response. Only the listed roles may be
// pinged; user and everyone mentions are never parsed.
func toResponse(resp platform.Response) *discordgo.InteractionResponse {
	data := &discordgo.InteractionResponseData{
		Content: resp.Content,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{},
			Roles: resp.MentionRoles,
		},
	}
	for _, e := range resp.Embeds {
		data.Embeds = append(data.Embeds, toEmbed(e))
	}
	if resp.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}
}

func toUser(u *discordgo.User) platform.User {
	if u == nil {
		return platform.User{}
	}
	return platform.User{ID: u.ID, Tag: u.String(), Bot: u.Bot}
}

func toMessage(m *discordgo.Message) *platform.Message {
	return &platform.Message{
		ID:        m.ID,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Author:    toUser(m.Author),
		Content:   m.Content,
		CreatedAt: m.Timestamp,
	}
}

// notFound maps Discord "unknown" REST errors to platform sentinels.
func notFound(err error, sentinel error) error {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return err
	}
	if rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound {
		return errors.Join(sentinel, err)
	}
	if rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return errors.Join(sentinel, err)
		}
	}
	return err
}
