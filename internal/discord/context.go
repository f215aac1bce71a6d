package discord

import (
	"github.com/bwmarrin/discordgo"
)

// Context is what command callbacks receive after ctx. Exactly one of
// Interaction and Message is set.
type Context struct {
	Session     *discordgo.Session
	Interaction *discordgo.InteractionCreate
	Message     *discordgo.MessageCreate
	Bot         *Bot
	// Args are the words after the command name, for prefix commands.
	Args []string
}

func (c *Context) GuildID() string {
	switch {
	case c.Interaction != nil:
		return c.Interaction.GuildID
	case c.Message != nil:
		return c.Message.GuildID
	}
	return ""
}

func (c *Context) ChannelID() string {
	switch {
	case c.Interaction != nil:
		return c.Interaction.ChannelID
	case c.Message != nil:
		return c.Message.ChannelID
	}
	return ""
}

// Author is the user who triggered the command.
func (c *Context) Author() *discordgo.User {
	switch {
	case c.Interaction != nil:
		if c.Interaction.Member != nil && c.Interaction.Member.User != nil {
			return c.Interaction.Member.User
		}
		return c.Interaction.User
	case c.Message != nil:
		return c.Message.Author
	}
	return nil
}

// Member is nil outside guilds.
func (c *Context) Member() *discordgo.Member {
	switch {
	case c.Interaction != nil:
		return c.Interaction.Member
	case c.Message != nil:
		return c.Message.Member
	}
	return nil
}

// Permissions returns the author's permissions in the current channel.
// Interactions carry them; for messages they are computed from state.
func (c *Context) Permissions() (int64, error) {
	if c.Interaction != nil && c.Interaction.Member != nil {
		return c.Interaction.Member.Permissions, nil
	}
	author := c.Author()
	if c.Session == nil || author == nil {
		return 0, nil
	}
	return c.Session.UserChannelPermissions(author.ID, c.ChannelID())
}

// Reply answers the command: an interaction response, or a channel message.
func (c *Context) Reply(content string) error {
	if c.Session == nil {
		return nil
	}
	if c.Interaction != nil {
		return Respond(c.Session, c.Interaction, content)
	}
	return Message(c.Session, c.ChannelID(), content)
}

// ReplyEmbed answers with an embed. Interaction replies are ephemeral when
// ephemeral is set.
func (c *Context) ReplyEmbed(embed *discordgo.MessageEmbed, ephemeral bool) error {
	if c.Session == nil {
		return nil
	}
	if embed.Color == 0 {
		embed.Color = EmbedColor
	}
	if c.Interaction != nil {
		if ephemeral {
			return RespondEmbedEphemeral(c.Session, c.Interaction, embed)
		}
		return RespondEmbed(c.Session, c.Interaction, embed)
	}
	return MessageEmbed(c.Session, c.ChannelID(), embed)
}
