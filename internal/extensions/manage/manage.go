// Package manage is the plugin for bot maintenance: extension reloads,
// command sync and history lookups. Everything in it needs the Manage
// Server permission, and the prefix commands are developer only.
package manage

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/discord-plugins/internal/checks"
	"github.com/keshon/discord-plugins/internal/discord"
	"github.com/keshon/discord-plugins/pkg/plugins"
)

const Category = "Maintenance"

// New builds the manage plugin. developerID guards the prefix commands.
func New(developerID string) (*plugins.Plugin, error) {
	p := plugins.New("manage",
		plugins.WithExtras(map[string]any{"category": Category}),
		plugins.WithSlashCommandAttrs(plugins.SlashCommandAttrs{
			AppCommandAttrs: plugins.AppCommandAttrs{
				DMPermission:             plugins.Ptr(false),
				DefaultMemberPermissions: plugins.Ptr(int64(discordgo.PermissionManageGuild)),
			},
		}),
	)
	p.SlashCommandCheck(checks.RequirePermissions(discordgo.PermissionManageGuild))
	p.UserCommandCheck(checks.GuildOnly())
	p.MessageCommandCheck(checks.GuildOnly())
	p.CommandCheck(checks.IsDeveloper(developerID))

	root, err := p.SlashCommand("manage", route, plugins.SlashCommandAttrs{
		Description: plugins.Ptr("Bot maintenance"),
	})
	if err != nil {
		return nil, err
	}
	ext, err := root.SubCommandGroup("extensions", route, plugins.SubCommandAttrs{
		Description: plugins.Ptr("Manage loaded extensions"),
	})
	if err != nil {
		return nil, err
	}
	if _, err := ext.SubCommand("list", listExtensions, plugins.SubCommandAttrs{
		Description: plugins.Ptr("List loaded extensions"),
	}); err != nil {
		return nil, err
	}
	reload, err := ext.SubCommand("reload", reloadExtension, plugins.SubCommandAttrs{
		Description: plugins.Ptr("Reload an extension"),
		Options: []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "name",
			Description: "Extension name",
			Required:    true,
		}},
	})
	if err != nil {
		return nil, err
	}
	if err := reload.Autocomplete("name", completeExtension); err != nil {
		return nil, err
	}

	group, err := p.Group("ext", listExtensions, plugins.CommandAttrs{
		Help:   plugins.Ptr("List or reload extensions"),
		Hidden: plugins.Ptr(true),
	})
	if err != nil {
		return nil, err
	}
	if _, err := group.Subcommand("reload", reloadExtensionByArg); err != nil {
		return nil, err
	}

	if _, err := p.UserCommand("Command History", userHistory); err != nil {
		return nil, err
	}
	if _, err := p.MessageCommand("Inspect Message", inspectMessage); err != nil {
		return nil, err
	}

	syncPlugin, err := newSyncPlugin()
	if err != nil {
		return nil, err
	}
	if err := p.RegisterSubPlugin(syncPlugin); err != nil {
		return nil, err
	}
	return p, nil
}

// route backs nodes that only dispatch to their children.
func route(ctx context.Context) error { return nil }

func listExtensions(ctx context.Context, dctx *discord.Context) error {
	names := dctx.Bot.Extensions()
	if len(names) == 0 {
		return dctx.Reply("No extensions loaded.")
	}
	return dctx.Reply("Loaded extensions: " + strings.Join(names, ", "))
}

func reloadExtension(ctx context.Context, dctx *discord.Context, opts []*discordgo.ApplicationCommandInteractionDataOption) error {
	for _, o := range opts {
		if o.Name == "name" {
			return reloadNamed(dctx, o.StringValue())
		}
	}
	return fmt.Errorf("missing extension name")
}

func reloadExtensionByArg(ctx context.Context, dctx *discord.Context) error {
	if len(dctx.Args) == 0 {
		return dctx.Reply("Usage: ext reload <name>")
	}
	return reloadNamed(dctx, dctx.Args[0])
}

func reloadNamed(dctx *discord.Context, name string) error {
	if err := dctx.Bot.ReloadExtension(name); err != nil {
		return err
	}
	return dctx.Reply(fmt.Sprintf("Reloaded `%s`.", name))
}

func completeExtension(ctx context.Context, inv *plugins.Invocation, value string) ([]*discordgo.ApplicationCommandOptionChoice, error) {
	dctx, ok := inv.Data.(*discord.Context)
	if !ok {
		return nil, nil
	}
	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, name := range dctx.Bot.Extensions() {
		if strings.HasPrefix(name, strings.ToLower(value)) {
			choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: name, Value: name})
		}
	}
	return choices, nil
}

func userHistory(ctx context.Context, dctx *discord.Context, target *discordgo.User) error {
	store := dctx.Bot.Storage()
	if store == nil || target == nil {
		return dctx.Reply("Command history is disabled.")
	}
	records, err := store.FetchCommandHistory(dctx.GuildID())
	if err != nil {
		return err
	}
	var lines []string
	for _, r := range records {
		if r.UserID == target.ID {
			lines = append(lines, fmt.Sprintf("`%s` %s", r.Datetime.Format(time.DateTime), r.Command))
		}
	}
	if len(lines) == 0 {
		return dctx.ReplyEmbed(&discordgo.MessageEmbed{Description: fmt.Sprintf("No commands from %s.", target.Username)}, true)
	}
	slices.Reverse(lines)
	return dctx.ReplyEmbed(&discordgo.MessageEmbed{
		Title:       "Commands by " + target.Username,
		Description: strings.Join(lines, "\n"),
	}, true)
}

func inspectMessage(ctx context.Context, dctx *discord.Context, target *discordgo.Message) error {
	if target == nil {
		return fmt.Errorf("message not resolved")
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "ID", Value: target.ID, Inline: true},
		{Name: "Length", Value: fmt.Sprint(len(target.Content)), Inline: true},
		{Name: "Attachments", Value: fmt.Sprint(len(target.Attachments)), Inline: true},
	}
	if target.Author != nil {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Author", Value: target.Author.Username})
	}
	return dctx.ReplyEmbed(&discordgo.MessageEmbed{Title: "Message", Fields: fields}, true)
}
