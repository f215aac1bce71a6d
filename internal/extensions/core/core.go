// Package core is the built-in plugin with information commands.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/buildinfo"
	"github.com/keshon/discord-plugins/internal/checks"
	"github.com/keshon/discord-plugins/internal/discord"
	"github.com/keshon/discord-plugins/pkg/globalctx"
	"github.com/keshon/discord-plugins/pkg/plugins"
	"github.com/keshon/discord-plugins/pkg/tasks"
)

const (
	AppName        = "Discord Plugins"
	AppDescription = "A discordgo bot assembled from loadable plugins."
	Category       = "Information"
)

const statusInterval = 10 * time.Minute

// startedAt is when the core plugin last loaded.
var startedAt = globalctx.Local[time.Time]("core", "started")

// lastSync is written by the manage plugin after a manual sync.
var lastSync = globalctx.Local[time.Time]("manage", "last_sync")

type core struct {
	*plugins.Plugin
}

// New builds the core plugin.
func New() (*plugins.Plugin, error) {
	c := &core{
		Plugin: plugins.New("core", plugins.WithExtras(map[string]any{"category": Category})),
	}

	ping, err := c.SlashCommand("ping", c.ping, plugins.SlashCommandAttrs{
		Description: plugins.Ptr("Check the bot's latency"),
	})
	if err != nil {
		return nil, err
	}
	if _, err := c.Command("ping", c.ping, plugins.CommandAttrs{Help: plugins.Ptr(ping.Description)}); err != nil {
		return nil, err
	}
	if _, err := c.SlashCommand("about", c.about, plugins.SlashCommandAttrs{
		Description: plugins.Ptr("Shows info about the bot"),
	}); err != nil {
		return nil, err
	}
	if _, err := c.SlashCommand("help", c.help, plugins.SlashCommandAttrs{
		Description: plugins.Ptr("Get a list of available commands"),
	}); err != nil {
		return nil, err
	}
	if _, err := c.Command("help", c.help, plugins.CommandAttrs{Aliases: []string{"h"}}); err != nil {
		return nil, err
	}
	history, err := c.SlashCommand("history", c.history, plugins.SlashCommandAttrs{
		Description:     plugins.Ptr("Show the last commands used in this server"),
		AppCommandAttrs: plugins.AppCommandAttrs{DMPermission: plugins.Ptr(false)},
	})
	if err != nil {
		return nil, err
	}
	history.AddCheck(checks.GuildOnly())

	if _, err := c.RegisterLoop(tasks.NewLoop("status", statusInterval, c.updateStatus), true); err != nil {
		return nil, err
	}
	if _, err := c.Listener("onGuildCreate", c.guildJoined); err != nil {
		return nil, err
	}

	c.LoadHook(false, func(ctx context.Context) error {
		startedAt.Set(time.Now())
		return nil
	})
	c.LoadHook(true, func(ctx context.Context) error {
		c.Logger().Info().Int("slash_commands", len(c.SlashCommands())).Msg("Core commands ready")
		return nil
	})
	return c.Plugin, nil
}

func (c *core) ping(ctx context.Context, dctx *discord.Context) error {
	latency := time.Duration(0)
	if dctx.Session != nil {
		latency = dctx.Session.HeartbeatLatency()
	}
	return dctx.Reply(fmt.Sprintf("🏓 Pong! Response time: `%dms`", latency.Milliseconds()))
}

func (c *core) about(ctx context.Context, dctx *discord.Context) error {
	embed := &discordgo.MessageEmbed{
		Title:       "ℹ️ About",
		Description: fmt.Sprintf("**%s** — %s", AppName, AppDescription),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Release", Value: release(buildinfo.Get())},
			{Name: "Uptime", Value: time.Since(startedAt.GetOr(time.Now())).Truncate(time.Second).String()},
			{Name: "Extensions", Value: strings.Join(dctx.Bot.Extensions(), ", ")},
		},
	}
	if t, err := lastSync.Get(); err == nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Last manual sync", Value: t.Format(time.DateTime)})
	}
	return dctx.ReplyEmbed(embed, false)
}

// release formats the build stamped into the binary with -ldflags.
func release(info buildinfo.BuildInfo) string {
	return fmt.Sprintf("%s (%s, built %s)\nGo %s on %s",
		info.Version, info.Commit, info.BuildTime, strings.TrimPrefix(info.GoVersion, "go"), info.Platform)
}

func (c *core) help(ctx context.Context, dctx *discord.Context) error {
	return dctx.ReplyEmbed(&discordgo.MessageEmbed{
		Title:       AppName + " Help",
		Description: HelpText(dctx.Bot),
	}, true)
}

func (c *core) history(ctx context.Context, dctx *discord.Context) error {
	store := dctx.Bot.Storage()
	if store == nil {
		return dctx.Reply("Command history is disabled.")
	}
	records, err := store.FetchCommandHistory(dctx.GuildID())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return dctx.Reply("No commands recorded yet.")
	}
	var sb strings.Builder
	for _, r := range records {
		fmt.Fprintf(&sb, "`%s` **%s** by %s", r.Datetime.Format("2006-01-02 15:04"), r.Command, r.Username)
		if r.Plugin != "" {
			fmt.Fprintf(&sb, " (%s)", r.Plugin)
		}
		sb.WriteByte('\n')
	}
	return dctx.ReplyEmbed(&discordgo.MessageEmbed{Title: "Command history", Description: sb.String()}, true)
}

func (c *core) updateStatus(ctx context.Context) error {
	bot, err := c.Bot()
	if err != nil {
		return err
	}
	db, ok := bot.(*discord.Bot)
	if !ok || db.Session() == nil {
		return errors.New("status needs a connected discord bot")
	}
	return db.Session().UpdateGameStatus(0, fmt.Sprintf("%d commands | /help", len(db.SlashCommands())))
}

func (c *core) guildJoined(ctx context.Context, g *discordgo.GuildCreate) error {
	c.Logger().Info().Str("guild_id", g.ID).Str("guild", g.Name).Msg("Bot added to guild")
	return nil
}
