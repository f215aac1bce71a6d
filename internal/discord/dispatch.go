package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/discord-plugins/internal/storage"
	"github.com/keshon/discord-plugins/pkg/plugins"
)

const checkFailedMessage = "You are not allowed to use this command here."

// onEvent fans every gateway event out to plugin listeners.
func (b *Bot) onEvent(s *discordgo.Session, e *discordgo.Event) {
	if e.Struct == nil {
		return
	}
	b.dispatch(context.Background(), s, e.Type, e.Struct)
}

// dispatch calls each listener for event with (payload, session).
func (b *Bot) dispatch(ctx context.Context, s *discordgo.Session, event string, payload any) {
	b.mu.RLock()
	ls := append([]*plugins.Listener(nil), b.listeners[NormalizeEvent(event)]...)
	b.mu.RUnlock()

	for _, l := range ls {
		if err := l.Invoke(ctx, payload, s); err != nil {
			b.logger.Error().Err(err).Str("event", event).Str("listener", l.Callback()).Msg("Listener failed")
		}
	}
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	b.handleMessage(context.Background(), s, m)
}

// handleMessage runs the prefix command m invokes, if any.
func (b *Bot) handleMessage(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || b.cfg == nil {
		return
	}
	content, ok := strings.CutPrefix(m.Content, b.cfg.CommandPrefix)
	if !ok {
		return
	}
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return
	}

	b.mu.RLock()
	root, ok := b.lookupPrefix(fields[0])
	b.mu.RUnlock()
	if !ok {
		return
	}

	cmd, checks, consumed := resolvePrefix(root, fields[1:])
	args := fields[1+consumed:]
	if !cmd.Base().Enabled {
		b.logger.Debug().Str("command", cmd.QualifiedName()).Msg("Ignoring disabled command")
		return
	}

	dctx := &Context{Session: s, Message: m, Bot: b, Args: args}
	inv := &plugins.Invocation{Name: cmd.QualifiedName(), Args: args, Data: dctx}
	if !b.runChecks(ctx, checks, inv) {
		_ = dctx.ReplyEmbed(&discordgo.MessageEmbed{Description: checkFailedMessage}, true)
		return
	}

	if err := cmd.Base().Invoke(ctx, dctx); err != nil {
		b.commandFailed(dctx, cmd.QualifiedName(), err)
		return
	}
	b.recordHistory(dctx, cmd.QualifiedName(), "prefix", cmd)
}

// resolvePrefix walks args down groups. It returns the deepest command, the
// checks that guard it and how many args named subcommands.
func resolvePrefix(root plugins.PrefixCommand, args []string) (plugins.PrefixCommand, []plugins.Check, int) {
	cmd := root
	checks := root.Base().EffectiveChecks()
	n := 0
	for _, arg := range args {
		g, ok := cmd.(interface {
			Child(name string) (plugins.PrefixCommand, bool)
		})
		if !ok {
			break
		}
		next, ok := g.Child(arg)
		if !ok {
			break
		}
		cmd = next
		checks = append(checks, next.Base().Checks...)
		n++
	}
	return cmd, checks, n
}

// runChecks reports whether every check passed. Errors count as failures.
func (b *Bot) runChecks(ctx context.Context, checks []plugins.Check, inv *plugins.Invocation) bool {
	for _, check := range checks {
		ok, err := check(ctx, inv)
		if err != nil {
			b.logger.Warn().Err(err).Str("command", inv.Name).Msg("Check failed with error")
			return false
		}
		if !ok {
			b.logger.Debug().Str("command", inv.Name).Msg("Check rejected invocation")
			return false
		}
	}
	return true
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.handleInteraction(context.Background(), s, i)
}

func (b *Bot) handleInteraction(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		dctx := &Context{Session: s, Interaction: i, Bot: b}
		switch data.CommandType {
		case discordgo.ChatApplicationCommand:
			b.runSlash(ctx, dctx, data)
		case discordgo.UserApplicationCommand:
			b.mu.RLock()
			cmd, ok := b.user[data.Name]
			b.mu.RUnlock()
			if !ok {
				return
			}
			var target *discordgo.User
			if data.Resolved != nil {
				target = data.Resolved.Users[data.TargetID]
			}
			b.runApp(ctx, dctx, &cmd.AppCommand, cmd.Name, "user", target)
		case discordgo.MessageApplicationCommand:
			b.mu.RLock()
			cmd, ok := b.message[data.Name]
			b.mu.RUnlock()
			if !ok {
				return
			}
			var target *discordgo.Message
			if data.Resolved != nil {
				target = data.Resolved.Messages[data.TargetID]
			}
			b.runApp(ctx, dctx, &cmd.AppCommand, cmd.Name, "message", target)
		}
	case discordgo.InteractionApplicationCommandAutocomplete:
		b.autocomplete(ctx, s, i)
	}
}

func (b *Bot) runApp(ctx context.Context, dctx *Context, cmd *plugins.AppCommand, name, kind string, target any) {
	inv := &plugins.Invocation{Name: name, Data: dctx}
	if !b.runChecks(ctx, cmd.EffectiveChecks(), inv) {
		b.checkFailed(dctx)
		return
	}
	if err := cmd.Invoke(ctx, dctx, target); err != nil {
		b.commandFailed(dctx, name, err)
		return
	}
	b.recordHistory(dctx, name, kind, cmd)
}

// invoker is a slash node that can run.
type invoker interface {
	plugins.SlashNode
	Invoke(ctx context.Context, args ...any) error
}

func (b *Bot) runSlash(ctx context.Context, dctx *Context, data discordgo.ApplicationCommandInteractionData) {
	b.mu.RLock()
	root, ok := b.slash[data.Name]
	b.mu.RUnlock()
	if !ok {
		return
	}

	node, opts := resolveSlash(root, data.Options)
	inv := &plugins.Invocation{Name: node.QualifiedName(), Data: dctx}
	for _, o := range opts {
		inv.Args = append(inv.Args, fmt.Sprint(o.Value))
	}
	if !b.runChecks(ctx, root.EffectiveChecks(), inv) {
		b.checkFailed(dctx)
		return
	}
	if err := node.Invoke(ctx, dctx, opts); err != nil {
		b.commandFailed(dctx, node.QualifiedName(), err)
		return
	}
	b.recordHistory(dctx, node.QualifiedName(), "slash", root)
}

// resolveSlash follows subcommand group and subcommand options down root's
// tree and returns the node to run with its own options.
func resolveSlash(root *plugins.SlashCommand, opts []*discordgo.ApplicationCommandInteractionDataOption) (invoker, []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(opts) != 1 {
		return root, opts
	}
	opt := opts[0]
	switch opt.Type {
	case discordgo.ApplicationCommandOptionSubCommandGroup:
		child, ok := root.Child(opt.Name)
		if !ok {
			return root, opts
		}
		group, ok := child.(*plugins.SubCommandGroup)
		if !ok || len(opt.Options) != 1 {
			return root, opts
		}
		sub, ok := group.Child(opt.Options[0].Name)
		if !ok {
			return group, opt.Options
		}
		return sub, opt.Options[0].Options
	case discordgo.ApplicationCommandOptionSubCommand:
		child, ok := root.Child(opt.Name)
		if !ok {
			return root, opts
		}
		if sub, ok := child.(*plugins.SubCommand); ok {
			return sub, opt.Options
		}
	}
	return root, opts
}

func (b *Bot) autocomplete(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	b.mu.RLock()
	root, ok := b.slash[data.Name]
	b.mu.RUnlock()
	if !ok {
		return
	}

	node, opts := resolveSlash(root, data.Options)
	var focused *discordgo.ApplicationCommandInteractionDataOption
	for _, o := range opts {
		if o.Focused {
			focused = o
			break
		}
	}
	if focused == nil {
		return
	}

	source, ok := node.(interface {
		Autocompleter(option string) (plugins.Autocompleter, bool)
	})
	if !ok {
		return
	}
	fn, ok := source.Autocompleter(focused.Name)
	if !ok {
		return
	}

	dctx := &Context{Session: s, Interaction: i, Bot: b}
	inv := &plugins.Invocation{Name: node.QualifiedName(), Data: dctx}
	choices, err := fn(ctx, inv, fmt.Sprint(focused.Value))
	if err != nil {
		b.logger.Error().Err(err).Str("command", inv.Name).Str("option", focused.Name).Msg("Autocomplete failed")
		return
	}
	if s == nil {
		return
	}
	if err := RespondChoices(s, i, choices); err != nil {
		b.logger.Error().Err(err).Str("command", inv.Name).Msg("Failed to send autocomplete choices")
	}
}

func (b *Bot) checkFailed(dctx *Context) {
	if dctx.Session == nil {
		return
	}
	if err := RespondEphemeral(dctx.Session, dctx.Interaction, checkFailedMessage); err != nil {
		b.logger.Error().Err(err).Msg("Failed to send check failure notice")
	}
}

func (b *Bot) commandFailed(dctx *Context, name string, err error) {
	b.logger.Error().Err(err).Str("command", name).Str("guild_id", dctx.GuildID()).Msg("Error running command")
	_ = dctx.ReplyEmbed(&discordgo.MessageEmbed{
		Description: fmt.Sprintf("Error running command: %v", err),
	}, true)
}

// recordHistory stores a successful guild invocation. entity is the command
// object whose owning plugin is recorded.
func (b *Bot) recordHistory(dctx *Context, name, kind string, entity plugins.ExtrasAware) {
	guildID := dctx.GuildID()
	if b.storage == nil || guildID == "" {
		return
	}
	rec := storage.CommandHistoryRecord{
		ChannelID: dctx.ChannelID(),
		Command:   name,
		Kind:      kind,
		Datetime:  time.Now(),
	}
	if owner, err := plugins.ParentPlugin(entity); err == nil {
		rec.Plugin = owner.Name()
	}
	if u := dctx.Author(); u != nil {
		rec.UserID = u.ID
		rec.Username = u.Username
	}
	if s := dctx.Session; s != nil && s.State != nil {
		if ch, err := s.State.Channel(rec.ChannelID); err == nil {
			rec.ChannelName = ch.Name
		}
		if g, err := s.State.Guild(guildID); err == nil {
			rec.GuildName = g.Name
		}
	}
	if err := b.storage.AppendCommandToHistory(guildID, rec); err != nil {
		b.logger.Error().Err(err).Str("guild_id", guildID).Msg("Failed to record command history")
	}
}
