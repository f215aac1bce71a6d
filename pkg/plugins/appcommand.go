package plugins

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/bwmarrin/discordgo"
)

const defaultDescription = "-"

// Autocompleter returns the choices offered for a focused option.
type Autocompleter func(ctx context.Context, inv *Invocation, value string) ([]*discordgo.ApplicationCommandOptionChoice, error)

// SlashNode is any node of a slash command tree: *SlashCommand,
// *SubCommandGroup or *SubCommand.
type SlashNode interface {
	ExtrasAware
	QualifiedName() string
}

// AppCommand holds what slash, user and message commands share.
type AppCommand struct {
	Name                     string
	NameLocalizations        map[discordgo.Locale]string
	AutoSync                 bool
	DMPermission             *bool
	NSFW                     *bool
	DefaultMemberPermissions *int64
	// GuildIDs limits the command to these guilds. Empty means global.
	GuildIDs []string
	Extras   map[string]any
	Checks   []Check

	cb           callback
	pluginChecks []Check
}

func newAppCommand(name string, cb callback, attrs AppCommandAttrs) AppCommand {
	return AppCommand{
		Name:                     name,
		NameLocalizations:        maps.Clone(attrs.NameLocalizations),
		AutoSync:                 derefOr(attrs.AutoSync, true),
		DMPermission:             attrs.DMPermission,
		NSFW:                     attrs.NSFW,
		DefaultMemberPermissions: attrs.DefaultMemberPermissions,
		GuildIDs:                 slices.Clone(attrs.GuildIDs),
		Extras:                   attrs.Extras,
		cb:                       cb,
	}
}

func (c *AppCommand) GetExtras() map[string]any {
	if c.Extras == nil {
		c.Extras = make(map[string]any)
	}
	return c.Extras
}

func (c *AppCommand) QualifiedName() string { return c.Name }

// AddCheck appends a local check.
func (c *AppCommand) AddCheck(check Check) {
	c.Checks = append(c.Checks, check)
}

// EffectiveChecks returns the plugin-wide checks followed by the command's own.
func (c *AppCommand) EffectiveChecks() []Check {
	return slices.Concat(c.pluginChecks, c.Checks)
}

func (c *AppCommand) Callback() string { return c.cb.String() }

func (c *AppCommand) Invoke(ctx context.Context, args ...any) error {
	return c.cb.call(ctx, args...)
}

func (c *AppCommand) setPluginChecks(checks []Check) {
	c.pluginChecks = slices.Clone(checks)
}

func (c *AppCommand) definition(t discordgo.ApplicationCommandType) *discordgo.ApplicationCommand {
	def := &discordgo.ApplicationCommand{
		Type:                     t,
		Name:                     c.Name,
		DMPermission:             c.DMPermission,
		NSFW:                     c.NSFW,
		DefaultMemberPermissions: c.DefaultMemberPermissions,
	}
	if len(c.NameLocalizations) > 0 {
		loc := maps.Clone(c.NameLocalizations)
		def.NameLocalizations = &loc
	}
	return def
}

// SlashCommand is a top-level chat input command.
type SlashCommand struct {
	AppCommand
	Description              string
	DescriptionLocalizations map[discordgo.Locale]string
	Connectors               map[string]string
	Options                  []*discordgo.ApplicationCommandOption

	autocompleters map[string]Autocompleter
	children       *orderedMap[SlashNode]
}

func newSlashCommand(name string, cb callback, attrs SlashCommandAttrs) *SlashCommand {
	return &SlashCommand{
		AppCommand:               newAppCommand(name, cb, attrs.AppCommandAttrs),
		Description:              derefOr(attrs.Description, defaultDescription),
		DescriptionLocalizations: maps.Clone(attrs.DescriptionLocalizations),
		Connectors:               maps.Clone(attrs.Connectors),
		Options:                  cloneOptions(attrs.Options),
		autocompleters:           make(map[string]Autocompleter),
		children:                 newOrderedMap[SlashNode](),
	}
}

// SubCommand adds a subcommand directly under s.
func (s *SlashCommand) SubCommand(name string, fn any, attrs ...SubCommandAttrs) (*SubCommand, error) {
	sub, err := newSubCommand(s, name, fn, attrs)
	if err != nil {
		return nil, err
	}
	s.children.Set(sub.Name, sub)
	return sub, nil
}

// SubCommandGroup adds a subcommand group under s.
func (s *SlashCommand) SubCommandGroup(name string, fn any, attrs ...SubCommandAttrs) (*SubCommandGroup, error) {
	cb, err := newCallback(fn)
	if err != nil {
		return nil, err
	}
	if name, err = resolveName(name, cb); err != nil {
		return nil, err
	}
	merged := mergeSubCommandAttrs(attrs...)
	g := &SubCommandGroup{
		Name:                     name,
		Description:              derefOr(merged.Description, defaultDescription),
		NameLocalizations:        maps.Clone(merged.NameLocalizations),
		DescriptionLocalizations: maps.Clone(merged.DescriptionLocalizations),
		Extras:                   inheritExtras(s, merged.Extras),
		parent:                   s,
		cb:                       cb,
		children:                 newOrderedMap[*SubCommand](),
	}
	s.children.Set(g.Name, g)
	return g, nil
}

// Children returns subcommands and groups in registration order.
func (s *SlashCommand) Children() []SlashNode { return s.children.Values() }

func (s *SlashCommand) Child(name string) (SlashNode, bool) { return s.children.Get(name) }

// Autocomplete installs fn for the named option and marks it autocompletable.
func (s *SlashCommand) Autocomplete(option string, fn Autocompleter) error {
	return installAutocomplete(s.QualifiedName(), s.Options, s.autocompleters, option, fn)
}

func (s *SlashCommand) Autocompleter(option string) (Autocompleter, bool) {
	fn, ok := s.autocompleters[option]
	return fn, ok
}

// Definition is the payload sent to Discord for this command.
func (s *SlashCommand) Definition() *discordgo.ApplicationCommand {
	def := s.definition(discordgo.ChatApplicationCommand)
	def.Description = s.Description
	if len(s.DescriptionLocalizations) > 0 {
		loc := maps.Clone(s.DescriptionLocalizations)
		def.DescriptionLocalizations = &loc
	}
	if s.children.Len() > 0 {
		for _, child := range s.children.Values() {
			def.Options = append(def.Options, child.(interface {
				Body() *discordgo.ApplicationCommandOption
			}).Body())
		}
	} else {
		def.Options = cloneOptions(s.Options)
	}
	return def
}

// SubCommandGroup is a group of subcommands under a slash command.
type SubCommandGroup struct {
	Name                     string
	Description              string
	NameLocalizations        map[discordgo.Locale]string
	DescriptionLocalizations map[discordgo.Locale]string
	Extras                   map[string]any

	parent   *SlashCommand
	cb       callback
	children *orderedMap[*SubCommand]
}

func (g *SubCommandGroup) GetExtras() map[string]any {
	if g.Extras == nil {
		g.Extras = make(map[string]any)
	}
	return g.Extras
}

func (g *SubCommandGroup) QualifiedName() string { return g.parent.Name + " " + g.Name }

func (g *SubCommandGroup) Parent() *SlashCommand { return g.parent }

func (g *SubCommandGroup) Parents() []SlashNode { return []SlashNode{g.parent} }

func (g *SubCommandGroup) RootParent() *SlashCommand { return g.parent }

// SubCommand adds a subcommand to the group.
func (g *SubCommandGroup) SubCommand(name string, fn any, attrs ...SubCommandAttrs) (*SubCommand, error) {
	sub, err := newSubCommand(g, name, fn, attrs)
	if err != nil {
		return nil, err
	}
	g.children.Set(sub.Name, sub)
	return sub, nil
}

func (g *SubCommandGroup) Children() []*SubCommand { return g.children.Values() }

func (g *SubCommandGroup) Child(name string) (*SubCommand, bool) { return g.children.Get(name) }

func (g *SubCommandGroup) Invoke(ctx context.Context, args ...any) error {
	return g.cb.call(ctx, args...)
}

func (g *SubCommandGroup) Body() *discordgo.ApplicationCommandOption {
	opt := &discordgo.ApplicationCommandOption{
		Type:                     discordgo.ApplicationCommandOptionSubCommandGroup,
		Name:                     g.Name,
		NameLocalizations:        maps.Clone(g.NameLocalizations),
		Description:              g.Description,
		DescriptionLocalizations: maps.Clone(g.DescriptionLocalizations),
	}
	for _, sub := range g.children.Values() {
		opt.Options = append(opt.Options, sub.Body())
	}
	return opt
}

// SubCommandParent is what a subcommand can be attached to.
type SubCommandParent interface {
	SlashNode
	SubCommand(name string, fn any, attrs ...SubCommandAttrs) (*SubCommand, error)
}

// SubCommand is a leaf of a slash command tree.
type SubCommand struct {
	Name                     string
	Description              string
	NameLocalizations        map[discordgo.Locale]string
	DescriptionLocalizations map[discordgo.Locale]string
	Connectors               map[string]string
	Options                  []*discordgo.ApplicationCommandOption
	Extras                   map[string]any

	parent         SlashNode
	cb             callback
	autocompleters map[string]Autocompleter
}

func newSubCommand(parent SlashNode, name string, fn any, attrs []SubCommandAttrs) (*SubCommand, error) {
	cb, err := newCallback(fn)
	if err != nil {
		return nil, err
	}
	if name, err = resolveName(name, cb); err != nil {
		return nil, err
	}
	merged := mergeSubCommandAttrs(attrs...)
	return &SubCommand{
		Name:                     name,
		Description:              derefOr(merged.Description, defaultDescription),
		NameLocalizations:        maps.Clone(merged.NameLocalizations),
		DescriptionLocalizations: maps.Clone(merged.DescriptionLocalizations),
		Connectors:               maps.Clone(merged.Connectors),
		Options:                  cloneOptions(merged.Options),
		Extras:                   inheritExtras(parent, merged.Extras),
		parent:                   parent,
		cb:                       cb,
		autocompleters:           make(map[string]Autocompleter),
	}, nil
}

func (s *SubCommand) GetExtras() map[string]any {
	if s.Extras == nil {
		s.Extras = make(map[string]any)
	}
	return s.Extras
}

func (s *SubCommand) QualifiedName() string { return s.parent.QualifiedName() + " " + s.Name }

// Parent is the *SlashCommand or *SubCommandGroup holding s.
func (s *SubCommand) Parent() SlashNode { return s.parent }

// Parents lists the ancestors of s, nearest first.
func (s *SubCommand) Parents() []SlashNode {
	if g, ok := s.parent.(*SubCommandGroup); ok {
		return []SlashNode{g, g.parent}
	}
	return []SlashNode{s.parent}
}

// RootParent is the top-level slash command.
func (s *SubCommand) RootParent() *SlashCommand {
	switch p := s.parent.(type) {
	case *SubCommandGroup:
		return p.parent
	case *SlashCommand:
		return p
	}
	return nil
}

func (s *SubCommand) Callback() string { return s.cb.String() }

func (s *SubCommand) Invoke(ctx context.Context, args ...any) error {
	return s.cb.call(ctx, args...)
}

func (s *SubCommand) Autocomplete(option string, fn Autocompleter) error {
	return installAutocomplete(s.QualifiedName(), s.Options, s.autocompleters, option, fn)
}

func (s *SubCommand) Autocompleter(option string) (Autocompleter, bool) {
	fn, ok := s.autocompleters[option]
	return fn, ok
}

// Body is the option describing s inside its parent's definition.
func (s *SubCommand) Body() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:                     discordgo.ApplicationCommandOptionSubCommand,
		Name:                     s.Name,
		NameLocalizations:        maps.Clone(s.NameLocalizations),
		Description:              s.Description,
		DescriptionLocalizations: maps.Clone(s.DescriptionLocalizations),
		Options:                  cloneOptions(s.Options),
	}
}

// UserCommand is a context menu command on users.
type UserCommand struct {
	AppCommand
}

func (c *UserCommand) Definition() *discordgo.ApplicationCommand {
	return c.definition(discordgo.UserApplicationCommand)
}

// MessageCommand is a context menu command on messages.
type MessageCommand struct {
	AppCommand
}

func (c *MessageCommand) Definition() *discordgo.ApplicationCommand {
	return c.definition(discordgo.MessageApplicationCommand)
}

func installAutocomplete(qualified string, options []*discordgo.ApplicationCommandOption, into map[string]Autocompleter, option string, fn Autocompleter) error {
	for _, opt := range options {
		if opt.Name == option {
			opt.Autocomplete = true
			into[option] = fn
			return nil
		}
	}
	return fmt.Errorf("%w: option %q doesn't exist in %q", ErrUnknownOption, option, qualified)
}

func cloneOptions(opts []*discordgo.ApplicationCommandOption) []*discordgo.ApplicationCommandOption {
	if opts == nil {
		return nil
	}
	out := make([]*discordgo.ApplicationCommandOption, len(opts))
	for i, o := range opts {
		c := *o
		c.Options = cloneOptions(o.Options)
		out[i] = &c
	}
	return out
}

// inheritExtras copies extras and carries the owner of parent along.
func inheritExtras(parent ExtrasAware, extras map[string]any) map[string]any {
	if owner, err := ParentPlugin(parent); err == nil {
		return ownedExtras(extras, owner)
	}
	return maps.Clone(extras)
}
