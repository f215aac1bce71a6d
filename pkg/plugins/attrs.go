package plugins

import (
	"fmt"
	"maps"

	"github.com/bwmarrin/discordgo"
)

// Extras keys the registry writes on every entity it creates.
const (
	ExtraPlugin   = "plugin"
	ExtraMetadata = "metadata" // kept for older consumers; prefer ExtraPlugin
)

// Ptr returns a pointer to v. Attribute bundles use nil for "not supplied",
// so Ptr(false) explicitly overrides a plugin default.
func Ptr[T any](v T) *T { return &v }

// CommandAttrs are the attributes of a prefix command. Nil fields are unset.
type CommandAttrs struct {
	Help                 *string
	Brief                *string
	Usage                *string
	Description          *string
	Enabled              *bool
	Hidden               *bool
	IgnoreExtra          *bool
	CooldownAfterParsing *bool
	Aliases              []string
	Extras               map[string]any
}

// AppCommandAttrs are the attributes shared by all application commands.
type AppCommandAttrs struct {
	AutoSync                 *bool
	DMPermission             *bool
	NSFW                     *bool
	DefaultMemberPermissions *int64
	GuildIDs                 []string
	NameLocalizations        map[discordgo.Locale]string
	Extras                   map[string]any
}

// SlashCommandAttrs are the attributes of a slash command.
type SlashCommandAttrs struct {
	AppCommandAttrs
	Description              *string
	DescriptionLocalizations map[discordgo.Locale]string
	// Connectors maps option names to callback parameter names.
	Connectors map[string]string
	Options    []*discordgo.ApplicationCommandOption
}

// SubCommandAttrs are the attributes of a slash subcommand or subcommand group.
type SubCommandAttrs struct {
	Description              *string
	NameLocalizations        map[discordgo.Locale]string
	DescriptionLocalizations map[discordgo.Locale]string
	Connectors               map[string]string
	Options                  []*discordgo.ApplicationCommandOption
	Extras                   map[string]any
}

func over[T any](dst **T, src *T) {
	if src != nil {
		*dst = src
	}
}

func overSlice[T any](dst *[]T, src []T) {
	if src != nil {
		*dst = src
	}
}

func overMap[K comparable, V any](dst *map[K]V, src map[K]V) {
	if src != nil {
		*dst = src
	}
}

func mergeCommandAttrs(defaults CommandAttrs, overrides ...CommandAttrs) CommandAttrs {
	out := defaults
	for _, o := range overrides {
		over(&out.Help, o.Help)
		over(&out.Brief, o.Brief)
		over(&out.Usage, o.Usage)
		over(&out.Description, o.Description)
		over(&out.Enabled, o.Enabled)
		over(&out.Hidden, o.Hidden)
		over(&out.IgnoreExtra, o.IgnoreExtra)
		over(&out.CooldownAfterParsing, o.CooldownAfterParsing)
		overSlice(&out.Aliases, o.Aliases)
		overMap(&out.Extras, o.Extras)
	}
	return out
}

func mergeAppCommandAttrs(defaults AppCommandAttrs, overrides ...AppCommandAttrs) AppCommandAttrs {
	out := defaults
	for _, o := range overrides {
		over(&out.AutoSync, o.AutoSync)
		over(&out.DMPermission, o.DMPermission)
		over(&out.NSFW, o.NSFW)
		over(&out.DefaultMemberPermissions, o.DefaultMemberPermissions)
		overSlice(&out.GuildIDs, o.GuildIDs)
		overMap(&out.NameLocalizations, o.NameLocalizations)
		overMap(&out.Extras, o.Extras)
	}
	return out
}

func mergeSlashCommandAttrs(defaults SlashCommandAttrs, overrides ...SlashCommandAttrs) SlashCommandAttrs {
	out := defaults
	for _, o := range overrides {
		out.AppCommandAttrs = mergeAppCommandAttrs(out.AppCommandAttrs, o.AppCommandAttrs)
		over(&out.Description, o.Description)
		overMap(&out.DescriptionLocalizations, o.DescriptionLocalizations)
		overMap(&out.Connectors, o.Connectors)
		overSlice(&out.Options, o.Options)
	}
	return out
}

func mergeSubCommandAttrs(overrides ...SubCommandAttrs) SubCommandAttrs {
	var out SubCommandAttrs
	for _, o := range overrides {
		over(&out.Description, o.Description)
		overMap(&out.NameLocalizations, o.NameLocalizations)
		overMap(&out.DescriptionLocalizations, o.DescriptionLocalizations)
		overMap(&out.Connectors, o.Connectors)
		overSlice(&out.Options, o.Options)
		overMap(&out.Extras, o.Extras)
	}
	return out
}

// ownedExtras copies extras and sets the owner back-references without
// overwriting keys the caller already set.
func ownedExtras(extras map[string]any, owner Owner) map[string]any {
	out := make(map[string]any, len(extras)+2)
	maps.Copy(out, extras)
	if _, ok := out[ExtraPlugin]; !ok {
		out[ExtraPlugin] = owner
	}
	if _, ok := out[ExtraMetadata]; !ok {
		out[ExtraMetadata] = owner.Metadata()
	}
	return out
}

// ExtrasAware is anything carrying an extras map, which covers every entity
// this package creates.
type ExtrasAware interface {
	GetExtras() map[string]any
}

// ParentPlugin returns the plugin that created obj.
func ParentPlugin(obj ExtrasAware) (Owner, error) {
	if owner, ok := obj.GetExtras()[ExtraPlugin].(Owner); ok && owner != nil {
		return owner, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrNotRegistered, obj)
}

func derefOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
