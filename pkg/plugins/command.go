package plugins

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// PrefixCommand is a message-prefix command stored in a plugin. *Command and
// *Group implement it, as does any type embedding *Command.
type PrefixCommand interface {
	ExtrasAware
	QualifiedName() string
	Base() *Command
}

// Command is a message-prefix command.
type Command struct {
	Name                 string
	Help                 string
	Brief                string
	Usage                string
	Description          string
	Enabled              bool
	Hidden               bool
	IgnoreExtra          bool
	CooldownAfterParsing bool
	Aliases              []string
	Extras               map[string]any

	// Checks are the command's own checks. Plugin-wide checks are kept apart
	// and put in front of these by EffectiveChecks.
	Checks []Check
	Parent *Group

	cb           callback
	pluginChecks []Check
}

func newCommand(name string, cb callback, attrs CommandAttrs) *Command {
	return &Command{
		Name:                 name,
		Help:                 derefOr(attrs.Help, ""),
		Brief:                derefOr(attrs.Brief, ""),
		Usage:                derefOr(attrs.Usage, ""),
		Description:          derefOr(attrs.Description, ""),
		Enabled:              derefOr(attrs.Enabled, true),
		Hidden:               derefOr(attrs.Hidden, false),
		IgnoreExtra:          derefOr(attrs.IgnoreExtra, true),
		CooldownAfterParsing: derefOr(attrs.CooldownAfterParsing, false),
		Aliases:              slices.Clone(attrs.Aliases),
		Extras:               attrs.Extras,
		cb:                   cb,
	}
}

func (c *Command) Base() *Command { return c }

func (c *Command) GetExtras() map[string]any {
	if c.Extras == nil {
		c.Extras = make(map[string]any)
	}
	return c.Extras
}

// QualifiedName is the space-joined path from the root group.
func (c *Command) QualifiedName() string {
	if c.Parent == nil {
		return c.Name
	}
	return c.Parent.QualifiedName() + " " + c.Name
}

// AddCheck appends a local check and returns c for chaining.
func (c *Command) AddCheck(check Check) *Command {
	c.Checks = append(c.Checks, check)
	return c
}

// EffectiveChecks returns the plugin-wide checks followed by the command's own.
func (c *Command) EffectiveChecks() []Check {
	return slices.Concat(c.pluginChecks, c.Checks)
}

// Callback returns the symbol name of the command's callback.
func (c *Command) Callback() string { return c.cb.String() }

// Invoke calls the callback with ctx and as many of args as it accepts.
func (c *Command) Invoke(ctx context.Context, args ...any) error {
	return c.cb.call(ctx, args...)
}

func (c *Command) setPluginChecks(checks []Check) {
	c.pluginChecks = slices.Clone(checks)
}

// Group is a prefix command with subcommands.
type Group struct {
	*Command
	children *orderedMap[PrefixCommand]
}

func newGroup(cmd *Command) *Group {
	return &Group{Command: cmd, children: newOrderedMap[PrefixCommand]()}
}

// Subcommand registers a child command under g.
func (g *Group) Subcommand(name string, fn any, attrs ...CommandAttrs) (*Command, error) {
	cmd, err := g.child(name, fn, attrs)
	if err != nil {
		return nil, err
	}
	g.children.Set(cmd.Name, cmd)
	return cmd, nil
}

// Subgroup registers a child group under g.
func (g *Group) Subgroup(name string, fn any, attrs ...CommandAttrs) (*Group, error) {
	cmd, err := g.child(name, fn, attrs)
	if err != nil {
		return nil, err
	}
	sub := newGroup(cmd)
	g.children.Set(cmd.Name, sub)
	return sub, nil
}

func (g *Group) child(name string, fn any, attrs []CommandAttrs) (*Command, error) {
	cb, err := newCallback(fn)
	if err != nil {
		return nil, err
	}
	name, err = resolveName(name, cb)
	if err != nil {
		return nil, err
	}
	merged := mergeCommandAttrs(CommandAttrs{}, attrs...)
	if owner, err := ParentPlugin(g); err == nil {
		merged.Extras = ownedExtras(merged.Extras, owner)
	}
	cmd := newCommand(name, cb, merged)
	cmd.Parent = g
	return cmd, nil
}

// Children returns the direct subcommands in registration order.
func (g *Group) Children() []PrefixCommand {
	return g.children.Values()
}

// Child returns the direct subcommand called name, matching aliases too.
func (g *Group) Child(name string) (PrefixCommand, bool) {
	if c, ok := g.children.Get(name); ok {
		return c, true
	}
	for _, c := range g.children.Values() {
		if slices.Contains(c.Base().Aliases, name) {
			return c, true
		}
	}
	return nil, false
}

// walkPrefix resolves a space-separated path starting at root.
func walkPrefix(root PrefixCommand, rest string) (PrefixCommand, error) {
	cmd := root
	for _, part := range strings.Fields(rest) {
		g, ok := cmd.(interface {
			Child(name string) (PrefixCommand, bool)
		})
		if !ok {
			return nil, fmtNotGroup(cmd.QualifiedName(), part)
		}
		next, ok := g.Child(part)
		if !ok {
			return nil, nil
		}
		cmd = next
	}
	return cmd, nil
}

func fmtNotGroup(name, child string) error {
	return fmt.Errorf("%w: got %q after %q", ErrNotGroup, child, name)
}
