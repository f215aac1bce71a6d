package plugins

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// placeholder is a subcommand or group waiting for its parent command.
type placeholder interface {
	ParentName() string
	QualifiedName() string
	finalized() bool
	finalize(parent SlashNode) error
}

type placeholderBase struct {
	name       string
	parentName string
	fn         any
	attrs      []SubCommandAttrs
}

func newPlaceholderBase(parentName, name string, fn any, attrs []SubCommandAttrs) (placeholderBase, error) {
	cb, err := newCallback(fn)
	if err != nil {
		return placeholderBase{}, err
	}
	if name, err = resolveName(name, cb); err != nil {
		return placeholderBase{}, err
	}
	return placeholderBase{
		name:       name,
		parentName: strings.Join(strings.Fields(parentName), " "),
		fn:         fn,
		attrs:      attrs,
	}, nil
}

func (b *placeholderBase) Name() string { return b.name }

func (b *placeholderBase) ParentName() string { return b.parentName }

func (b *placeholderBase) QualifiedName() string { return b.parentName + " " + b.name }

func errUnboundPlaceholder(qualified string) error {
	return fmt.Errorf("%w: set the parent command of placeholder %q first", ErrUnbound, qualified)
}

// SubCommandPlaceholder stands in for a subcommand until SetParent attaches
// it to the real parent. Name, ParentName and QualifiedName always work;
// everything else returns ErrUnbound until then.
type SubCommandPlaceholder struct {
	placeholderBase

	command  *SubCommand
	deferred *orderedMap[Autocompleter]
}

func newSubCommandPlaceholder(parentName, name string, fn any, attrs []SubCommandAttrs) (*SubCommandPlaceholder, error) {
	b, err := newPlaceholderBase(parentName, name, fn, attrs)
	if err != nil {
		return nil, err
	}
	return &SubCommandPlaceholder{placeholderBase: b, deferred: newOrderedMap[Autocompleter]()}, nil
}

// SetParent creates the real subcommand under parent and installs any
// autocompleters registered so far.
func (p *SubCommandPlaceholder) SetParent(parent SubCommandParent) error {
	if p.command != nil {
		return fmt.Errorf("%w: placeholder %q", ErrAlreadyBound, p.QualifiedName())
	}
	cmd, err := parent.SubCommand(p.name, p.fn, p.attrs...)
	if err != nil {
		return err
	}
	p.command = cmd
	for _, option := range p.deferred.Keys() {
		fn, _ := p.deferred.Get(option)
		if err := cmd.Autocomplete(option, fn); err != nil {
			return err
		}
	}
	return nil
}

func (p *SubCommandPlaceholder) finalized() bool { return p.command != nil }

func (p *SubCommandPlaceholder) finalize(parent SlashNode) error {
	sp, ok := parent.(SubCommandParent)
	if !ok {
		return fmtNotGroup(parent.QualifiedName(), p.name)
	}
	return p.SetParent(sp)
}

// Command returns the real subcommand.
func (p *SubCommandPlaceholder) Command() (*SubCommand, error) {
	if p.command == nil {
		return nil, errUnboundPlaceholder(p.QualifiedName())
	}
	return p.command, nil
}

func (p *SubCommandPlaceholder) Description() (string, error) {
	cmd, err := p.Command()
	if err != nil {
		return "", err
	}
	return cmd.Description, nil
}

func (p *SubCommandPlaceholder) Connectors() (map[string]string, error) {
	cmd, err := p.Command()
	if err != nil {
		return nil, err
	}
	return cmd.Connectors, nil
}

func (p *SubCommandPlaceholder) Parent() (SlashNode, error) {
	cmd, err := p.Command()
	if err != nil {
		return nil, err
	}
	return cmd.Parent(), nil
}

func (p *SubCommandPlaceholder) Parents() ([]SlashNode, error) {
	cmd, err := p.Command()
	if err != nil {
		return nil, err
	}
	return cmd.Parents(), nil
}

func (p *SubCommandPlaceholder) RootParent() (*SlashCommand, error) {
	cmd, err := p.Command()
	if err != nil {
		return nil, err
	}
	return cmd.RootParent(), nil
}

func (p *SubCommandPlaceholder) Body() (*discordgo.ApplicationCommandOption, error) {
	cmd, err := p.Command()
	if err != nil {
		return nil, err
	}
	return cmd.Body(), nil
}

func (p *SubCommandPlaceholder) Invoke(ctx context.Context, args ...any) error {
	cmd, err := p.Command()
	if err != nil {
		return err
	}
	return cmd.Invoke(ctx, args...)
}

// Autocomplete installs fn for option right away when the placeholder is
// finalized, otherwise on SetParent.
func (p *SubCommandPlaceholder) Autocomplete(option string, fn Autocompleter) error {
	if p.command != nil {
		return p.command.Autocomplete(option, fn)
	}
	p.deferred.Set(option, fn)
	return nil
}

// SubCommandGroupPlaceholder stands in for a subcommand group. Subcommands
// declared on it are attached to the real group, in declaration order, when
// SetParent runs.
type SubCommandGroupPlaceholder struct {
	placeholderBase

	command  *SubCommandGroup
	children []*SubCommandPlaceholder
}

func newSubCommandGroupPlaceholder(parentName, name string, fn any, attrs []SubCommandAttrs) (*SubCommandGroupPlaceholder, error) {
	b, err := newPlaceholderBase(parentName, name, fn, attrs)
	if err != nil {
		return nil, err
	}
	return &SubCommandGroupPlaceholder{placeholderBase: b}, nil
}

// SetParent creates the real group under parent, then its subcommands.
func (g *SubCommandGroupPlaceholder) SetParent(parent *SlashCommand) error {
	if g.command != nil {
		return fmt.Errorf("%w: placeholder %q", ErrAlreadyBound, g.QualifiedName())
	}
	grp, err := parent.SubCommandGroup(g.name, g.fn, g.attrs...)
	if err != nil {
		return err
	}
	g.command = grp
	for _, child := range g.children {
		if err := child.SetParent(grp); err != nil {
			return err
		}
	}
	return nil
}

func (g *SubCommandGroupPlaceholder) finalized() bool { return g.command != nil }

func (g *SubCommandGroupPlaceholder) finalize(parent SlashNode) error {
	sc, ok := parent.(*SlashCommand)
	if !ok {
		return fmtNotGroup(parent.QualifiedName(), g.name)
	}
	return g.SetParent(sc)
}

// Command returns the real group.
func (g *SubCommandGroupPlaceholder) Command() (*SubCommandGroup, error) {
	if g.command == nil {
		return nil, errUnboundPlaceholder(g.QualifiedName())
	}
	return g.command, nil
}

func (g *SubCommandGroupPlaceholder) Description() (string, error) {
	grp, err := g.Command()
	if err != nil {
		return "", err
	}
	return grp.Description, nil
}

func (g *SubCommandGroupPlaceholder) Parent() (*SlashCommand, error) {
	grp, err := g.Command()
	if err != nil {
		return nil, err
	}
	return grp.Parent(), nil
}

func (g *SubCommandGroupPlaceholder) Parents() ([]SlashNode, error) {
	grp, err := g.Command()
	if err != nil {
		return nil, err
	}
	return grp.Parents(), nil
}

func (g *SubCommandGroupPlaceholder) Body() (*discordgo.ApplicationCommandOption, error) {
	grp, err := g.Command()
	if err != nil {
		return nil, err
	}
	return grp.Body(), nil
}

func (g *SubCommandGroupPlaceholder) Invoke(ctx context.Context, args ...any) error {
	grp, err := g.Command()
	if err != nil {
		return err
	}
	return grp.Invoke(ctx, args...)
}

// SubCommand declares a subcommand of the group. When the group is already
// finalized the subcommand is attached immediately.
func (g *SubCommandGroupPlaceholder) SubCommand(name string, fn any, attrs ...SubCommandAttrs) (*SubCommandPlaceholder, error) {
	ph, err := newSubCommandPlaceholder(g.QualifiedName(), name, fn, attrs)
	if err != nil {
		return nil, err
	}
	g.children = append(g.children, ph)
	if g.command != nil {
		if err := ph.SetParent(g.command); err != nil {
			return nil, err
		}
	}
	return ph, nil
}

// SubCommands returns the declared subcommand placeholders.
func (g *SubCommandGroupPlaceholder) SubCommands() []*SubCommandPlaceholder {
	return append([]*SubCommandPlaceholder(nil), g.children...)
}
