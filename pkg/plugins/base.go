package plugins

import (
	"context"
	"fmt"
	"slices"

	"github.com/keshon/discord-plugins/pkg/tasks"
)

// base is the registry shared by Plugin and SubPlugin: metadata, the store
// and every registration method.
type base struct {
	metadata *Metadata
	store    *store
	self     Owner
}

func newBase(self Owner, md *Metadata) base {
	return base{metadata: md, store: newStore(), self: self}
}

func (b *base) core() *base { return b }

func (b *base) Name() string { return b.metadata.Name }

func (b *base) Metadata() *Metadata { return b.metadata }

// GetExtras returns the plugin's metadata extras.
func (b *base) GetExtras() map[string]any { return b.metadata.GetExtras() }

func (b *base) replaced(kind, name string) {
	l := b.self.Logger()
	l.Debug().Str("plugin", b.Name()).Str("kind", kind).Str("name", name).Msg("overwriting registered entity")
}

func (b *base) buildCommand(name string, fn any, attrs []CommandAttrs) (*Command, error) {
	cb, err := newCallback(fn)
	if err != nil {
		return nil, err
	}
	if name, err = resolveName(name, cb); err != nil {
		return nil, err
	}
	merged := mergeCommandAttrs(b.metadata.CommandAttrs, attrs...)
	merged.Extras = ownedExtras(merged.Extras, b.self)
	return newCommand(name, cb, merged), nil
}

func (b *base) putCommand(cmd PrefixCommand) {
	name := cmd.Base().Name
	if b.store.commands.Set(name, cmd) {
		b.replaced("command", name)
	}
}

// Command registers a prefix command. When name is empty the callback's
// symbol name is used.
func (b *base) Command(name string, fn any, attrs ...CommandAttrs) (*Command, error) {
	cmd, err := b.buildCommand(name, fn, attrs)
	if err != nil {
		return nil, err
	}
	b.putCommand(cmd)
	return cmd, nil
}

// Group registers a prefix command group.
func (b *base) Group(name string, fn any, attrs ...CommandAttrs) (*Group, error) {
	cmd, err := b.buildCommand(name, fn, attrs)
	if err != nil {
		return nil, err
	}
	g := newGroup(cmd)
	b.putCommand(g)
	return g, nil
}

type registrar interface {
	core() *base
}

// CustomCommand registers a prefix command built by class, for hosts that
// use their own command types embedding *Command.
func CustomCommand[T PrefixCommand](r registrar, name string, fn any, class func(*Command) T, attrs ...CommandAttrs) (T, error) {
	var zero T
	b := r.core()
	cmd, err := b.buildCommand(name, fn, attrs)
	if err != nil {
		return zero, err
	}
	out := class(cmd)
	b.putCommand(out)
	return out, nil
}

// SlashCommand registers a slash command.
func (b *base) SlashCommand(name string, fn any, attrs ...SlashCommandAttrs) (*SlashCommand, error) {
	cb, err := newCallback(fn)
	if err != nil {
		return nil, err
	}
	if name, err = resolveName(name, cb); err != nil {
		return nil, err
	}
	merged := mergeSlashCommandAttrs(b.metadata.SlashCommandAttrs, attrs...)
	merged.Extras = ownedExtras(merged.Extras, b.self)
	cmd := newSlashCommand(name, cb, merged)
	if b.store.slashCommands.Set(name, cmd) {
		b.replaced("slash command", name)
	}
	return cmd, nil
}

func (b *base) buildAppCommand(name string, fn any, defaults AppCommandAttrs, attrs []AppCommandAttrs) (AppCommand, error) {
	cb, err := newCallback(fn)
	if err != nil {
		return AppCommand{}, err
	}
	if name, err = resolveName(name, cb); err != nil {
		return AppCommand{}, err
	}
	merged := mergeAppCommandAttrs(defaults, attrs...)
	merged.Extras = ownedExtras(merged.Extras, b.self)
	return newAppCommand(name, cb, merged), nil
}

// UserCommand registers a user context menu command.
func (b *base) UserCommand(name string, fn any, attrs ...AppCommandAttrs) (*UserCommand, error) {
	app, err := b.buildAppCommand(name, fn, b.metadata.UserCommandAttrs, attrs)
	if err != nil {
		return nil, err
	}
	cmd := &UserCommand{AppCommand: app}
	if b.store.userCommands.Set(cmd.Name, cmd) {
		b.replaced("user command", cmd.Name)
	}
	return cmd, nil
}

// MessageCommand registers a message context menu command.
func (b *base) MessageCommand(name string, fn any, attrs ...AppCommandAttrs) (*MessageCommand, error) {
	app, err := b.buildAppCommand(name, fn, b.metadata.MessageCommandAttrs, attrs)
	if err != nil {
		return nil, err
	}
	cmd := &MessageCommand{AppCommand: app}
	if b.store.messageCommands.Set(cmd.Name, cmd) {
		b.replaced("message command", cmd.Name)
	}
	return cmd, nil
}

// CommandCheck adds a check applied to every prefix command of the plugin.
func (b *base) CommandCheck(check Check) Check {
	b.store.commandChecks = append(b.store.commandChecks, check)
	return check
}

func (b *base) SlashCommandCheck(check Check) Check {
	b.store.slashCommandChecks = append(b.store.slashCommandChecks, check)
	return check
}

func (b *base) UserCommandCheck(check Check) Check {
	b.store.userCommandChecks = append(b.store.userCommandChecks, check)
	return check
}

func (b *base) MessageCommandCheck(check Check) Check {
	b.store.messageCommandChecks = append(b.store.messageCommandChecks, check)
	return check
}

// AddListeners registers callbacks for event. With an empty event each
// callback listens to the event named after itself. Nothing is registered
// unless every callback is valid.
func (b *base) AddListeners(event string, fns ...any) error {
	ls := make([]*Listener, 0, len(fns))
	for _, fn := range fns {
		l, err := newListener(event, fn)
		if err != nil {
			return err
		}
		l.Extras = ownedExtras(nil, b.self)
		ls = append(ls, l)
	}
	for _, l := range ls {
		b.store.addListener(l)
	}
	return nil
}

// Listener registers a single callback and returns its handle.
func (b *base) Listener(event string, fn any) (*Listener, error) {
	l, err := newListener(event, fn)
	if err != nil {
		return nil, err
	}
	l.Extras = ownedExtras(nil, b.self)
	b.store.addListener(l)
	return l, nil
}

// RegisterLoop adds loop to the plugin so it starts on load and stops on
// unload. With waitUntilReady the loop waits for the bot before its first
// iteration, which claims the loop's before-loop hook.
func (b *base) RegisterLoop(loop *tasks.Loop, waitUntilReady bool) (*tasks.Loop, error) {
	if slices.Contains(b.store.loops, loop) {
		return loop, nil
	}
	if waitUntilReady {
		if loop.HasBeforeLoop() {
			return nil, fmt.Errorf("%w: %q", ErrConflictingHook, loop.Name())
		}
		loop.BeforeLoop(func(ctx context.Context) error {
			bot, err := b.self.Bot()
			if err != nil {
				return err
			}
			return bot.WaitUntilReady(ctx)
		})
	}
	b.store.loops = append(b.store.loops, loop)
	return loop, nil
}

// Commands returns the prefix commands in registration order.
func (b *base) Commands() []PrefixCommand { return b.store.commands.Values() }

func (b *base) SlashCommands() []*SlashCommand { return b.store.slashCommands.Values() }

func (b *base) UserCommands() []*UserCommand { return b.store.userCommands.Values() }

func (b *base) MessageCommands() []*MessageCommand { return b.store.messageCommands.Values() }

func (b *base) Loops() []*tasks.Loop { return append([]*tasks.Loop(nil), b.store.loops...) }

// Listeners returns a copy of the listeners keyed by event.
func (b *base) Listeners() map[string][]*Listener {
	out := make(map[string][]*Listener, b.store.listeners.Len())
	for _, event := range b.store.listeners.Keys() {
		ls, _ := b.store.listeners.Get(event)
		out[event] = append([]*Listener(nil), ls...)
	}
	return out
}

// GetCommand looks up a prefix command by qualified name, for example
// "tag create". It returns nil when nothing matches.
func (b *base) GetCommand(name string) (PrefixCommand, error) {
	return b.store.getCommand(name)
}

// GetSlashCommand looks up a slash command, subcommand group or subcommand
// by qualified name. It returns nil when nothing matches.
func (b *base) GetSlashCommand(name string) (SlashNode, error) {
	return b.store.getSlashCommand(name)
}

func (b *base) GetUserCommand(name string) (*UserCommand, bool) {
	return b.store.userCommands.Get(name)
}

func (b *base) GetMessageCommand(name string) (*MessageCommand, bool) {
	return b.store.messageCommands.Get(name)
}
