package plugins

import (
	"context"

	"github.com/rs/zerolog"
)

// Invocation is what a host hands to checks when a command is about to run.
// Data carries the host's own payload (for the discordgo host, a *discord.Context).
type Invocation struct {
	Name string
	Args []string
	Data any
}

// Check is an authorization predicate. A false result stops the invocation.
type Check func(ctx context.Context, inv *Invocation) (bool, error)

// Hook runs at one of the load/unload stages.
type Hook func(ctx context.Context) error

// Bot is the host runtime a plugin is loaded into. Hosts own dispatch and
// command synchronization; the registry only adds and removes entities.
type Bot interface {
	AddSlashCommand(cmd *SlashCommand) error
	RemoveSlashCommand(name string) error
	AddUserCommand(cmd *UserCommand) error
	RemoveUserCommand(name string) error
	AddMessageCommand(cmd *MessageCommand) error
	RemoveMessageCommand(name string) error

	AddListener(event string, l *Listener) error
	RemoveListener(event string, l *Listener) error

	// WaitUntilReady blocks until the host is connected and ready.
	WaitUntilReady(ctx context.Context) error

	// ScheduleCommandSync asks the host to sync application commands soon.
	// It must not block.
	ScheduleCommandSync()
}

// PrefixBot is a Bot that also supports message-prefix commands.
type PrefixBot interface {
	Bot
	AddCommand(cmd PrefixCommand) error
	RemoveCommand(name string) error
}

// Owner is implemented by Plugin and SubPlugin. Every entity keeps its owner
// in extras[ExtraPlugin].
type Owner interface {
	Name() string
	Metadata() *Metadata
	Bot() (Bot, error)
	Logger() zerolog.Logger
}

// Extension is the pair of entry points a host calls to load and unload a
// plugin. Both must return immediately.
type Extension struct {
	Name     string
	Setup    func(Bot)
	Teardown func(Bot)
}
