package plugins

import (
	"context"
	"fmt"
	"sync"
)

// fakeBot records every call the registry makes on it.
type fakeBot struct {
	mu    sync.Mutex
	calls []string

	commands  map[string]PrefixCommand
	slash     map[string]*SlashCommand
	user      map[string]*UserCommand
	message   map[string]*MessageCommand
	listeners map[string][]*Listener

	ready  chan struct{}
	synced chan struct{}
	failOn string
}

func newFakeBot() *fakeBot {
	b := &fakeBot{
		commands:  make(map[string]PrefixCommand),
		slash:     make(map[string]*SlashCommand),
		user:      make(map[string]*UserCommand),
		message:   make(map[string]*MessageCommand),
		listeners: make(map[string][]*Listener),
		ready:     make(chan struct{}),
		synced:    make(chan struct{}, 16),
	}
	close(b.ready)
	return b
}

func (b *fakeBot) record(call string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
	if call == b.failOn {
		return fmt.Errorf("fake failure on %s", call)
	}
	return nil
}

func (b *fakeBot) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *fakeBot) AddCommand(cmd PrefixCommand) error {
	b.commands[cmd.Base().Name] = cmd
	return b.record("add command " + cmd.Base().Name)
}

func (b *fakeBot) RemoveCommand(name string) error {
	delete(b.commands, name)
	return b.record("remove command " + name)
}

func (b *fakeBot) AddSlashCommand(cmd *SlashCommand) error {
	b.slash[cmd.Name] = cmd
	return b.record("add slash " + cmd.Name)
}

func (b *fakeBot) RemoveSlashCommand(name string) error {
	delete(b.slash, name)
	return b.record("remove slash " + name)
}

func (b *fakeBot) AddUserCommand(cmd *UserCommand) error {
	b.user[cmd.Name] = cmd
	return b.record("add user " + cmd.Name)
}

func (b *fakeBot) RemoveUserCommand(name string) error {
	delete(b.user, name)
	return b.record("remove user " + name)
}

func (b *fakeBot) AddMessageCommand(cmd *MessageCommand) error {
	b.message[cmd.Name] = cmd
	return b.record("add message " + cmd.Name)
}

func (b *fakeBot) RemoveMessageCommand(name string) error {
	delete(b.message, name)
	return b.record("remove message " + name)
}

func (b *fakeBot) AddListener(event string, l *Listener) error {
	b.mu.Lock()
	b.listeners[event] = append(b.listeners[event], l)
	b.mu.Unlock()
	return b.record("add listener " + event)
}

func (b *fakeBot) RemoveListener(event string, l *Listener) error {
	b.mu.Lock()
	ls := b.listeners[event]
	for i, x := range ls {
		if x == l {
			b.listeners[event] = append(ls[:i:i], ls[i+1:]...)
			break
		}
	}
	b.mu.Unlock()
	return b.record("remove listener " + event)
}

func (b *fakeBot) WaitUntilReady(ctx context.Context) error {
	select {
	case <-b.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *fakeBot) ScheduleCommandSync() {
	_ = b.record("sync")
	select {
	case b.synced <- struct{}{}:
	default:
	}
}

// appOnlyBot hides the prefix command methods of a fakeBot.
type appOnlyBot struct {
	Bot
}
