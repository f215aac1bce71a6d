package plugins

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// runHooks runs hooks concurrently and waits for all of them.
func runHooks(ctx context.Context, hooks []Hook) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, h := range hooks {
		g.Go(func() error { return h(gctx) })
	}
	return g.Wait()
}

// Load registers everything in the plugin with bot, in this order: pre-load
// hooks, prefix commands, slash, user and message commands, listeners, loops,
// post-load hooks. Then it asks bot to sync application commands.
//
// Errors abort the remaining steps and nothing already added is rolled back.
// Load and Unload must not run concurrently for the same plugin.
func (p *Plugin) Load(ctx context.Context, bot Bot) error {
	p.setBot(bot)
	s := p.store

	if err := runHooks(ctx, p.preLoad); err != nil {
		return fmt.Errorf("load %q: pre-load hook: %w", p.Name(), err)
	}

	if pb, ok := bot.(PrefixBot); ok {
		for _, cmd := range s.commands.Values() {
			cmd.Base().setPluginChecks(s.commandChecks)
			if err := pb.AddCommand(cmd); err != nil {
				return fmt.Errorf("load %q: add command %q: %w", p.Name(), cmd.QualifiedName(), err)
			}
		}
	}

	if err := p.finalizePlaceholders(); err != nil {
		return fmt.Errorf("load %q: %w", p.Name(), err)
	}

	for _, cmd := range s.slashCommands.Values() {
		cmd.setPluginChecks(s.slashCommandChecks)
		if err := bot.AddSlashCommand(cmd); err != nil {
			return fmt.Errorf("load %q: add slash command %q: %w", p.Name(), cmd.Name, err)
		}
	}
	for _, cmd := range s.userCommands.Values() {
		cmd.setPluginChecks(s.userCommandChecks)
		if err := bot.AddUserCommand(cmd); err != nil {
			return fmt.Errorf("load %q: add user command %q: %w", p.Name(), cmd.Name, err)
		}
	}
	for _, cmd := range s.messageCommands.Values() {
		cmd.setPluginChecks(s.messageCommandChecks)
		if err := bot.AddMessageCommand(cmd); err != nil {
			return fmt.Errorf("load %q: add message command %q: %w", p.Name(), cmd.Name, err)
		}
	}

	for _, event := range s.listeners.Keys() {
		ls, _ := s.listeners.Get(event)
		for _, l := range ls {
			if err := bot.AddListener(event, l); err != nil {
				return fmt.Errorf("load %q: add listener for %q: %w", p.Name(), event, err)
			}
		}
	}

	// Loops outlive the load call.
	loopCtx := context.WithoutCancel(ctx)
	for _, loop := range s.loops {
		if err := loop.Start(loopCtx); err != nil {
			return fmt.Errorf("load %q: start loop %q: %w", p.Name(), loop.Name(), err)
		}
	}

	if err := runHooks(ctx, p.postLoad); err != nil {
		return fmt.Errorf("load %q: post-load hook: %w", p.Name(), err)
	}

	bot.ScheduleCommandSync()
	p.logger.Info().Str("plugin", p.Name()).Msg("Successfully loaded plugin")
	return nil
}

// Unload removes everything Load added, in the same kind order, and keeps
// the bot handle so the plugin can be loaded again.
func (p *Plugin) Unload(ctx context.Context, bot Bot) error {
	s := p.store

	if err := runHooks(ctx, p.preUnload); err != nil {
		return fmt.Errorf("unload %q: pre-unload hook: %w", p.Name(), err)
	}

	if pb, ok := bot.(PrefixBot); ok {
		for _, cmd := range s.commands.Values() {
			if err := pb.RemoveCommand(cmd.Base().Name); err != nil {
				return fmt.Errorf("unload %q: remove command %q: %w", p.Name(), cmd.QualifiedName(), err)
			}
		}
	}

	for _, cmd := range s.slashCommands.Values() {
		if err := bot.RemoveSlashCommand(cmd.Name); err != nil {
			return fmt.Errorf("unload %q: remove slash command %q: %w", p.Name(), cmd.Name, err)
		}
	}
	for _, cmd := range s.userCommands.Values() {
		if err := bot.RemoveUserCommand(cmd.Name); err != nil {
			return fmt.Errorf("unload %q: remove user command %q: %w", p.Name(), cmd.Name, err)
		}
	}
	for _, cmd := range s.messageCommands.Values() {
		if err := bot.RemoveMessageCommand(cmd.Name); err != nil {
			return fmt.Errorf("unload %q: remove message command %q: %w", p.Name(), cmd.Name, err)
		}
	}

	for _, event := range s.listeners.Keys() {
		ls, _ := s.listeners.Get(event)
		for _, l := range ls {
			if err := bot.RemoveListener(event, l); err != nil {
				return fmt.Errorf("unload %q: remove listener for %q: %w", p.Name(), event, err)
			}
		}
	}

	for _, loop := range s.loops {
		if err := loop.Stop(ctx); err != nil {
			return fmt.Errorf("unload %q: stop loop %q: %w", p.Name(), loop.Name(), err)
		}
	}

	if err := runHooks(ctx, p.postUnload); err != nil {
		return fmt.Errorf("unload %q: post-unload hook: %w", p.Name(), err)
	}

	bot.ScheduleCommandSync()
	p.logger.Info().Str("plugin", p.Name()).Msg("Successfully unloaded plugin")
	return nil
}

// finalizePlaceholders attaches pending external subcommands to their parents.
func (p *Plugin) finalizePlaceholders() error {
	for _, ph := range p.store.placeholders {
		if ph.finalized() {
			continue
		}
		parent, err := p.store.getSlashCommand(ph.ParentName())
		if err != nil {
			return err
		}
		if parent == nil {
			return fmt.Errorf("%w: %q for %q", ErrUnknownParent, ph.ParentName(), ph.QualifiedName())
		}
		if err := ph.finalize(parent); err != nil {
			return err
		}
	}
	return nil
}
