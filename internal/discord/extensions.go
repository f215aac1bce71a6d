package discord

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/keshon/discord-plugins/pkg/jobmgr"
	"github.com/keshon/discord-plugins/pkg/plugins"
)

// extensionJobTimeout bounds how long the bot waits for a background unload.
const extensionJobTimeout = 30 * time.Second

// LoadExtension calls ext.Setup and remembers ext under its name. Setup
// returns at once; the plugin finishes loading in the background.
func (b *Bot) LoadExtension(ext plugins.Extension) error {
	b.mu.Lock()
	if _, ok := b.extensions[ext.Name]; ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrExtensionLoaded, ext.Name)
	}
	b.extensions[ext.Name] = ext
	b.mu.Unlock()

	b.logger.Info().Str("extension", ext.Name).Msg("Loading extension")
	ext.Setup(b)
	return nil
}

// UnloadExtension calls the teardown of a loaded extension and forgets it.
func (b *Bot) UnloadExtension(name string) error {
	b.mu.Lock()
	ext, ok := b.extensions[name]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrExtensionMissing, name)
	}
	delete(b.extensions, name)
	b.mu.Unlock()

	b.logger.Info().Str("extension", name).Msg("Unloading extension")
	ext.Teardown(b)
	return nil
}

// ReloadExtension unloads name, waits for its background unload job to
// finish and loads it again.
func (b *Bot) ReloadExtension(name string) error {
	b.mu.RLock()
	ext, ok := b.extensions[name]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrExtensionMissing, name)
	}
	if err := b.UnloadExtension(name); err != nil {
		return err
	}
	if err := b.waitForUnload(name); err != nil {
		b.mu.Lock()
		b.extensions[name] = ext
		b.mu.Unlock()
		return fmt.Errorf("reload %q: %w", name, err)
	}
	return b.LoadExtension(ext)
}

// waitForUnload waits for the unload job the extension's teardown started.
func (b *Bot) waitForUnload(name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), extensionJobTimeout)
	defer cancel()
	return jobmgr.DefaultManager.WaitFor(ctx, "unload:"+name)
}

// Extensions returns the names of loaded extensions, sorted.
func (b *Bot) Extensions() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Sorted(maps.Keys(b.extensions))
}
