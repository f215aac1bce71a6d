package discord

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/discord-plugins/internal/storage"
	"github.com/keshon/discord-plugins/pkg/retrylimit"
)

const syncTimeout = 2 * time.Minute

// ScheduleCommandSync debounces SyncCommands by the configured delay, so a
// burst of loads and unloads results in one sync.
func (b *Bot) ScheduleCommandSync() {
	if b.cfg == nil || !b.cfg.SyncCommands {
		return
	}
	b.timerMu.Lock()
	defer b.timerMu.Unlock()
	if b.syncTimer != nil {
		b.syncTimer.Stop()
	}
	b.syncTimer = time.AfterFunc(b.cfg.SyncDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()
		if err := b.SyncCommands(ctx); err != nil {
			b.logger.Error().Err(err).Msg("Failed to sync application commands")
		}
	})
}

// SyncCommands pushes the definitions of every auto-synced application
// command to Discord. Each scope (global, or one guild) is overwritten in
// bulk, and skipped when its hashes match the last push.
func (b *Bot) SyncCommands(ctx context.Context) error {
	if err := b.WaitUntilReady(ctx); err != nil {
		return err
	}

	b.syncMu.Lock()
	defer b.syncMu.Unlock()

	scopes := b.commandScopes()
	for scope := range b.synced {
		if _, ok := scopes[scope]; !ok {
			scopes[scope] = nil
		}
	}

	b.mu.RLock()
	appID := b.appID
	b.mu.RUnlock()

	for _, scope := range slices.Sorted(maps.Keys(scopes)) {
		if err := b.syncScope(ctx, appID, scope, scopes[scope]); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) syncScope(ctx context.Context, appID, scope string, cmds []*discordgo.ApplicationCommand) error {
	hashes := make(map[string]string, len(cmds))
	for _, cmd := range cmds {
		hashes[cmd.Name] = hashCommand(cmd)
	}

	if b.storage != nil {
		stored, err := b.storage.CommandHashes(scope)
		if err != nil {
			return fmt.Errorf("read hashes for %s: %w", scope, err)
		}
		if maps.Equal(stored, hashes) && (len(hashes) > 0 || b.synced[scope]) {
			b.logger.Debug().Str("scope", scope).Msg("Application commands unchanged")
			b.synced[scope] = true
			return nil
		}
	}

	guildID := scope
	if scope == storage.GlobalScope {
		guildID = ""
	}
	if cmds == nil {
		cmds = []*discordgo.ApplicationCommand{}
	}
	err := retrylimit.WithRetry(ctx, func() error {
		return permanent(b.overwrite(appID, guildID, cmds))
	}, b.limiter)
	if err != nil {
		return fmt.Errorf("overwrite commands for %s: %w", scope, err)
	}
	b.synced[scope] = true

	if b.storage != nil {
		if err := b.storage.SetCommandHashes(scope, hashes); err != nil {
			return fmt.Errorf("store hashes for %s: %w", scope, err)
		}
	}
	b.logger.Info().Str("scope", scope).Int("commands", len(cmds)).Msg("Synced application commands")
	return nil
}

// permanent marks client errors other than 429 as fatal. Discord rejects the
// same payload every time, so retrying them only burns the rate limit.
func permanent(err error) error {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) || rest.Response == nil {
		return err
	}
	code := rest.Response.StatusCode
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
		return &retrylimit.FatalError{Err: err}
	}
	return err
}

// commandScopes groups auto-synced definitions by the guild they are
// registered in. Commands without guild IDs go to the global scope.
func (b *Bot) commandScopes() map[string][]*discordgo.ApplicationCommand {
	b.mu.RLock()
	defer b.mu.RUnlock()

	scopes := make(map[string][]*discordgo.ApplicationCommand)
	add := func(def *discordgo.ApplicationCommand, guildIDs []string, autoSync bool) {
		if !autoSync {
			return
		}
		if len(guildIDs) == 0 {
			scopes[storage.GlobalScope] = append(scopes[storage.GlobalScope], def)
			return
		}
		for _, id := range guildIDs {
			if b.isGuildBlacklisted(id) {
				continue
			}
			scopes[id] = append(scopes[id], def)
		}
	}
	for _, cmd := range sortedValues(b.slash) {
		add(cmd.Definition(), cmd.GuildIDs, cmd.AutoSync)
	}
	for _, cmd := range sortedValues(b.user) {
		add(cmd.Definition(), cmd.GuildIDs, cmd.AutoSync)
	}
	for _, cmd := range sortedValues(b.message) {
		add(cmd.Definition(), cmd.GuildIDs, cmd.AutoSync)
	}
	return scopes
}
