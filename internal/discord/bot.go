package discord

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/discord-plugins/internal/config"
	"github.com/keshon/discord-plugins/internal/storage"
	"github.com/keshon/discord-plugins/pkg/plugins"
	"github.com/keshon/discord-plugins/pkg/retrylimit"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrDuplicateCommand = errors.New("command already registered")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrExtensionLoaded  = errors.New("extension already loaded")
	ErrExtensionMissing = errors.New("extension not loaded")
)

// Bot is a discordgo host for plugins. It implements plugins.PrefixBot.
type Bot struct {
	cfg     *config.Config
	storage *storage.Storage
	logger  zerolog.Logger
	session *discordgo.Session

	mu         sync.RWMutex
	prefix     map[string]plugins.PrefixCommand
	aliases    map[string]string
	slash      map[string]*plugins.SlashCommand
	user       map[string]*plugins.UserCommand
	message    map[string]*plugins.MessageCommand
	listeners  map[string][]*plugins.Listener
	extensions map[string]plugins.Extension

	ready     chan struct{}
	readyOnce sync.Once
	appID     string

	timerMu   sync.Mutex
	syncTimer *time.Timer
	syncMu    sync.Mutex
	synced    map[string]bool
	limiter   *retrylimit.AdaptiveLimiter
	overwrite func(appID, guildID string, cmds []*discordgo.ApplicationCommand) error
}

var _ plugins.PrefixBot = (*Bot)(nil)

// NewBot creates a bot with a discordgo session for cfg.DiscordToken.
// store may be nil, in which case history and sync hashes are not kept.
func NewBot(cfg *config.Config, store *storage.Storage) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsAll

	b := newBot(cfg, store, log.Logger.With().Str("logger", "discord").Logger())
	b.session = dg
	b.overwrite = func(appID, guildID string, cmds []*discordgo.ApplicationCommand) error {
		_, err := dg.ApplicationCommandBulkOverwrite(appID, guildID, cmds)
		return err
	}

	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onGuildCreate)
	dg.AddHandler(b.onMessageCreate)
	dg.AddHandler(b.onInteractionCreate)
	dg.AddHandler(b.onEvent)
	return b, nil
}

// NewOffline creates a bot without a gateway session. Plugins can be loaded
// into it to inspect their commands; nothing is sent to Discord.
func NewOffline(cfg *config.Config, store *storage.Storage) *Bot {
	b := newBot(cfg, store, log.Logger.With().Str("logger", "discord").Logger())
	b.overwrite = func(appID, guildID string, cmds []*discordgo.ApplicationCommand) error {
		return errors.New("offline bot cannot sync commands")
	}
	return b
}

func newBot(cfg *config.Config, store *storage.Storage, logger zerolog.Logger) *Bot {
	return &Bot{
		cfg:        cfg,
		storage:    store,
		logger:     logger,
		prefix:     make(map[string]plugins.PrefixCommand),
		aliases:    make(map[string]string),
		slash:      make(map[string]*plugins.SlashCommand),
		user:       make(map[string]*plugins.UserCommand),
		message:    make(map[string]*plugins.MessageCommand),
		listeners:  make(map[string][]*plugins.Listener),
		extensions: make(map[string]plugins.Extension),
		ready:      make(chan struct{}),
		synced:     make(map[string]bool),
		limiter:    retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5),
	}
}

// Run opens the gateway and blocks until ctx is done. Loaded extensions are
// torn down before the session closes.
func (b *Bot) Run(ctx context.Context) error {
	if b.session == nil {
		return errors.New("bot has no session")
	}
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.session.Close()

	<-ctx.Done()
	b.logger.Info().Msg("Shutdown signal received. Cleaning up...")

	names := b.Extensions()
	for _, name := range names {
		if err := b.UnloadExtension(name); err != nil {
			b.logger.Error().Err(err).Str("extension", name).Msg("Failed to unload extension")
		}
	}
	for _, name := range names {
		if err := b.waitForUnload(name); err != nil {
			b.logger.Error().Err(err).Str("extension", name).Msg("Extension did not unload in time")
		}
	}
	return nil
}

// Session is nil for bots built without a token.
func (b *Bot) Session() *discordgo.Session { return b.session }

func (b *Bot) Config() *config.Config { return b.cfg }

func (b *Bot) Storage() *storage.Storage { return b.storage }

// WaitUntilReady blocks until the gateway sent READY or ctx is done.
func (b *Bot) WaitUntilReady(ctx context.Context) error {
	select {
	case <-b.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bot) markReady(appID string) {
	b.readyOnce.Do(func() {
		b.mu.Lock()
		b.appID = appID
		b.mu.Unlock()
		close(b.ready)
	})
}

func (b *Bot) AddCommand(cmd plugins.PrefixCommand) error {
	base := cmd.Base()
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.prefix[base.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateCommand, base.Name)
	}
	if _, ok := b.aliases[base.Name]; ok {
		return fmt.Errorf("%w: %q is an alias", ErrDuplicateCommand, base.Name)
	}
	for _, alias := range base.Aliases {
		if _, ok := b.prefix[alias]; ok {
			return fmt.Errorf("%w: alias %q", ErrDuplicateCommand, alias)
		}
		if _, ok := b.aliases[alias]; ok {
			return fmt.Errorf("%w: alias %q", ErrDuplicateCommand, alias)
		}
	}
	b.prefix[base.Name] = cmd
	for _, alias := range base.Aliases {
		b.aliases[alias] = base.Name
	}
	return nil
}

func (b *Bot) RemoveCommand(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cmd, ok := b.prefix[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	delete(b.prefix, name)
	for _, alias := range cmd.Base().Aliases {
		if b.aliases[alias] == name {
			delete(b.aliases, alias)
		}
	}
	return nil
}

func (b *Bot) AddSlashCommand(cmd *plugins.SlashCommand) error {
	return addApp(b, b.slash, cmd.Name, cmd)
}

func (b *Bot) RemoveSlashCommand(name string) error {
	return removeApp(b, b.slash, name)
}

func (b *Bot) AddUserCommand(cmd *plugins.UserCommand) error {
	return addApp(b, b.user, cmd.Name, cmd)
}

func (b *Bot) RemoveUserCommand(name string) error {
	return removeApp(b, b.user, name)
}

func (b *Bot) AddMessageCommand(cmd *plugins.MessageCommand) error {
	return addApp(b, b.message, cmd.Name, cmd)
}

func (b *Bot) RemoveMessageCommand(name string) error {
	return removeApp(b, b.message, name)
}

func addApp[T any](b *Bot, m map[string]T, name string, cmd T) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := m[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateCommand, name)
	}
	m[name] = cmd
	return nil
}

func removeApp[T any](b *Bot, m map[string]T, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := m[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	delete(m, name)
	return nil
}

// AddListener registers l for event. Event names are normalized, so
// "onMessageCreate", "on_message_create" and "MESSAGE_CREATE" are the same.
func (b *Bot) AddListener(event string, l *plugins.Listener) error {
	key := NormalizeEvent(event)
	if key == "" {
		return fmt.Errorf("invalid event name %q", event)
	}
	b.mu.Lock()
	b.listeners[key] = append(b.listeners[key], l)
	b.mu.Unlock()
	return nil
}

func (b *Bot) RemoveListener(event string, l *plugins.Listener) error {
	key := NormalizeEvent(event)
	b.mu.Lock()
	defer b.mu.Unlock()
	ls := b.listeners[key]
	i := slices.Index(ls, l)
	if i < 0 {
		return nil
	}
	ls = slices.Delete(ls, i, i+1)
	if len(ls) == 0 {
		delete(b.listeners, key)
	} else {
		b.listeners[key] = ls
	}
	return nil
}

// Commands returns the root prefix commands sorted by name.
func (b *Bot) Commands() []plugins.PrefixCommand {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sortedValues(b.prefix)
}

func (b *Bot) SlashCommands() []*plugins.SlashCommand {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sortedValues(b.slash)
}

func (b *Bot) UserCommands() []*plugins.UserCommand {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sortedValues(b.user)
}

func (b *Bot) MessageCommands() []*plugins.MessageCommand {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sortedValues(b.message)
}

// Command looks up a root prefix command by name or alias.
func (b *Bot) Command(name string) (plugins.PrefixCommand, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lookupPrefix(name)
}

func (b *Bot) lookupPrefix(name string) (plugins.PrefixCommand, bool) {
	if cmd, ok := b.prefix[name]; ok {
		return cmd, true
	}
	if root, ok := b.aliases[name]; ok {
		cmd, ok := b.prefix[root]
		return cmd, ok
	}
	return nil, false
}

func (b *Bot) SlashCommand(name string) (*plugins.SlashCommand, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	cmd, ok := b.slash[name]
	return cmd, ok
}

// ListenerCount reports how many listeners are registered for event.
func (b *Bot) ListenerCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[NormalizeEvent(event)])
}

func sortedValues[T any](m map[string]T) []T {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func (b *Bot) isGuildBlacklisted(guildID string) bool {
	return b.cfg != nil && b.cfg.IsGuildBlacklisted(guildID)
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	for _, g := range r.Guilds {
		if b.isGuildBlacklisted(g.ID) {
			b.leaveGuild(s, g.ID, g.Name)
		}
	}

	appID := r.User.ID
	if r.Application != nil && r.Application.ID != "" {
		appID = r.Application.ID
	}
	b.markReady(appID)
	b.logger.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("Discord bot is running")
	b.ScheduleCommandSync()
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if b.isGuildBlacklisted(g.ID) {
		b.leaveGuild(s, g.ID, g.Name)
	}
}

func (b *Bot) leaveGuild(s *discordgo.Session, id, name string) {
	b.logger.Info().Str("guild_id", id).Str("guild", name).Msg("Leaving blacklisted guild")
	if err := s.GuildLeave(id); err != nil {
		b.logger.Error().Err(err).Str("guild_id", id).Msg("Failed to leave guild")
	}
}

// NormalizeEvent maps the accepted spellings of an event name to the
// gateway's upper snake case.
func NormalizeEvent(event string) string {
	event = strings.TrimSpace(event)
	switch {
	case strings.HasPrefix(event, "on_"):
		event = event[3:]
	case len(event) > 2 && strings.HasPrefix(event, "on") && event[2] >= 'A' && event[2] <= 'Z':
		event = event[2:]
	}
	var sb strings.Builder
	for i, r := range event {
		if r >= 'A' && r <= 'Z' && i > 0 {
			prev := event[i-1]
			if prev >= 'a' && prev <= 'z' || prev >= '0' && prev <= '9' {
				sb.WriteByte('_')
			}
		}
		sb.WriteRune(r)
	}
	return strings.ToUpper(sb.String())
}
