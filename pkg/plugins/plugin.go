package plugins

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultPluginName = "plugin"

func packageLogger() zerolog.Logger {
	return log.Logger.With().Str("logger", "plugins").Logger()
}

// State is the lifecycle state of a plugin.
type State int

const (
	// StateUnbound means the plugin was never loaded into a bot.
	StateUnbound State = iota
	// StateBound means the plugin holds a bot handle. Unloading keeps it.
	StateBound
)

func (s State) String() string {
	if s == StateBound {
		return "bound"
	}
	return "unbound"
}

type options struct {
	metadata   Metadata
	logger     *zerolog.Logger
	loggerName string
}

// Option configures a Plugin or SubPlugin.
type Option func(*options)

func WithCommandAttrs(a CommandAttrs) Option {
	return func(o *options) { o.metadata.CommandAttrs = a }
}

func WithSlashCommandAttrs(a SlashCommandAttrs) Option {
	return func(o *options) { o.metadata.SlashCommandAttrs = a }
}

func WithUserCommandAttrs(a AppCommandAttrs) Option {
	return func(o *options) { o.metadata.UserCommandAttrs = a }
}

func WithMessageCommandAttrs(a AppCommandAttrs) Option {
	return func(o *options) { o.metadata.MessageCommandAttrs = a }
}

// WithExtras merges extras into the plugin's metadata extras.
func WithExtras(extras map[string]any) Option {
	return func(o *options) {
		if o.metadata.Extras == nil {
			o.metadata.Extras = make(map[string]any, len(extras))
		}
		maps.Copy(o.metadata.Extras, extras)
	}
}

// WithLogger sets the plugin logger. Ignored by sub-plugins, which log
// through their parent.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = &l }
}

// WithLoggerName derives the plugin logger from the global zerolog logger,
// tagged with logger=name.
func WithLoggerName(name string) Option {
	return func(o *options) { o.loggerName = name }
}

func buildOptions(name string, opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	o.metadata.Name = name
	if o.metadata.Name == "" {
		l := packageLogger()
		l.Warn().Msgf("plugin created without a name, using %q", defaultPluginName)
		o.metadata.Name = defaultPluginName
	}
	return o
}

// Plugin groups commands, listeners and loops so they can be loaded into and
// unloaded from a bot as one unit.
type Plugin struct {
	base

	logger zerolog.Logger

	mu  sync.RWMutex
	bot Bot

	preLoad    []Hook
	postLoad   []Hook
	preUnload  []Hook
	postUnload []Hook

	subPlugins []*SubPlugin
}

// New returns a plugin called name.
func New(name string, opts ...Option) *Plugin {
	o := buildOptions(name, opts)
	md := o.metadata
	return newPlugin(&md, o)
}

// NewWithMetadata returns a plugin using md as is. Options still apply on top.
func NewWithMetadata(md *Metadata, opts ...Option) *Plugin {
	o := buildOptions(md.Name, opts)
	md.Name = o.metadata.Name
	if o.metadata.Extras != nil {
		maps.Copy(md.GetExtras(), o.metadata.Extras)
	}
	return newPlugin(md, o)
}

func newPlugin(md *Metadata, o options) *Plugin {
	p := &Plugin{}
	p.base = newBase(p, md)
	switch {
	case o.logger != nil:
		p.logger = *o.logger
	case o.loggerName != "":
		p.logger = log.Logger.With().Str("logger", o.loggerName).Logger()
	default:
		p.logger = packageLogger()
	}
	return p
}

func (p *Plugin) Logger() zerolog.Logger { return p.logger }

// Bot returns the bot the plugin was loaded into, or ErrUnbound.
func (p *Plugin) Bot() (Bot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.bot == nil {
		return nil, ErrUnbound
	}
	return p.bot, nil
}

func (p *Plugin) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.bot == nil {
		return StateUnbound
	}
	return StateBound
}

func (p *Plugin) setBot(bot Bot) {
	p.mu.Lock()
	p.bot = bot
	p.mu.Unlock()
}

// LoadHook adds h to the hooks run before (post false) or after (post true)
// the plugin is loaded. Hooks of one stage run concurrently.
func (p *Plugin) LoadHook(post bool, h Hook) Hook {
	if post {
		p.postLoad = append(p.postLoad, h)
	} else {
		p.preLoad = append(p.preLoad, h)
	}
	return h
}

// UnloadHook adds h to the hooks run before or after the plugin is unloaded.
func (p *Plugin) UnloadHook(post bool, h Hook) Hook {
	if post {
		p.postUnload = append(p.postUnload, h)
	} else {
		p.preUnload = append(p.preUnload, h)
	}
	return h
}

// RegisterSubPlugin merges sub's entities into p and binds sub to p.
// Entities of sub replace same-named entities of p.
func (p *Plugin) RegisterSubPlugin(sub *SubPlugin) error {
	if parent, err := sub.Plugin(); err == nil {
		return fmt.Errorf("%w: sub-plugin %q is bound to plugin %q", ErrAlreadyBound, sub.Name(), parent.Name())
	}
	if !slices.Contains(p.subPlugins, sub) {
		p.subPlugins = append(p.subPlugins, sub)
	}
	p.store.update(sub.store)
	return sub.Bind(p)
}

// SubPlugins returns the sub-plugins registered on p.
func (p *Plugin) SubPlugins() []*SubPlugin {
	return append([]*SubPlugin(nil), p.subPlugins...)
}
