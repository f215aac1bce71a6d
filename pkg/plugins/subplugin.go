package plugins

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// SubPlugin is a registry merged into a parent Plugin. It lets a plugin be
// split across packages: each part declares its entities on a SubPlugin and
// the parent registers them all with RegisterSubPlugin.
type SubPlugin struct {
	base

	mu     sync.RWMutex
	plugin *Plugin
}

// NewSubPlugin returns an unbound sub-plugin. Logger options are ignored.
func NewSubPlugin(name string, opts ...Option) *SubPlugin {
	o := buildOptions(name, opts)
	md := o.metadata
	s := &SubPlugin{}
	s.base = newBase(s, &md)
	return s
}

// Bind attaches s to p. It fails with ErrAlreadyBound when s already has a
// parent. Use Plugin.RegisterSubPlugin instead of calling Bind directly.
func (s *SubPlugin) Bind(p *Plugin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plugin != nil {
		return fmt.Errorf("%w: sub-plugin %q is bound to plugin %q", ErrAlreadyBound, s.Name(), s.plugin.Name())
	}
	s.plugin = p
	return nil
}

// Plugin returns the parent plugin, or ErrUnbound.
func (s *SubPlugin) Plugin() (*Plugin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.plugin == nil {
		return nil, fmt.Errorf("%w: sub-plugin %q has no parent plugin", ErrUnbound, s.Name())
	}
	return s.plugin, nil
}

// Bot returns the parent plugin's bot.
func (s *SubPlugin) Bot() (Bot, error) {
	p, err := s.Plugin()
	if err != nil {
		return nil, err
	}
	return p.Bot()
}

// Logger returns the parent plugin's logger, or the package logger before
// binding.
func (s *SubPlugin) Logger() zerolog.Logger {
	if p, err := s.Plugin(); err == nil {
		return p.Logger()
	}
	return packageLogger()
}

// ExternalSubCommand declares a subcommand of a slash command that lives
// elsewhere, usually in the parent plugin. parentName is "cmd" or
// "cmd group". The subcommand is attached when the parent plugin loads.
func (s *SubPlugin) ExternalSubCommand(parentName, name string, fn any, attrs ...SubCommandAttrs) (*SubCommandPlaceholder, error) {
	ph, err := newSubCommandPlaceholder(parentName, name, fn, attrs)
	if err != nil {
		return nil, err
	}
	s.store.placeholders = append(s.store.placeholders, ph)
	return ph, nil
}

// ExternalSubCommandGroup declares a subcommand group of a slash command
// that lives elsewhere.
func (s *SubPlugin) ExternalSubCommandGroup(parentName, name string, fn any, attrs ...SubCommandAttrs) (*SubCommandGroupPlaceholder, error) {
	ph, err := newSubCommandGroupPlaceholder(parentName, name, fn, attrs)
	if err != nil {
		return nil, err
	}
	s.store.placeholders = append(s.store.placeholders, ph)
	return ph, nil
}
