package plugins

import (
	"context"

	"github.com/google/uuid"

	"github.com/keshon/discord-plugins/pkg/jobmgr"
)

// CreateExtensionHandlers returns entry points that load and unload the
// plugin in the background. They return immediately. Failures are logged on
// the plugin logger.
func (p *Plugin) CreateExtensionHandlers() (setup, teardown func(Bot)) {
	setup = func(bot Bot) {
		p.spawn("load", func(ctx context.Context) error { return p.Load(ctx, bot) })
	}
	teardown = func(bot Bot) {
		p.spawn("unload", func(ctx context.Context) error { return p.Unload(ctx, bot) })
	}
	return setup, teardown
}

// Extension bundles the handlers with the plugin name.
func (p *Plugin) Extension() Extension {
	setup, teardown := p.CreateExtensionHandlers()
	return Extension{Name: p.Name(), Setup: setup, Teardown: teardown}
}

func (p *Plugin) spawn(op string, run func(ctx context.Context) error) {
	id := uuid.New()
	err := jobmgr.DefaultManager.StartAsync(id, op+":"+p.Name(), func(ctx context.Context) error {
		err := run(ctx)
		if err != nil {
			p.logger.Error().Err(err).Str("plugin", p.Name()).Str("job", id.String()).Msgf("background %s failed", op)
		}
		return err
	})
	if err != nil {
		p.logger.Error().Err(err).Str("plugin", p.Name()).Msgf("could not start background %s", op)
	}
}
