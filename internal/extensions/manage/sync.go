package manage

import (
	"context"
	"time"

	"github.com/keshon/discord-plugins/internal/discord"
	"github.com/keshon/discord-plugins/pkg/globalctx"
	"github.com/keshon/discord-plugins/pkg/plugins"
)

const syncTimeout = time.Minute

// lastSync is shared with the core plugin's about command.
var lastSync = globalctx.Local[time.Time]("manage", "last_sync")

// newSyncPlugin contributes /manage sync. It declares the subcommand
// against a parent it does not own; the parent plugin attaches it on load.
func newSyncPlugin() (*plugins.SubPlugin, error) {
	sp := plugins.NewSubPlugin("manage-sync")
	_, err := sp.ExternalSubCommand("manage", "sync", syncNow, plugins.SubCommandAttrs{
		Description: plugins.Ptr("Push application commands to Discord now"),
	})
	if err != nil {
		return nil, err
	}
	return sp, nil
}

func syncNow(ctx context.Context, dctx *discord.Context) error {
	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()
	if err := dctx.Bot.SyncCommands(ctx); err != nil {
		return err
	}
	lastSync.Set(time.Now())
	return dctx.Reply("Application commands synced.")
}
