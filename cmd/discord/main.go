// cmd/discord/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/keshon/buildinfo"
	"github.com/keshon/discord-plugins/internal/config"
	"github.com/keshon/discord-plugins/internal/discord"
	"github.com/keshon/discord-plugins/internal/extensions/core"
	"github.com/keshon/discord-plugins/internal/extensions/manage"
	"github.com/keshon/discord-plugins/internal/logging"
	"github.com/keshon/discord-plugins/internal/storage"
	"github.com/keshon/discord-plugins/pkg/plugins"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.New()
	logging.Setup(cfg.LogLevel, cfg.LogFile)
	info := buildinfo.Get()
	log.Info().
		Str("version", info.Version).
		Str("commit", info.Commit).
		Str("build_time", info.BuildTime).
		Str("go", info.GoVersion).
		Str("platform", info.Platform).
		Msgf("Starting %v bot...", core.AppName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(ctx, cfg.StoragePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer store.Close()

	bot, err := discord.NewBot(cfg, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bot")
	}

	for _, ext := range extensions(cfg) {
		if err := bot.LoadExtension(ext); err != nil {
			log.Fatal().Err(err).Str("extension", ext.Name).Msg("failed to load extension")
		}
	}

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("Received signal, shutting down...")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("Discord bot error")
		}
		cancel()
	}

	log.Info().Msg("Discord bot exited cleanly")
}

// extensions builds the plugins the bot ships with.
func extensions(cfg *config.Config) []plugins.Extension {
	c, err := core.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build core plugin")
	}
	m, err := manage.New(cfg.DeveloperID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build manage plugin")
	}
	return []plugins.Extension{c.Extension(), m.Extension()}
}
