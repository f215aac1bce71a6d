// Package plugins groups discordgo bot commands, listeners and loops into
// plugins that can be loaded into and unloaded from a running bot.
//
// A plugin is declared up front and loaded later:
//
//	p := plugins.New("fun")
//
//	ping, err := p.SlashCommand("ping", func(ctx context.Context, i *discordgo.InteractionCreate) error {
//	    return reply(ctx, i, "pong")
//	})
//
//	setup, teardown := p.CreateExtensionHandlers()
//
// Entities take their defaults from the plugin's Metadata, and every entity
// keeps a reference to its plugin in extras[ExtraPlugin] (see ParentPlugin).
// The host side is the Bot interface; internal/discord implements it over a
// discordgo session.
package plugins
