package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/discord-plugins/internal/discord"
	"github.com/keshon/discord-plugins/pkg/plugins"
)

func writeList(w io.Writer, ps []*plugins.Plugin) error {
	for _, p := range ps {
		fmt.Fprintf(w, "%s\n", p.Name())
		for _, c := range p.Commands() {
			fmt.Fprintf(w, "  prefix   %s\n", c.QualifiedName())
		}
		for _, c := range p.SlashCommands() {
			fmt.Fprintf(w, "  slash    /%s\n", c.Name)
			for _, child := range c.Children() {
				fmt.Fprintf(w, "  slash    /%s\n", child.QualifiedName())
			}
		}
		for _, c := range p.UserCommands() {
			fmt.Fprintf(w, "  user     %s\n", c.Name)
		}
		for _, c := range p.MessageCommands() {
			fmt.Fprintf(w, "  message  %s\n", c.Name)
		}
		listeners := p.Listeners()
		for _, event := range slices.Sorted(maps.Keys(listeners)) {
			fmt.Fprintf(w, "  listener %s (%d)\n", event, len(listeners[event]))
		}
		for _, l := range p.Loops() {
			fmt.Fprintf(w, "  loop     %s\n", l.Name())
		}
		for _, sp := range p.SubPlugins() {
			fmt.Fprintf(w, "  sub      %s\n", sp.Name())
		}
	}
	return nil
}

func writeDefinitions(w io.Writer, b *discord.Bot) error {
	var defs []*discordgo.ApplicationCommand
	for _, c := range b.SlashCommands() {
		defs = append(defs, c.Definition())
	}
	for _, c := range b.UserCommands() {
		defs = append(defs, c.Definition())
	}
	for _, c := range b.MessageCommands() {
		defs = append(defs, c.Definition())
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(defs)
}
