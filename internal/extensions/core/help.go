package core

import (
	"fmt"
	"slices"
	"strings"

	"github.com/keshon/discord-plugins/internal/discord"
	"github.com/keshon/discord-plugins/pkg/plugins"
)

// HelpText lists the bot's visible commands grouped by the category of the
// plugin that owns them.
func HelpText(b *discord.Bot) string {
	byCategory := make(map[string][]string)
	add := func(entity plugins.ExtrasAware, line string) {
		byCategory[categoryOf(entity)] = append(byCategory[categoryOf(entity)], line)
	}

	for _, cmd := range b.SlashCommands() {
		add(cmd, fmt.Sprintf("`/%s` %s", cmd.Name, cmd.Description))
		for _, child := range cmd.Children() {
			switch n := child.(type) {
			case *plugins.SubCommand:
				add(cmd, fmt.Sprintf("`/%s` %s", n.QualifiedName(), n.Description))
			case *plugins.SubCommandGroup:
				for _, sub := range n.Children() {
					add(cmd, fmt.Sprintf("`/%s` %s", sub.QualifiedName(), sub.Description))
				}
			}
		}
	}
	for _, cmd := range b.Commands() {
		base := cmd.Base()
		if base.Hidden {
			continue
		}
		line := fmt.Sprintf("`%s%s`", b.Config().CommandPrefix, base.Name)
		if base.Help != "" {
			line += " " + base.Help
		}
		add(cmd, line)
	}
	for _, cmd := range b.UserCommands() {
		add(cmd, fmt.Sprintf("`%s` (user menu)", cmd.Name))
	}
	for _, cmd := range b.MessageCommands() {
		add(cmd, fmt.Sprintf("`%s` (message menu)", cmd.Name))
	}

	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	slices.Sort(categories)

	var sb strings.Builder
	for _, cat := range categories {
		fmt.Fprintf(&sb, "**%s**\n", cat)
		for _, line := range byCategory[cat] {
			sb.WriteString(line + "\n")
		}
		sb.WriteByte('\n')
	}
	return strings.TrimSpace(sb.String())
}

func categoryOf(entity plugins.ExtrasAware) string {
	owner, err := plugins.ParentPlugin(entity)
	if err != nil {
		return "Other"
	}
	if cat, ok := owner.Metadata().GetExtras()["category"].(string); ok && cat != "" {
		return cat
	}
	return owner.Name()
}
