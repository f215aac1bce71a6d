// Package checks holds reusable plugin checks for the discordgo host.
// Each reads the *discord.Context the host puts in Invocation.Data.
package checks

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/discord-plugins/internal/discord"
	"github.com/keshon/discord-plugins/pkg/plugins"
)

var PermissionNames = map[int64]string{
	discordgo.PermissionKickMembers:      "Kick Members",
	discordgo.PermissionBanMembers:       "Ban Members",
	discordgo.PermissionAdministrator:    "Administrator",
	discordgo.PermissionManageChannels:   "Manage Channels",
	discordgo.PermissionManageGuild:      "Manage Server",
	discordgo.PermissionViewAuditLogs:    "View Audit Logs",
	discordgo.PermissionSendMessages:     "Send Messages",
	discordgo.PermissionManageMessages:   "Manage Messages",
	discordgo.PermissionMentionEveryone:  "Mention Everyone",
	discordgo.PermissionManageThreads:    "Manage Threads",
	discordgo.PermissionManageNicknames:  "Manage Nicknames",
	discordgo.PermissionManageRoles:      "Manage Roles",
	discordgo.PermissionManageWebhooks:   "Manage Webhooks",
	discordgo.PermissionManageEvents:     "Manage Events",
	discordgo.PermissionModerateMembers:  "Moderate Members",
	discordgo.PermissionVoiceMoveMembers: "Move Members",
}

func contextOf(inv *plugins.Invocation) (*discord.Context, error) {
	c, ok := inv.Data.(*discord.Context)
	if !ok || c == nil {
		return nil, fmt.Errorf("check on %q: unsupported invocation data %T", inv.Name, inv.Data)
	}
	return c, nil
}

// GuildOnly rejects invocations outside a guild.
func GuildOnly() plugins.Check {
	return func(ctx context.Context, inv *plugins.Invocation) (bool, error) {
		c, err := contextOf(inv)
		if err != nil {
			return false, err
		}
		return c.GuildID() != "", nil
	}
}

// RequirePermissions passes when the author holds every bit in perms in the
// current channel. Administrators always pass.
func RequirePermissions(perms int64) plugins.Check {
	return func(ctx context.Context, inv *plugins.Invocation) (bool, error) {
		c, err := contextOf(inv)
		if err != nil {
			return false, err
		}
		if c.GuildID() == "" {
			return false, nil
		}
		have, err := c.Permissions()
		if err != nil {
			return false, fmt.Errorf("failed to get user permissions: %w", err)
		}
		if have&discordgo.PermissionAdministrator != 0 {
			return true, nil
		}
		return have&perms == perms, nil
	}
}

// IsDeveloper passes only for the user with the given ID. An empty ID
// rejects everyone.
func IsDeveloper(userID string) plugins.Check {
	return func(ctx context.Context, inv *plugins.Invocation) (bool, error) {
		c, err := contextOf(inv)
		if err != nil {
			return false, err
		}
		u := c.Author()
		return userID != "" && u != nil && u.ID == userID, nil
	}
}

// DescribePermissions lists the known names of the bits in perms.
func DescribePermissions(perms int64) string {
	var names []string
	for bit, name := range PermissionNames {
		if perms&bit != 0 {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}
