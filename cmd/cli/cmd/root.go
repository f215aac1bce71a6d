package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/keshon/discord-plugins/internal/config"
	"github.com/keshon/discord-plugins/internal/discord"
	"github.com/keshon/discord-plugins/internal/extensions/core"
	"github.com/keshon/discord-plugins/internal/extensions/manage"
	"github.com/keshon/discord-plugins/pkg/plugins"
	"github.com/spf13/cobra"
)

const usage = `Inspect the plugins the bot ships with, without connecting to Discord.

EXAMPLES:
  List every command by plugin:
    <program> list

  Print the application command definitions that would be synced:
    <program> definitions --plugin manage`

var pluginFilter string

var rootCmd = &cobra.Command{
	Use:   "cli",
	Short: "Inspect bot plugins offline",
	Long:  usage,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list the commands, listeners and loops of each plugin",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := builtin()
		if err != nil {
			return err
		}
		return writeList(cmd.OutOrStdout(), ps)
	},
}

var definitionsCmd = &cobra.Command{
	Use:   "definitions",
	Short: "print application command definitions as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := builtin()
		if err != nil {
			return err
		}
		b := discord.NewOffline(&config.Config{CommandPrefix: "!"}, nil)
		for _, p := range ps {
			if err := p.Load(context.Background(), b); err != nil {
				return err
			}
		}
		return writeDefinitions(cmd.OutOrStdout(), b)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&pluginFilter, "plugin", "p", "", "only show this plugin")
	rootCmd.AddCommand(listCmd, definitionsCmd)
}

// builtin builds the shipped plugins, filtered by --plugin.
func builtin() ([]*plugins.Plugin, error) {
	c, err := core.New()
	if err != nil {
		return nil, err
	}
	m, err := manage.New("")
	if err != nil {
		return nil, err
	}
	var out []*plugins.Plugin
	for _, p := range []*plugins.Plugin{c, m} {
		if pluginFilter == "" || p.Name() == pluginFilter {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("unknown plugin %q", pluginFilter)
	}
	return out, nil
}

// Execute the program using cobra
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
