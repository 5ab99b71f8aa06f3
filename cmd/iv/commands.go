package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/interviewer/internal/config"
	"github.com/zulandar/interviewer/internal/interview"
	"github.com/zulandar/interviewer/internal/interview/discord"
)

func newCommandsCmd() *cobra.Command {
	var (
		configPath string
		list       bool
	)

	cmd := &cobra.Command{
		Use:   "commands",
		Short: "Register the slash commands and exit",
		Long:  "Overwrites the bot's slash commands in the configured guild. With --list, prints them without contacting Discord.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				printCommands(cmd)
				return nil
			}
			return runCommands(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to interviewer config file (default "+config.DefaultPath+" if present)")
	cmd.Flags().BoolVar(&list, "list", false, "print the commands instead of registering them")
	return cmd
}

func printCommands(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	for _, c := range interview.Commands() {
		usage := "/" + c.Name
		for _, o := range c.Options {
			usage += " <" + o.Name + ">"
		}
		fmt.Fprintf(out, "%-28s %s\n", usage, c.Description)
	}
}

func runCommands(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.RequireCommands(); err != nil {
		return err
	}

	adapter, err := discord.New(discord.AdapterOpts{
		BotToken:      cfg.Discord.Token,
		ApplicationID: cfg.Discord.ClientID,
		GuildID:       cfg.Discord.GuildID,
	})
	if err != nil {
		return err
	}
	return registerCommands(context.Background(), cmd, adapter, cfg.Discord.GuildID)
}

// registerCommands connects the adapter, overwrites the command set, and
// closes the connection.
func registerCommands(ctx context.Context, cmd *cobra.Command, adapter interview.Adapter, guildID string) error {
	if err := adapter.Connect(ctx); err != nil {
		return err
	}
	defer adapter.Close()

	cmds := interview.Commands()
	if err := adapter.RegisterCommands(ctx, cmds); err != nil {
		return err
	}

	scope := "globally"
	if guildID != "" {
		scope = "in guild " + guildID
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registered %d slash commands %s\n", len(cmds), scope)
	return nil
}
