package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/interviewer/internal/archive"
	"github.com/zulandar/interviewer/internal/config"
	"github.com/zulandar/interviewer/internal/db"
	"gorm.io/gorm"
)

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect and prune the transcript archive",
		Long:  "The archive keeps an audit copy of every committed interview turn. It is never read back by the bot.",
	}

	cmd.AddCommand(newArchiveListCmd())
	cmd.AddCommand(newArchivePruneCmd())
	return cmd
}

func newArchiveListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to interviewer config file (default "+config.DefaultPath+" if present)")
	return cmd
}

func newArchivePruneCmd() *cobra.Command {
	var (
		configPath string
		days       int
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete archived turns older than the retention window",
		Long:  "Runs one prune immediately. --days overrides archive.retention_days for this run.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchivePrune(cmd, configPath, days)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to interviewer config file (default "+config.DefaultPath+" if present)")
	cmd.Flags().IntVar(&days, "days", 0, "retention window in days (default from config)")
	return cmd
}

// openArchive connects to the configured archive database and migrates it.
func openArchive(cfg *config.Config) (*gorm.DB, *archive.Store, error) {
	if err := cfg.RequireArchive(); err != nil {
		return nil, nil, err
	}
	gormDB, err := db.OpenAndMigrate(cfg.Archive.Driver, cfg.Archive.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open archive: %w", err)
	}
	store, err := archive.NewStore(archive.StoreOpts{DB: gormDB})
	if err != nil {
		db.Close(gormDB)
		return nil, nil, err
	}
	return gormDB, store, nil
}

// loadArchive loads config and opens the archive for the operator commands.
func loadArchive(configPath string) (*config.Config, *gorm.DB, *archive.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	gormDB, store, err := openArchive(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, gormDB, store, nil
}

func runArchiveList(cmd *cobra.Command, configPath string) error {
	_, gormDB, store, err := loadArchive(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	channels, err := store.Channels(context.Background())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(channels) == 0 {
		fmt.Fprintln(out, "No archived channels.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHANNEL\tGUILD\tTURNS\tLAST ACTIVITY")
	for _, c := range channels {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", c.ChannelID, c.GuildID, c.Turns, formatWhen(c.LastActivity))
	}
	return tw.Flush()
}

func runArchivePrune(cmd *cobra.Command, configPath string, days int) error {
	cfg, gormDB, store, err := loadArchive(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	if days <= 0 {
		days = cfg.Archive.RetentionDays
	}
	pruner, err := archive.NewPruner(archive.PrunerOpts{
		Store:         store,
		RetentionDays: days,
		Schedule:      cfg.Archive.PruneSchedule,
	})
	if err != nil {
		return err
	}

	n, err := pruner.RunOnce(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d turns created before %s\n", n, pruner.Cutoff().Format(time.RFC3339))
	return nil
}
