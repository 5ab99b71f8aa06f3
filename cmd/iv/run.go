package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/interviewer/internal/archive"
	"github.com/zulandar/interviewer/internal/completion"
	"github.com/zulandar/interviewer/internal/config"
	"github.com/zulandar/interviewer/internal/dashboard"
	"github.com/zulandar/interviewer/internal/db"
	"github.com/zulandar/interviewer/internal/interview"
	"github.com/zulandar/interviewer/internal/interview/discord"
	"github.com/zulandar/interviewer/internal/session"
	"github.com/zulandar/interviewer/internal/telemetry"
)

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the interview bot",
		Long:  "Connects to Discord, registers the slash commands in the configured guild, and relays interviews until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to interviewer config file (default "+config.DefaultPath+" if present)")
	return cmd
}

func runBot(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.RequireBot(); err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle OS signals for graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	tp, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Printf("telemetry: shutdown: %v", err)
		}
	}()

	client, err := completion.New(completion.ClientOpts{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
	})
	if err != nil {
		return err
	}

	store := session.NewStore(cfg.Interview.Instruction)

	coordOpts := interview.CoordinatorOpts{
		Store:         store,
		Client:        client,
		CategoryID:    cfg.Discord.CategoryID,
		MaxMessageLen: cfg.Interview.MaxMessageLen,
	}

	var archiveStore *archive.Store
	if !cfg.Archive.Disabled {
		gormDB, as, err := openArchive(cfg)
		if err != nil {
			return err
		}
		defer db.Close(gormDB)
		archiveStore = as
		coordOpts.Recorder = as

		pruner, err := archive.NewPruner(archive.PrunerOpts{
			Store:         as,
			RetentionDays: cfg.Archive.RetentionDays,
			Schedule:      cfg.Archive.PruneSchedule,
		})
		if err != nil {
			return err
		}
		pruner.Start()
		defer pruner.Stop()
		fmt.Fprintf(out, "Archive: %s (retention %d days, next prune %s)\n",
			cfg.Archive.Driver, cfg.Archive.RetentionDays, pruner.Next().Format(time.RFC3339))
	}

	coordinator, err := interview.NewCoordinator(coordOpts)
	if err != nil {
		return err
	}

	if cfg.Status.Addr != "" {
		routerOpts := dashboard.RouterOpts{Sessions: store, Version: Version}
		if archiveStore != nil {
			routerOpts.Archive = archiveStore
		}
		go func() {
			err := dashboard.Start(ctx, dashboard.StartOpts{
				Router: routerOpts,
				Addr:   cfg.Status.Addr,
				Out:    out,
			})
			if err != nil {
				log.Printf("status server: %v", err)
			}
		}()
	}

	adapter, err := discord.New(discord.AdapterOpts{
		BotToken:      cfg.Discord.Token,
		ApplicationID: cfg.Discord.ClientID,
		GuildID:       cfg.Discord.GuildID,
	})
	if err != nil {
		return err
	}

	daemon, err := interview.NewDaemon(interview.DaemonOpts{
		Adapter:     adapter,
		Coordinator: coordinator,
		Out:         out,
	})
	if err != nil {
		return err
	}
	return daemon.Run(ctx)
}
