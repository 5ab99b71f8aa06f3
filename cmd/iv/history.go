package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/interviewer/internal/config"
	"github.com/zulandar/interviewer/internal/db"
	"github.com/zulandar/interviewer/internal/models"
)

func newHistoryCmd() *cobra.Command {
	var (
		configPath string
		limit      int
		width      int
	)

	cmd := &cobra.Command{
		Use:   "history <channel-id>",
		Short: "Print an archived interview transcript",
		Long:  "Prints the archived turns of one channel, oldest first. --limit keeps only the most recent turns.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, configPath, args[0], limit, width)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to interviewer config file (default "+config.DefaultPath+" if present)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the last N turns (0 for all)")
	cmd.Flags().IntVarP(&width, "width", "w", 0, "wrap width, at least 40 (default: terminal width)")
	return cmd
}

func runHistory(cmd *cobra.Command, configPath, channelID string, limit, width int) error {
	_, gormDB, store, err := loadArchive(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	turns, err := store.ChannelHistory(context.Background(), channelID, limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(turns) == 0 {
		return fmt.Errorf("no archived turns for channel %s", channelID)
	}
	if width <= 0 {
		width = termWidth(out)
	}
	printTranscript(out, channelID, turns, width)
	return nil
}

// printTranscript writes turns with a header line per turn and the content
// wrapped and indented below it. Widths below minWidth are raised to it.
func printTranscript(out io.Writer, channelID string, turns []models.ArchivedTurn, width int) {
	width = max(width, minWidth)
	fmt.Fprintf(out, "Channel %s (%d turns)\n", channelID, len(turns))
	const indent = "    "
	for _, t := range turns {
		fmt.Fprintf(out, "\n#%d %s  %s\n", t.Sequence, formatWhen(t.CreatedAt), speaker(t))
		for _, line := range wrapText(t.Content, width-len(indent)) {
			fmt.Fprintln(out, strings.TrimRight(indent+line, " "))
		}
	}
}
