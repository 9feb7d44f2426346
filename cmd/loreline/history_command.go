package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"loreline/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var episodeFilter int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently processed episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			path := cfg.HistoryPath()
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(out, "No history recorded yet (%s)\n", path)
				return nil
			}

			store, err := history.Open(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			var entries []history.Entry
			if episodeFilter > 0 {
				entries, err = store.ForEpisode(cmd.Context(), episodeFilter)
				if limit > 0 && len(entries) > limit {
					entries = entries[:limit]
				}
			} else {
				entries, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No history recorded yet")
				return nil
			}
			fmt.Fprintln(out, renderHistory(entries, shouldColorize(out)))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().IntVarP(&episodeFilter, "episode", "e", 0, "Only show runs of this episode")
	return cmd
}

func renderHistory(entries []history.Entry, colorize bool) string {
	headers := []string{"Finished", "Run", "Episode", "Title", "Status", "Segments", "Fallbacks", "Minutes", "Detail"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		status := paint(string(e.Status), statusOK, colorize)
		detail := e.OutputPath
		if e.Status != history.StatusCompleted {
			status = paint(string(e.Status), statusError, colorize)
			detail = truncate(e.Error, 60)
		}
		rows = append(rows, []string{
			e.FinishedAt.Local().Format("2006-01-02 15:04"),
			shortRunID(e.RunID),
			fmt.Sprintf("%d", e.Episode),
			e.Title,
			status,
			fmt.Sprintf("%d", e.Segments),
			fmt.Sprintf("%d", e.Fallbacks),
			fmt.Sprintf("%.1f", e.Elapsed.Minutes()),
			detail,
		})
	}
	return renderTable(headers, rows, aligns)
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
