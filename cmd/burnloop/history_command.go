package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"burnloop/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent engraving sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Sessions) == 0 {
					fmt.Fprintln(stdout, "No sessions recorded")
					return nil
				}

				rows := make([][]string, 0, len(resp.Sessions))
				for _, sess := range resp.Sessions {
					rows = append(rows, []string{
						shortID(sess.ID),
						sess.StartedAt.Local().Format("2006-01-02 15:04"),
						historyOutcome(sess),
						firstLine(sess.Lines),
						strconv.Itoa(sess.Copies),
						strconv.Itoa(sess.LayersCompleted),
						historyDuration(sess),
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"ID", "Started", "Outcome", "Line 1", "Copies", "Layers", "Duration"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum sessions to show")
	return historyCmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func firstLine(lines [3]string) string {
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

func historyOutcome(sess ipc.HistorySession) string {
	if sess.Active {
		return "active"
	}
	if sess.Outcome == "" {
		return "unknown"
	}
	return sess.Outcome
}

func historyDuration(sess ipc.HistorySession) string {
	if sess.Active {
		return time.Since(sess.StartedAt).Round(time.Second).String()
	}
	return sess.EndedAt.Sub(sess.StartedAt).Round(time.Second).String()
}
