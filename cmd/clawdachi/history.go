package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ashureev/clawdachi/internal/store"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently applied status changes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := store.NewSQLite(a.cfg.History.DBPath)
			if err != nil {
				return err
			}
			defer repo.Close()

			changes, err := repo.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), changes)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of changes to show")
	return cmd
}

func printHistory(w io.Writer, changes []store.Change) error {
	if len(changes) == 0 {
		_, err := fmt.Fprintln(w, "no history")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "WHEN\tSTATUS\tTOOL\tANIMATION\tSOURCE\tSESSION")
	for _, c := range changes {
		status := string(c.Status)
		if c.Stale {
			status += " (stale)"
		}
		tool := c.ToolName
		if tool == "" {
			tool = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			humanize.Time(c.AppliedAt), status, tool, c.Animation, c.Source, c.SessionID)
	}
	return tw.Flush()
}
