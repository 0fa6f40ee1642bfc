package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) logCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent item changes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.store.ListHistory(a.cfg.Rotation, limit)
			if err != nil {
				return fmt.Errorf("log: %w", err)
			}
			// Titles are a nicety; the log works without a catalog.
			_, _ = a.catalog()

			w := cmd.OutOrStdout()
			if a.flags.json {
				printJSON(w, map[string]any{"entries": entries, "count": len(entries)})
				return nil
			}
			if len(entries) == 0 {
				fmt.Fprintln(w, "no changes")
				return nil
			}
			for _, h := range entries {
				fmt.Fprintf(w, "%s  %-15s  %s\n",
					h.At.In(a.loc).Format("2006-01-02 15:04"), reasonLabel(h.Reason), a.view(h.ItemID))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "max entries")
	return cmd
}
