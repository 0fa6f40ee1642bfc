package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/daviddao/norepeat/pkg/engine"
)

type timelineEntry struct {
	At   time.Time `json:"at"`
	Item itemView  `json:"item"`
}

func (a *app) timelineCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Preview upcoming items without changing anything",
		Long: `Print the item showing now and the items the next slot boundaries will
bring. Nothing is persisted. A renderer should display the first entry and
refresh no later than refresh_at (the second entry's time).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := a.candidates()
			if err != nil {
				return err
			}
			now, err := a.now()
			if err != nil {
				return err
			}
			e := a.engine()
			entries := e.ProjectTimeline(ids, now, count)

			out := make([]timelineEntry, len(entries))
			for i, te := range entries {
				out[i] = timelineEntry{At: te.At, Item: a.view(te.ItemID)}
			}
			var refreshAt time.Time
			if len(out) > 1 {
				refreshAt = out[1].At
			}

			w := cmd.OutOrStdout()
			if a.flags.json {
				printJSON(w, map[string]any{
					"rotation":   e.Name(),
					"entries":    out,
					"refresh_at": refreshAt,
				})
				return nil
			}
			for i, te := range out {
				label := te.At.Format("Mon 2006-01-02 15:04")
				if i == 0 {
					label = "now" + fmt.Sprintf("%*s", len(label)-3, "")
				}
				fmt.Fprintf(w, "%s  %s\n", label, te.Item)
			}
			if !refreshAt.IsZero() {
				fmt.Fprintf(w, "refresh_at: %s\n", refreshAt.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", engine.DefaultTimelineCount, "number of entries")
	return cmd
}
