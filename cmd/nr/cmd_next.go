package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/daviddao/norepeat/pkg/engine"
)

func (a *app) nextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Skip to the next item now",
		Long: `Skip to the next item regardless of the schedule. The current slot counts
as consumed, so the new item stays until the next slot boundary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runItem(cmd, func(e *engine.Engine, ids []string, now time.Time) (string, bool) {
				return e.AdvanceManually(ids, now)
			})
		},
	}
}
