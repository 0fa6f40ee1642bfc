package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/daviddao/norepeat/pkg/engine"
)

func (a *app) resetCmd() *cobra.Command {
	var pin string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Start a fresh shuffle",
		Long: `Discard the current rotation and start a fresh shuffle of the candidates.
With --pin, that item is shown first and stays until the next slot boundary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pin != "" {
				ids, err := a.candidates()
				if err != nil {
					return err
				}
				if !slices.Contains(ids, pin) {
					return fmt.Errorf("reset: --pin %q is not a candidate", pin)
				}
			}
			return a.runItem(cmd, func(e *engine.Engine, ids []string, now time.Time) (string, bool) {
				return e.Reset(ids, pin, now)
			})
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "item id to show first")
	return cmd
}
