package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/daviddao/norepeat/pkg/engine"
)

// itemResult is what current, next and reset print.
type itemResult struct {
	Rotation   string    `json:"rotation"`
	Item       itemView  `json:"item"`
	Marker     string    `json:"marker"`
	NextChange time.Time `json:"next_change"`
}

func (a *app) currentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the item for the current slot",
		Long: `Show the item for the current slot, advancing the rotation first if a
slot boundary has passed since the last call. Safe to call as often as you
like: within one slot the answer never changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runItem(cmd, func(e *engine.Engine, ids []string, now time.Time) (string, bool) {
				return e.CurrentItem(ids, now)
			})
		},
	}
}

// runItem loads candidates, runs op against a fresh engine and prints the
// resulting item.
func (a *app) runItem(cmd *cobra.Command, op func(*engine.Engine, []string, time.Time) (string, bool)) error {
	ids, err := a.candidates()
	if err != nil {
		return err
	}
	now, err := a.now()
	if err != nil {
		return err
	}
	e := a.engine()
	id, ok := op(e, ids, now)
	if !ok {
		return fmt.Errorf("no candidates")
	}

	sched := e.Schedule()
	res := itemResult{
		Rotation:   e.Name(),
		Item:       a.view(id),
		Marker:     sched.Marker(now),
		NextChange: sched.NextChange(now),
	}
	w := cmd.OutOrStdout()
	if a.flags.json {
		printJSON(w, res)
		return nil
	}
	fmt.Fprintln(w, res.Item)
	if res.Item.Body != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, res.Item.Body)
	}
	return nil
}
