package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/daviddao/norepeat/pkg/schedule"
)

func (a *app) scheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule [once_per_day|twice_per_day|HOURS]",
		Short: "Show or change when the rotation advances",
		Long: `Without an argument, print the schedule of the rotation. With one, replace
it: a preset name or a comma separated list of boundary hours ("6,12,18").

The new boundaries apply from the next call; the current item stays until
the slot marker under the new schedule differs from the last one consumed.`,
		Example: "  nr schedule\n  nr schedule twice_per_day\n  nr schedule 6,12,18",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := a.engine()
			if len(args) == 1 {
				cfg, err := schedule.Parse(args[0])
				if err != nil {
					return err
				}
				if err := e.SetSchedule(cfg); err != nil {
					return fmt.Errorf("save schedule: %w", err)
				}
			}
			now, err := a.now()
			if err != nil {
				return err
			}
			cfg := e.Schedule()

			w := cmd.OutOrStdout()
			if a.flags.json {
				printJSON(w, map[string]any{
					"rotation":    e.Name(),
					"schedule":    cfg.String(),
					"slot_hours":  cfg.SlotHours(),
					"cron":        cfg.CronSpec(),
					"marker":      cfg.Marker(now),
					"next_change": cfg.NextChange(now),
				})
				return nil
			}
			fmt.Fprintf(w, "schedule:    %s\n", cfg)
			fmt.Fprintf(w, "slot hours:  %s\n", joinInts(cfg.SlotHours()))
			fmt.Fprintf(w, "cron:        %s\n", cfg.CronSpec())
			fmt.Fprintf(w, "next change: %s\n", cfg.NextChange(now).Format(time.RFC3339))
			return nil
		},
	}
}
