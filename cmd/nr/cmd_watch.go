package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/daviddao/norepeat/pkg/engine"
	"github.com/daviddao/norepeat/pkg/model"
	"github.com/daviddao/norepeat/pkg/watch"
)

func (a *app) watchCmd() *cobra.Command {
	var poll time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the rotation current and print every change",
		Long: `Run in the foreground, reconciling at every slot boundary and whenever the
catalog file changes. Each change of the visible item is printed (one JSON
object per line with --json). Stop with ctrl-c.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.flags.at != "" {
				return fmt.Errorf("watch: --at is not supported")
			}
			w := cmd.OutOrStdout()
			show := func(c model.Change) {
				if a.flags.json {
					b, _ := json.Marshal(c)
					fmt.Fprintln(w, string(b))
					return
				}
				fmt.Fprintf(w, "%s  %-15s  %s\n",
					c.At.Format("2006-01-02 15:04:05"), reasonLabel(c.Reason), a.view(c.ItemID))
			}
			e := a.engine(engine.WithOnChange(show))
			r := watch.New(e, a.loadCandidates,
				watch.WithLogger(a.log),
				watch.WithCatalogPath(a.cfg.Catalog),
				watch.WithSchedulePoll(poll),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.ErrOrStderr(), "watching %s (schedule %s, ctrl-c to stop)\n",
				a.cfg.Catalog, e.Schedule())
			return r.Run(ctx)
		},
	}
	cmd.Flags().DurationVar(&poll, "schedule-poll", watch.DefaultSchedulePoll, "how often to re-read the schedule")
	return cmd
}
