package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daviddao/norepeat/pkg/config"
	"github.com/daviddao/norepeat/pkg/schedule"
)

const starterCatalog = `# Items for nr to rotate through. Every id must be unique.
items:
  - id: welcome
    title: Welcome
    body: Replace these items with your own content.
    tags: [intro]
  - id: one-at-a-time
    title: One at a time
    body: Each slot shows one item. Nothing repeats until all have been shown.
  - id: shared
    title: Shared state
    body: Every process pointed at the same database sees the same item.
`

func (a *app) initCmd() *cobra.Command {
	var sched string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create config, starter catalog and database",
		Long: `Create the config file and a starter catalog if they do not exist, open the
database and store the rotation's schedule. Existing files and an existing
schedule are left alone unless --schedule is given.`,
		Args: cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			// The config file may not exist yet; that is what init is for.
			if p := a.flags.config; p != "" {
				if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
					return a.setupWith("")
				}
			}
			return a.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			cfgPath := a.flags.config
			if cfgPath == "" {
				cfgPath = a.cfg.Path
			}
			if cfgPath == "" {
				cfgPath = config.DefaultPath
			}
			if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
				if err := config.Write(cfgPath, a.cfg); err != nil {
					return fmt.Errorf("init: %w", err)
				}
				fmt.Fprintf(w, "  created %s\n", cfgPath)
			}

			if _, err := os.Stat(a.cfg.Catalog); errors.Is(err, os.ErrNotExist) {
				if err := os.WriteFile(a.cfg.Catalog, []byte(starterCatalog), 0o644); err != nil {
					return fmt.Errorf("init: create %s: %w", a.cfg.Catalog, err)
				}
				fmt.Fprintf(w, "  created %s\n", a.cfg.Catalog)
			}

			e := a.engine()
			_, saved, err := a.store.Adapter(a.cfg.Rotation).LoadScheduleConfig()
			switch {
			case sched != "":
				cfg, err := schedule.Parse(sched)
				if err != nil {
					return err
				}
				if err := e.SetSchedule(cfg); err != nil {
					return fmt.Errorf("init: %w", err)
				}
			case !saved || err != nil:
				if err := e.SetSchedule(a.cfg.ScheduleOrDefault()); err != nil {
					return fmt.Errorf("init: %w", err)
				}
			}

			fmt.Fprintf(w, "initialized norepeat (db: %s, rotation: %s, schedule: %s)\n",
				a.cfg.DB, e.Name(), e.Schedule())
			fmt.Fprintln(w)
			fmt.Fprintln(w, "next steps:")
			fmt.Fprintf(w, "  edit %s\n", a.cfg.Catalog)
			fmt.Fprintln(w, "  nr current     # item for this slot")
			fmt.Fprintln(w, "  nr timeline    # what comes next")
			return nil
		},
	}
	cmd.Flags().StringVar(&sched, "schedule", "", "once_per_day, twice_per_day or an hour list")
	return cmd
}
