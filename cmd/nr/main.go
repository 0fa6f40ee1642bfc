// Command nr is the norepeat CLI: a non-repeating content rotation that
// several processes can share through one SQLite database.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fatal("%v", err)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "nr",
		Short: "Non-repeating content rotation",
		Long: `nr shows one item from a catalog per time slot and never repeats an item
until every candidate has been shown once.

Rotation state lives in a shared SQLite database, so a widget, a lock
screen renderer and a background watcher all agree on what is showing.

Environment:
  NOREPEAT_CONFIG    config file (default: .norepeat/config.yaml)
  NOREPEAT_DB        SQLite database path (default: .norepeat/norepeat.db)
  NOREPEAT_ROTATION  rotation namespace (default: default)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.Close()
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.flags.config, "config", "", "config file")
	f.StringVar(&a.flags.db, "db", "", "SQLite database path")
	f.StringVar(&a.flags.rotation, "rotation", "", "rotation namespace")
	f.StringVar(&a.flags.at, "at", "", "pretend the time is this (RFC 3339 or \"2006-01-02 15:04\")")
	f.BoolVar(&a.flags.json, "json", false, "JSON output")
	f.StringVar(&a.flags.logLevel, "log-level", "", "log level (debug|info|warn|error)")

	root.AddCommand(
		a.initCmd(),
		a.currentCmd(),
		a.nextCmd(),
		a.resetCmd(),
		a.timelineCmd(),
		a.statusCmd(),
		a.scheduleCmd(),
		a.logCmd(),
		a.watchCmd(),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// No database needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "nr", version)
		},
	}
}

// printJSON writes v to w as indented JSON.
func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "nr: "+format+"\n", args...)
	os.Exit(1)
}
