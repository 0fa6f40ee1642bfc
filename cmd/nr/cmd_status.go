package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/daviddao/norepeat/pkg/model"
)

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show rotation progress without advancing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Status works without a catalog; drift just cannot be detected.
			ids, _ := a.candidates()
			now, err := a.now()
			if err != nil {
				return err
			}
			st := a.engine().Status(ids, now)
			rotations, _ := a.store.ListRotations()
			changes := a.store.CountHistory(st.Rotation)

			w := cmd.OutOrStdout()
			if a.flags.json {
				printJSON(w, map[string]any{
					"status":    st,
					"rotations": rotations,
					"changes":   changes,
				})
				return nil
			}

			fmt.Fprintf(w, "rotation:  %s\n", st.Rotation)
			fmt.Fprintf(w, "schedule:  %s (hours %s)\n", st.Schedule, joinInts(st.SlotHours))
			if st.CurrentID != "" {
				fmt.Fprintf(w, "showing:   %s\n", a.view(st.CurrentID))
			} else {
				fmt.Fprintln(w, "showing:   nothing yet")
			}
			if st.Size > 0 {
				fmt.Fprintf(w, "progress:  %d/%d shown, %d to go\n",
					min(st.Cursor+1, st.Size), st.Size, max(0, st.Remaining-1))
				fmt.Fprintf(w, "shuffled:  %s\n", relTime(st.CreatedAt, now))
				fmt.Fprintf(w, "advanced:  %s\n", relTime(st.AdvancedAt, now))
			}
			fmt.Fprintf(w, "slot:      %s (last consumed %s)\n", st.Marker, orDash(st.LastMarker))
			fmt.Fprintf(w, "next:      %s\n", relTime(st.NextChange, now))
			fmt.Fprintf(w, "changes:   %s recorded\n", humanize.Comma(changes))
			if st.Stale {
				fmt.Fprintln(w, "state:     stale (next `nr current` will reconcile)")
			}
			if len(rotations) > 1 {
				fmt.Fprintf(w, "rotations: %s\n", strings.Join(rotations, ", "))
			}
			return nil
		},
	}
}

func relTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04") + " (" + humanize.RelTime(t, now, "ago", "from now") + ")"
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprintf("%02d:00", n)
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// reasonLabel is the short human form of a change reason.
func reasonLabel(r model.ChangeReason) string {
	switch r {
	case model.ReasonInit:
		return "first shuffle"
	case model.ReasonDrift:
		return "catalog changed"
	case model.ReasonScheduled:
		return "slot change"
	case model.ReasonManual:
		return "skipped"
	case model.ReasonReset:
		return "reset"
	case model.ReasonFallback:
		return "fallback"
	case model.ReasonSync:
		return "resync"
	default:
		return string(r)
	}
}
