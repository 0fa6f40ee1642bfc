// Package schedule describes when a rotation advances.
//
// A Config splits every calendar day into N slots at fixed boundary hours
// h0 < h1 < ... < h(N-1). Slot i covers [h_i, h_(i+1)); the last slot wraps
// past midnight and covers [h(N-1), 24) and [0, h0). A single-slot config
// always reports slot 0.
//
// Configs are immutable values. They are built from a preset name
// ("once_per_day", "twice_per_day") or from an explicit hour list, and are
// only ever replaced wholesale.
package schedule

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Preset names as persisted.
const (
	OncePerDayName  = "once_per_day"
	TwicePerDayName = "twice_per_day"
)

var (
	// OncePerDay changes the item once a day at 04:00.
	OncePerDay = Config{name: OncePerDayName, hours: []int{4}}
	// TwicePerDay changes the item at 04:00 and 16:00.
	TwicePerDay = Config{name: TwicePerDayName, hours: []int{4, 16}}
)

// Default is used whenever no schedule has been persisted.
var Default = OncePerDay

// Config is a validated slot schedule. The zero value behaves like Default.
type Config struct {
	name  string
	hours []int
}

// New builds a custom schedule from strictly increasing hours in [0, 24).
func New(hours ...int) (Config, error) {
	if len(hours) == 0 {
		return Config{}, fmt.Errorf("schedule: at least one slot hour is required")
	}
	for i, h := range hours {
		if h < 0 || h > 23 {
			return Config{}, fmt.Errorf("schedule: hour %d out of range [0, 24)", h)
		}
		if i > 0 && h <= hours[i-1] {
			return Config{}, fmt.Errorf("schedule: hours must be strictly increasing, got %v", hours)
		}
	}
	cfg := Config{hours: slices.Clone(hours)}
	for _, p := range presets {
		if slices.Equal(p.hours, cfg.hours) {
			return p, nil
		}
	}
	return cfg, nil
}

// MustNew is like New but panics on an invalid hour list. Intended for
// package-level tables and tests.
func MustNew(hours ...int) Config {
	cfg, err := New(hours...)
	if err != nil {
		panic(err)
	}
	return cfg
}

var presets = []Config{OncePerDay, TwicePerDay}

// Parse accepts a preset name or a comma separated hour list ("6,12,18").
func Parse(s string) (Config, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "", OncePerDayName, "once":
		return OncePerDay, nil
	case TwicePerDayName, "twice":
		return TwicePerDay, nil
	}
	parts := strings.Split(s, ",")
	hours := make([]int, 0, len(parts))
	for _, p := range parts {
		h, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Config{}, fmt.Errorf("schedule: unknown schedule %q (use %s, %s or an hour list like \"6,12,18\")",
				s, OncePerDayName, TwicePerDayName)
		}
		hours = append(hours, h)
	}
	return New(hours...)
}

func (c Config) slots() []int {
	if len(c.hours) == 0 {
		return Default.hours
	}
	return c.hours
}

// String returns the preset name, or the hour list for custom schedules.
func (c Config) String() string {
	if len(c.hours) == 0 {
		return Default.name
	}
	if c.name != "" {
		return c.name
	}
	parts := make([]string, len(c.hours))
	for i, h := range c.hours {
		parts[i] = strconv.Itoa(h)
	}
	return strings.Join(parts, ",")
}

// MarshalText implements encoding.TextMarshaler.
func (c Config) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Config) UnmarshalText(b []byte) error {
	cfg, err := Parse(string(b))
	if err != nil {
		return err
	}
	*c = cfg
	return nil
}

// Equal reports whether both configs have the same boundaries.
func (c Config) Equal(o Config) bool { return slices.Equal(c.slots(), o.slots()) }

// SlotsPerDay returns the number of slots.
func (c Config) SlotsPerDay() int { return len(c.slots()) }

// SlotHours returns a copy of the boundary hours.
func (c Config) SlotHours() []int { return slices.Clone(c.slots()) }

// SlotIndex returns the 0-based slot that t falls into, evaluated in t's
// location.
func (c Config) SlotIndex(t time.Time) int {
	hours := c.slots()
	if len(hours) == 1 {
		return 0
	}
	// Before the first boundary we are still in yesterday's last slot.
	h := t.Hour()
	idx := len(hours) - 1
	for i, boundary := range hours {
		if h >= boundary {
			idx = i
		}
	}
	return idx
}

// Marker identifies the (calendar date, slot) pair of t, e.g. "2024-03-11-0".
func (c Config) Marker(t time.Time) string {
	return t.Format(time.DateOnly) + "-" + strconv.Itoa(c.SlotIndex(t))
}

// NextChange returns the first slot boundary strictly after t. When t is at
// or past the last boundary of its day, the first boundary of the next day
// is returned.
//
// Only boundaries are reported. Marker is keyed on the calendar date of its
// argument, so inside a slot that wraps past midnight (16:00 to 04:00 for
// TwicePerDay) the marker also changes at 00:00, and a caller checking just
// after midnight advances the rotation there. NextChange, and every timeline
// built on it, never lists that midnight change.
func (c Config) NextChange(after time.Time) time.Time {
	hours := c.slots()
	y, m, d := after.Date()
	loc := after.Location()
	for _, h := range hours {
		b := time.Date(y, m, d, h, 0, 0, 0, loc)
		if b.After(after) {
			return b
		}
	}
	return time.Date(y, m, d+1, hours[0], 0, 0, 0, loc)
}

// Next implements cron.Schedule so a Config can drive a cron runner directly.
func (c Config) Next(t time.Time) time.Time { return c.NextChange(t) }

// CronSpec renders the boundaries as a standard five-field cron expression.
// Reminder subsystems only need this (or SlotHours) to line up with the
// rotation.
func (c Config) CronSpec() string {
	hours := c.slots()
	parts := make([]string, len(hours))
	for i, h := range hours {
		parts[i] = strconv.Itoa(h)
	}
	return "0 " + strings.Join(parts, ",") + " * * *"
}
