package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviddao/norepeat/pkg/catalog"
	"github.com/daviddao/norepeat/pkg/logx"
	"github.com/daviddao/norepeat/pkg/schedule"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvConfig, EnvDB, EnvRotation} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingDefaultFileGivesDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Empty(t, cfg.Path)
	assert.True(t, cfg.ScheduleOrDefault().Equal(schedule.Default))
}

func TestLoad_MissingExplicitFileIsAnError(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	p := writeConfig(t, `
db: data/rot.db
catalog: quotes.yaml
rotation: widget
schedule: twice_per_day
timezone: Europe/Berlin
filter:
  tags: [short]
  exclude: [draft]
log:
  level: debug
  format: json
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "data/rot.db", cfg.DB)
	assert.Equal(t, "quotes.yaml", cfg.Catalog)
	assert.Equal(t, "widget", cfg.Rotation)
	require.NotNil(t, cfg.Schedule)
	assert.True(t, cfg.Schedule.Equal(schedule.TwicePerDay))
	assert.Equal(t, catalog.Filter{Tags: []string{"short"}, Exclude: []string{"draft"}}, cfg.Filter)
	assert.Equal(t, logx.Config{Level: "debug", Format: "json"}, cfg.Log)
	assert.Equal(t, p, cfg.Path)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoad_CustomScheduleHours(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, "schedule: \"6,12,18\"\n"))
	require.NoError(t, err)
	require.NotNil(t, cfg.Schedule)
	assert.Equal(t, []int{6, 12, 18}, cfg.Schedule.SlotHours())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, "rotation: lock-screen\n"))
	require.NoError(t, err)
	assert.Equal(t, "lock-screen", cfg.Rotation)
	assert.Equal(t, DefaultDB, cfg.DB)
	assert.Equal(t, DefaultCatalog, cfg.Catalog)
	assert.Nil(t, cfg.Schedule)
}

func TestLoad_EmptyFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultDB, cfg.DB)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", "databse: x.db\n"},
		{"bad schedule", "schedule: hourly\n"},
		{"bad hour", "schedule: \"4,25\"\n"},
		{"bad timezone", "timezone: Mars/Olympus\n"},
		{"bad log format", "log:\n  format: xml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	p := writeConfig(t, "db: file.db\nrotation: file\n")
	t.Setenv(EnvConfig, p)
	t.Setenv(EnvDB, "env.db")
	t.Setenv(EnvRotation, "env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, p, cfg.Path)
	assert.Equal(t, "env.db", cfg.DB)
	assert.Equal(t, "env", cfg.Rotation)
}

func TestLocation_Local(t *testing.T) {
	for _, tz := range []string{"", "Local", "local"} {
		loc, err := Config{Timezone: tz}.Location()
		require.NoError(t, err)
		assert.Equal(t, time.Local, loc)
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	clearEnv(t)
	sched := schedule.TwicePerDay
	want := Config{
		DB:       "x.db",
		Catalog:  "c.yaml",
		Rotation: "r",
		Schedule: &sched,
		Timezone: "UTC",
		Filter:   catalog.Filter{Tags: []string{"a"}},
		Log:      logx.Config{Level: "info"},
	}
	p := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, Write(p, want))

	got, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "x.db", got.DB)
	assert.Equal(t, "c.yaml", got.Catalog)
	assert.Equal(t, "r", got.Rotation)
	require.NotNil(t, got.Schedule)
	assert.True(t, got.Schedule.Equal(schedule.TwicePerDay))
	assert.Equal(t, "UTC", got.Timezone)
	assert.Equal(t, want.Filter, got.Filter)
	assert.Equal(t, want.Log, got.Log)
}

func TestEnvOr(t *testing.T) {
	t.Setenv("TEST_NR_ENV", "hello")
	assert.Equal(t, "hello", envOr("TEST_NR_ENV", "default"))
	t.Setenv("TEST_NR_EMPTY", "")
	assert.Equal(t, "default", envOr("TEST_NR_EMPTY", "default"))
	assert.Equal(t, "fallback", envOr("TEST_NR_UNSET_KEY_XYZ", "fallback"))
}
