package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/daviddao/norepeat/pkg/catalog"
	"github.com/daviddao/norepeat/pkg/config"
	"github.com/daviddao/norepeat/pkg/engine"
	"github.com/daviddao/norepeat/pkg/logx"
	"github.com/daviddao/norepeat/pkg/model"
	"github.com/daviddao/norepeat/pkg/store"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	config   string
	db       string
	rotation string
	at       string
	json     bool
	logLevel string
}

// app holds shared state for all CLI subcommands.
type app struct {
	flags globalFlags

	cfg   config.Config
	loc   *time.Location
	log   logx.Logger
	store *store.Store
	cat   *catalog.Catalog
}

// setup loads the config, applies flag overrides and opens the database.
// Creates the database directory if it does not exist.
func (a *app) setup() error {
	return a.setupWith(a.flags.config)
}

// setupWith is setup with an explicit config path; "" means the default
// lookup.
func (a *app) setupWith(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if a.flags.db != "" {
		cfg.DB = a.flags.db
	}
	if a.flags.rotation != "" {
		cfg.Rotation = a.flags.rotation
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
	}
	a.cfg = cfg

	if a.loc, err = cfg.Location(); err != nil {
		return err
	}
	a.log = logx.New(cfg.Log)

	if dir := filepath.Dir(cfg.DB); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create %s: %w", dir, err)
		}
	}
	s, err := store.New(cfg.DB)
	if err != nil {
		return fmt.Errorf("cannot open database %q: %w", cfg.DB, err)
	}
	a.store = s
	return nil
}

// Close releases the database connection.
func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
}

// engine builds an engine over the configured rotation. Every visible
// change is appended to the history table.
func (a *app) engine(extra ...engine.Option) *engine.Engine {
	opts := []engine.Option{
		engine.WithLogger(a.log),
		engine.WithLocation(a.loc),
		engine.WithName(a.cfg.Rotation),
		engine.WithOnChange(a.recordHistory),
	}
	return engine.New(a.store.Adapter(a.cfg.Rotation), append(opts, extra...)...)
}

func (a *app) recordHistory(c model.Change) {
	if _, err := a.store.AppendHistory(c); err != nil {
		a.log.Warn("append history failed", logx.Err(err))
	}
}

// catalog loads the catalog file once per command.
func (a *app) catalog() (*catalog.Catalog, error) {
	if a.cat != nil {
		return a.cat, nil
	}
	c, err := catalog.Load(a.cfg.Catalog)
	if err != nil {
		return nil, err
	}
	a.cat = c
	return c, nil
}

// candidates returns the filtered catalog ids.
func (a *app) candidates() ([]string, error) {
	c, err := a.catalog()
	if err != nil {
		return nil, err
	}
	ids := catalog.IDs(c.Items(a.cfg.Filter))
	if len(ids) == 0 {
		return nil, fmt.Errorf("no candidates in %s (filter tags=%v exclude=%v)",
			a.cfg.Catalog, a.cfg.Filter.Tags, a.cfg.Filter.Exclude)
	}
	return ids, nil
}

// loadCandidates is the watch.Source for the configured catalog. It reads
// the file on every call.
func (a *app) loadCandidates() ([]string, error) {
	a.cat = nil
	return a.candidates()
}

// now returns --at when given, else the wall clock, in the configured zone.
func (a *app) now() (time.Time, error) {
	if a.flags.at == "" {
		return time.Now().In(a.loc), nil
	}
	return parseAt(a.flags.at, a.loc)
}

var atLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseAt(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range atLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("--at %q: want RFC 3339 or \"2006-01-02 15:04\"", s)
}

// itemView is the display form of an item.
type itemView struct {
	ID    string   `json:"id"`
	Title string   `json:"title,omitempty"`
	Body  string   `json:"body,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

func (a *app) view(id string) itemView {
	v := itemView{ID: id}
	if a.cat != nil {
		if it, ok := a.cat.Lookup(id); ok {
			v.Title, v.Body, v.Tags = it.Title, it.Body, it.Tags
		}
	}
	return v
}

func (v itemView) String() string {
	if v.Title == "" {
		return v.ID
	}
	return v.ID + "  " + v.Title
}
