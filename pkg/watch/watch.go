// Package watch keeps a rotation reconciled in a long-running process.
//
// A Runner reconciles once at start, then again at every slot boundary of
// the persisted schedule (a robfig/cron entry driven by schedule.Config) and
// whenever the catalog file changes on disk. Reconciles are serialized on a
// single goroutine and throttled by a rate limiter, so an editor that writes
// the catalog in several steps costs one reload.
//
// Other processes may change the schedule through the shared database; the
// runner polls for that and re-registers its cron entry.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/daviddao/norepeat/pkg/engine"
	"github.com/daviddao/norepeat/pkg/logx"
	"github.com/daviddao/norepeat/pkg/schedule"
)

// Defaults.
const (
	DefaultSchedulePoll = time.Minute
	DefaultMinInterval  = 500 * time.Millisecond
)

// Source returns the current candidate ids.
type Source func() ([]string, error)

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Default discards.
func WithLogger(l logx.Logger) Option { return func(r *Runner) { r.log = l } }

// WithCatalogPath watches path and reloads the Source when it changes.
func WithCatalogPath(path string) Option { return func(r *Runner) { r.path = path } }

// WithClock overrides the wall clock used for reconciles.
func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

// WithSchedulePoll sets how often the persisted schedule is re-read.
func WithSchedulePoll(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.poll = d
		}
	}
}

// WithMinInterval sets the minimum time between two reconciles.
func WithMinInterval(d time.Duration) Option {
	return func(r *Runner) { r.limiter = rate.NewLimiter(rate.Every(d), 1) }
}

// Runner drives an engine from cron ticks and catalog changes.
type Runner struct {
	eng     *engine.Engine
	source  Source
	path    string
	log     logx.Logger
	now     func() time.Time
	poll    time.Duration
	limiter *rate.Limiter

	kicks chan struct{}
	dirty atomic.Bool

	mu    sync.Mutex
	cron  *cron.Cron
	sched schedule.Config
	entry cron.EntryID
	ids   []string
}

// New builds a runner. Nothing happens until Run.
func New(eng *engine.Engine, source Source, opts ...Option) *Runner {
	r := &Runner{
		eng:     eng,
		source:  source,
		now:     time.Now,
		poll:    DefaultSchedulePoll,
		limiter: rate.NewLimiter(rate.Every(DefaultMinInterval), 1),
		kicks:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(logx.String("component", "watch"), logx.String("rotation", eng.Name()))
	return r
}

// Run blocks until ctx is done. It fails only if the first candidate load
// fails or the watcher cannot be set up; later errors are logged.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.reload(); err != nil {
		return err
	}
	r.reconcile()

	c := cron.New(
		cron.WithLocation(r.eng.Location()),
		cron.WithLogger(cronLogger{log: r.log}),
	)
	r.mu.Lock()
	r.cron = c
	r.register(r.eng.Schedule())
	r.mu.Unlock()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", r.poll), r.checkSchedule); err != nil {
		return fmt.Errorf("schedule poll: %w", err)
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	if r.path != "" {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("catalog watch: %w", err)
		}
		defer w.Close()
		if err := w.Add(filepath.Dir(r.path)); err != nil {
			return fmt.Errorf("catalog watch %s: %w", r.path, err)
		}
		go r.watchFile(ctx, w)
	}

	r.log.Info("watching",
		logx.String("schedule", r.eng.Schedule().String()),
		logx.String("catalog", r.path),
		logx.Duration("schedule_poll", r.poll))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.kicks:
			if err := r.limiter.Wait(ctx); err != nil {
				return nil
			}
			if r.dirty.Swap(false) {
				if err := r.reload(); err != nil {
					r.log.Warn("catalog reload failed; keeping previous candidates", logx.Err(err))
				}
			}
			r.reconcile()
		}
	}
}

// kick requests a reconcile. Requests made while one is pending coalesce.
func (r *Runner) kick() {
	select {
	case r.kicks <- struct{}{}:
	default:
	}
}

func (r *Runner) reload() error {
	ids, err := r.source()
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.ids = ids
	r.mu.Unlock()
	r.log.Debug("candidates loaded", logx.Int("count", len(ids)))
	return nil
}

func (r *Runner) candidates() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ids
}

func (r *Runner) reconcile() {
	now := r.now()
	id, ok := r.eng.CurrentItem(r.candidates(), now)
	if !ok {
		r.log.Warn("no candidates; nothing to show")
		return
	}
	r.mu.Lock()
	next := r.sched.NextChange(now)
	r.mu.Unlock()
	r.log.Debug("reconciled", logx.String("item", id), logx.Time("next", next))
}

// register replaces the boundary entry. Caller holds r.mu.
func (r *Runner) register(cfg schedule.Config) {
	if r.entry != 0 {
		r.cron.Remove(r.entry)
	}
	r.sched = cfg
	r.entry = r.cron.Schedule(cfg, cron.FuncJob(r.kick))
}

// checkSchedule re-registers the boundary entry when the persisted schedule
// changed, and reconciles so the new slot takes effect immediately.
func (r *Runner) checkSchedule() {
	cfg := r.eng.Schedule()
	r.mu.Lock()
	changed := !cfg.Equal(r.sched)
	if changed {
		r.register(cfg)
	}
	r.mu.Unlock()
	if changed {
		r.log.Info("schedule changed", logx.String("schedule", cfg.String()))
		r.kick()
	}
}

func (r *Runner) watchFile(ctx context.Context, w *fsnotify.Watcher) {
	file := filepath.Base(r.path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !strings.EqualFold(filepath.Base(ev.Name), file) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				r.log.Debug("catalog changed", logx.String("op", ev.Op.String()))
				r.dirty.Store(true)
				r.kick()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			r.log.Warn("catalog watch error", logx.Err(err))
			// Events may have been dropped.
			r.dirty.Store(true)
			r.kick()
		}
	}
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []any) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logx.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
