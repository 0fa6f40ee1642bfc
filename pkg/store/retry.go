// retry.go retries writes that fail on transient SQLite contention.
//
// The app, the widget renderer and the watcher all write the same WAL
// database. busy_timeout absorbs most SQLITE_BUSY waits at the connection
// level, but LOCKED and IOERR_SHORT_READ still surface occasionally and are
// safe to retry because every write here is an idempotent upsert or an
// append.
package store

import (
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"modernc.org/sqlite"
)

// Primary and extended result codes worth retrying.
const (
	codeBusy           = 5
	codeLocked         = 6
	codeIOErrShortRead = 522
)

// retryConfig controls retry behavior for transient SQLite errors.
type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	sleep      func(time.Duration) // nil means time.Sleep
}

var defaultRetryConfig = retryConfig{
	maxRetries: 4,
	baseDelay:  25 * time.Millisecond,
	maxDelay:   400 * time.Millisecond,
}

// isTransientSQLiteErr reports whether err is contention that a retry can
// resolve. Typed driver errors are checked by result code; anything else
// falls back to the driver's message text.
func isTransientSQLiteErr(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == codeIOErrShortRead || code&0xff == codeBusy || code&0xff == codeLocked
	}
	msg := err.Error()
	for _, pattern := range []string{
		"SQLITE_BUSY",
		"SQLITE_LOCKED",
		"IOERR_SHORT_READ",
		"database is locked",
		"database table is locked",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// retryOp runs fn until it succeeds, fails permanently, or the retry budget
// is spent. The last error is returned.
func retryOp(cfg retryConfig, fn func() error) error {
	sleep := cfg.sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !isTransientSQLiteErr(err) || attempt >= cfg.maxRetries {
			return err
		}
		sleep(backoffDelay(cfg, attempt))
	}
}

// backoffDelay is baseDelay * 2^attempt capped at maxDelay, plus up to one
// baseDelay of jitter so racing processes spread out.
func backoffDelay(cfg retryConfig, attempt int) time.Duration {
	delay := cfg.baseDelay << uint(attempt)
	if delay <= 0 || delay > cfg.maxDelay {
		delay = cfg.maxDelay
	}
	if cfg.baseDelay <= 0 {
		return delay
	}
	return delay + rand.N(cfg.baseDelay)
}
