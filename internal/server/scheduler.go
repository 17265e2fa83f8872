package server

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/mohammad-safakhou/floatchat/internal/session"
)

// Resetter re-runs the initial acquisition of a session.
type Resetter interface {
	Reset(ctx context.Context) session.Turn
}

// Refresher re-acquires the initial dataset on a cron schedule. Standard
// five-field expressions and the @hourly/@daily shorthands are accepted.
type Refresher struct {
	expr    *cronexpr.Expression
	target  Resetter
	logger  *log.Logger
	tick    time.Duration
	now     func() time.Time
	mu      sync.Mutex
	lastRun time.Time
}

func NewRefresher(spec string, target Resetter, logger *log.Logger) (*Refresher, error) {
	expr, err := cronexpr.Parse(strings.TrimSpace(spec))
	if err != nil {
		return nil, fmt.Errorf("refresh schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	return &Refresher{expr: expr, target: target, logger: logger, tick: time.Minute, now: time.Now}, nil
}

// Start polls the schedule until ctx is done.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	r.lastRun = r.now()
	r.mu.Unlock()
	ticker := time.NewTicker(r.tick)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.runIfDue(ctx)
			}
		}
	}()
}

// runIfDue resets the session when the schedule has fired since the last run.
func (r *Refresher) runIfDue(ctx context.Context) bool {
	now := r.now()
	r.mu.Lock()
	if !isDue(r.expr, r.lastRun, now) {
		r.mu.Unlock()
		return false
	}
	r.lastRun = now
	r.mu.Unlock()

	turn := r.target.Reset(ctx)
	r.logger.Printf("scheduled refresh finished: status=%s records=%d attempts=%d",
		turn.Acquisition.Status, turn.Acquisition.Records, turn.Acquisition.Attempts)
	return true
}

// isDue reports whether expr has a firing time in (last, now].
func isDue(expr *cronexpr.Expression, last, now time.Time) bool {
	next := expr.Next(last)
	if next.IsZero() {
		return false
	}
	return !next.After(now)
}
