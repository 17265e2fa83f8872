// Package acquisition fetches a dataset from the query service with bounded
// retries and falls back to the last cached snapshot when the service stays
// unavailable. Every call settles on a terminal backend status.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/floatchat/internal/snapshot"
	"github.com/mohammad-safakhou/floatchat/internal/telemetry"
	"github.com/mohammad-safakhou/floatchat/models"
	"github.com/mohammad-safakhou/floatchat/provider"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseBackoff = 500 * time.Millisecond
)

var (
	errBackendReported = errors.New("backend reported an error")
	errNoDescription   = errors.New("response has no query description")
	errNoResponse      = errors.New("empty response")
)

// Result is the settled outcome of one acquisition.
type Result struct {
	Dataset     []models.Record
	Query       string
	Description string
	Status      models.BackendStatus
	Detail      string
	Attempts    int
	FromCache   bool
	// Joined is set when the call was coalesced onto an acquisition of the
	// same question that was already in flight.
	Joined bool
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options tune an Acquirer. Unset fields fall back to defaults; a zero
// BaseBackoff retries without waiting.
type Options struct {
	MaxAttempts int
	BaseBackoff time.Duration
	Logger      *log.Logger
	Metrics     *telemetry.Metrics
	Tracer      trace.Tracer
	Sleep       SleepFunc
	Now         func() time.Time
}

type Acquirer struct {
	client      provider.QueryClient
	cache       *snapshot.Cache
	maxAttempts int
	baseBackoff time.Duration
	logger      *log.Logger
	metrics     *telemetry.Metrics
	tracer      trace.Tracer
	sleep       SleepFunc
	now         func() time.Time

	group singleflight.Group
}

// New builds an Acquirer. cache may be nil, in which case exhaustion always
// ends Offline.
func New(client provider.QueryClient, cache *snapshot.Cache, opts Options) *Acquirer {
	a := &Acquirer{
		client:      client,
		cache:       cache,
		maxAttempts: opts.MaxAttempts,
		baseBackoff: opts.BaseBackoff,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		tracer:      opts.Tracer,
		sleep:       opts.Sleep,
		now:         opts.Now,
	}
	if a.maxAttempts <= 0 {
		a.maxAttempts = DefaultMaxAttempts
	}
	if a.baseBackoff < 0 {
		a.baseBackoff = DefaultBaseBackoff
	}
	if a.logger == nil {
		a.logger = log.New(log.Writer(), "[ACQ] ", log.LstdFlags)
	}
	if a.tracer == nil {
		a.tracer = otel.Tracer("floatchat/internal/acquisition")
	}
	if a.sleep == nil {
		a.sleep = sleepContext
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// Backoff returns the wait inserted after the given failed attempt (1-based).
func (a *Acquirer) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return a.baseBackoff * time.Duration(attempt*attempt)
}

// Acquire runs query against the service. Calls for a question that is
// already in flight wait for it and receive its result; different questions
// run independently.
func (a *Acquirer) Acquire(ctx context.Context, query string) Result {
	query = strings.TrimSpace(query)
	leader := false
	v, _, _ := a.group.Do(query, func() (any, error) {
		leader = true
		return a.acquire(ctx, query), nil
	})
	res := v.(Result)
	if !leader {
		res.Joined = true
		res.Dataset = append([]models.Record(nil), res.Dataset...)
	}
	return res
}

func (a *Acquirer) acquire(ctx context.Context, query string) Result {
	ctx, span := a.tracer.Start(ctx, "acquisition.acquire")
	defer span.End()
	span.SetAttributes(attribute.Int("max_attempts", a.maxAttempts))

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		attempts = attempt
		records, desc, err := a.attempt(ctx, query, attempt)
		if err == nil {
			a.cache.Persist(context.WithoutCancel(ctx), models.Snapshot{
				Records: records,
				Query:   query,
				SavedAt: a.now().UTC(),
			})
			res := Result{
				Dataset:     records,
				Query:       query,
				Description: desc,
				Status:      models.StatusOperational,
				Attempts:    attempts,
			}
			a.metrics.ObserveAcquisition(res.Status, attempts)
			span.SetAttributes(attribute.String("status", string(res.Status)), attribute.Int("attempts", attempts))
			return res
		}
		lastErr = err
		a.logger.Printf("attempt %d/%d failed: %v", attempt, a.maxAttempts, err)
		if attempt < a.maxAttempts {
			if err := a.sleep(ctx, a.Backoff(attempt)); err != nil {
				lastErr = err
				break
			}
		}
	}

	res := a.fallback(context.WithoutCancel(ctx), query, attempts, lastErr)
	a.metrics.ObserveAcquisition(res.Status, attempts)
	span.SetAttributes(attribute.String("status", string(res.Status)), attribute.Int("attempts", attempts))
	if lastErr != nil {
		span.SetStatus(codes.Error, lastErr.Error())
	}
	return res
}

func (a *Acquirer) attempt(ctx context.Context, query string, n int) ([]models.Record, string, error) {
	ctx, span := a.tracer.Start(ctx, "acquisition.attempt")
	defer span.End()
	span.SetAttributes(attribute.Int("attempt", n))

	records, desc, outcome, err := a.call(ctx, query)
	a.metrics.ObserveAttempt(outcome)
	span.SetAttributes(attribute.String("outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return records, desc, err
}

// call makes one round trip and checks the response shape. Panics from the
// client are treated like any other failed attempt.
func (a *Acquirer) call(ctx context.Context, query string) (records []models.Record, desc string, outcome string, err error) {
	defer func() {
		if r := recover(); r != nil {
			records, desc = nil, ""
			outcome = telemetry.OutcomeTransport
			err = fmt.Errorf("query client panic: %v", r)
		}
	}()
	if a.client == nil {
		return nil, "", telemetry.OutcomeTransport, fmt.Errorf("%w: no query client configured", provider.ErrBackend)
	}
	resp, err := a.client.Ask(ctx, query)
	if err != nil {
		return nil, "", telemetry.OutcomeTransport, err
	}
	if resp == nil {
		return nil, "", telemetry.OutcomeMalformed, errNoResponse
	}
	if msg := resp.ErrorText(); msg != "" {
		return nil, "", telemetry.OutcomeBackend, fmt.Errorf("%w: %s", errBackendReported, msg)
	}
	records, err = resp.Records()
	if err != nil {
		return nil, "", telemetry.OutcomeMalformed, err
	}
	desc = resp.Description()
	if desc == "" {
		return nil, "", telemetry.OutcomeMalformed, errNoDescription
	}
	return records, desc, telemetry.OutcomeSuccess, nil
}

func (a *Acquirer) fallback(ctx context.Context, query string, attempts int, cause error) Result {
	reason := "no attempt could be made"
	if attempts > 0 {
		reason = fmt.Sprintf("live query failed after %d attempt(s)", attempts)
	}
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		reason = "live query was cancelled"
	}

	if snap := a.cache.Load(ctx); snap != nil {
		a.logger.Printf("%s; serving cached dataset (%d records) saved %s", reason, len(snap.Records), snap.SavedAt.Format(time.RFC3339))
		detail := fmt.Sprintf("Showing cached results: %s.", reason)
		if !snap.SavedAt.IsZero() {
			detail = fmt.Sprintf("Showing cached results from %s: %s.", snap.SavedAt.UTC().Format(time.RFC3339), reason)
		}
		return Result{
			Dataset:   snap.Records,
			Query:     snap.Query,
			Status:    models.StatusDegraded,
			Detail:    detail,
			Attempts:  attempts,
			FromCache: true,
		}
	}

	a.logger.Printf("%s; no cached dataset available", reason)
	return Result{
		Dataset:  []models.Record{},
		Query:    query,
		Status:   models.StatusOffline,
		Detail:   fmt.Sprintf("Backend unavailable: %s and no cached results exist.", reason),
		Attempts: attempts,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
