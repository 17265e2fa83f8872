// Package session owns the single session state and sequences each turn:
// estimate, mode signal, acquisition and dataset replacement.
package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mohammad-safakhou/floatchat/internal/acquisition"
	"github.com/mohammad-safakhou/floatchat/internal/complexity"
	"github.com/mohammad-safakhou/floatchat/internal/dispatch"
	"github.com/mohammad-safakhou/floatchat/internal/helpers"
	"github.com/mohammad-safakhou/floatchat/internal/mode"
	"github.com/mohammad-safakhou/floatchat/internal/state"
	"github.com/mohammad-safakhou/floatchat/internal/telemetry"
	"github.com/mohammad-safakhou/floatchat/models"
)

// ErrEmptyQuestion is returned by Submit for blank input.
var ErrEmptyQuestion = errors.New("question is empty")

// Acquirer fetches a dataset and always settles on a terminal status.
type Acquirer interface {
	Acquire(ctx context.Context, query string) acquisition.Result
}

// Acquisition summarises how a turn's dataset was obtained.
type Acquisition struct {
	Query     string               `json:"query"`
	Status    models.BackendStatus `json:"status"`
	Detail    string               `json:"detail,omitempty"`
	Attempts  int                  `json:"attempts"`
	FromCache bool                 `json:"from_cache"`
	Joined    bool                 `json:"joined"`
	Records   int                  `json:"records"`
}

// Turn is the outcome of one submitted question or acquisition.
type Turn struct {
	Question    string             `json:"question,omitempty"`
	Estimate    *complexity.Result `json:"estimate,omitempty"`
	ModeEvent   *mode.Event        `json:"mode_event,omitempty"`
	Acquisition Acquisition        `json:"acquisition"`
	State       state.View         `json:"state"`
}

// DispatchOutcome is the outcome of a palette action. Turn is set when the
// action resubmitted a question.
type DispatchOutcome struct {
	Result dispatch.Result `json:"result"`
	Turn   *Turn           `json:"turn,omitempty"`
	State  state.View      `json:"state"`
}

type Options struct {
	InitialQuery    string
	ExpertThreshold int
	RecentQueries   int
	Logger          *log.Logger
	Metrics         *telemetry.Metrics
	// OnExpert is told when a session first crosses into expert mode.
	OnExpert mode.Notifier
	Now      func() time.Time
}

// Controller serialises every state mutation behind one mutex. Acquisition
// runs outside the lock and its result is applied in a second locked step.
type Controller struct {
	mu sync.Mutex
	st *state.State

	acquirer     Acquirer
	modes        *mode.Controller
	dispatcher   *dispatch.Dispatcher
	initialQuery string
	logger       *log.Logger
	metrics      *telemetry.Metrics
	now          func() time.Time
}

// New creates a controller with a fresh session.
func New(acquirer Acquirer, opts Options) *Controller {
	c := &Controller{
		st:           state.New(uuid.NewString()),
		acquirer:     acquirer,
		initialQuery: strings.TrimSpace(opts.InitialQuery),
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		now:          opts.Now,
	}
	if c.logger == nil {
		c.logger = log.New(log.Writer(), "[SESSION] ", log.LstdFlags)
	}
	if c.now == nil {
		c.now = time.Now
	}
	onExpert := opts.OnExpert
	c.modes = mode.NewController(opts.ExpertThreshold, opts.RecentQueries, func(score int) {
		c.logger.Printf("session %s switched to expert mode at score %d", c.st.SessionID, score)
		if onExpert != nil {
			onExpert(score)
		}
	})
	c.dispatcher = dispatch.New(c.modes)
	return c
}

// SessionID returns the id of the session.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.SessionID
}

// Actions lists the palette actions Dispatch understands.
func (c *Controller) Actions() []string { return c.dispatcher.Actions() }

// View returns a read-only copy of the state.
func (c *Controller) View() state.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.View()
}

// Bootstrap performs the initial acquisition with the configured question.
func (c *Controller) Bootstrap(ctx context.Context) Turn {
	return c.acquireInitial(ctx)
}

// Reset re-runs the initial acquisition. Mode, filters and history are kept.
func (c *Controller) Reset(ctx context.Context) Turn {
	return c.acquireInitial(ctx)
}

func (c *Controller) acquireInitial(ctx context.Context) Turn {
	res := c.acquirer.Acquire(ctx, c.initialQuery)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apply(res)
	return Turn{Acquisition: summarize(res), State: c.st.View()}
}

// Submit scores question, feeds the score to the mode controller, acquires
// its dataset and applies the result.
func (c *Controller) Submit(ctx context.Context, question string) (Turn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Turn{}, ErrEmptyQuestion
	}

	c.mu.Lock()
	est := complexity.Estimate(question)
	ev := c.modes.Signal(c.st, est.Delta, question)
	c.st.LastQuery = question
	c.st.PendingQuery = ""
	c.observeMode(ev)
	c.metrics.SetComplexityScore(c.st.Score)
	c.mu.Unlock()

	c.logger.Printf("question scored %d (%s, delta %+d); running score %d", est.Score, est.Classification, est.Delta, ev.Score)
	res := c.acquirer.Acquire(ctx, question)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.apply(res)
	return Turn{
		Question:    question,
		Estimate:    &est,
		ModeEvent:   &ev,
		Acquisition: summarize(res),
		State:       c.st.View(),
	}, nil
}

// Dispatch routes a palette action. Actions that ask for a resend submit the
// pending question.
func (c *Controller) Dispatch(ctx context.Context, action, payload string) (DispatchOutcome, error) {
	c.mu.Lock()
	res := c.dispatcher.Dispatch(c.st, action, payload)
	c.metrics.ObserveDispatch(res.Action, res.Recognized)
	if res.ModeEvent != nil {
		c.observeMode(*res.ModeEvent)
		c.metrics.SetComplexityScore(c.st.Score)
	}
	pending := c.st.PendingQuery
	out := DispatchOutcome{Result: res, State: c.st.View()}
	c.mu.Unlock()

	if !res.Recognized {
		c.logger.Printf("ignoring unknown action %q", res.Action)
	}
	if !res.Resend {
		return out, nil
	}
	turn, err := c.Submit(ctx, pending)
	if err != nil {
		return out, err
	}
	out.Turn = &turn
	out.State = turn.State
	return out, nil
}

// OpenPalette opens the command palette.
func (c *Controller) OpenPalette() state.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.st.PaletteOpen = true
	return c.st.View()
}

// apply must be called with c.mu held.
func (c *Controller) apply(res acquisition.Result) {
	c.st.ReplaceDataset(res.Dataset, res.Query, c.now().UTC())
	c.st.Status = res.Status
	c.st.StatusDetail = res.Detail
	c.st.Reply = helpers.PlainText(res.Description)
}

func (c *Controller) observeMode(ev mode.Event) {
	if ev.Changed() {
		c.metrics.ObserveModeTransition(string(ev.From), string(ev.To), ev.Automatic)
	}
}

func summarize(res acquisition.Result) Acquisition {
	return Acquisition{
		Query:     res.Query,
		Status:    res.Status,
		Detail:    res.Detail,
		Attempts:  res.Attempts,
		FromCache: res.FromCache,
		Joined:    res.Joined,
		Records:   len(res.Dataset),
	}
}
