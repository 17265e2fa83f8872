package session

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/mohammad-safakhou/floatchat/internal/acquisition"
	"github.com/mohammad-safakhou/floatchat/internal/dispatch"
	"github.com/mohammad-safakhou/floatchat/internal/state"
	"github.com/mohammad-safakhou/floatchat/models"
)

type fakeAcquirer struct {
	mu      sync.Mutex
	queries []string
	result  func(query string) acquisition.Result
}

func (f *fakeAcquirer) Acquire(ctx context.Context, query string) acquisition.Result {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	return f.result(query)
}

func operational(ids ...string) func(string) acquisition.Result {
	return func(q string) acquisition.Result {
		recs := make([]models.Record, 0, len(ids))
		for _, id := range ids {
			recs = append(recs, models.NewRecord(models.Field{Name: "float_id", Value: id}))
		}
		return acquisition.Result{Dataset: recs, Query: q, Description: "SELECT float_id FROM floats", Status: models.StatusOperational, Attempts: 1}
	}
}

func newController(acq Acquirer, onExpert func(int)) *Controller {
	return New(acq, Options{
		InitialQuery: "Show the latest profiles",
		Logger:       log.New(io.Discard, "", 0),
		OnExpert:     onExpert,
	})
}

func TestBootstrapUsesInitialQuery(t *testing.T) {
	acq := &fakeAcquirer{result: operational("1", "2")}
	c := newController(acq, nil)

	if v := c.View(); v.Status != models.StatusPending {
		t.Fatalf("status before bootstrap = %s", v.Status)
	}
	turn := c.Bootstrap(context.Background())
	if len(acq.queries) != 1 || acq.queries[0] != "Show the latest profiles" {
		t.Fatalf("queries = %v", acq.queries)
	}
	if turn.State.Status != models.StatusOperational || turn.Acquisition.Records != 2 {
		t.Fatalf("turn = %+v", turn.Acquisition)
	}
	if turn.State.Narration != "2 records across 2 floats" {
		t.Fatalf("narration = %q", turn.State.Narration)
	}
	if turn.State.Reply != "SELECT float_id FROM floats" {
		t.Fatalf("reply = %q", turn.State.Reply)
	}
	if turn.State.SessionID == "" || turn.State.SessionID != c.SessionID() {
		t.Fatalf("session id = %q", turn.State.SessionID)
	}
}

func TestSubmitDrivesModeAndDataset(t *testing.T) {
	acq := &fakeAcquirer{result: operational("7")}
	var notified []int
	c := newController(acq, func(score int) { notified = append(notified, score) })

	turn, err := c.Submit(context.Background(), "join profiles and rank the 90th percentile")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if turn.Estimate == nil || turn.Estimate.Delta != 3 {
		t.Fatalf("estimate = %+v", turn.Estimate)
	}
	if turn.State.Mode != state.Guided || turn.State.Score != 3 {
		t.Fatalf("after first turn mode=%s score=%d", turn.State.Mode, turn.State.Score)
	}

	turn, err = c.Submit(context.Background(), "average temperature by region")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if turn.State.Mode != state.Expert || !turn.ModeEvent.Automatic {
		t.Fatalf("expected automatic expert switch, got %+v", turn.ModeEvent)
	}
	if len(notified) != 1 {
		t.Fatalf("notifications = %v", notified)
	}
	if turn.State.LastQuery != "average temperature by region" {
		t.Fatalf("last query = %q", turn.State.LastQuery)
	}
	if len(turn.State.RecentQueries) != 2 || turn.State.RecentQueries[0] != "average temperature by region" {
		t.Fatalf("recent = %v", turn.State.RecentQueries)
	}
	if turn.State.DatasetQuery != "average temperature by region" {
		t.Fatalf("dataset query = %q", turn.State.DatasetQuery)
	}
}

func TestSubmitRejectsBlankQuestion(t *testing.T) {
	acq := &fakeAcquirer{result: operational()}
	c := newController(acq, nil)
	if _, err := c.Submit(context.Background(), "   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("err = %v", err)
	}
	if len(acq.queries) != 0 {
		t.Fatalf("blank question must not reach acquisition")
	}
}

func TestDegradedStatusIsSurfaced(t *testing.T) {
	acq := &fakeAcquirer{result: func(q string) acquisition.Result {
		return acquisition.Result{Dataset: []models.Record{}, Query: q, Status: models.StatusOffline, Detail: "Backend unavailable", Attempts: 3}
	}}
	c := newController(acq, nil)
	turn := c.Reset(context.Background())
	if turn.State.Status != models.StatusOffline || turn.State.StatusDetail != "Backend unavailable" {
		t.Fatalf("state = %+v", turn.State)
	}
	if turn.State.Synopsis != nil || turn.State.Reply != "" {
		t.Fatalf("offline turn should have no synopsis or reply")
	}
}

func TestDispatchRerunResubmitsLastQuery(t *testing.T) {
	acq := &fakeAcquirer{result: operational("1")}
	c := newController(acq, nil)

	out, err := c.Dispatch(context.Background(), dispatch.RerunLastQuery, "")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if out.Result.Resend || out.Turn != nil || len(acq.queries) != 0 {
		t.Fatalf("rerun without history must be a no-op, got %+v", out)
	}

	if _, err := c.Submit(context.Background(), "profiles in the arabian sea"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	c.OpenPalette()
	out, err = c.Dispatch(context.Background(), dispatch.RerunLastQuery, "")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !out.Result.Resend || out.Turn == nil {
		t.Fatalf("expected resend turn, got %+v", out)
	}
	if len(acq.queries) != 2 || acq.queries[1] != "profiles in the arabian sea" {
		t.Fatalf("queries = %v", acq.queries)
	}
	if out.State.PaletteOpen || out.State.PendingQuery != "" {
		t.Fatalf("state after resend = %+v", out.State)
	}
}

func TestDispatchUnknownOnlyClosesPalette(t *testing.T) {
	acq := &fakeAcquirer{result: operational("1")}
	c := newController(acq, nil)
	c.Bootstrap(context.Background())
	before := c.OpenPalette()

	out, err := c.Dispatch(context.Background(), "launch-rocket", "x")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if out.Result.Recognized {
		t.Fatalf("unknown action recognised")
	}
	if !before.PaletteOpen || out.State.PaletteOpen {
		t.Fatalf("palette before=%v after=%v", before.PaletteOpen, out.State.PaletteOpen)
	}
	if out.State.ActiveTab != before.ActiveTab || out.State.Filters != before.Filters || out.State.Mode != before.Mode {
		t.Fatalf("unknown action changed state")
	}
}

func TestDispatchModeSwitch(t *testing.T) {
	c := newController(&fakeAcquirer{result: operational()}, nil)
	out, err := c.Dispatch(context.Background(), dispatch.SwitchExpert, "")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if out.State.Mode != state.Expert || out.Result.ModeEvent == nil || out.Result.ModeEvent.Automatic {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestConcurrentSubmitsKeepStateConsistent(t *testing.T) {
	c := newController(&fakeAcquirer{result: operational("1")}, nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Submit(context.Background(), "count floats"); err != nil {
				t.Errorf("submit: %v", err)
			}
		}()
	}
	wg.Wait()
	v := c.View()
	if v.Score != 16*1 {
		t.Fatalf("score = %d", v.Score)
	}
	if len(v.RecentQueries) != 1 {
		t.Fatalf("recent = %v", v.RecentQueries)
	}
}

func TestReplyIsPlainText(t *testing.T) {
	acq := &fakeAcquirer{result: func(q string) acquisition.Result {
		res := operational("1")(q)
		res.Description = "<b>SELECT</b> float_id FROM floats WHERE temp < 5"
		return res
	}}
	c := newController(acq, nil)
	turn := c.Bootstrap(context.Background())
	if turn.State.Reply != "SELECT float_id FROM floats WHERE temp < 5" {
		t.Fatalf("reply = %q", turn.State.Reply)
	}
}
