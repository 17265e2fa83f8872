package server

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/mohammad-safakhou/floatchat/internal/session"
)

type countingResetter struct{ n int }

func (c *countingResetter) Reset(ctx context.Context) session.Turn {
	c.n++
	return session.Turn{}
}

func TestIsDue(t *testing.T) {
	expr := cronexpr.MustParse("0 * * * *")
	last := time.Date(2024, 1, 1, 10, 15, 0, 0, time.UTC)
	cases := []struct {
		now  time.Time
		want bool
	}{
		{now: time.Date(2024, 1, 1, 10, 59, 0, 0, time.UTC), want: false},
		{now: time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC), want: true},
		{now: time.Date(2024, 1, 1, 13, 30, 0, 0, time.UTC), want: true},
	}
	for _, tc := range cases {
		if got := isDue(expr, last, tc.now); got != tc.want {
			t.Fatalf("isDue(last=%v, now=%v) = %v, want %v", last, tc.now, got, tc.want)
		}
	}
}

func TestRefresherRunsOncePerFiring(t *testing.T) {
	target := &countingResetter{}
	r, err := NewRefresher("@hourly", target, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewRefresher: %v", err)
	}
	clock := time.Date(2024, 1, 1, 10, 15, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }
	r.lastRun = clock

	if r.runIfDue(context.Background()) {
		t.Fatalf("should not run before the next firing")
	}
	clock = clock.Add(50 * time.Minute)
	if !r.runIfDue(context.Background()) {
		t.Fatalf("should run after 11:00")
	}
	if r.runIfDue(context.Background()) {
		t.Fatalf("should not run twice for one firing")
	}
	if target.n != 1 {
		t.Fatalf("resets = %d", target.n)
	}
}

func TestNewRefresherRejectsBadSpec(t *testing.T) {
	if _, err := NewRefresher("every tuesday", &countingResetter{}, nil); err == nil {
		t.Fatalf("expected error for invalid schedule")
	}
}
