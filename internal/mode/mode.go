// Package mode drives the Guided/Expert posture of a session from the running
// complexity score.
package mode

import (
	"strings"

	"github.com/mohammad-safakhou/floatchat/internal/state"
)

const (
	// DefaultThreshold is the running score at which a guided session turns expert.
	DefaultThreshold = 4
	// DefaultRecentCap bounds the recent-questions list.
	DefaultRecentCap = 8
)

// ExpertPanels are opened automatically when the session crosses into expert mode.
var ExpertPanels = []state.Tab{state.TabProfiles, state.TabData}

// Event describes what a signal or switch did to the state.
type Event struct {
	From      state.Mode `json:"from"`
	To        state.Mode `json:"to"`
	Score     int        `json:"score"`
	Automatic bool       `json:"automatic"`
	Notified  bool       `json:"notified"`
}

// Changed reports whether the mode moved.
func (e Event) Changed() bool { return e.From != e.To }

// Notifier is told once per guided→expert cycle when the threshold is crossed.
type Notifier func(score int)

// Controller applies complexity signals and explicit switches to a session state.
type Controller struct {
	threshold int
	recentCap int
	notify    Notifier
}

// NewController builds a controller. Non-positive values fall back to the defaults.
func NewController(threshold, recentCap int, notify Notifier) *Controller {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if recentCap <= 0 {
		recentCap = DefaultRecentCap
	}
	return &Controller{threshold: threshold, recentCap: recentCap, notify: notify}
}

// Threshold returns the score at which guided sessions turn expert.
func (c *Controller) Threshold() int { return c.threshold }

// Signal applies a complexity delta for query.
func (c *Controller) Signal(st *state.State, delta int, query string) Event {
	ev := Event{From: st.Mode}
	st.Score += delta
	if st.Score < 0 {
		st.Score = 0
	}
	c.remember(st, query)

	if st.Mode == state.Guided && st.Score >= c.threshold {
		st.Mode = state.Expert
		ev.Automatic = true
		if st.AutoOpened == nil {
			st.AutoOpened = make(map[string]bool)
		}
		for _, panel := range ExpertPanels {
			st.AutoOpened[string(panel)] = true
		}
		if !st.ExpertNotified {
			st.ExpertNotified = true
			ev.Notified = true
			if c.notify != nil {
				c.notify(st.Score)
			}
		}
	}
	ev.To = st.Mode
	ev.Score = st.Score
	return ev
}

// Switch applies an explicit user choice of mode. Returning to guided resets
// the score, the auto-opened panels, the expert-only filters and rearms the
// one-shot notification.
func (c *Controller) Switch(st *state.State, target state.Mode) Event {
	ev := Event{From: st.Mode}
	switch target {
	case state.Guided:
		st.Mode = state.Guided
		st.Score = 0
		st.AutoOpened = make(map[string]bool)
		st.Filters.ResetExpertOnly()
		st.ExpertNotified = false
	case state.Expert:
		st.Mode = state.Expert
	}
	ev.To = st.Mode
	ev.Score = st.Score
	return ev
}

func (c *Controller) remember(st *state.State, query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	recent := make([]string, 0, c.recentCap)
	recent = append(recent, query)
	for _, q := range st.RecentQueries {
		if q == query {
			continue
		}
		if len(recent) == c.recentCap {
			break
		}
		recent = append(recent, q)
	}
	st.RecentQueries = recent
}
