// Package dispatch routes the closed vocabulary of palette actions to session
// state mutations.
package dispatch

import (
	"strings"

	"github.com/mohammad-safakhou/floatchat/internal/mode"
	"github.com/mohammad-safakhou/floatchat/internal/state"
)

// Action identifiers.
const (
	SwitchGuided   = "switch-guided"
	SwitchExpert   = "switch-expert"
	OpenAnalysis   = "open-analysis"
	OpenMap        = "open-map"
	OpenProfiles   = "open-profiles"
	OpenData       = "open-data"
	FocusTemp      = "focus-temperature"
	FocusSalinity  = "focus-salinity"
	FocusOxygen    = "focus-oxygen"
	ClearFilters   = "clear-filters"
	PrefillQuery   = "prefill-query"
	RerunLastQuery = "rerun-last-query"
)

// Result reports what a dispatch did.
type Result struct {
	Action     string      `json:"action"`
	Recognized bool        `json:"recognized"`
	ModeEvent  *mode.Event `json:"mode_event,omitempty"`
	// Resend asks the caller to submit PendingQuery through acquisition.
	Resend bool `json:"resend"`
}

type handler func(d *Dispatcher, st *state.State, payload string, res *Result)

// Dispatcher maps action identifiers to exactly one state mutation each.
type Dispatcher struct {
	modes    *mode.Controller
	handlers map[string]handler
}

// New builds a dispatcher that routes mode switches through modes.
func New(modes *mode.Controller) *Dispatcher {
	d := &Dispatcher{modes: modes, handlers: make(map[string]handler)}
	d.handlers[SwitchGuided] = switchMode(state.Guided)
	d.handlers[SwitchExpert] = switchMode(state.Expert)
	d.handlers[OpenAnalysis] = openTab(state.TabAnalysis)
	d.handlers[OpenMap] = openTab(state.TabMap)
	d.handlers[OpenProfiles] = openTab(state.TabProfiles)
	d.handlers[OpenData] = openTab(state.TabData)
	d.handlers[FocusTemp] = focus("temperature")
	d.handlers[FocusSalinity] = focus("salinity")
	d.handlers[FocusOxygen] = focus("oxygen")
	d.handlers[ClearFilters] = func(_ *Dispatcher, st *state.State, _ string, _ *Result) {
		st.Filters = state.DefaultFilters()
	}
	d.handlers[PrefillQuery] = func(_ *Dispatcher, st *state.State, payload string, _ *Result) {
		st.PendingQuery = strings.TrimSpace(payload)
	}
	d.handlers[RerunLastQuery] = func(_ *Dispatcher, st *state.State, _ string, res *Result) {
		if st.LastQuery == "" {
			return
		}
		st.PendingQuery = st.LastQuery
		res.Resend = true
	}
	return d
}

// Actions lists the recognised identifiers.
func (d *Dispatcher) Actions() []string {
	return []string{
		SwitchGuided, SwitchExpert,
		OpenAnalysis, OpenMap, OpenProfiles, OpenData,
		FocusTemp, FocusSalinity, FocusOxygen,
		ClearFilters, PrefillQuery, RerunLastQuery,
	}
}

// Dispatch applies actionID to st. Identifiers must match exactly; unknown
// ones change nothing except the palette, which every dispatch closes.
func (d *Dispatcher) Dispatch(st *state.State, actionID, payload string) Result {
	res := Result{Action: actionID}
	if h, ok := d.handlers[actionID]; ok {
		res.Recognized = true
		h(d, st, payload, &res)
	}
	st.PaletteOpen = false
	return res
}

func switchMode(target state.Mode) handler {
	return func(d *Dispatcher, st *state.State, _ string, res *Result) {
		ev := d.modes.Switch(st, target)
		res.ModeEvent = &ev
	}
}

func openTab(tab state.Tab) handler {
	return func(_ *Dispatcher, st *state.State, _ string, _ *Result) {
		st.ActiveTab = tab
	}
}

func focus(variable string) handler {
	return func(_ *Dispatcher, st *state.State, _ string, _ *Result) {
		st.Filters.Variable = variable
	}
}
