package dispatch

import (
	"reflect"
	"testing"

	"github.com/mohammad-safakhou/floatchat/internal/mode"
	"github.com/mohammad-safakhou/floatchat/internal/state"
)

func newDispatcher() *Dispatcher {
	return New(mode.NewController(mode.DefaultThreshold, mode.DefaultRecentCap, nil))
}

func TestUnknownActionOnlyClosesPalette(t *testing.T) {
	d := newDispatcher()
	st := state.New("s")
	st.PaletteOpen = true
	st.Score = 3
	st.PendingQuery = "keep me"
	before := st.View()

	res := d.Dispatch(st, "open-spaceship", "x")
	if res.Recognized {
		t.Fatalf("unknown action reported as recognized")
	}
	if st.PaletteOpen {
		t.Fatalf("palette must close on every dispatch")
	}
	after := st.View()
	before.PaletteOpen = false
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("state changed:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestTabAndFocusActions(t *testing.T) {
	d := newDispatcher()
	st := state.New("s")
	cases := []struct {
		action string
		check  func() bool
	}{
		{OpenMap, func() bool { return st.ActiveTab == state.TabMap }},
		{OpenProfiles, func() bool { return st.ActiveTab == state.TabProfiles }},
		{OpenData, func() bool { return st.ActiveTab == state.TabData }},
		{OpenAnalysis, func() bool { return st.ActiveTab == state.TabAnalysis }},
		{FocusSalinity, func() bool { return st.Filters.Variable == "salinity" }},
		{FocusOxygen, func() bool { return st.Filters.Variable == "oxygen" }},
		{FocusTemp, func() bool { return st.Filters.Variable == "temperature" }},
	}
	for _, tc := range cases {
		st.PaletteOpen = true
		res := d.Dispatch(st, tc.action, "")
		if !res.Recognized || !tc.check() {
			t.Fatalf("%s did not apply: %+v", tc.action, st.View())
		}
		if st.PaletteOpen {
			t.Fatalf("%s left the palette open", tc.action)
		}
	}
}

func TestModeActions(t *testing.T) {
	d := newDispatcher()
	st := state.New("s")
	st.Score = 2
	res := d.Dispatch(st, SwitchExpert, "")
	if st.Mode != state.Expert || st.Score != 2 || res.ModeEvent == nil {
		t.Fatalf("switch-expert: %+v", res)
	}
	st.Filters.DepthBand = "0-200"
	d.Dispatch(st, SwitchGuided, "")
	if st.Mode != state.Guided || st.Score != 0 || st.Filters.DepthBand != "all" {
		t.Fatalf("switch-guided did not reset: %+v", st.View())
	}
}

func TestClearFiltersAndPrefill(t *testing.T) {
	d := newDispatcher()
	st := state.New("s")
	st.Filters = state.Filters{Variable: "oxygen", Region: "indian", TimeRange: "7d", QualityFlag: "any", DepthBand: "0-200"}
	d.Dispatch(st, ClearFilters, "")
	if st.Filters != state.DefaultFilters() {
		t.Fatalf("filters = %+v", st.Filters)
	}
	d.Dispatch(st, PrefillQuery, "  salinity near Sri Lanka ")
	if st.PendingQuery != "salinity near Sri Lanka" {
		t.Fatalf("pending = %q", st.PendingQuery)
	}
}

func TestRerunLastQuery(t *testing.T) {
	d := newDispatcher()
	st := state.New("s")
	if res := d.Dispatch(st, RerunLastQuery, ""); res.Resend {
		t.Fatalf("nothing to rerun yet")
	}
	st.LastQuery = "floats near India"
	res := d.Dispatch(st, RerunLastQuery, "")
	if !res.Resend || st.PendingQuery != "floats near India" {
		t.Fatalf("rerun: %+v pending=%q", res, st.PendingQuery)
	}
}

func TestActionsAreAllRecognized(t *testing.T) {
	d := newDispatcher()
	for _, a := range d.Actions() {
		if res := d.Dispatch(state.New("s"), a, "p"); !res.Recognized {
			t.Fatalf("%s not recognized", a)
		}
	}
}

func TestActionIDsMatchExactly(t *testing.T) {
	d := newDispatcher()
	for _, id := range []string{"SWITCH-EXPERT", "Open-Map", " open-map", "open-map ", ""} {
		st := state.New("s")
		st.PaletteOpen = true
		res := d.Dispatch(st, id, "")
		if res.Recognized {
			t.Fatalf("%q should not be recognized", id)
		}
		if st.Mode != state.Guided || st.ActiveTab != state.TabAnalysis || st.PaletteOpen {
			t.Fatalf("%q changed state: mode=%s tab=%s palette=%v", id, st.Mode, st.ActiveTab, st.PaletteOpen)
		}
	}
}
