package state

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/floatchat/models"
)

func floats(ids ...string) []models.Record {
	out := make([]models.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.NewRecord(
			models.Field{Name: "float_id", Value: id},
			models.Field{Name: "temperature", Value: 11.2},
		))
	}
	return out
}

func TestNewStartsGuidedAndPending(t *testing.T) {
	st := New("s-1")
	if st.Mode != Guided || st.ActiveTab != TabAnalysis || st.Status != models.StatusPending {
		t.Fatalf("unexpected initial state %+v", st)
	}
	if st.Filters != DefaultFilters() {
		t.Fatalf("filters = %+v", st.Filters)
	}
}

func TestReplaceDatasetNarratesOnlyNewSignatures(t *testing.T) {
	st := New("s")
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	st.ReplaceDataset(floats("a", "b"), "q1", now)
	if st.Narration != "2 records across 2 floats" {
		t.Fatalf("narration = %q", st.Narration)
	}

	st.Narration = "user dismissed"
	st.ReplaceDataset(floats("b", "a"), "q2", now)
	if st.Narration != "user dismissed" {
		t.Fatalf("same signature must not re-narrate, got %q", st.Narration)
	}
	if st.DatasetQuery != "q2" {
		t.Fatalf("dataset query = %q", st.DatasetQuery)
	}

	st.ReplaceDataset(floats("a", "b", "c"), "q3", now)
	if st.Narration != "3 records across 3 floats" {
		t.Fatalf("narration = %q", st.Narration)
	}

	st.ReplaceDataset(nil, "q4", now)
	if st.Synopsis != nil || st.Narration != "" {
		t.Fatalf("empty dataset should clear synopsis and narration")
	}
	st.ReplaceDataset(floats("a", "b", "c"), "q5", now)
	if st.Narration != "3 records across 3 floats" {
		t.Fatalf("narration after empty = %q", st.Narration)
	}
}

func TestViewIsACopy(t *testing.T) {
	st := New("s")
	st.RecentQueries = []string{"q"}
	st.AutoOpened[string(TabData)] = true
	st.AutoOpened[string(TabProfiles)] = true
	st.ReplaceDataset(floats("a"), "q", time.Now())

	v := st.View()
	v.RecentQueries[0] = "mutated"
	v.Dataset[0] = models.NewRecord()
	if st.RecentQueries[0] != "q" {
		t.Fatalf("recent queries aliased")
	}
	if st.Dataset[0].Len() != 2 {
		t.Fatalf("dataset aliased")
	}
	if len(v.AutoOpened) != 2 || v.AutoOpened[0] != "profiles" || v.AutoOpened[1] != "data" {
		t.Fatalf("auto opened = %v", v.AutoOpened)
	}
}

func TestResetExpertOnlyKeepsGuidedFilters(t *testing.T) {
	f := Filters{Variable: "oxygen", Region: "indian", TimeRange: "7d", QualityFlag: "any", DepthBand: "0-200"}
	f.ResetExpertOnly()
	want := Filters{Variable: "oxygen", Region: "indian", TimeRange: "7d", QualityFlag: "good", DepthBand: "all"}
	if f != want {
		t.Fatalf("filters = %+v", f)
	}
}

func TestViewKeepsEmptyDatasetAsArray(t *testing.T) {
	pending := New("s")
	offline := New("s")
	offline.ReplaceDataset([]models.Record{}, "q", time.Now())
	for name, st := range map[string]*State{"pending": pending, "offline": offline} {
		v := st.View()
		if v.Dataset == nil {
			t.Fatalf("%s: dataset is nil", name)
		}
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("%s: marshal: %v", name, err)
		}
		if !strings.Contains(string(data), `"dataset":[]`) {
			t.Fatalf("%s: dataset not serialised as an empty array: %s", name, data)
		}
	}
}
