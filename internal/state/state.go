// Package state holds the single explicit session state shared by the mode
// controller, the action dispatcher and the session controller.
package state

import (
	"time"

	"github.com/mohammad-safakhou/floatchat/internal/synopsis"
	"github.com/mohammad-safakhou/floatchat/models"
)

// Mode is the interaction posture of the session.
type Mode string

const (
	Guided Mode = "guided"
	Expert Mode = "expert"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m == Guided || m == Expert }

// Tab is a results panel.
type Tab string

const (
	TabAnalysis Tab = "analysis"
	TabMap      Tab = "map"
	TabProfiles Tab = "profiles"
	TabData     Tab = "data"
)

// Tabs lists every panel in display order.
var Tabs = []Tab{TabAnalysis, TabMap, TabProfiles, TabData}

// Filters narrow what the panels show. QualityFlag and DepthBand are only
// exposed in expert mode.
type Filters struct {
	Variable    string `json:"variable"`
	Region      string `json:"region"`
	TimeRange   string `json:"time_range"`
	QualityFlag string `json:"quality_flag"`
	DepthBand   string `json:"depth_band"`
}

// DefaultFilters returns the filters a fresh session starts with.
func DefaultFilters() Filters {
	return Filters{
		Variable:    "temperature",
		Region:      "global",
		TimeRange:   "30d",
		QualityFlag: "good",
		DepthBand:   "all",
	}
}

// ResetExpertOnly restores the expert-only filters to their defaults.
func (f *Filters) ResetExpertOnly() {
	d := DefaultFilters()
	f.QualityFlag = d.QualityFlag
	f.DepthBand = d.DepthBand
}

// State is the whole mutable session. It is owned by one session controller
// and handed by pointer to the components that mutate it.
type State struct {
	SessionID string

	Mode           Mode
	Score          int
	RecentQueries  []string
	AutoOpened     map[string]bool
	ExpertNotified bool

	ActiveTab    Tab
	Filters      Filters
	PaletteOpen  bool
	PendingQuery string
	LastQuery    string

	Dataset      []models.Record
	DatasetQuery string
	Synopsis     *synopsis.Synopsis
	Narration    string
	narrated     string
	Reply        string

	Status       models.BackendStatus
	StatusDetail string
	UpdatedAt    time.Time
}

// New returns the initial state of a session.
func New(sessionID string) *State {
	return &State{
		SessionID:  sessionID,
		Mode:       Guided,
		AutoOpened: make(map[string]bool),
		ActiveTab:  TabAnalysis,
		Filters:    DefaultFilters(),
		Status:     models.StatusPending,
	}
}

// ReplaceDataset swaps in a new dataset and recomputes the synopsis. The
// narration only changes when the result set is structurally new.
func (s *State) ReplaceDataset(records []models.Record, query string, now time.Time) {
	s.Dataset = records
	s.DatasetQuery = query
	s.Synopsis = synopsis.Build(records)
	if s.Synopsis == nil {
		s.Narration = ""
		s.narrated = ""
	} else if s.Synopsis.Signature != s.narrated {
		s.Narration = s.Synopsis.Headline
		s.narrated = s.Synopsis.Signature
	}
	s.UpdatedAt = now
}

// View is a read-only copy of the state handed to renderers.
type View struct {
	SessionID     string               `json:"session_id"`
	Mode          Mode                 `json:"mode"`
	Score         int                  `json:"score"`
	RecentQueries []string             `json:"recent_queries"`
	AutoOpened    []string             `json:"auto_opened"`
	ActiveTab     Tab                  `json:"active_tab"`
	Filters       Filters              `json:"filters"`
	PaletteOpen   bool                 `json:"palette_open"`
	PendingQuery  string               `json:"pending_query,omitempty"`
	LastQuery     string               `json:"last_query,omitempty"`
	Dataset       []models.Record      `json:"dataset"`
	DatasetQuery  string               `json:"dataset_query,omitempty"`
	Synopsis      *synopsis.Synopsis   `json:"synopsis"`
	Narration     string               `json:"narration,omitempty"`
	Reply         string               `json:"reply,omitempty"`
	Status        models.BackendStatus `json:"status"`
	StatusDetail  string               `json:"status_detail,omitempty"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// View copies the state. Records are immutable once stored, so the dataset
// slice is copied but rows are shared. The dataset is never nil.
func (s *State) View() View {
	v := View{
		SessionID:     s.SessionID,
		Mode:          s.Mode,
		Score:         s.Score,
		RecentQueries: append([]string(nil), s.RecentQueries...),
		ActiveTab:     s.ActiveTab,
		Filters:       s.Filters,
		PaletteOpen:   s.PaletteOpen,
		PendingQuery:  s.PendingQuery,
		LastQuery:     s.LastQuery,
		DatasetQuery:  s.DatasetQuery,
		Synopsis:      s.Synopsis,
		Narration:     s.Narration,
		Reply:         s.Reply,
		Status:        s.Status,
		StatusDetail:  s.StatusDetail,
		UpdatedAt:     s.UpdatedAt,
	}
	v.Dataset = make([]models.Record, len(s.Dataset))
	copy(v.Dataset, s.Dataset)
	for _, panel := range Tabs {
		if s.AutoOpened[string(panel)] {
			v.AutoOpened = append(v.AutoOpened, string(panel))
		}
	}
	return v
}
