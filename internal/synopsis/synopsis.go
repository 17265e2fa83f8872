// Package synopsis derives a compact, human-readable summary from a result set.
package synopsis

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mohammad-safakhou/floatchat/models"
)

// MaxNumericFields caps how many numeric field names appear in the highlights.
const MaxNumericFields = 3

// NoEntitiesToken replaces the entity count in the headline when no ids were found.
const NoEntitiesToken = "several"

const ellipsis = "…"

// EntityFields are the id columns tried per record, most specific first.
var EntityFields = []string{"entity_id", "float_id", "platform_number", "wmo", "id"}

// DateFields are the timestamp columns tried per record, most specific first.
var DateFields = []string{"date", "timestamp", "profile_date", "juld", "last_contact", "time", "datetime"}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02",
}

// DateWindow is the earliest and latest timestamp found, RFC 3339 in UTC.
type DateWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Synopsis is an immutable summary of one record set.
type Synopsis struct {
	Signature      string      `json:"signature"`
	Headline       string      `json:"headline"`
	Highlights     []string    `json:"highlights"`
	Columns        []string    `json:"columns"`
	SampleEntityID string      `json:"sample_entity_id,omitempty"`
	DateWindow     *DateWindow `json:"date_window,omitempty"`
	RecordCount    int         `json:"record_count"`
	EntityCount    int         `json:"entity_count"`
	NumericFields  []string    `json:"numeric_fields"`
}

// Build summarises records. It returns nil when there is nothing to summarise.
func Build(records []models.Record) *Synopsis {
	if len(records) == 0 {
		return nil
	}
	s := &Synopsis{
		Columns:     records[0].Keys(),
		RecordCount: len(records),
	}

	entities := make(map[string]struct{})
	numericSeen := make(map[string]struct{})
	var minT, maxT time.Time
	haveDate := false

	for _, rec := range records {
		if id, ok := entityID(rec); ok {
			if _, dup := entities[id]; !dup {
				entities[id] = struct{}{}
				if s.SampleEntityID == "" {
					s.SampleEntityID = id
				}
			}
		}
		if ts, ok := recordTime(rec); ok {
			if !haveDate || ts.Before(minT) {
				minT = ts
			}
			if !haveDate || ts.After(maxT) {
				maxT = ts
			}
			haveDate = true
		}
		for _, k := range rec.Keys() {
			if _, ok := numericSeen[k]; ok {
				continue
			}
			if v, _ := rec.Get(k); isFiniteNumber(v) {
				numericSeen[k] = struct{}{}
				s.NumericFields = append(s.NumericFields, k)
			}
		}
	}
	s.EntityCount = len(entities)
	if haveDate {
		s.DateWindow = &DateWindow{
			Start: minT.UTC().Format(time.RFC3339),
			End:   maxT.UTC().Format(time.RFC3339),
		}
	}

	s.Signature = Signature(s.RecordCount, s.Columns, s.EntityCount)
	s.Headline = headline(s.RecordCount, s.EntityCount)
	s.Highlights = highlights(s, minT, maxT)
	return s
}

// Signature is a structural fingerprint of a result set used to tell new
// results from repeats. It is not a hash of the values.
func Signature(recordCount int, columns []string, entityCount int) string {
	return fmt.Sprintf("%d|%s|%d", recordCount, strings.Join(columns, ","), entityCount)
}

func headline(records, entities int) string {
	count := NoEntitiesToken
	if entities > 0 {
		count = strconv.Itoa(entities)
	}
	return fmt.Sprintf("%d %s across %s %s", records, plural(records, "record"), count, plural(entities, "float"))
}

func highlights(s *Synopsis, minT, maxT time.Time) []string {
	var out []string
	if s.SampleEntityID != "" {
		out = append(out, "Sample float "+s.SampleEntityID)
	}
	if s.DateWindow != nil {
		out = append(out, fmt.Sprintf("Dates %s to %s", minT.UTC().Format("2006-01-02"), maxT.UTC().Format("2006-01-02")))
	}
	if len(s.NumericFields) > 0 {
		names := s.NumericFields
		suffix := ""
		if len(names) > MaxNumericFields {
			names = names[:MaxNumericFields]
			suffix = ellipsis
		}
		out = append(out, "Numeric fields: "+strings.Join(names, ", ")+suffix)
	}
	return out
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func entityID(rec models.Record) (string, bool) {
	for _, field := range EntityFields {
		v, ok := rec.Get(field)
		if !ok || v == nil {
			continue
		}
		id, ok := coerceID(v)
		if !ok {
			continue
		}
		return id, true
	}
	return "", false
}

// coerceID turns an id value into a trimmed string. Values whose String
// method panics are skipped rather than aborting the summary.
func coerceID(v any) (id string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			id, ok = "", false
		}
	}()
	switch x := v.(type) {
	case string:
		id = x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", false
		}
		id = strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		id = strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		id = strconv.Itoa(x)
	case int64:
		id = strconv.FormatInt(x, 10)
	case fmt.Stringer:
		id = x.String()
	default:
		id = fmt.Sprintf("%v", x)
	}
	id = strings.TrimSpace(id)
	return id, id != ""
}

func recordTime(rec models.Record) (time.Time, bool) {
	for _, field := range DateFields {
		v, ok := rec.Get(field)
		if !ok || v == nil {
			continue
		}
		if ts, ok := parseTime(v); ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

func parseTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(x)), true
	case int64:
		return time.UnixMilli(x), true
	case int:
		return time.UnixMilli(int64(x)), true
	}
	return time.Time{}, false
}

func isFiniteNumber(v any) bool {
	switch x := v.(type) {
	case float64:
		return !math.IsNaN(x) && !math.IsInf(x, 0)
	case float32:
		f := float64(x)
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}
