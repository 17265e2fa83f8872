package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedResult is returned when a query result cannot be read as a record sequence.
var ErrMalformedResult = errors.New("malformed query result")

// BackendStatus describes how the dataset currently shown was obtained.
type BackendStatus string

const (
	StatusPending     BackendStatus = "pending"
	StatusOperational BackendStatus = "operational"
	StatusDegraded    BackendStatus = "degraded"
	StatusOffline     BackendStatus = "offline"
)

// Terminal reports whether the status is one an acquisition can settle on.
func (s BackendStatus) Terminal() bool {
	switch s {
	case StatusOperational, StatusDegraded, StatusOffline:
		return true
	}
	return false
}

// QueryResponse is the envelope returned by the remote query service.
type QueryResponse struct {
	Result           json.RawMessage `json:"result"`
	QueryDescription *string         `json:"query_description"`
	Error            *string         `json:"error"`
}

// ErrorText returns the trimmed error field, empty when absent.
func (r QueryResponse) ErrorText() string {
	if r.Error == nil {
		return ""
	}
	return strings.TrimSpace(*r.Error)
}

// Description returns the trimmed query description, empty when absent.
func (r QueryResponse) Description() string {
	if r.QueryDescription == nil {
		return ""
	}
	return strings.TrimSpace(*r.QueryDescription)
}

// Records decodes the result payload as a sequence of records. Objects are taken as-is;
// positional rows are named using the column list of the SELECT in the query description.
// A bare string, null or any other shape yields ErrMalformedResult.
func (r QueryResponse) Records() ([]Record, error) {
	raw := strings.TrimSpace(string(r.Result))
	if raw == "" || raw[0] != '[' {
		return nil, ErrMalformedResult
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	records := make([]Record, 0, len(items))
	var columns []string
	for i, item := range items {
		trimmed := strings.TrimSpace(string(item))
		switch {
		case strings.HasPrefix(trimmed, "{"):
			var rec Record
			if err := json.Unmarshal(item, &rec); err != nil {
				return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedResult, i, err)
			}
			records = append(records, rec)
		case strings.HasPrefix(trimmed, "["):
			if columns == nil {
				columns = SelectColumns(r.Description())
				if len(columns) == 0 {
					return nil, fmt.Errorf("%w: positional rows without a column list", ErrMalformedResult)
				}
			}
			var row []any
			if err := json.Unmarshal(item, &row); err != nil {
				return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedResult, i, err)
			}
			if len(row) != len(columns) {
				return nil, fmt.Errorf("%w: row %d has %d values for %d columns", ErrMalformedResult, i, len(row), len(columns))
			}
			rec := NewRecord()
			for j, col := range columns {
				rec.Set(col, row[j])
			}
			records = append(records, rec)
		default:
			return nil, fmt.Errorf("%w: row %d is not an object or array", ErrMalformedResult, i)
		}
	}
	return records, nil
}

// Snapshot is the last good dataset together with the question that produced it.
type Snapshot struct {
	Records []Record  `json:"records"`
	Query   string    `json:"query"`
	SavedAt time.Time `json:"saved_at"`
}

// ErrKeyNotFound is returned by key-value stores when a key holds no value.
var ErrKeyNotFound = errors.New("key not found")
