package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Field is a single name/value pair used to build records.
type Field struct {
	Name  string
	Value any
}

// Record is one row of a query result. Field order follows the order the
// fields were first set, which for decoded rows is the order the server sent.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord builds a record from fields in order.
func NewRecord(fields ...Field) Record {
	r := Record{values: make(map[string]any, len(fields))}
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// Set stores a value, keeping the original position of an existing field.
func (r *Record) Set(name string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[name]; !ok {
		r.keys = append(r.keys, name)
	}
	r.values[name] = value
}

// Get returns the value of a field and whether it is present.
func (r Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Keys returns the field names in order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.keys) }

// MarshalJSON writes the fields in order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected object, got %v", tok)
	}
	*r = Record{values: make(map[string]any)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record: expected key, got %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("record: field %q: %w", key, err)
		}
		r.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

var selectListRe = regexp.MustCompile(`(?is)\bselect\s+(.*?)\s+from\b`)

// SelectColumns extracts output column names from the first SELECT list of a
// SQL statement. Aliases win over expressions and table qualifiers are dropped.
func SelectColumns(sql string) []string {
	m := selectListRe.FindStringSubmatch(sql)
	if m == nil {
		return nil
	}
	list := strings.TrimSpace(m[1])
	if len(list) > 9 && strings.EqualFold(list[:9], "distinct ") {
		list = list[9:]
	}
	var cols []string
	for _, part := range splitTopLevel(list) {
		name := columnName(part)
		if name == "" || name == "*" {
			return nil
		}
		cols = append(cols, name)
	}
	return cols
}

func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, ch := range s {
		switch ch {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func columnName(expr string) string {
	expr = strings.TrimSpace(expr)
	fields := strings.Fields(expr)
	if n := len(fields); n >= 3 && strings.EqualFold(fields[n-2], "as") {
		expr = fields[n-1]
	} else if !strings.ContainsAny(expr, "()") {
		if idx := strings.LastIndex(expr, "."); idx >= 0 {
			expr = expr[idx+1:]
		}
	}
	return strings.Trim(expr, "\"`' ")
}
