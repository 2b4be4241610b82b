package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record is one lead as returned by the backend. The engine only interprets
// a handful of fields (id, status, created_at, and the export columns); the
// rest is passed through untouched.
type Record map[string]any

type PageResult struct {
	Items []Record `json:"items"`
	Total int      `json:"total"`
}

// Option is an entry of a filter dropdown (status, user, team).
type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (r Record) ID() string {
	s, _ := r.String("id")
	return s
}

// String returns a scalar field rendered as text. Objects with a "name"
// key (e.g. {"id":3,"name":"Hot"}) render as their name. Empty strings count
// as absent.
func (r Record) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	s := scalarText(v)
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func scalarText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case map[string]any:
		if n, ok := x["name"]; ok && n != nil {
			return scalarText(n)
		}
		return ""
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			if s := scalarText(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(x)
	}
}

// Bool reports the truthiness of a flag field. The backend is not
// consistent: flags arrive as JSON booleans, 0/1, or "yes"/"no" strings.
func (r Record) Bool(key string) (value bool, present bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return false, false
	}
	switch x := v.(type) {
	case bool:
		return x, true
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return false, false
		}
		return n != 0, true
	case float64:
		return x != 0, true
	case int:
		return x != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "yes", "y", "1":
			return true, true
		case "false", "no", "n", "0":
			return false, true
		}
	}
	return false, false
}

// recordTimeLayouts lists zoned layouts first. The rest carry no offset
// and are read as wall-clock values in the caller's location.
var recordTimeLayouts = []struct {
	layout   string
	zoned    bool
	dateOnly bool
}{
	{time.RFC3339Nano, true, false},
	{"2006-01-02T15:04:05", false, false},
	{"2006-01-02 15:04:05", false, false},
	{"2006-01-02", false, true},
}

// Stamp is a parsed record time. Zoned stamps name an instant; the others
// are wall-clock values already placed in the requested location.
type Stamp struct {
	Time     time.Time
	Zoned    bool
	DateOnly bool
}

// Time parses key as an instant, reading offset-less values as UTC.
func (r Record) Time(key string) (time.Time, bool) {
	st, ok := r.TimeIn(key, time.UTC)
	return st.Time, ok
}

// TimeIn parses key. Values without an offset are read in loc and never
// converted, so a bare date stays on the same calendar day everywhere.
func (r Record) TimeIn(key string, loc *time.Location) (Stamp, bool) {
	if loc == nil {
		loc = time.Local
	}
	s, ok := r.String(key)
	if !ok {
		return Stamp{}, false
	}
	for _, l := range recordTimeLayouts {
		var (
			t   time.Time
			err error
		)
		if l.zoned {
			t, err = time.Parse(l.layout, s)
		} else {
			t, err = time.ParseInLocation(l.layout, s, loc)
		}
		if err == nil {
			return Stamp{Time: t, Zoned: l.zoned, DateOnly: l.dateOnly}, true
		}
	}
	return Stamp{}, false
}

// Status prefers the denormalized status name over the raw status field.
func (r Record) Status() string {
	if s, ok := r.String("status_name"); ok {
		return s
	}
	s, _ := r.String("status")
	return s
}

func (r Record) CreatedAt() (time.Time, bool) {
	return r.Time("created_at")
}
