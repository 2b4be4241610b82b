package leads

import (
	"net/url"
	"strconv"
	"strings"
)

// All is the selector value meaning "no constraint". It never reaches the
// backend.
const All = "All"

const DateLayout = "2006-01-02"

type Param struct {
	Key   string
	Value string
}

// Query is an ordered list of query parameters. Unlike url.Values it keeps
// insertion order, so the same filters always encode to the same string.
type Query []Param

// BuildQuery turns filter state into the /leads query. page and limit are
// always present and always last.
func BuildQuery(f FilterState) Query {
	q := make(Query, 0, 8)
	if s := strings.TrimSpace(f.SearchText); s != "" {
		q = append(q, Param{"search", s})
	}
	if isConstraint(f.StatusID) {
		q = append(q, Param{"status", f.StatusID})
	}
	if isConstraint(f.AssignedUserID) {
		q = append(q, Param{"created_by", f.AssignedUserID})
	}
	if isConstraint(f.TeamID) {
		q = append(q, Param{"team_id", f.TeamID})
	}
	// start > end is passed through as-is; the backend owns that decision.
	if f.StartDate != nil {
		q = append(q, Param{"start_date", f.StartDate.Format(DateLayout)})
	}
	if f.EndDate != nil {
		q = append(q, Param{"end_date", f.EndDate.Format(DateLayout)})
	}
	q = append(q,
		Param{"page", strconv.Itoa(f.Page)},
		Param{"limit", strconv.Itoa(f.PageSize)},
	)
	return q
}

func isConstraint(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != All
}

func (q Query) Encode() string {
	var b strings.Builder
	for i, p := range q {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

func (q Query) Get(key string) (string, bool) {
	for _, p := range q {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// With returns a copy of q with key set to value. An existing key keeps
// its position.
func (q Query) With(key, value string) Query {
	out := make(Query, len(q), len(q)+1)
	copy(out, q)
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			return out
		}
	}
	return append(out, Param{key, value})
}

func (q Query) Values() url.Values {
	v := make(url.Values, len(q))
	for _, p := range q {
		v.Add(p.Key, p.Value)
	}
	return v
}
