package backend

import (
	"context"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"leaddesk-engine/internal/domain"
)

// Stats is passed through as the backend shapes it; the dashboard only
// renders the numbers.
type Stats map[string]any

type Activity struct {
	ID      string    `json:"id"`
	Message string    `json:"message"`
	Actor   string    `json:"actor"`
	LeadID  string    `json:"lead_id,omitempty"`
	At      time.Time `json:"at"`
	Ago     string    `json:"ago"`
}

func (c *Client) DashboardStats(ctx context.Context) (Stats, error) {
	var s Stats
	if err := c.do(ctx, "dashboard stats", http.MethodGet, "/dashboard/stats", "", &s); err != nil {
		return nil, err
	}
	if s == nil {
		s = Stats{}
	}
	return s, nil
}

func (c *Client) RecentActivities(ctx context.Context, now time.Time) ([]Activity, error) {
	var rows []domain.Record
	if err := c.do(ctx, "recent activities", http.MethodGet, "/activities/recent", "", &rows); err != nil {
		return nil, err
	}
	out := make([]Activity, 0, len(rows))
	for _, r := range rows {
		a := Activity{ID: r.ID()}
		a.Message = pick(r, "description", "message", "action")
		a.Actor = pick(r, "user_name", "performed_by", "created_by_name")
		a.LeadID = pick(r, "lead_id")
		if t, ok := r.CreatedAt(); ok {
			a.At = t
			a.Ago = RelativeTime(t, now)
		}
		out = append(out, a)
	}
	return out, nil
}

// RelativeTime renders "3 minutes ago" style labels. Anything under a
// minute reads "just now".
func RelativeTime(t, now time.Time) string {
	if d := now.Sub(t); d >= 0 && d < time.Minute {
		return "just now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func pick(r domain.Record, keys ...string) string {
	for _, k := range keys {
		if s, ok := r.String(k); ok {
			return s
		}
	}
	return ""
}
