package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-json"

	"leaddesk-engine/internal/backend"
	"leaddesk-engine/internal/domain"
	"leaddesk-engine/internal/leads"
	"leaddesk-engine/internal/options"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "242", Dark: "246"})
	currentStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	borderColor  = lipgloss.AdaptiveColor{Light: "248", Dark: "242"}

	badgeStyles = map[string]lipgloss.Style{
		"info":      lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "25", Dark: "33"}),
		"primary":   lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "30", Dark: "51"}),
		"warning":   lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "136", Dark: "226"}),
		"success":   lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "46"}),
		"danger":    lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "124", Dark: "196"}),
		"secondary": mutedStyle,
	}
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func text(r domain.Record, fallback string, keys ...string) string {
	for _, k := range keys {
		if s, ok := r.String(k); ok {
			return s
		}
	}
	return fallback
}

func renderLeads(w io.Writer, v leads.ViewState, now time.Time) {
	if v.Total == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No leads match these filters."))
		return
	}

	rows := make([][]string, 0, len(v.Rows))
	badges := make([]string, 0, len(v.Rows))
	for _, row := range v.Rows {
		r := row.Lead
		created := "-"
		if t, ok := r.CreatedAt(); ok {
			created = backend.RelativeTime(t, now)
		}
		rows = append(rows, []string{
			r.ID(),
			text(r, "-", "full_name", "name"),
			text(r, "-", "phone"),
			text(r, "-", "status_name", "status"),
			text(r, "No Team", "team_name"),
			text(r, "Unassigned", "assigned_to_name", "assigned_user_name"),
			created,
		})
		badges = append(badges, row.Badge)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(borderColor)).
		Headers("ID", "Name", "Phone", "Status", "Team", "Assigned To", "Created").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			if col == 3 && row >= 0 && row < len(badges) {
				if s, ok := badgeStyles[badges[row]]; ok {
					return s.Padding(0, 1)
				}
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, pagerLine(v))
}

// pagerLine renders "Showing 11-20 of 43   ‹ 1 [2] 3 4 5 ›".
func pagerLine(v leads.ViewState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Showing %d-%d of %d   ", v.First, v.Last, v.Total)

	prev, next := "‹", "›"
	if !v.Pagination.HasPrev {
		prev = mutedStyle.Render(prev)
	}
	if !v.Pagination.HasNext {
		next = mutedStyle.Render(next)
	}
	parts := []string{prev}
	for _, l := range v.Pagination.Window {
		switch {
		case l.Ellipsis:
			parts = append(parts, "…")
		case l.Number == v.Filters.Page:
			parts = append(parts, currentStyle.Render("["+strconv.Itoa(l.Number)+"]"))
		default:
			parts = append(parts, strconv.Itoa(l.Number))
		}
	}
	parts = append(parts, next)
	b.WriteString(strings.Join(parts, " "))
	return b.String()
}

func renderOptions(w io.Writer, res options.Result) {
	if res.Cached {
		fmt.Fprintln(w, mutedStyle.Render("Backend unreachable; showing lists cached at "+res.FetchedAt.Local().Format("2006-01-02 15:04")))
	}
	for _, sec := range []struct {
		title string
		opts  []domain.Option
	}{
		{"Statuses", res.Statuses},
		{"Users", res.Users},
		{"Teams", res.Teams},
	} {
		rows := make([][]string, 0, len(sec.opts))
		for _, o := range sec.opts {
			rows = append(rows, []string{o.ID, o.Name})
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(borderColor)).
			Headers("ID", "Name").
			Rows(rows...)
		fmt.Fprintln(w, headerStyle.Render(sec.title))
		fmt.Fprintln(w, t.Render())
	}
}
