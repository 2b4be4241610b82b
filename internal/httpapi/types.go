package httpapi

import (
	"fmt"
	"strings"
	"time"

	"leaddesk-engine/internal/leads"
)

type createViewReq struct {
	Filters  *filtersReq `json:"filters,omitempty"`
	PageSize int         `json:"page_size,omitempty"`
}

// filtersReq is a partial filter update. Absent fields keep their value;
// an empty date string clears that bound.
type filtersReq struct {
	Search       *string `json:"search,omitempty"`
	Status       *string `json:"status,omitempty"`
	AssignedUser *string `json:"assigned_user,omitempty"`
	Team         *string `json:"team,omitempty"`
	StartDate    *string `json:"start_date,omitempty"`
	EndDate      *string `json:"end_date,omitempty"`
}

func (f filtersReq) apply(cur leads.Filters) (leads.Filters, error) {
	if f.Search != nil {
		cur.SearchText = *f.Search
	}
	if f.Status != nil {
		cur.StatusID = *f.Status
	}
	if f.AssignedUser != nil {
		cur.AssignedUserID = *f.AssignedUser
	}
	if f.Team != nil {
		cur.TeamID = *f.Team
	}
	var err error
	if f.StartDate != nil {
		if cur.StartDate, err = parseDay(*f.StartDate); err != nil {
			return cur, fmt.Errorf("start_date: %w", err)
		}
	}
	if f.EndDate != nil {
		if cur.EndDate, err = parseDay(*f.EndDate); err != nil {
			return cur, fmt.Errorf("end_date: %w", err)
		}
	}
	return cur, nil
}

func parseDay(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(leads.DateLayout, s, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type pageReq struct {
	Page int `json:"page"`
}

type pageSizeReq struct {
	PageSize int `json:"page_size"`
}
