package leads

import (
	"errors"
	"slices"
	"sync"
	"time"
)

const DefaultPageSize = 10

// PageSizes are the page sizes the list view offers.
var PageSizes = []int{5, 10, 15}

var ErrInvalidPageSize = errors.New("invalid page size")

type FilterState struct {
	SearchText     string     `json:"search"`
	StatusID       string     `json:"status"`
	AssignedUserID string     `json:"assigned_user"`
	TeamID         string     `json:"team"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	Page           int        `json:"page"`
	PageSize       int        `json:"page_size"`
}

// Filters is the part of FilterState a user edits through the filter bar.
// Changing any of it sends the list back to page 1.
type Filters struct {
	SearchText     string
	StatusID       string
	AssignedUserID string
	TeamID         string
	StartDate      *time.Time
	EndDate        *time.Time
}

func DefaultFilterState() FilterState {
	return FilterState{
		StatusID:       All,
		AssignedUserID: All,
		TeamID:         All,
		Page:           1,
		PageSize:       DefaultPageSize,
	}
}

func DefaultFilters() Filters {
	return DefaultFilterState().Filters()
}

func (f FilterState) Filters() Filters {
	return Filters{
		SearchText:     f.SearchText,
		StatusID:       f.StatusID,
		AssignedUserID: f.AssignedUserID,
		TeamID:         f.TeamID,
		StartDate:      cloneDate(f.StartDate),
		EndDate:        cloneDate(f.EndDate),
	}
}

func (f FilterState) clone() FilterState {
	f.StartDate = cloneDate(f.StartDate)
	f.EndDate = cloneDate(f.EndDate)
	return f
}

func ValidPageSize(n int) bool {
	return slices.Contains(PageSizes, n)
}

type Field string

const (
	FieldSearch       Field = "search"
	FieldStatus       Field = "status"
	FieldAssignedUser Field = "assigned_user"
	FieldTeam         Field = "team"
	FieldStartDate    Field = "start_date"
	FieldEndDate      Field = "end_date"
	FieldPage         Field = "page"
	FieldPageSize     Field = "page_size"
)

// Transition is one observable state change. A filter edit produces two:
// the field itself, then the page reset.
type Transition struct {
	Field Field
	State FilterState
}

// Store owns one view's filter state. Callers only get copies.
type Store struct {
	mu        sync.Mutex
	state     FilterState
	observers []func(Transition)
}

func NewStore(initial FilterState) *Store {
	if initial.Page < 1 {
		initial.Page = 1
	}
	if !ValidPageSize(initial.PageSize) {
		initial.PageSize = DefaultPageSize
	}
	initial.StartDate = normalizeDate(initial.StartDate)
	initial.EndDate = normalizeDate(initial.EndDate)
	return &Store{state: initial.clone()}
}

func (s *Store) Observe(fn func(Transition)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *Store) Snapshot() FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *Store) SetSearch(text string) bool {
	return s.edit(func(f *Filters) { f.SearchText = text })
}

func (s *Store) SetStatus(id string) bool {
	return s.edit(func(f *Filters) { f.StatusID = selector(id) })
}

func (s *Store) SetAssignedUser(id string) bool {
	return s.edit(func(f *Filters) { f.AssignedUserID = selector(id) })
}

func (s *Store) SetTeam(id string) bool {
	return s.edit(func(f *Filters) { f.TeamID = selector(id) })
}

func (s *Store) SetDateRange(start, end *time.Time) bool {
	return s.edit(func(f *Filters) {
		f.StartDate = start
		f.EndDate = end
	})
}

// ApplyFilters replaces every filter field at once. It reports whether
// anything changed.
func (s *Store) ApplyFilters(next Filters) bool {
	return s.edit(func(f *Filters) { *f = next })
}

func (s *Store) edit(mut func(*Filters)) bool {
	s.mu.Lock()
	cur := s.state.Filters()
	next := cur
	mut(&next)
	next.StatusID = selector(next.StatusID)
	next.AssignedUserID = selector(next.AssignedUserID)
	next.TeamID = selector(next.TeamID)
	next.StartDate = normalizeDate(next.StartDate)
	next.EndDate = normalizeDate(next.EndDate)

	var ts []Transition
	apply := func(field Field, changed bool, set func()) {
		if !changed {
			return
		}
		set()
		ts = append(ts, Transition{Field: field, State: s.state.clone()})
	}
	apply(FieldSearch, next.SearchText != cur.SearchText, func() { s.state.SearchText = next.SearchText })
	apply(FieldStatus, next.StatusID != cur.StatusID, func() { s.state.StatusID = next.StatusID })
	apply(FieldAssignedUser, next.AssignedUserID != cur.AssignedUserID, func() { s.state.AssignedUserID = next.AssignedUserID })
	apply(FieldTeam, next.TeamID != cur.TeamID, func() { s.state.TeamID = next.TeamID })
	apply(FieldStartDate, !sameDate(next.StartDate, cur.StartDate), func() { s.state.StartDate = next.StartDate })
	apply(FieldEndDate, !sameDate(next.EndDate, cur.EndDate), func() { s.state.EndDate = next.EndDate })

	if len(ts) == 0 {
		s.mu.Unlock()
		return false
	}
	s.state.Page = 1
	ts = append(ts, Transition{Field: FieldPage, State: s.state.clone()})
	obs := slices.Clone(s.observers)
	s.mu.Unlock()

	notify(obs, ts)
	return true
}

// SetPage moves to page p. It never resets anything and is rejected when p
// is outside [1, totalPages].
func (s *Store) SetPage(p, totalPages int) bool {
	if p < 1 || p > totalPages {
		return false
	}
	s.mu.Lock()
	if s.state.Page == p {
		s.mu.Unlock()
		return true
	}
	s.state.Page = p
	t := Transition{Field: FieldPage, State: s.state.clone()}
	obs := slices.Clone(s.observers)
	s.mu.Unlock()

	notify(obs, []Transition{t})
	return true
}

func (s *Store) SetPageSize(n int) error {
	if !ValidPageSize(n) {
		return ErrInvalidPageSize
	}
	s.mu.Lock()
	if s.state.PageSize == n {
		s.mu.Unlock()
		return nil
	}
	s.state.PageSize = n
	t := Transition{Field: FieldPageSize, State: s.state.clone()}
	obs := slices.Clone(s.observers)
	s.mu.Unlock()

	notify(obs, []Transition{t})
	return nil
}

// Reset restores defaults but keeps the page size the user picked.
func (s *Store) Reset() bool {
	return s.ApplyFilters(DefaultFilters())
}

func notify(obs []func(Transition), ts []Transition) {
	for _, t := range ts {
		for _, fn := range obs {
			fn(t)
		}
	}
}

func selector(v string) string {
	if v == "" {
		return All
	}
	return v
}

// normalizeDate drops the time of day; filters work on calendar dates.
func normalizeDate(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return &d
}

func cloneDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := *t
	return &d
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Format(DateLayout) == b.Format(DateLayout)
}
