package leads

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"leaddesk-engine/internal/backend"
	"leaddesk-engine/internal/domain"
)

var (
	ErrPageOutOfRange = errors.New("page out of range")
	ErrForbidden      = errors.New("not permitted for this role")
)

// DeleteFailedMessage is shown when a delete fails without a server message.
const DeleteFailedMessage = "Failed to delete lead"

type Deleter interface {
	DeleteLead(ctx context.Context, id string) error
}

type Options struct {
	Role     domain.Role
	UserID   string
	Initial  *FilterState
	Deleter  Deleter
	Now      func() time.Time
	Logger   *log.Logger
	OnChange func(Transition)
}

type Row struct {
	Lead  domain.Record `json:"lead"`
	Badge string        `json:"badge"`
}

// ViewState is what a list view renders. It is rebuilt on every call to
// View and never shared with the controller.
type ViewState struct {
	Filters    FilterState    `json:"filters"`
	Rows       []Row          `json:"rows"`
	Total      int            `json:"total"`
	First      int            `json:"first"`
	Last       int            `json:"last"`
	Pagination PaginationView `json:"pagination"`
	Loading    bool           `json:"loading"`
	Err        error          `json:"-"`
	ErrMessage string         `json:"error,omitempty"`
	FetchedAt  time.Time      `json:"fetched_at"`
}

// Controller drives one mounted list view: it owns the filter store, runs
// fetches on every change, and keeps the last good page when a fetch fails.
type Controller struct {
	store   *Store
	fetcher *Fetcher
	deleter Deleter
	role    domain.Role
	userID  string
	now     func() time.Time
	logger  *log.Logger

	mu        sync.Mutex
	items     []domain.Record
	total     int
	loading   bool
	err       error
	errMsg    string
	fetchedAt time.Time
}

func NewController(l Lister, opts Options) *Controller {
	initial := DefaultFilterState()
	if opts.Initial != nil {
		initial = opts.Initial.clone()
	}
	c := &Controller{
		fetcher: NewFetcher(l),
		deleter: opts.Deleter,
		role:    opts.Role,
		userID:  strings.TrimSpace(opts.UserID),
		now:     opts.Now,
		logger:  opts.Logger,
		items:   []domain.Record{},
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	f := c.scope(initial.Filters())
	initial.SearchText, initial.StatusID = f.SearchText, f.StatusID
	initial.AssignedUserID, initial.TeamID = f.AssignedUserID, f.TeamID
	c.store = NewStore(initial)
	if opts.OnChange != nil {
		c.store.Observe(opts.OnChange)
	}
	return c
}

// scope pins agents to their own leads regardless of what the filter bar
// sent.
func (c *Controller) scope(f Filters) Filters {
	if c.role.IsAgent() && c.userID != "" {
		f.AssignedUserID = c.userID
	} else if !c.role.CanFilterByUser() {
		f.AssignedUserID = All
	}
	return f
}

func (c *Controller) Filters() FilterState { return c.store.Snapshot() }

func (c *Controller) ApplyFilters(ctx context.Context, f Filters) error {
	c.store.ApplyFilters(c.scope(f))
	return c.Refresh(ctx)
}

func (c *Controller) SetSearch(ctx context.Context, text string) error {
	c.store.SetSearch(text)
	return c.Refresh(ctx)
}

func (c *Controller) SetPage(ctx context.Context, p int) error {
	fs := c.store.Snapshot()
	c.mu.Lock()
	total := c.total
	c.mu.Unlock()

	if !c.store.SetPage(p, TotalPages(total, fs.PageSize)) {
		return fmt.Errorf("%w: %d", ErrPageOutOfRange, p)
	}
	return c.Refresh(ctx)
}

func (c *Controller) SetPageSize(ctx context.Context, n int) error {
	if err := c.store.SetPageSize(n); err != nil {
		return err
	}
	return c.refreshClamped(ctx)
}

// Refresh re-reads the current page with the current filters. A result
// that was overtaken by a newer fetch is dropped without touching state.
func (c *Controller) Refresh(ctx context.Context) error {
	fs := c.store.Snapshot()

	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()

	t, res, err := c.fetcher.Fetch(ctx, fs)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.fetcher.IsCurrent(t) {
		c.logger.Printf("[leads] dropped stale result ticket=%d", t)
		return nil
	}
	c.loading = false
	if err != nil {
		c.err = err
		c.errMsg = backend.UserMessage(err, FetchFailedMessage)
		c.logger.Printf("[leads] fetch failed query=%q err=%v", BuildQuery(fs).Encode(), err)
		return err
	}
	c.items = res.Items
	c.total = res.Total
	c.err = nil
	c.errMsg = ""
	c.fetchedAt = c.now()
	return nil
}

// refreshClamped refreshes and, if the current page no longer exists (page
// size grew, rows were deleted), moves to the last page and reads again.
func (c *Controller) refreshClamped(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		return err
	}
	fs := c.store.Snapshot()
	c.mu.Lock()
	n := TotalPages(c.total, fs.PageSize)
	c.mu.Unlock()

	if n > 0 && fs.Page > n {
		c.store.SetPage(n, n)
		return c.Refresh(ctx)
	}
	return nil
}

// ReplaceResults installs a page obtained elsewhere and makes any fetch
// still in flight stale.
func (c *Controller) ReplaceResults(res domain.PageResult) {
	c.fetcher.Invalidate()
	c.mu.Lock()
	defer c.mu.Unlock()
	if res.Items == nil {
		res.Items = []domain.Record{}
	}
	c.items = res.Items
	c.total = max(res.Total, 0)
	c.loading = false
	c.err = nil
	c.errMsg = ""
	c.fetchedAt = c.now()
}

// Delete removes a lead and re-reads the list with unchanged filters.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if !c.role.CanDeleteLeads() {
		return ErrForbidden
	}
	if c.deleter == nil {
		return errors.New("delete not configured")
	}
	if err := c.deleter.DeleteLead(ctx, id); err != nil {
		c.mu.Lock()
		c.err = err
		c.errMsg = backend.UserMessage(err, DeleteFailedMessage)
		c.mu.Unlock()
		return err
	}
	c.logger.Printf("[leads] deleted id=%s", id)
	return c.refreshClamped(ctx)
}

func (c *Controller) View() ViewState {
	fs := c.store.Snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()

	rows := make([]Row, 0, len(c.items))
	for _, it := range c.items {
		rows = append(rows, Row{Lead: it, Badge: domain.BadgeFor(it.Status())})
	}
	first, last := Range(c.total, fs.PageSize, fs.Page)
	return ViewState{
		Filters:    fs,
		Rows:       rows,
		Total:      c.total,
		First:      first,
		Last:       last,
		Pagination: Paginate(c.total, fs.PageSize, fs.Page),
		Loading:    c.loading,
		Err:        c.err,
		ErrMessage: c.errMsg,
		FetchedAt:  c.fetchedAt,
	}
}
