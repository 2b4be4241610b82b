// Package views keeps the list views the UI has mounted. Each view owns a
// leads controller and a new-lead notifier; closing the view stops the
// notifier's timer.
package views

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"leaddesk-engine/internal/domain"
	"leaddesk-engine/internal/events"
	"leaddesk-engine/internal/leads"
	"leaddesk-engine/internal/notify"
)

var ErrViewNotFound = errors.New("view not found")

// Backend is everything a view reads from or writes to.
type Backend interface {
	leads.Lister
	leads.Deleter
	notify.Counter
}

// Session is who opened the view.
type Session struct {
	Role   domain.Role `json:"role"`
	UserID string      `json:"user_id"`
}

type Deps struct {
	Backend Backend
	Hub     *events.Hub
	// PollInterval is read when a view is created so config reloads apply
	// to views opened afterwards.
	PollInterval func() time.Duration
	Logger       *log.Logger
	Now          func() time.Time
}

type View struct {
	ID        string
	Session   Session
	CreatedAt time.Time

	Leads  *leads.Controller
	Notice *notify.Notifier

	hub *events.Hub
}

type Permissions struct {
	Delete       bool `json:"delete"`
	WatchNew     bool `json:"watch_new"`
	FilterByUser bool `json:"filter_by_user"`
}

type Snapshot struct {
	ID          string          `json:"id"`
	Session     Session         `json:"session"`
	CreatedAt   time.Time       `json:"created_at"`
	Permissions Permissions     `json:"permissions"`
	List        leads.ViewState `json:"list"`
	Notice      notify.Baseline `json:"notice"`
}

type Registry struct {
	deps Deps
	base context.Context

	mu    sync.Mutex
	views map[string]*View
}

// NewRegistry ties every notifier to base: cancelling it stops all timers.
func NewRegistry(base context.Context, d Deps) *Registry {
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.PollInterval == nil {
		d.PollInterval = func() time.Duration { return notify.DefaultInterval }
	}
	if d.Hub == nil {
		d.Hub = events.NewHub()
	}
	return &Registry{deps: d, base: base, views: map[string]*View{}}
}

// Create mounts a view, loads its first page and starts new-lead polling
// when the role allows it. A failed first load still yields a view; the
// failure shows up in its list state.
func (r *Registry) Create(ctx context.Context, s Session, initial *leads.FilterState) (*View, error) {
	if r.deps.Backend == nil {
		return nil, errors.New("views: no backend")
	}
	id := uuid.NewString()

	v := &View{
		ID:        id,
		Session:   s,
		CreatedAt: r.deps.Now(),
		hub:       r.deps.Hub,
	}
	v.Leads = leads.NewController(r.deps.Backend, leads.Options{
		Role:    s.Role,
		UserID:  s.UserID,
		Initial: initial,
		Deleter: r.deps.Backend,
		Now:     r.deps.Now,
		Logger:  r.deps.Logger,
	})
	v.Notice = notify.New(r.deps.Backend, s.Role.CanWatchNewLeads(), notify.Options{
		Interval: r.deps.PollInterval(),
		Logger:   r.deps.Logger,
		Now:      r.deps.Now,
		OnRaise: func(b notify.Baseline) {
			r.deps.Hub.Publish(events.MakeEvent("", id, events.TypeLeadsNew, 1, b))
		},
	})

	r.mu.Lock()
	r.views[id] = v
	r.mu.Unlock()

	if err := v.Leads.Refresh(ctx); err != nil {
		r.deps.Logger.Printf("[views] first load failed view=%s err=%v", id, err)
	}
	v.Notice.Start(r.base)
	r.deps.Logger.Printf("[views] created view=%s role=%q watching=%t", id, s.Role, v.Notice.Running())
	return v, nil
}

func (r *Registry) Get(id string) (*View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[id]
	if !ok {
		return nil, ErrViewNotFound
	}
	return v, nil
}

// Close unmounts a view. Its notifier stops at once; a poll still in
// flight is ignored when it lands.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	v, ok := r.views[id]
	delete(r.views, id)
	r.mu.Unlock()
	if !ok {
		return ErrViewNotFound
	}
	v.Notice.Stop()
	r.deps.Hub.Publish(events.MakeEvent("", id, events.TypeViewClosed, 1, nil))
	return nil
}

func (r *Registry) CloseAll() {
	for _, id := range r.IDs() {
		_ = r.Close(id)
	}
}

func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.views))
	for id := range r.views {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Delete removes a lead through the view and announces it.
func (v *View) Delete(ctx context.Context, leadID string) error {
	if err := v.Leads.Delete(ctx, leadID); err != nil {
		return err
	}
	v.hub.Publish(events.MakeEvent("", v.ID, events.TypeLeadDeleted, 1, map[string]string{"id": leadID}))
	return nil
}

// DismissNotice hides the new-lead notice and reloads the list so the new
// rows are visible.
func (v *View) DismissNotice(ctx context.Context) error {
	v.Notice.Dismiss()
	return v.Leads.Refresh(ctx)
}

func (v *View) Snapshot() Snapshot {
	role := v.Session.Role
	return Snapshot{
		ID:        v.ID,
		Session:   v.Session,
		CreatedAt: v.CreatedAt,
		Permissions: Permissions{
			Delete:       role.CanDeleteLeads(),
			WatchNew:     role.CanWatchNewLeads(),
			FilterByUser: role.CanFilterByUser(),
		},
		List:   v.Leads.View(),
		Notice: v.Notice.Snapshot(),
	}
}
