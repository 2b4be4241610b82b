package views

import (
	"context"
	"io"
	"log"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaddesk-engine/internal/domain"
	"leaddesk-engine/internal/events"
	"leaddesk-engine/internal/leads"
	"leaddesk-engine/internal/notify"
)

type memBackend struct {
	mu      sync.Mutex
	leads   []domain.Record
	queries []string
}

func (m *memBackend) ListLeads(_ context.Context, rawQuery string) (domain.PageResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, rawQuery)
	out := make([]domain.Record, len(m.leads))
	copy(out, m.leads)
	return domain.PageResult{Items: out, Total: len(out)}, nil
}

func (m *memBackend) DeleteLead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.leads {
		if r.ID() == id {
			m.leads = append(m.leads[:i], m.leads[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memBackend) CountLeads(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.leads), nil
}

func (m *memBackend) add(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		m.leads = append(m.leads, domain.Record{"id": time.Now().String()})
	}
}

func (m *memBackend) lastQuery() url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, _ := url.ParseQuery(m.queries[len(m.queries)-1])
	return v
}

func newRegistry(t *testing.T, b *memBackend, hub *events.Hub) *Registry {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewRegistry(ctx, Deps{
		Backend:      b,
		Hub:          hub,
		PollInterval: func() time.Duration { return 10 * time.Millisecond },
		Logger:       log.New(io.Discard, "", 0),
	})
}

func TestCreateLoadsFirstPage(t *testing.T) {
	b := &memBackend{leads: []domain.Record{{"id": "1", "status_name": "New"}, {"id": "2"}}}
	r := newRegistry(t, b, nil)

	v, err := r.Create(context.Background(), Session{Role: domain.RoleAgent, UserID: "u7"}, nil)
	require.NoError(t, err)
	defer r.CloseAll()

	snap := v.Snapshot()
	assert.Equal(t, 2, snap.List.Total)
	assert.Len(t, snap.List.Rows, 2)
	assert.Equal(t, notify.Inactive, snap.Notice.State)
	assert.False(t, snap.Permissions.Delete)
	assert.False(t, v.Notice.Running())
	assert.Equal(t, "u7", b.lastQuery().Get("created_by"))

	got, err := r.Get(v.ID)
	require.NoError(t, err)
	assert.Same(t, v, got)
}

func TestManagerViewRaisesAndPublishes(t *testing.T) {
	b := &memBackend{}
	b.add(4)
	hub := events.NewHub()
	sub := hub.Subscribe()
	r := newRegistry(t, b, hub)

	v, err := r.Create(context.Background(), Session{Role: domain.RoleManager}, nil)
	require.NoError(t, err)
	require.True(t, v.Notice.Running())

	require.Eventually(t, func() bool {
		return v.Notice.Snapshot().State == notify.Baselined
	}, 2*time.Second, 5*time.Millisecond)

	b.add(3)

	var e events.Event
	require.Eventually(t, func() bool {
		select {
		case s := <-sub:
			e, _ = events.Parse(s)
			return e.Type == events.TypeLeadsNew
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, v.ID, e.ViewID)
	assert.Equal(t, 3, v.Notice.Snapshot().PendingDelta)

	require.NoError(t, v.DismissNotice(context.Background()))
	assert.False(t, v.Notice.Snapshot().Visible)
	assert.Equal(t, 7, v.Snapshot().List.Total)

	require.NoError(t, r.Close(v.ID))
	assert.False(t, v.Notice.Running())
	assert.ErrorIs(t, r.Close(v.ID), ErrViewNotFound)
	_, err = r.Get(v.ID)
	assert.ErrorIs(t, err, ErrViewNotFound)
}

func TestDeleteRespectsRole(t *testing.T) {
	b := &memBackend{leads: []domain.Record{{"id": "1"}, {"id": "2"}}}
	r := newRegistry(t, b, nil)
	defer r.CloseAll()

	agent, err := r.Create(context.Background(), Session{Role: domain.RoleAgent, UserID: "u1"}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, agent.Delete(context.Background(), "1"), leads.ErrForbidden)

	admin, err := r.Create(context.Background(), Session{Role: domain.RoleSuperAdmin}, nil)
	require.NoError(t, err)
	require.NoError(t, admin.Delete(context.Background(), "1"))
	assert.Equal(t, 1, admin.Snapshot().List.Total)
}

func TestCloseAll(t *testing.T) {
	r := newRegistry(t, &memBackend{}, nil)
	for i := 0; i < 3; i++ {
		_, err := r.Create(context.Background(), Session{Role: domain.RoleManager}, nil)
		require.NoError(t, err)
	}
	require.Equal(t, 3, r.Len())
	r.CloseAll()
	assert.Equal(t, 0, r.Len())
}
