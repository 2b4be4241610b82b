package options

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaddesk-engine/internal/backend"
	"leaddesk-engine/internal/domain"
	"leaddesk-engine/internal/store"
)

type stubLoader struct {
	opts backend.Options
	err  error
}

func (s *stubLoader) LoadOptions(context.Context) (backend.Options, error) {
	return s.opts, s.err
}

func newService(t *testing.T, l Loader) Service {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return Service{
		Loader: l,
		DB:     db.Pool,
		Now:    func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) },
		Logger: log.New(io.Discard, "", 0),
	}
}

func TestLoadFallsBackToCache(t *testing.T) {
	l := &stubLoader{opts: backend.Options{
		Statuses: []domain.Option{{ID: "1", Name: "New"}},
		Users:    []domain.Option{{ID: "u1", Name: "Asha"}},
		Teams:    []domain.Option{},
	}}
	s := newService(t, l)

	fresh, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, fresh.Cached)

	l.err = &backend.NetworkError{Op: "list statuses", Err: errors.New("dial tcp: refused")}
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, got.Cached)
	assert.Equal(t, l.opts.Statuses, got.Statuses)
	assert.Equal(t, l.opts.Users, got.Users)
	assert.Empty(t, got.Teams)
	assert.True(t, got.FetchedAt.Equal(fresh.FetchedAt))
}

func TestLoadDoesNotMaskServerErrors(t *testing.T) {
	l := &stubLoader{opts: backend.Options{Statuses: []domain.Option{{ID: "1", Name: "New"}}}}
	s := newService(t, l)
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	l.err = &backend.ServerError{Op: "list teams", Status: 401, Message: "Unauthorized"}
	_, err = s.Load(context.Background())
	var se *backend.ServerError
	assert.ErrorAs(t, err, &se)
}

func TestLoadWithoutCache(t *testing.T) {
	netErr := &backend.NetworkError{Op: "list users", Err: errors.New("timeout")}
	s := newService(t, &stubLoader{err: netErr})
	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, netErr)
}
