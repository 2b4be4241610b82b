package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"leaddesk-engine/internal/config"
	"leaddesk-engine/internal/events"
	"leaddesk-engine/internal/leads"
	"leaddesk-engine/internal/notify"
	"leaddesk-engine/internal/store"
	"leaddesk-engine/internal/views"
)

type recordingBackend struct {
	mu      sync.Mutex
	queries []string
	auth    []string
}

func (b *recordingBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.queries = append(b.queries, r.URL.RawQuery)
		b.auth = append(b.auth, r.Header.Get("Authorization"))
		b.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/leads":
			_, _ = w.Write([]byte(`{"success":true,"data":{"leads":[
				{"id":"1","full_name":"Ravi","status_name":"New","team_name":"North","created_at":"2026-10-18T09:00:00Z"},
				{"id":"2","full_name":"Meera","status_name":"Converted"}
			],"total":23}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"message":"Not found"}`))
		}
	})
}

func (b *recordingBackend) last() (string, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queries[len(b.queries)-1], b.auth[len(b.auth)-1]
}

func setup(t *testing.T) (*recordingBackend, string) {
	t.Helper()
	keyring.MockInit()
	rb := &recordingBackend{}
	srv := httptest.NewServer(rb.handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	t.Setenv("LEADDESK_BACKEND_URL", srv.URL+"/api")
	t.Setenv("LEADDESK_ROLE", "Manager")
	return rb, dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader("tok-from-stdin\n"))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLeadsLs(t *testing.T) {
	rb, dir := setup(t)

	_, err := run(t, "--data-dir", dir, "token", "set")
	require.NoError(t, err)

	out, err := run(t, "--data-dir", dir, "leads", "ls", "--search", "ravi", "--page", "2", "--page-size", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Ravi")
	assert.Contains(t, out, "No Team")
	assert.Contains(t, out, "Showing 6-10 of 23")

	q, auth := rb.last()
	assert.Equal(t, "search=ravi&page=2&limit=5", q)
	assert.Equal(t, "Bearer tok-from-stdin", auth)

	assert.FileExists(t, filepath.Join(dir, "config.yml"))
}

func TestLeadsLsRejectsPageSize(t *testing.T) {
	_, dir := setup(t)
	_, err := run(t, "--data-dir", dir, "leads", "ls", "--page-size", "7")
	assert.ErrorIs(t, err, leads.ErrInvalidPageSize)
}

func TestExportWritesFileAndHistory(t *testing.T) {
	rb, dir := setup(t)
	outDir := filepath.Join(dir, "out")

	out, err := run(t, "--data-dir", dir, "export", "--status", "3", "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 leads")

	q, _ := rb.last()
	assert.Equal(t, "status=3&page=1&limit=100000", q)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "leads_export_"))

	db, err := store.Open(filepath.Join(dir, "leaddesk.db"))
	require.NoError(t, err)
	defer db.Close()
	hist, err := store.ListExports(context.Background(), db.Pool, 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, entries[0].Name(), hist[0].FileName)
}

func TestWatchRequiresPrivilegedRole(t *testing.T) {
	_, dir := setup(t)
	t.Setenv("LEADDESK_ROLE", "Agent")
	t.Setenv("LEADDESK_USER_ID", "u1")
	_, err := run(t, "--data-dir", dir, "watch")
	assert.ErrorIs(t, err, leads.ErrForbidden)
}

func TestPagerLine(t *testing.T) {
	v := leads.ViewState{
		Total:      100,
		First:      41,
		Last:       50,
		Filters:    leads.FilterState{Page: 5, PageSize: 10},
		Pagination: leads.Paginate(100, 10, 5),
	}
	line := pagerLine(v)
	assert.Contains(t, line, "Showing 41-50 of 100")
	assert.Contains(t, line, "1 … 4")
	assert.Contains(t, line, "6 … 10")
}

func TestNewLeadsNotice(t *testing.T) {
	assert.Equal(t, "1 new lead has been added", newLeadsNotice(1))
	assert.Equal(t, "3 new leads have been added", newLeadsNotice(3))
}

func TestWatchLoopPrintsAndDismisses(t *testing.T) {
	hub := events.NewHub()
	sub := hub.Subscribe()
	n := notify.New(nil, false, notify.Options{})
	v := &views.View{ID: "v1", Notice: n}

	hub.Publish(events.MakeEvent("", "v1", events.TypeLeadsNew, 1, nil))
	hub.Publish(events.MakeEvent("", "v1", events.TypeViewClosed, 1, nil))
	// Closing the subscription ends the loop once buffered events are read.
	hub.Unsubscribe(sub)

	var out bytes.Buffer
	require.NoError(t, watchLoop(context.Background(), &out, sub, v, false))
	assert.Equal(t, 1, strings.Count(out.String(), "new leads have been added"))
}

func TestReloadKeepsEnvOverrides(t *testing.T) {
	_, dir := setup(t)
	t.Setenv("LEADDESK_USER_ID", "u-9")
	t.Setenv("LEADDESK_EXPORT_MAX_ROWS", "500")

	app := &App{DataDir: dir}
	cfg, err := app.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "Manager", cfg.Auth.Role)

	// A save from the UI writes the file without the overrides.
	saved := config.Default()
	saved.Auth.Role = "Agent"
	saved.Listing.DefaultPageSize = 15
	require.NoError(t, config.SaveAtomic(app.cfgPath, saved))

	got, err := app.reloadConfig()
	require.NoError(t, err)
	assert.Equal(t, 15, got.Listing.DefaultPageSize)
	assert.Equal(t, "Manager", got.Auth.Role)
	assert.Equal(t, "u-9", got.Auth.UserID)
	assert.Equal(t, 500, got.Export.MaxRows)
	assert.Equal(t, dir, got.App.DataDir)

	require.NoError(t, os.WriteFile(app.cfgPath, []byte("listing:\n  default_page_size: 7\n"), 0o644))
	_, err = app.reloadConfig()
	assert.ErrorIs(t, err, config.ErrInvalid)
}
