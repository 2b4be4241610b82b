package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) string { return "" }

func TestDefaultIsValid(t *testing.T) {
	_, res := NormalizeAndValidate(Default())
	assert.True(t, res.OK(), "errors: %v", res.Errors)
	assert.NoError(t, Validate(Default()))
}

func TestEnsureUserConfigWritesDefaultsOnce(t *testing.T) {
	dir := t.TempDir()

	path, err := EnsureUserConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), path)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Polling.NewLeadsSeconds)
	assert.Equal(t, dir, cfg.App.DataDir)

	require.NoError(t, os.WriteFile(path, []byte("polling:\n  new_leads_seconds: 45\n"), 0o644))
	_, err = EnsureUserConfig(dir)
	require.NoError(t, err)

	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.Polling.NewLeadsSeconds)
	// Keys missing from the file keep their defaults.
	assert.Equal(t, 100000, cfg.Export.MaxRows)
}

func TestNormalizeAndValidate(t *testing.T) {
	cfg := Default()
	cfg.Backend.BaseURL = " https://crm.example.com/api/ "
	cfg.Auth.Role = "super_admin"
	cfg.Polling.NewLeadsSeconds = 5

	out, res := NormalizeAndValidate(cfg)
	assert.True(t, res.OK(), "errors: %v", res.Errors)
	assert.Equal(t, "https://crm.example.com/api", out.Backend.BaseURL)
	assert.Equal(t, "Super Admin", out.Auth.Role)
	assert.Len(t, res.Warnings, 1)

	bad := Default()
	bad.Backend.BaseURL = "ftp://x"
	bad.Export.MaxRows = 0
	bad.Listing.DefaultPageSize = 7
	bad.Auth.Role = "intern"
	_, res = NormalizeAndValidate(bad)
	assert.False(t, res.OK())
	assert.Len(t, res.Errors, 3)
	assert.Contains(t, res.Warnings[0], "intern")
}

func TestSaveAtomicKeepsBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)

	first := Default()
	require.NoError(t, SaveAtomic(path, first))

	second := Default()
	second.Export.MaxRows = 500
	require.NoError(t, SaveAtomic(path, second))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500, got.Export.MaxRows)

	bak, err := Load(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, 100000, bak.Export.MaxRows)

	invalid := Default()
	invalid.App.Port = 0
	err = SaveAtomic(path, invalid)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestOverlayEnv(t *testing.T) {
	env := map[string]string{
		"LEADDESK_BACKEND_URL":  "https://crm.example.com/api",
		"LEADDESK_ROLE":         "Manager",
		"LEADDESK_POLL_SECONDS": "60",
	}
	cfg := Default()
	require.NoError(t, OverlayEnv(&cfg, func(k string) string { return env[k] }))
	assert.Equal(t, "https://crm.example.com/api", cfg.Backend.BaseURL)
	assert.Equal(t, "Manager", cfg.Auth.Role)
	assert.Equal(t, 60, cfg.Polling.NewLeadsSeconds)
	assert.Equal(t, 38471, cfg.App.Port)

	env["LEADDESK_PORT"] = "eighty"
	err := OverlayEnv(&cfg, func(k string) string { return env[k] })
	assert.ErrorContains(t, err, "LEADDESK_PORT")
}

func TestExportDir(t *testing.T) {
	cfg := Default()
	assert.Equal(t, filepath.Join("data", "exports"), cfg.ExportDir("data"))

	abs := filepath.Join(t.TempDir(), "out")
	cfg.Export.Dir = abs
	assert.Equal(t, abs, cfg.ExportDir("data"))
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path, err := EnsureUserConfig(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Config, 4)
	require.NoError(t, Watch(ctx, path, noEnv, func(c Config) { got <- c }))

	next := Default()
	next.Polling.NewLeadsSeconds = 90
	require.NoError(t, SaveAtomic(path, next))

	select {
	case c := <-got:
		assert.Equal(t, 90, c.Polling.NewLeadsSeconds)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}
}

func TestWatchKeepsEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path, err := EnsureUserConfig(dir)
	require.NoError(t, err)

	env := map[string]string{
		"LEADDESK_ROLE":         "Manager",
		"LEADDESK_USER_ID":      "u-7",
		"LEADDESK_POLL_SECONDS": "60",
	}
	getenv := func(k string) string { return env[k] }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Config, 4)
	require.NoError(t, Watch(ctx, path, getenv, func(c Config) { got <- c }))

	next := Default()
	next.Auth.Role = "Agent"
	next.Export.MaxRows = 250
	require.NoError(t, SaveAtomic(path, next))

	select {
	case c := <-got:
		assert.Equal(t, 250, c.Export.MaxRows)
		assert.Equal(t, "Manager", c.Auth.Role)
		assert.Equal(t, "u-7", c.Auth.UserID)
		assert.Equal(t, 60, c.Polling.NewLeadsSeconds)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}
}

func TestResolveAppliesOverlay(t *testing.T) {
	dir := t.TempDir()
	path, err := EnsureUserConfig(dir)
	require.NoError(t, err)

	env := map[string]string{
		"LEADDESK_ROLE":            "super admin",
		"LEADDESK_EXPORT_MAX_ROWS": "500",
		"LEADDESK_ALLOWED_ORIGINS": "HTTP://localhost:1420/, tauri://localhost",
	}
	cfg, vr, err := Resolve(path, func(k string) string { return env[k] })
	require.NoError(t, err)
	assert.True(t, vr.OK(), "errors: %v", vr.Errors)
	assert.Equal(t, "Super Admin", cfg.Auth.Role)
	assert.Equal(t, 500, cfg.Export.MaxRows)
	assert.Equal(t, []string{"http://localhost:1420", "tauri://localhost"}, cfg.App.AllowedOrigins)

	env["LEADDESK_POLL_SECONDS"] = "soon"
	_, _, err = Resolve(path, func(k string) string { return env[k] })
	assert.ErrorContains(t, err, "LEADDESK_POLL_SECONDS")
}

func TestAllowedOriginsValidation(t *testing.T) {
	cfg := Default()
	cfg.App.AllowedOrigins = []string{"*", "localhost", " https://ui.example.com/ ", ""}
	out, vr := NormalizeAndValidate(cfg)
	assert.Len(t, vr.Errors, 2)
	assert.Contains(t, out.App.AllowedOrigins, "https://ui.example.com")

	cfg.App.AllowedOrigins = nil
	_, vr = NormalizeAndValidate(cfg)
	assert.True(t, vr.OK())
	require.Len(t, vr.Warnings, 2)
	assert.Contains(t, vr.Warnings[0], "allowed_origins")
}
