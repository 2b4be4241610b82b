package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"leaddesk-engine/internal/config"
	"leaddesk-engine/internal/events"
	"leaddesk-engine/internal/httpapi"
	"leaddesk-engine/internal/lock"
	"leaddesk-engine/internal/options"
	"leaddesk-engine/internal/scheduler"
	"leaddesk-engine/internal/store"
	"leaddesk-engine/internal/views"
)

const exportHistoryRetention = 90 * 24 * time.Hour

func newServeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), app)
		},
	}
}

func runServe(parent context.Context, app *App) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := app.loadConfig()
	if err != nil {
		return err
	}
	dataDir := app.dataDir()

	lk, err := lock.Acquire(dataDir)
	if err != nil {
		return err
	}
	defer lk.Release()

	dbPath := filepath.Join(dataDir, "leaddesk.db")
	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	cfgVal.Store(cfg)
	current := func() config.Config { return cfgVal.Load().(config.Config) }

	client, err := newClient(cfg, func() string { return current().Auth.KeyringAccount })
	if err != nil {
		return err
	}

	if err := config.Watch(ctx, app.cfgPath, os.Getenv, func(next config.Config) {
		prev := current()
		next.App.DataDir = dataDir
		cfgVal.Store(next)
		log.Printf("[config] reloaded from %s", app.cfgPath)
		if next.Backend != prev.Backend || next.App.Port != prev.App.Port {
			log.Printf("[config] backend or port changed; restart the engine to apply")
		}
	}); err != nil {
		log.Printf("[config] hot reload disabled: %v", err)
	}

	hub := events.NewHub()
	journal := events.NewJournal(events.DefaultJournalSize, nil)
	go journal.Run(ctx, hub, nil)
	reg := views.NewRegistry(ctx, views.Deps{
		Backend:      client,
		Hub:          hub,
		PollInterval: func() time.Duration { return current().PollInterval() },
	})
	defer reg.CloseAll()

	go scheduler.Every(ctx, log.Default(), 24*time.Hour, "export-history-cleanup", func(ctx context.Context) error {
		n, err := store.CleanupOldExports(ctx, db.Pool, time.Now(), exportHistoryRetention)
		if err == nil && n > 0 {
			log.Printf("[engine] pruned %d export history rows", n)
		}
		return err
	})

	deps := httpapi.Deps{
		DB:          db.Pool,
		Hub:         hub,
		Journal:     journal,
		Views:       reg,
		Lister:      client,
		Options:     options.Service{Loader: client, DB: db.Pool},
		Dashboard:   client,
		CfgVal:      &cfgVal,
		UserCfgPath: app.cfgPath,
		LoadCfg:     app.reloadConfig,
		DataDir:     dataDir,
	}
	handler := httpapi.Chain(httpapi.NewMux(deps),
		httpapi.RequestID,
		httpapi.Recover,
		httpapi.AccessLog,
		httpapi.LocalOnly,
		httpapi.AllowOrigins(func() []string { return current().App.AllowedOrigins }),
	)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Printf("[engine] listening on http://%s (db=%s backend=%s)", addr, dbPath, cfg.Backend.BaseURL)

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		log.Printf("[engine] shutting down")
		reg.CloseAll()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
