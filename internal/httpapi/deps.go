package httpapi

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	"leaddesk-engine/internal/backend"
	"leaddesk-engine/internal/config"
	"leaddesk-engine/internal/events"
	"leaddesk-engine/internal/leads"
	"leaddesk-engine/internal/options"
	"leaddesk-engine/internal/views"
)

type DashboardSource interface {
	DashboardStats(ctx context.Context) (backend.Stats, error)
	RecentActivities(ctx context.Context, now time.Time) ([]backend.Activity, error)
}

type Deps struct {
	DB *sql.DB

	Hub     *events.Hub
	Journal *events.Journal
	Views   *views.Registry

	// Lister backs exports; views carry their own.
	Lister    leads.Lister
	Options   options.Service
	Dashboard DashboardSource

	// Atomic stores
	CfgVal *atomic.Value // stores config.Config

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	DataDir string
	Now     func() time.Time
}

func (d Deps) cfg() config.Config {
	return d.CfgVal.Load().(config.Config)
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
