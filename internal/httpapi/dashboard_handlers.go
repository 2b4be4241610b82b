package httpapi

import (
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"leaddesk-engine/internal/backend"
)

type DashboardHandler struct {
	Source DashboardSource
	Now    func() time.Time
}

type dashboardResp struct {
	Stats      backend.Stats      `json:"stats"`
	Activities []backend.Activity `json:"activities"`
}

func (h DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	var out dashboardResp
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		s, err := h.Source.DashboardStats(ctx)
		out.Stats = s
		return err
	})
	g.Go(func() error {
		a, err := h.Source.RecentActivities(ctx, h.Now())
		out.Activities = a
		return err
	})
	if err := g.Wait(); err != nil {
		writeBackendError(w, r, err, "Failed to load dashboard")
		return
	}
	if out.Activities == nil {
		out.Activities = []backend.Activity{}
	}
	writeJSON(w, out)
}
