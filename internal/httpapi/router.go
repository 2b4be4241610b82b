package httpapi

import "net/http"

// NewMux wires every route. main wraps it in the middleware chain.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	hh := HealthHandler{Views: d.Views}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	// Views
	vh := ViewsHandler{Deps: d}
	mux.HandleFunc("POST /views", vh.Create)
	mux.HandleFunc("GET /views/{id}", vh.Get)
	mux.HandleFunc("DELETE /views/{id}", vh.Close)
	mux.HandleFunc("PATCH /views/{id}/filters", vh.PatchFilters)
	mux.HandleFunc("PUT /views/{id}/page", vh.SetPage)
	mux.HandleFunc("PUT /views/{id}/page-size", vh.SetPageSize)
	mux.HandleFunc("POST /views/{id}/refresh", vh.Refresh)
	mux.HandleFunc("POST /views/{id}/notice/dismiss", vh.DismissNotice)
	mux.HandleFunc("GET /views/{id}/export", vh.Export)
	mux.HandleFunc("DELETE /views/{id}/leads/{leadID}", vh.DeleteLead)

	// Lookups
	oh := OptionsHandler{Options: d.Options}
	mux.HandleFunc("/options", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: oh.Get,
	}))
	dh := DashboardHandler{Source: d.Dashboard, Now: d.now}
	mux.HandleFunc("/dashboard", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: dh.Get,
	}))

	// Export history
	eh := ExportsHandler{DB: d.DB}
	mux.HandleFunc("/exports", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.List,
	}))

	// Event journal
	evh := EventsHandler{Journal: d.Journal}
	mux.HandleFunc("/events/recent", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: evh.Recent,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// Secrets (use cfgVal, NOT a snapshot cfg)
	sh := SecretsHandler{CfgVal: d.CfgVal}
	mux.HandleFunc("/api/secrets/token", methodMux(map[string]http.HandlerFunc{
		http.MethodPost:   sh.SetToken,
		http.MethodDelete: sh.DeleteToken,
	}))

	return mux
}
