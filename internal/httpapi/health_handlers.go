package httpapi

import (
	"net/http"

	"leaddesk-engine/internal/views"
)

type HealthHandler struct {
	Views *views.Registry
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	n := 0
	if h.Views != nil {
		n = h.Views.Len()
	}
	writeJSON(w, map[string]any{
		"ok":    true,
		"views": n,
	})
}
