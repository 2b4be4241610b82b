package httpapi

import (
	"net/http"

	"leaddesk-engine/internal/options"
)

type OptionsHandler struct {
	Options options.Service
}

func (h OptionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.Options.Load(r.Context())
	if err != nil {
		writeBackendError(w, r, err, "Failed to load filter options")
		return
	}
	writeJSON(w, res)
}
