package httpapi

import (
	"net/http"
	"strconv"

	"leaddesk-engine/internal/events"
)

type EventsHandler struct {
	Journal *events.Journal
}

// Recent lists the latest engine events, optionally for one view. The UI
// polls this; there is no push channel.
func (h EventsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	if h.Journal == nil {
		writeJSON(w, []events.Event{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	writeJSON(w, h.Journal.Recent(limit, r.URL.Query().Get("view")))
}
