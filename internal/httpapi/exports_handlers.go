package httpapi

import (
	"database/sql"
	"net/http"
	"strconv"

	"leaddesk-engine/internal/store"
)

type ExportsHandler struct {
	DB *sql.DB
}

func (h ExportsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	xs, err := store.ListExports(r.Context(), h.DB, limit)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, xs)
}
