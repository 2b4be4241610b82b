package httpapi

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"leaddesk-engine/internal/domain"
	"leaddesk-engine/internal/events"
	"leaddesk-engine/internal/export"
	"leaddesk-engine/internal/leads"
	"leaddesk-engine/internal/store"
	"leaddesk-engine/internal/views"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ViewsHandler struct {
	Deps
}

// view resolves {id} or writes a 404.
func (h ViewsHandler) view(w http.ResponseWriter, r *http.Request) (*views.View, bool) {
	v, err := h.Views.Get(r.PathValue("id"))
	if errors.Is(err, views.ErrViewNotFound) {
		WriteError(w, r, http.StatusNotFound, "view_not_found", "view not found")
		return nil, false
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return nil, false
	}
	return v, true
}

// Create mounts a view for the configured user. The role comes from the
// engine's config, not from the request.
func (h ViewsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createViewReq
	if r.ContentLength != 0 {
		if err := decodeStrict(r, &req); err != nil {
			WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON: "+err.Error())
			return
		}
	}

	cfg := h.cfg()
	initial := leads.DefaultFilterState()
	initial.PageSize = cfg.Listing.DefaultPageSize
	if req.PageSize != 0 {
		initial.PageSize = req.PageSize
	}
	if !leads.ValidPageSize(initial.PageSize) {
		WriteError(w, r, http.StatusBadRequest, "invalid_page_size", leads.ErrInvalidPageSize.Error())
		return
	}
	if req.Filters != nil {
		f, err := req.Filters.apply(initial.Filters())
		if err != nil {
			WriteError(w, r, http.StatusBadRequest, "invalid_filters", err.Error())
			return
		}
		initial.SearchText, initial.StatusID = f.SearchText, f.StatusID
		initial.AssignedUserID, initial.TeamID = f.AssignedUserID, f.TeamID
		initial.StartDate, initial.EndDate = f.StartDate, f.EndDate
	}

	v, err := h.Views.Create(r.Context(), views.Session{
		Role:   domain.ParseRole(cfg.Auth.Role),
		UserID: cfg.Auth.UserID,
	}, &initial)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "create_failed", err.Error())
		return
	}
	WriteJSON(w, http.StatusCreated, v.Snapshot())
}

func (h ViewsHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	writeJSON(w, v.Snapshot())
}

func (h ViewsHandler) Close(w http.ResponseWriter, r *http.Request) {
	err := h.Views.Close(r.PathValue("id"))
	if errors.Is(err, views.ErrViewNotFound) {
		WriteError(w, r, http.StatusNotFound, "view_not_found", "view not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h ViewsHandler) PatchFilters(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	var req filtersReq
	if err := decodeStrict(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON: "+err.Error())
		return
	}
	f, err := req.apply(v.Leads.Filters().Filters())
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_filters", err.Error())
		return
	}
	if err := v.Leads.ApplyFilters(r.Context(), f); err != nil {
		writeBackendError(w, r, err, leads.FetchFailedMessage)
		return
	}
	writeJSON(w, v.Snapshot())
}

func (h ViewsHandler) SetPage(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	var req pageReq
	if err := decodeStrict(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON: "+err.Error())
		return
	}
	err := v.Leads.SetPage(r.Context(), req.Page)
	switch {
	case errors.Is(err, leads.ErrPageOutOfRange):
		WriteError(w, r, http.StatusBadRequest, "page_out_of_range", err.Error())
		return
	case err != nil:
		writeBackendError(w, r, err, leads.FetchFailedMessage)
		return
	}
	writeJSON(w, v.Snapshot())
}

func (h ViewsHandler) SetPageSize(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	var req pageSizeReq
	if err := decodeStrict(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON: "+err.Error())
		return
	}
	err := v.Leads.SetPageSize(r.Context(), req.PageSize)
	switch {
	case errors.Is(err, leads.ErrInvalidPageSize):
		WriteError(w, r, http.StatusBadRequest, "invalid_page_size", err.Error())
		return
	case err != nil:
		writeBackendError(w, r, err, leads.FetchFailedMessage)
		return
	}
	writeJSON(w, v.Snapshot())
}

func (h ViewsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	if err := v.Leads.Refresh(r.Context()); err != nil {
		writeBackendError(w, r, err, leads.FetchFailedMessage)
		return
	}
	writeJSON(w, v.Snapshot())
}

func (h ViewsHandler) DismissNotice(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	if err := v.DismissNotice(r.Context()); err != nil {
		writeBackendError(w, r, err, leads.FetchFailedMessage)
		return
	}
	writeJSON(w, v.Snapshot())
}

func (h ViewsHandler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	err := v.Delete(r.Context(), r.PathValue("leadID"))
	switch {
	case errors.Is(err, leads.ErrForbidden):
		WriteError(w, r, http.StatusForbidden, "forbidden", "your role cannot delete leads")
		return
	case err != nil:
		writeBackendError(w, r, err, leads.DeleteFailedMessage)
		return
	}
	writeJSON(w, v.Snapshot())
}

// Export builds the spreadsheet for the view's current filters. By default
// the file is streamed back; with ?save=true it is written to the export
// directory and its metadata returned.
func (h ViewsHandler) Export(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	cfg := h.cfg()
	asm := export.NewAssembler(h.Lister, export.Options{MaxRows: cfg.Export.MaxRows, Now: h.Now})

	f, err := asm.ExportAll(r.Context(), v.Leads.Filters())
	if err != nil {
		WriteError(w, r, http.StatusBadGateway, "export_failed", export.FailedMessage)
		return
	}

	rec := store.ExportRecord{
		FileName:  f.Name,
		Query:     f.Query,
		Rows:      f.Rows,
		Total:     f.Total,
		CreatedAt: f.CreatedAt,
	}
	save, _ := strconv.ParseBool(r.URL.Query().Get("save"))
	if save {
		path, err := export.WriteFile(cfg.ExportDir(h.DataDir), f)
		if err != nil {
			log.Printf("[export] write failed view=%s err=%v", v.ID, err)
			WriteError(w, r, http.StatusInternalServerError, "export_failed", export.FailedMessage)
			return
		}
		rec.Path = path
	}
	if h.DB != nil {
		if _, err := store.RecordExport(r.Context(), h.DB, rec); err != nil {
			log.Printf("[export] history write failed file=%s err=%v", f.Name, err)
		}
	}
	h.Hub.Publish(events.MakeEvent(RequestIDFrom(r.Context()), v.ID, events.TypeExportDone, 1, rec))

	if save {
		writeJSON(w, rec)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+f.Name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Data)
}
