package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"leaddesk-engine/internal/backend"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// writeBackendError reports a failed backend call. Auth failures keep their
// status so the UI can send the user to sign in; everything else is a 502.
func writeBackendError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if errors.Is(err, context.Canceled) {
		WriteError(w, r, 499, "canceled", "request canceled")
		return
	}
	status := http.StatusBadGateway
	code := "backend_error"
	var se *backend.ServerError
	if errors.As(err, &se) && (se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden) {
		status = se.Status
		code = "backend_auth"
	} else if backend.IsNetwork(err) {
		code = "backend_unreachable"
	}
	WriteError(w, r, status, code, backend.UserMessage(err, fallback))
}
