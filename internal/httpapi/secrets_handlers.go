package httpapi

import (
	"errors"
	"net/http"
	"sync/atomic"

	"leaddesk-engine/internal/config"
	"leaddesk-engine/internal/secrets"
)

type SecretsHandler struct {
	CfgVal *atomic.Value // stores config.Config
}

type setTokenReq struct {
	Token string `json:"token"`
}

func (h SecretsHandler) SetToken(w http.ResponseWriter, r *http.Request) {
	var req setTokenReq
	if err := decodeStrict(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}

	cfg := h.CfgVal.Load().(config.Config)
	if err := secrets.SetToken(cfg.Auth.KeyringAccount, req.Token); err != nil {
		WriteError(w, r, http.StatusBadRequest, "store_failed", "failed to store token: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h SecretsHandler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	cfg := h.CfgVal.Load().(config.Config)
	err := secrets.DeleteToken(cfg.Auth.KeyringAccount)
	if err != nil && !errors.Is(err, secrets.ErrTokenNotFound) {
		WriteError(w, r, http.StatusInternalServerError, "delete_failed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
