package adminapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/s3gw/proxy/internal/gwerr"
)

type createCredentialRequest struct {
	CustomerID string `json:"customer_id"`
	AccessKey  string `json:"access_key"`
	SecretKey  string `json:"secret_key"`
}

type credentialResponse struct {
	CustomerID string    `json:"customer_id"`
	AccessKey  string    `json:"access_key"`
	CreatedAt  time.Time `json:"created_at"`
}

func (a *API) createCredential(w http.ResponseWriter, r *http.Request) {
	var req createCredentialRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.CustomerID == "" || req.AccessKey == "" || req.SecretKey == "" {
		writeError(w, http.StatusBadRequest, "customer_id, access_key, and secret_key are required")
		return
	}

	if err := a.store.UpsertTenantCredential(r.Context(), req.CustomerID, req.AccessKey, req.SecretKey); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	tc, err := a.store.FetchTenantCredential(r.Context(), req.AccessKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, credentialResponse{CustomerID: tc.CustomerID, AccessKey: tc.AccessKey, CreatedAt: tc.CreatedAt})
}

func (a *API) fetchCredential(w http.ResponseWriter, r *http.Request) {
	accessKey := mux.Vars(r)["access_key"]

	tc, err := a.store.FetchTenantCredential(r.Context(), accessKey)
	if err != nil {
		if errors.Is(err, gwerr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "credential not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, credentialResponse{CustomerID: tc.CustomerID, AccessKey: tc.AccessKey, CreatedAt: tc.CreatedAt})
}
