package adminapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

type backendResponse struct {
	BackendID string `json:"backend_id"`
	Endpoint  string `json:"endpoint"`
	Region    string `json:"region"`
}

// listBackends reports the configured backend ids (backend.Registry.BackendIDs)
// without their credentials, so an operator can see what the gateway can
// reach without reading its environment.
func (a *API) listBackends(w http.ResponseWriter, r *http.Request) {
	ids := a.registry.BackendIDs()
	backends := make([]backendResponse, 0, len(ids))
	for _, id := range ids {
		desc, ok := a.registry.Descriptor(id)
		if !ok {
			continue
		}
		backends = append(backends, backendResponse{BackendID: desc.ID, Endpoint: desc.Endpoint, Region: desc.Region})
	}
	writeJSON(w, http.StatusOK, backends)
}

// fetchBackend reports one backend's non-secret configuration
// (backend.Registry.Descriptor).
func (a *API) fetchBackend(w http.ResponseWriter, r *http.Request) {
	backendID := mux.Vars(r)["backend_id"]
	desc, ok := a.registry.Descriptor(backendID)
	if !ok {
		writeError(w, http.StatusNotFound, "backend not configured")
		return
	}
	writeJSON(w, http.StatusOK, backendResponse{BackendID: desc.ID, Endpoint: desc.Endpoint, Region: desc.Region})
}
