package adminapi

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/s3gw/proxy/internal/gwerr"
	"github.com/s3gw/proxy/internal/naming"
)

type createBucketMappingRequest struct {
	CustomerID  string   `json:"customer_id"`
	RegionID    string   `json:"region_id"`
	LogicalName string   `json:"logical_name"`
	BackendIDs  []string `json:"backend_ids"`
}

type bucketMappingResponse struct {
	CustomerID     string            `json:"customer_id"`
	RegionID       string            `json:"region_id"`
	LogicalName    string            `json:"logical_name"`
	BackendMapping map[string]string `json:"backend_mapping"`
}

func (a *API) createBucketMapping(w http.ResponseWriter, r *http.Request) {
	var req createBucketMappingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.CustomerID == "" || req.LogicalName == "" || len(req.BackendIDs) == 0 {
		writeError(w, http.StatusBadRequest, "customer_id, logical_name, and backend_ids are required")
		return
	}

	backendMapping := naming.MapBackends(req.CustomerID, req.RegionID, req.LogicalName, req.BackendIDs)

	if _, err := a.store.UpsertBucketMapping(r.Context(), req.CustomerID, req.RegionID, req.LogicalName, backendMapping); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, bucketMappingResponse{
		CustomerID:     req.CustomerID,
		RegionID:       req.RegionID,
		LogicalName:    req.LogicalName,
		BackendMapping: backendMapping,
	})
}

// deleteBucketMapping removes a logical bucket mapping and cascades to its
// object metadata and replication jobs (store.Store.DeleteBucketMapping,
// the §3.2 cascade).
func (a *API) deleteBucketMapping(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	customerID, logicalName := vars["customer_id"], vars["logical_name"]

	if err := a.store.DeleteBucketMapping(r.Context(), customerID, logicalName); err != nil {
		if errors.Is(err, gwerr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "bucket mapping not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "customer_id": customerID, "logical_name": logicalName})
}

func (a *API) fetchBucketMapping(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	customerID, logicalName := vars["customer_id"], vars["logical_name"]

	mappings, err := a.store.FetchBucketMapping(r.Context(), customerID, logicalName)
	if err != nil {
		if errors.Is(err, gwerr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "bucket mapping not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	backendMapping := make(map[string]string, len(mappings))
	var regionID string
	for _, m := range mappings {
		backendMapping[m.BackendID] = m.BackendBucket
		regionID = m.RegionID
	}

	writeJSON(w, http.StatusOK, bucketMappingResponse{
		CustomerID:     customerID,
		RegionID:       regionID,
		LogicalName:    logicalName,
		BackendMapping: backendMapping,
	})
}
