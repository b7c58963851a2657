package adminapi

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/s3gw/proxy/internal/gwerr"
	"github.com/s3gw/proxy/internal/store"
)

type createObjectMetadataRequest struct {
	CustomerID   string   `json:"customer_id"`
	LogicalName  string   `json:"logical_name"`
	BackendID    string   `json:"backend_id"`
	ObjectKey    string   `json:"object_key"`
	Size         int64    `json:"size"`
	ETag         string   `json:"etag"`
	EncryptedKey *string  `json:"encrypted_key,omitempty"`
	Residency    *string  `json:"residency,omitempty"`
	ReplicaCount *int     `json:"replica_count,omitempty"`
	Targets      []string `json:"targets,omitempty"`
}

type objectMetadataResponse struct {
	store.ObjectMetadataWithMapping
	JobsCreated []store.ReplicationJob `json:"jobs_created,omitempty"`
}

func (a *API) createObjectMetadata(w http.ResponseWriter, r *http.Request) {
	var req createObjectMetadataRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.CustomerID == "" || req.LogicalName == "" || req.BackendID == "" || req.ObjectKey == "" || req.ETag == "" {
		writeError(w, http.StatusBadRequest, "customer_id, logical_name, backend_id, object_key, and etag are required")
		return
	}

	mapping, err := a.store.FetchBucketMappingForBackend(r.Context(), req.CustomerID, req.LogicalName, req.BackendID)
	if err != nil {
		if errors.Is(err, gwerr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "bucket mapping not found for backend")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Recorded and its target jobs created in a single transaction
	// (store.Store.CreateObjectWithReplicationJobs), so a failure partway
	// through the target list leaves neither the object nor a partial set
	// of jobs behind.
	obj, jobsCreated, err := a.store.CreateObjectWithReplicationJobs(r.Context(), mapping.ID, store.ObjectMetadata{
		ObjectKey:    req.ObjectKey,
		Size:         req.Size,
		ETag:         req.ETag,
		EncryptedKey: req.EncryptedKey,
		Residency:    req.Residency,
		ReplicaCount: req.ReplicaCount,
	}, req.Targets)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, objectMetadataResponse{ObjectMetadataWithMapping: *obj, JobsCreated: jobsCreated})
}

func (a *API) listObjectMetadata(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	customerID, logicalName := vars["customer_id"], vars["logical_name"]

	objects, err := a.store.ListObjectMetadata(r.Context(), customerID, logicalName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, objects)
}
