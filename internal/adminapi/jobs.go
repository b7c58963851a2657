package adminapi

import (
	"errors"
	"net/http"

	"github.com/s3gw/proxy/internal/gwerr"
)

type createJobRequest struct {
	ObjectID      int64  `json:"object_id"`
	TargetBackend string `json:"target_backend"`
}

func (a *API) createReplicationJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.ObjectID == 0 || req.TargetBackend == "" {
		writeError(w, http.StatusBadRequest, "object_id and target_backend are required")
		return
	}

	job, err := a.store.InsertReplicationJob(r.Context(), req.ObjectID, req.TargetBackend)
	if err != nil {
		if errors.Is(err, gwerr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "object metadata not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (a *API) listReplicationJobs(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	jobs, err := a.store.ListReplicationJobs(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}
