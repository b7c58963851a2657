// Package adminapi implements the operator-facing REST surface under
// /proxy: tenant credentials, bucket mappings, object metadata, and
// replication jobs, gated by a shared admin key.
package adminapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/s3gw/proxy/internal/backend"
	"github.com/s3gw/proxy/internal/store"
)

// API holds the dependencies the admin handlers need.
type API struct {
	store    store.Store
	registry *backend.Registry
	adminKey string
}

// New builds the admin mux.Router, mounted under pathPrefix (e.g. "/proxy").
func New(s store.Store, registry *backend.Registry, adminKey string) *mux.Router {
	api := &API{store: s, registry: registry, adminKey: adminKey}

	r := mux.NewRouter()
	r.Use(api.requireAdminKey)

	r.HandleFunc("/credentials", api.createCredential).Methods(http.MethodPost)
	r.HandleFunc("/credentials/{access_key}", api.fetchCredential).Methods(http.MethodGet)
	r.HandleFunc("/buckets", api.createBucketMapping).Methods(http.MethodPost)
	r.HandleFunc("/buckets/{customer_id}/{logical_name}", api.fetchBucketMapping).Methods(http.MethodGet)
	r.HandleFunc("/buckets/{customer_id}/{logical_name}", api.deleteBucketMapping).Methods(http.MethodDelete)
	r.HandleFunc("/objects", api.createObjectMetadata).Methods(http.MethodPost)
	r.HandleFunc("/objects/{customer_id}/{logical_name}", api.listObjectMetadata).Methods(http.MethodGet)
	r.HandleFunc("/jobs", api.createReplicationJob).Methods(http.MethodPost)
	r.HandleFunc("/jobs", api.listReplicationJobs).Methods(http.MethodGet)
	r.HandleFunc("/backends", api.listBackends).Methods(http.MethodGet)
	r.HandleFunc("/backends/{backend_id}", api.fetchBackend).Methods(http.MethodGet)
	return r
}

// requireAdminKey is the middleware gating every /proxy route on
// X-Admin-Key matching the operator-configured ADMIN_API_KEY.
func (a *API) requireAdminKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.adminKey == "" {
			writeError(w, http.StatusInternalServerError, "admin API key is not configured")
			return
		}
		if r.Header.Get("X-Admin-Key") != a.adminKey {
			writeError(w, http.StatusUnauthorized, "missing or invalid X-Admin-Key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
