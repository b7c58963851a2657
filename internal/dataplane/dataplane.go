// Package dataplane implements the S3-compatible data surface: SigV4
// verification followed by GET/PUT/DELETE/HEAD dispatch to the resolved
// backend bucket, routed with gorilla/mux.
package dataplane

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/s3gw/proxy/internal/backend"
	"github.com/s3gw/proxy/internal/gwerr"
	"github.com/s3gw/proxy/internal/sigv4"
	"github.com/s3gw/proxy/internal/store"
)

// Router holds the dependencies the S3 verb handlers need and exposes the
// mux.Router other components mount onto the gateway's *http.Server.
type Router struct {
	store     store.Store
	verifier  *sigv4.Verifier
	registry  backend.ClientResolver
	defaultID string
	ioTimeout time.Duration
}

// New builds a Router and its gorilla/mux routes. ioTimeout bounds every
// backend S3 call (BACKEND_IO_TIMEOUT); 0 disables the bound. registry is a
// backend.ClientResolver so tests can drive the four verbs against a fake.
func New(s store.Store, verifier *sigv4.Verifier, registry backend.ClientResolver, defaultBackendID string, ioTimeout time.Duration) *mux.Router {
	rt := &Router{store: s, verifier: verifier, registry: registry, defaultID: defaultBackendID, ioTimeout: ioTimeout}

	r := mux.NewRouter()
	r.HandleFunc("/{logical}/{path:.*}", rt.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/{logical}/{path:.*}", rt.handlePut).Methods(http.MethodPut)
	r.HandleFunc("/{logical}/{path:.*}", rt.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/{logical}/{path:.*}", rt.handleHead).Methods(http.MethodHead)
	r.HandleFunc("/{logical}/{path:.*}", rt.handleMethodNotAllowed)
	return r
}

// authenticate runs §4.F verification and resolves the target backend
// bucket for (tenant, logical, backend). Shared by all four verbs. The
// request body (if any) is read once here for the signature check and
// restored onto r.Body so PUT can read it again.
func (rt *Router) authenticate(w http.ResponseWriter, r *http.Request) (*sigv4.Identity, *store.BucketMapping, bool) {
	vars := mux.Vars(r)
	logical := vars["logical"]

	var body []byte
	if r.Body != nil {
		b, err := io.ReadAll(r.Body)
		r.Body.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return nil, nil, false
		}
		body = b
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	identity, err := rt.verifier.Verify(r.Context(), r, body)
	if err != nil {
		writeError(w, gwerr.StatusCode(err), err.Error())
		return nil, nil, false
	}

	backendID := r.URL.Query().Get("backend_id")
	if backendID == "" {
		backendID = rt.defaultID
	}

	mapping, err := rt.store.FetchBucketMappingForBackend(r.Context(), identity.CustomerID, logical, backendID)
	if err != nil {
		writeError(w, gwerr.StatusCode(err), "bucket mapping not found for backend")
		return nil, nil, false
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	return identity, mapping, true
}

// backendContext bounds a single backend I/O call with BACKEND_IO_TIMEOUT;
// a zero ioTimeout leaves r's own context untouched.
func (rt *Router) backendContext(r *http.Request) (context.Context, context.CancelFunc) {
	if rt.ioTimeout <= 0 {
		return r.Context(), func() {}
	}
	return context.WithTimeout(r.Context(), rt.ioTimeout)
}

func (rt *Router) handleGet(w http.ResponseWriter, r *http.Request) {
	_, mapping, ok := rt.authenticate(w, r)
	if !ok {
		return
	}
	objectKey := mux.Vars(r)["path"]
	ctx, cancel := rt.backendContext(r)
	defer cancel()

	client, err := rt.registry.Client(ctx, mapping.BackendID)
	if err != nil {
		writeError(w, gwerr.StatusCode(err), err.Error())
		return
	}

	out, err := client.GetObject(ctx, mapping.BackendBucket, objectKey)
	if err != nil {
		if errors.Is(err, gwerr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "object not found")
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	defer out.Body.Close()

	if out.ContentType != "" {
		w.Header().Set("Content-Type", out.ContentType)
	}
	if out.ETag != "" {
		w.Header().Set("ETag", out.ETag)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, out.Body); err != nil {
		log.Printf("dataplane: stream object body: %v", err)
	}
}

func (rt *Router) handlePut(w http.ResponseWriter, r *http.Request) {
	_, mapping, ok := rt.authenticate(w, r)
	if !ok {
		return
	}
	objectKey := mux.Vars(r)["path"]

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	ctx, cancel := rt.backendContext(r)
	defer cancel()

	client, err := rt.registry.Client(ctx, mapping.BackendID)
	if err != nil {
		writeError(w, gwerr.StatusCode(err), err.Error())
		return
	}

	if err := client.PutObject(ctx, mapping.BackendBucket, objectKey, bytes.NewReader(body), r.Header.Get("Content-Type")); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "uploaded", "backend": mapping.BackendID})
}

func (rt *Router) handleDelete(w http.ResponseWriter, r *http.Request) {
	_, mapping, ok := rt.authenticate(w, r)
	if !ok {
		return
	}
	objectKey := mux.Vars(r)["path"]
	ctx, cancel := rt.backendContext(r)
	defer cancel()

	client, err := rt.registry.Client(ctx, mapping.BackendID)
	if err != nil {
		writeError(w, gwerr.StatusCode(err), err.Error())
		return
	}

	if err := client.DeleteObject(ctx, mapping.BackendBucket, objectKey); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "backend": mapping.BackendID})
}

func (rt *Router) handleHead(w http.ResponseWriter, r *http.Request) {
	_, mapping, ok := rt.authenticate(w, r)
	if !ok {
		return
	}
	objectKey := mux.Vars(r)["path"]
	ctx, cancel := rt.backendContext(r)
	defer cancel()

	client, err := rt.registry.Client(ctx, mapping.BackendID)
	if err != nil {
		writeError(w, gwerr.StatusCode(err), err.Error())
		return
	}

	out, err := client.HeadObject(ctx, mapping.BackendBucket, objectKey)
	if err != nil {
		if errors.Is(err, gwerr.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	if out.ETag != "" {
		w.Header().Set("ETag", out.ETag)
	}
	w.WriteHeader(http.StatusOK)
}

func (rt *Router) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusMethodNotAllowed)
}
