// Package gatewayhttp wires the admin API and the S3 data-plane router
// onto one *http.Server, a single process with one entrypoint rather than
// splitting services across binaries.
package gatewayhttp

import (
	"net/http"
	"strings"
)

// New mounts adminMux under "/proxy" and dataMux under "/s3", dispatching
// by path prefix on a single handler.
func New(adminMux, dataMux http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/proxy"):
			http.StripPrefix("/proxy", adminMux).ServeHTTP(w, r)
		case strings.HasPrefix(r.URL.Path, "/s3"):
			http.StripPrefix("/s3", dataMux).ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
