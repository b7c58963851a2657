// Package gwerr defines the sentinel error kinds shared by the admin API
// and the S3 data-plane router, and maps them to HTTP status codes.
package gwerr

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrUnknownPrincipal = errors.New("unknown principal")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrNotFound         = errors.New("not found")
	ErrMisconfigured    = errors.New("misconfigured")
	ErrBackendFailure   = errors.New("backend failure")
	ErrConflict         = errors.New("conflict")
)

// StatusCode maps a gateway error to the HTTP status code it should
// surface to the client. Unknown errors default to 500.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrSignatureMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnknownPrincipal):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrMisconfigured):
		return http.StatusInternalServerError
	case errors.Is(err, ErrBackendFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
