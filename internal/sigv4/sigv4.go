// Package sigv4 verifies AWS Signature Version 4 authenticated requests
// against tenant credentials held in internal/store, the way the data-plane
// router authenticates every S3 request before dispatching it.
package sigv4

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/s3gw/proxy/internal/gwerr"
	"github.com/s3gw/proxy/internal/store"
)

const authScheme = "AWS4-HMAC-SHA256"

// Identity is the tenant bound to a successfully verified request.
type Identity struct {
	CustomerID string
	AccessKey  string
}

// Verifier checks incoming requests' Authorization header against tenant
// credentials fetched from a store.Store.
type Verifier struct {
	store     store.Store
	clockSkew time.Duration // 0 disables the freshness check
}

// New builds a Verifier. A clockSkew of 0 disables the optional freshness
// check spec.md §4.F flags as a SHOULD, not a MUST.
func New(s store.Store, clockSkew time.Duration) *Verifier {
	return &Verifier{store: s, clockSkew: clockSkew}
}

type credentialScope struct {
	accessKey string
	date      string
	region    string
	service   string
}

// Verify parses r's Authorization header, re-derives the SigV4 signature
// using the tenant's stored secret, and returns the bound Identity on
// success. body is the raw request body already read into memory by the
// caller (the canonical request needs its hash).
func (v *Verifier) Verify(ctx context.Context, r *http.Request, body []byte) (*Identity, error) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, authScheme) {
		return nil, fmt.Errorf("missing or malformed Authorization header: %w", gwerr.ErrUnauthenticated)
	}

	scope, signedHeaders, clientSignature, err := parseAuthHeader(authHeader)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, gwerr.ErrUnauthenticated)
	}
	if scope.service != "s3" {
		return nil, fmt.Errorf("unsupported service %q in credential scope: %w", scope.service, gwerr.ErrUnauthenticated)
	}

	tenant, err := v.store.FetchTenantCredential(ctx, scope.accessKey)
	if err != nil {
		return nil, fmt.Errorf("unknown access key %q: %w", scope.accessKey, gwerr.ErrUnknownPrincipal)
	}

	amzDate := r.Header.Get("x-amz-date")
	if amzDate == "" {
		amzDate = r.Header.Get("X-Amz-Date")
	}
	if amzDate == "" {
		return nil, fmt.Errorf("missing x-amz-date header: %w", gwerr.ErrUnauthenticated)
	}
	if v.clockSkew > 0 {
		if err := checkFreshness(amzDate, v.clockSkew); err != nil {
			return nil, fmt.Errorf("%v: %w", err, gwerr.ErrUnauthenticated)
		}
	}

	payloadHash := r.Header.Get("x-amz-content-sha256")
	if payloadHash == "" {
		payloadHash = r.Header.Get("X-Amz-Content-Sha256")
	}
	if payloadHash == "" {
		payloadHash = sha256Hex(body)
	}

	canonicalRequest := buildCanonicalRequest(r, signedHeaders, payloadHash)
	stringToSign := buildStringToSign(amzDate, scope, canonicalRequest)
	signingKey := deriveSigningKey(tenant.SecretKey, scope.date, scope.region, scope.service)
	expected := hex.EncodeToString(hmacSHA256(signingKey, []byte(stringToSign)))

	if !hmac.Equal([]byte(expected), []byte(clientSignature)) {
		return nil, fmt.Errorf("signature mismatch: %w", gwerr.ErrSignatureMismatch)
	}

	return &Identity{CustomerID: tenant.CustomerID, AccessKey: tenant.AccessKey}, nil
}

func parseAuthHeader(header string) (credentialScope, []string, string, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(header, authScheme))
	var credential, signedHeaders, signature string
	for _, part := range strings.Split(rest, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "Credential="):
			credential = strings.TrimPrefix(part, "Credential=")
		case strings.HasPrefix(part, "SignedHeaders="):
			signedHeaders = strings.TrimPrefix(part, "SignedHeaders=")
		case strings.HasPrefix(part, "Signature="):
			signature = strings.TrimPrefix(part, "Signature=")
		}
	}
	if credential == "" || signedHeaders == "" || signature == "" {
		return credentialScope{}, nil, "", fmt.Errorf("Authorization header missing Credential, SignedHeaders, or Signature")
	}

	fields := strings.Split(credential, "/")
	if len(fields) != 5 || fields[4] != "aws4_request" {
		return credentialScope{}, nil, "", fmt.Errorf("malformed credential scope %q", credential)
	}

	scope := credentialScope{
		accessKey: fields[0],
		date:      fields[1],
		region:    fields[2],
		service:   fields[3],
	}
	return scope, strings.Split(signedHeaders, ";"), signature, nil
}

func checkFreshness(amzDate string, skew time.Duration) error {
	t, err := time.Parse("20060102T150405Z", amzDate)
	if err != nil {
		return fmt.Errorf("malformed x-amz-date %q", amzDate)
	}
	delta := time.Since(t)
	if delta < 0 {
		delta = -delta
	}
	if delta > skew {
		return fmt.Errorf("request date %s outside clock skew window of %s", amzDate, skew)
	}
	return nil
}

// buildCanonicalRequest restricts the canonical request to exactly the
// headers named in signedHeaders, lowercased and in the given order, per
// spec.md §4.F step 3.
func buildCanonicalRequest(r *http.Request, signedHeaders []string, payloadHash string) string {
	canonicalURI := r.URL.EscapedPath()
	if canonicalURI == "" {
		canonicalURI = "/"
	}
	canonicalQuery := r.URL.Query().Encode()

	var headerLines strings.Builder
	for _, name := range signedHeaders {
		name = strings.ToLower(strings.TrimSpace(name))
		value := headerValue(r, name)
		headerLines.WriteString(name)
		headerLines.WriteByte(':')
		headerLines.WriteString(strings.TrimSpace(value))
		headerLines.WriteByte('\n')
	}

	return strings.Join([]string{
		r.Method,
		canonicalURI,
		canonicalQuery,
		headerLines.String(),
		strings.Join(signedHeaders, ";"),
		payloadHash,
	}, "\n")
}

func headerValue(r *http.Request, lowerName string) string {
	switch lowerName {
	case "host":
		if r.Host != "" {
			return r.Host
		}
		return r.URL.Host
	default:
		return r.Header.Get(lowerName)
	}
}

func buildStringToSign(amzDate string, scope credentialScope, canonicalRequest string) string {
	credentialScopeStr := fmt.Sprintf("%s/%s/%s/aws4_request", scope.date, scope.region, scope.service)
	return strings.Join([]string{
		authScheme,
		amzDate,
		credentialScopeStr,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")
}

func deriveSigningKey(secretKey, date, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(date))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	return hmacSHA256(kService, []byte("aws4_request"))
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
