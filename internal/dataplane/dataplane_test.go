package dataplane

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/s3gw/proxy/internal/backend"
	"github.com/s3gw/proxy/internal/cryptoutil"
	"github.com/s3gw/proxy/internal/gwerr"
	"github.com/s3gw/proxy/internal/sigv4"
	"github.com/s3gw/proxy/internal/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	os.Setenv(cryptoutil.PassphraseEnv, "test-passphrase")
	s, err := store.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := s.InitSchema(context.Background()); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	verifier := sigv4.New(s, 0)
	registry := backend.NewRegistry(nil)
	return New(s, verifier, registry, "primary", 0)
}

// fakeObjectClient is an in-memory backend.ObjectClient so dataplane can be
// exercised without a real S3-compatible endpoint.
type fakeObjectClient struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

type fakeObject struct {
	body        []byte
	contentType string
	etag        string
}

func newFakeObjectClient() *fakeObjectClient {
	return &fakeObjectClient{objects: make(map[string]fakeObject)}
}

func fakeObjectKey(bucket, key string) string { return bucket + "/" + key }

func (f *fakeObjectClient) GetObject(ctx context.Context, bucket, key string) (*backend.ObjectReader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[fakeObjectKey(bucket, key)]
	if !ok {
		return nil, fmt.Errorf("object %s/%s: %w", bucket, key, gwerr.ErrNotFound)
	}
	return &backend.ObjectReader{Body: io.NopCloser(bytes.NewReader(obj.body)), ContentType: obj.contentType, ETag: obj.etag}, nil
}

func (f *fakeObjectClient) PutObject(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(data)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[fakeObjectKey(bucket, key)] = fakeObject{body: data, contentType: contentType, etag: hex.EncodeToString(sum[:])}
	return nil
}

func (f *fakeObjectClient) DeleteObject(ctx context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, fakeObjectKey(bucket, key))
	return nil
}

func (f *fakeObjectClient) HeadObject(ctx context.Context, bucket, key string) (*backend.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[fakeObjectKey(bucket, key)]
	if !ok {
		return nil, fmt.Errorf("object %s/%s: %w", bucket, key, gwerr.ErrNotFound)
	}
	return &backend.ObjectInfo{ETag: obj.etag}, nil
}

// fakeResolver is a backend.ClientResolver over a fixed set of fake clients.
type fakeResolver struct {
	clients map[string]backend.ObjectClient
}

func (f *fakeResolver) Client(ctx context.Context, backendID string) (backend.ObjectClient, error) {
	c, ok := f.clients[backendID]
	if !ok {
		return nil, fmt.Errorf("backend %q not configured: %w", backendID, gwerr.ErrMisconfigured)
	}
	return c, nil
}

// signRequest hand-signs req the same way a SigV4 client would, so the
// round-trip test below exercises real Authorization-header verification
// rather than bypassing it.
func signRequest(t *testing.T, req *http.Request, accessKey, secretKey, region string, body []byte) {
	t.Helper()
	now := time.Now().UTC()
	datestamp := now.Format("20060102")
	amzDate := now.Format("20060102T150405Z")
	payloadHash := sha256Hex(body)

	req.Header.Set("x-amz-date", amzDate)
	req.Header.Set("x-amz-content-sha256", payloadHash)
	req.Host = "gateway.example.test"

	signedHeaders := []string{"host", "x-amz-content-sha256", "x-amz-date"}
	canonicalURI := req.URL.EscapedPath()
	if canonicalURI == "" {
		canonicalURI = "/"
	}
	var headerLines strings.Builder
	for _, name := range signedHeaders {
		headerLines.WriteString(name)
		headerLines.WriteByte(':')
		if name == "host" {
			headerLines.WriteString(req.Host)
		} else {
			headerLines.WriteString(req.Header.Get(name))
		}
		headerLines.WriteByte('\n')
	}
	canonicalRequest := strings.Join([]string{
		req.Method, canonicalURI, req.URL.Query().Encode(),
		headerLines.String(), strings.Join(signedHeaders, ";"), payloadHash,
	}, "\n")

	credentialScope := fmt.Sprintf("%s/%s/s3/aws4_request", datestamp, region)
	stringToSign := strings.Join([]string{"AWS4-HMAC-SHA256", amzDate, credentialScope, sha256Hex([]byte(canonicalRequest))}, "\n")
	signingKey := deriveTestSigningKey(secretKey, datestamp, region)
	signature := hex.EncodeToString(hmacSHA256Test(signingKey, []byte(stringToSign)))

	req.Header.Set("Authorization", "AWS4-HMAC-SHA256 Credential="+accessKey+"/"+datestamp+"/"+region+"/s3/aws4_request, "+
		"SignedHeaders="+strings.Join(signedHeaders, ";")+", Signature="+signature)
}

func deriveTestSigningKey(secret, date, region string) []byte {
	kDate := hmacSHA256Test([]byte("AWS4"+secret), []byte(date))
	kRegion := hmacSHA256Test(kDate, []byte(region))
	kService := hmacSHA256Test(kRegion, []byte("s3"))
	return hmacSHA256Test(kService, []byte("aws4_request"))
}

func hmacSHA256Test(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/photos/cat.png", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestUnsupportedMethodRejected(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPatch, "/photos/cat.png", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestSignedPutThenGetRoundTrip(t *testing.T) {
	os.Setenv(cryptoutil.PassphraseEnv, "test-passphrase")
	s, err := store.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()
	if err := s.InitSchema(ctx); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	if err := s.UpsertTenantCredential(ctx, "cust-1", "AKIDEXAMPLE", "supersecret"); err != nil {
		t.Fatalf("upsert tenant credential: %v", err)
	}
	if _, err := s.UpsertBucketMapping(ctx, "cust-1", "eu-west", "photos", map[string]string{"primary": "bkt-primary"}); err != nil {
		t.Fatalf("upsert bucket mapping: %v", err)
	}

	verifier := sigv4.New(s, 0)
	registry := &fakeResolver{clients: map[string]backend.ObjectClient{"primary": newFakeObjectClient()}}
	router := New(s, verifier, registry, "primary", 0)

	body := []byte("hello world")
	putReq := httptest.NewRequest(http.MethodPut, "http://gateway.example.test/photos/cat.png", bytes.NewReader(body))
	signRequest(t, putReq, "AKIDEXAMPLE", "supersecret", "us-east-1", body)
	putReq.Header.Set("Content-Type", "image/png")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, putReq)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	getReq := httptest.NewRequest(http.MethodGet, "http://gateway.example.test/photos/cat.png", nil)
	signRequest(t, getReq, "AKIDEXAMPLE", "supersecret", "us-east-1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, getReq)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != string(body) {
		t.Fatalf("round-trip mismatch: put %q, got %q", body, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected content type: %q", rec.Header().Get("Content-Type"))
	}
}
