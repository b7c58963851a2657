package replication

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/s3gw/proxy/internal/backend"
	"github.com/s3gw/proxy/internal/cryptoutil"
	"github.com/s3gw/proxy/internal/gwerr"
	"github.com/s3gw/proxy/internal/store"
)

// fakeObjectClient is an in-memory backend.ObjectClient so copyObject can be
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

func TestReadBoundedWithinLimit(t *testing.T) {
	data, err := readBounded(strings.NewReader("hello"), 10)
	if err != nil {
		t.Fatalf("readBounded: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected data: %q", data)
	}
}

func TestReadBoundedExceedsLimit(t *testing.T) {
	_, err := readBounded(bytes.NewReader(make([]byte, 100)), 10)
	if err == nil {
		t.Fatalf("expected an error for oversized object")
	}
}

func TestReadBoundedUnlimitedWhenZero(t *testing.T) {
	data, err := readBounded(strings.NewReader("anything"), 0)
	if err != nil {
		t.Fatalf("readBounded: %v", err)
	}
	if string(data) != "anything" {
		t.Fatalf("unexpected data: %q", data)
	}
}

func newTestStore(t *testing.T) store.Store {
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
	return s
}

func TestHandleFailsWhenTargetMappingMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mappings, err := s.UpsertBucketMapping(ctx, "cust-1", "eu-west", "photos", map[string]string{"primary": "bkt-primary"})
	if err != nil {
		t.Fatalf("upsert bucket mapping: %v", err)
	}
	objID, err := s.InsertObjectMetadata(ctx, mappings[0].ID, store.ObjectMetadata{ObjectKey: "cat.png", Size: 10, ETag: "e"})
	if err != nil {
		t.Fatalf("insert object metadata: %v", err)
	}
	if _, err := s.InsertReplicationJob(ctx, objID, "missing-backend"); err != nil {
		t.Fatalf("insert replication job: %v", err)
	}

	registry := backend.NewRegistry(nil)
	w := New(s, registry, Config{Concurrency: 1})

	claimed := w.runOnce(ctx)
	if claimed != 1 {
		t.Fatalf("expected to claim 1 job, got %d", claimed)
	}

	jobs, err := s.ListReplicationJobs(ctx, "failed")
	if err != nil {
		t.Fatalf("list failed jobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 failed job, got %d", len(jobs))
	}
	if jobs[0].LastError == nil || !strings.Contains(*jobs[0].LastError, "not found") {
		t.Fatalf("expected 'not found' in last_error, got %+v", jobs[0].LastError)
	}
}

func TestCopyObjectHappyPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mappings, err := s.UpsertBucketMapping(ctx, "cust-1", "eu-west", "photos", map[string]string{
		"primary": "bkt-primary", "secondary": "bkt-secondary",
	})
	if err != nil {
		t.Fatalf("upsert bucket mapping: %v", err)
	}
	var sourceMappingID int64
	for _, m := range mappings {
		if m.BackendID == "primary" {
			sourceMappingID = m.ID
		}
	}
	if sourceMappingID == 0 {
		t.Fatalf("no primary mapping found among %+v", mappings)
	}

	objID, err := s.InsertObjectMetadata(ctx, sourceMappingID, store.ObjectMetadata{ObjectKey: "cat.png", Size: 11, ETag: "e"})
	if err != nil {
		t.Fatalf("insert object metadata: %v", err)
	}
	if _, err := s.InsertReplicationJob(ctx, objID, "secondary"); err != nil {
		t.Fatalf("insert replication job: %v", err)
	}

	source := newFakeObjectClient()
	body := []byte("hello world")
	if err := source.PutObject(ctx, "bkt-primary", "cat.png", bytes.NewReader(body), "text/plain"); err != nil {
		t.Fatalf("seed source object: %v", err)
	}
	target := newFakeObjectClient()

	registry := &fakeResolver{clients: map[string]backend.ObjectClient{"primary": source, "secondary": target}}
	w := New(s, registry, Config{Concurrency: 1})

	claimed := w.runOnce(ctx)
	if claimed != 1 {
		t.Fatalf("expected to claim 1 job, got %d", claimed)
	}

	jobs, err := s.ListReplicationJobs(ctx, "completed")
	if err != nil {
		t.Fatalf("list completed jobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 completed job, got %d", len(jobs))
	}

	copied, err := target.GetObject(ctx, "bkt-secondary", "cat.png")
	if err != nil {
		t.Fatalf("fetch copied object: %v", err)
	}
	data, err := io.ReadAll(copied.Body)
	if err != nil {
		t.Fatalf("read copied body: %v", err)
	}
	if string(data) != string(body) {
		t.Fatalf("copied body mismatch: want %q, got %q", body, data)
	}
	if copied.ContentType != "text/plain" {
		t.Fatalf("unexpected content type on copy: %q", copied.ContentType)
	}
}
