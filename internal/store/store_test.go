package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/s3gw/proxy/internal/cryptoutil"
	"github.com/s3gw/proxy/internal/gwerr"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	os.Setenv(cryptoutil.PassphraseEnv, "test-passphrase")
	s, err := Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := s.InitSchema(context.Background()); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndFetchTenantCredential(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertTenantCredential(ctx, "cust-1", "AKIDEXAMPLE", "supersecret"); err != nil {
		t.Fatalf("upsert tenant credential: %v", err)
	}

	tc, err := s.FetchTenantCredential(ctx, "AKIDEXAMPLE")
	if err != nil {
		t.Fatalf("fetch tenant credential: %v", err)
	}
	if tc.CustomerID != "cust-1" || tc.SecretKey != "supersecret" {
		t.Fatalf("unexpected tenant credential: %+v", tc)
	}

	if err := s.UpsertTenantCredential(ctx, "cust-1", "AKIDEXAMPLE", "rotated"); err != nil {
		t.Fatalf("upsert (update) tenant credential: %v", err)
	}
	tc2, err := s.FetchTenantCredential(ctx, "AKIDEXAMPLE")
	if err != nil {
		t.Fatalf("fetch after rotation: %v", err)
	}
	if tc2.SecretKey != "rotated" {
		t.Fatalf("expected rotated secret, got %q", tc2.SecretKey)
	}
}

func TestFetchTenantCredentialNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.FetchTenantCredential(context.Background(), "missing")
	if !errors.Is(err, gwerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBucketMappingLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mappings, err := s.UpsertBucketMapping(ctx, "cust-1", "eu-west", "photos", map[string]string{
		"backend-a": "bkt-a-hash",
		"backend-b": "bkt-b-hash",
	})
	if err != nil {
		t.Fatalf("upsert bucket mapping: %v", err)
	}
	if len(mappings) != 2 {
		t.Fatalf("expected 2 mappings, got %d", len(mappings))
	}

	m, err := s.FetchBucketMappingForBackend(ctx, "cust-1", "photos", "backend-a")
	if err != nil {
		t.Fatalf("fetch mapping for backend: %v", err)
	}
	if m.BackendBucket != "bkt-a-hash" {
		t.Fatalf("unexpected backend bucket: %q", m.BackendBucket)
	}

	if err := s.DeleteBucketMapping(ctx, "cust-1", "photos"); err != nil {
		t.Fatalf("delete bucket mapping: %v", err)
	}
	if _, err := s.FetchBucketMapping(ctx, "cust-1", "photos"); !errors.Is(err, gwerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestObjectMetadataAndReplicationJobLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mappings, err := s.UpsertBucketMapping(ctx, "cust-1", "eu-west", "photos", map[string]string{
		"backend-a": "bkt-a-hash",
	})
	if err != nil {
		t.Fatalf("upsert bucket mapping: %v", err)
	}

	objID, err := s.InsertObjectMetadata(ctx, mappings[0].ID, ObjectMetadata{
		ObjectKey: "cat.png",
		Size:      1024,
		ETag:      "\"abc123\"",
	})
	if err != nil {
		t.Fatalf("insert object metadata: %v", err)
	}

	obj, err := s.FetchObjectMetadata(ctx, objID)
	if err != nil {
		t.Fatalf("fetch object metadata: %v", err)
	}
	if obj.ObjectKey != "cat.png" || obj.BackendID != "backend-a" {
		t.Fatalf("unexpected object metadata: %+v", obj)
	}

	job, err := s.InsertReplicationJob(ctx, objID, "backend-b")
	if err != nil {
		t.Fatalf("insert replication job: %v", err)
	}
	if job.Status != JobPending {
		t.Fatalf("expected pending status, got %q", job.Status)
	}

	claimed, err := s.ClaimPendingJobs(ctx, 10)
	if err != nil {
		t.Fatalf("claim pending jobs: %v", err)
	}
	if len(claimed) != 1 {
		t.Fatalf("expected 1 claimed job, got %d", len(claimed))
	}
	if claimed[0].ObjectKey != "cat.png" || claimed[0].BackendBucket != "bkt-a-hash" {
		t.Fatalf("unexpected claimed job projection: %+v", claimed[0])
	}

	// A second claim attempt must not re-claim the same row.
	reclaimed, err := s.ClaimPendingJobs(ctx, 10)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if len(reclaimed) != 0 {
		t.Fatalf("expected 0 re-claimed jobs, got %d", len(reclaimed))
	}

	if err := s.MarkJobCompleted(ctx, job.ID); err != nil {
		t.Fatalf("mark job completed: %v", err)
	}
	jobs, err := s.ListReplicationJobs(ctx, "completed")
	if err != nil {
		t.Fatalf("list replication jobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Status != JobCompleted {
		t.Fatalf("expected 1 completed job, got %+v", jobs)
	}
}

func TestMarkJobFailedIncrementsAttempts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mappings, err := s.UpsertBucketMapping(ctx, "cust-1", "eu-west", "photos", map[string]string{"backend-a": "bkt-a"})
	if err != nil {
		t.Fatalf("upsert bucket mapping: %v", err)
	}
	objID, err := s.InsertObjectMetadata(ctx, mappings[0].ID, ObjectMetadata{ObjectKey: "k", Size: 1, ETag: "e"})
	if err != nil {
		t.Fatalf("insert object metadata: %v", err)
	}
	job, err := s.InsertReplicationJob(ctx, objID, "backend-b")
	if err != nil {
		t.Fatalf("insert replication job: %v", err)
	}

	if err := s.MarkJobFailed(ctx, job.ID, "backend timeout"); err != nil {
		t.Fatalf("mark job failed: %v", err)
	}
	jobs, err := s.ListReplicationJobs(ctx, "failed")
	if err != nil {
		t.Fatalf("list replication jobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Attempts != 1 || jobs[0].LastError == nil || *jobs[0].LastError != "backend timeout" {
		t.Fatalf("unexpected failed job state: %+v", jobs)
	}
}

func TestSeedProviderCapabilitiesIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rows := []ProviderCapability{
		{Country: "DE", RegionCity: "Frankfurt", ZoneCode: "eu-de-1", Provider: "acme-cloud", S3Compatible: "yes"},
	}
	if err := s.SeedProviderCapabilities(ctx, rows); err != nil {
		t.Fatalf("seed provider capabilities: %v", err)
	}
	if err := s.SeedProviderCapabilities(ctx, rows); err != nil {
		t.Fatalf("re-seed provider capabilities: %v", err)
	}
}
