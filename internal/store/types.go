// Package store provides the repository interface binding tenants, bucket
// mappings, object metadata, and replication jobs, backed by an embedded
// sqlite database or a networked postgres/mysql database behind the same
// interface.
package store

import "time"

// TenantCredential is a stored tenant access/secret key pair. SecretKey is
// the decrypted value; it is populated only by FetchTenantCredential and is
// never part of any admin-facing response type.
type TenantCredential struct {
	CustomerID string
	AccessKey  string
	SecretKey  string
	CreatedAt  time.Time
}

// BucketMapping binds a logical bucket to one physical bucket on one backend.
type BucketMapping struct {
	ID             int64
	CustomerID     string
	RegionID       string
	LogicalName    string
	BackendID      string
	BackendBucket  string
}

// ObjectMetadata describes a single replicated/primary object.
type ObjectMetadata struct {
	ID              int64
	BucketMappingID int64
	ObjectKey       string
	Size            int64
	ETag            string
	EncryptedKey    *string
	Residency       *string
	ReplicaCount    *int
	CreatedAt       time.Time
}

// JobStatus enumerates the replication job lifecycle.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// ReplicationJob is a queued copy of one object from its source backend to
// a target backend. CustomerID/LogicalName are denormalized from the owning
// mapping for convenience on read.
type ReplicationJob struct {
	ID              int64
	BucketMappingID int64
	ObjectID        int64
	SourceBackendID string
	TargetBackend   string
	Status          JobStatus
	Attempts        int
	LastError       *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CustomerID      string
	LogicalName     string
}

// PendingJob is the joined projection ClaimPendingJobs returns: a job plus
// enough object/mapping context for the replication worker to act without
// further lookups.
type PendingJob struct {
	ReplicationJob
	BackendBucket string
	ObjectKey     string
	Size          int64
	ETag          string
	Residency     *string
}

// ProviderCapability is a read-only catalogue row seeded at bootstrap.
type ProviderCapability struct {
	ID            int64
	Country       string
	RegionCity    string
	ZoneCode      string
	Provider      string
	S3Compatible  string
	ObjectLock    string
	Versioning    string
	ISO27001      string
	VeeamReady    string
	Notes         string
}
