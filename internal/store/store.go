package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/s3gw/proxy/internal/cryptoutil"
	"github.com/s3gw/proxy/internal/gwerr"
)

// Store is the repository interface other components (admin API, data-plane
// router, replication worker, bootstrap) use to read and write metadata. A
// single interface lets the embedded sqlite store be swapped for a networked
// postgres or mysql store without touching any caller.
type Store interface {
	InitSchema(ctx context.Context) error

	UpsertTenantCredential(ctx context.Context, customerID, accessKey, secretKey string) error
	FetchTenantCredential(ctx context.Context, accessKey string) (*TenantCredential, error)

	UpsertBucketMapping(ctx context.Context, customerID, regionID, logicalName string, mapping map[string]string) ([]BucketMapping, error)
	FetchBucketMapping(ctx context.Context, customerID, logicalName string) ([]BucketMapping, error)
	FetchBucketMappingForBackend(ctx context.Context, customerID, logicalName, backendID string) (*BucketMapping, error)
	DeleteBucketMapping(ctx context.Context, customerID, logicalName string) error

	InsertObjectMetadata(ctx context.Context, mappingID int64, obj ObjectMetadata) (int64, error)
	ListObjectMetadata(ctx context.Context, customerID, logicalName string) ([]ObjectMetadataWithMapping, error)
	FetchObjectMetadata(ctx context.Context, objectID int64) (*ObjectMetadataWithMapping, error)
	CreateObjectWithReplicationJobs(ctx context.Context, mappingID int64, obj ObjectMetadata, targets []string) (*ObjectMetadataWithMapping, []ReplicationJob, error)

	InsertReplicationJob(ctx context.Context, objectID int64, targetBackend string) (*ReplicationJob, error)
	ListReplicationJobs(ctx context.Context, status string) ([]ReplicationJob, error)
	ClaimPendingJobs(ctx context.Context, limit int) ([]PendingJob, error)
	MarkJobCompleted(ctx context.Context, jobID int64) error
	MarkJobFailed(ctx context.Context, jobID int64, errMsg string) error

	SeedProviderCapabilities(ctx context.Context, rows []ProviderCapability) error

	Close() error
}

// ObjectMetadataWithMapping joins ObjectMetadata with the owning mapping's
// backend id/bucket for admin-facing projections.
type ObjectMetadataWithMapping struct {
	ObjectMetadata
	CustomerID    string
	LogicalName   string
	BackendID     string
	BackendBucket string
}

type sqlStore struct {
	db      *sql.DB
	dialect dialect
}

// Open opens a Store for the given driver ("sqlite", "postgres", "mysql")
// and DSN/path.
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return openSQLite(dsn)
	case "postgres", "postgresql":
		return openPostgres(dsn)
	case "mysql":
		return openMySQL(dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q: %w", driver, gwerr.ErrMisconfigured)
	}
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

func decryptSecret(encrypted string) (string, error) {
	return cryptoutil.Decrypt(encrypted)
}

func encryptSecret(secret string) (string, error) {
	return cryptoutil.Encrypt(secret)
}
