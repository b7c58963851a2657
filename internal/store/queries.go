package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/s3gw/proxy/internal/gwerr"
)

func (s *sqlStore) UpsertTenantCredential(ctx context.Context, customerID, accessKey, secretKey string) error {
	encrypted, err := encryptSecret(secretKey)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.dialect.upsertTenant, customerID, accessKey, encrypted)
	if err != nil {
		return fmt.Errorf("upsert tenant credential: %w", err)
	}
	return nil
}

func (s *sqlStore) FetchTenantCredential(ctx context.Context, accessKey string) (*TenantCredential, error) {
	ph := s.dialect.placeholder
	query := fmt.Sprintf(`SELECT customer_id, access_key, secret_key, created_at
		FROM tenant_credentials WHERE access_key = %s`, ph(1))
	row := s.db.QueryRowContext(ctx, query, accessKey)

	var (
		tc        TenantCredential
		encrypted string
		createdAt sql.NullTime
	)
	if err := row.Scan(&tc.CustomerID, &tc.AccessKey, &encrypted, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tenant credential for %s: %w", accessKey, gwerr.ErrNotFound)
		}
		return nil, fmt.Errorf("fetch tenant credential: %w", err)
	}
	secret, err := decryptSecret(encrypted)
	if err != nil {
		return nil, err
	}
	tc.SecretKey = secret
	if createdAt.Valid {
		tc.CreatedAt = createdAt.Time
	}
	return &tc, nil
}

func (s *sqlStore) UpsertBucketMapping(ctx context.Context, customerID, regionID, logicalName string, mapping map[string]string) ([]BucketMapping, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for backendID, backendBucket := range mapping {
		if _, err := tx.ExecContext(ctx, s.dialect.upsertMapping, customerID, regionID, logicalName, backendID, backendBucket); err != nil {
			return nil, fmt.Errorf("upsert bucket mapping: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.FetchBucketMapping(ctx, customerID, logicalName)
}

func (s *sqlStore) FetchBucketMapping(ctx context.Context, customerID, logicalName string) ([]BucketMapping, error) {
	ph := s.dialect.placeholder
	query := fmt.Sprintf(`SELECT id, customer_id, region_id, logical_name, backend_id, backend_bucket
		FROM bucket_mappings WHERE customer_id = %s AND logical_name = %s`, ph(1), ph(2))
	rows, err := s.db.QueryContext(ctx, query, customerID, logicalName)
	if err != nil {
		return nil, fmt.Errorf("fetch bucket mapping: %w", err)
	}
	defer rows.Close()

	var mappings []BucketMapping
	for rows.Next() {
		var m BucketMapping
		if err := rows.Scan(&m.ID, &m.CustomerID, &m.RegionID, &m.LogicalName, &m.BackendID, &m.BackendBucket); err != nil {
			return nil, fmt.Errorf("scan bucket mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	if len(mappings) == 0 {
		return nil, fmt.Errorf("bucket mapping for %s/%s: %w", customerID, logicalName, gwerr.ErrNotFound)
	}
	return mappings, nil
}

func (s *sqlStore) FetchBucketMappingForBackend(ctx context.Context, customerID, logicalName, backendID string) (*BucketMapping, error) {
	ph := s.dialect.placeholder
	query := fmt.Sprintf(`SELECT id, customer_id, region_id, logical_name, backend_id, backend_bucket
		FROM bucket_mappings WHERE customer_id = %s AND logical_name = %s AND backend_id = %s`,
		ph(1), ph(2), ph(3))
	row := s.db.QueryRowContext(ctx, query, customerID, logicalName, backendID)

	var m BucketMapping
	if err := row.Scan(&m.ID, &m.CustomerID, &m.RegionID, &m.LogicalName, &m.BackendID, &m.BackendBucket); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("bucket mapping not found for backend %s: %w", backendID, gwerr.ErrNotFound)
		}
		return nil, fmt.Errorf("fetch bucket mapping for backend: %w", err)
	}
	return &m, nil
}

func (s *sqlStore) DeleteBucketMapping(ctx context.Context, customerID, logicalName string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	ph := s.dialect.placeholder

	mappingIDs := fmt.Sprintf(`SELECT id FROM bucket_mappings WHERE customer_id = %s AND logical_name = %s`, ph(1), ph(2))

	deleteJobs := fmt.Sprintf(`DELETE FROM replication_jobs WHERE bucket_mapping_id IN (%s)`, mappingIDs)
	if _, err := tx.ExecContext(ctx, deleteJobs, customerID, logicalName); err != nil {
		return fmt.Errorf("cascade delete jobs: %w", err)
	}

	deleteObjects := fmt.Sprintf(`DELETE FROM object_metadata WHERE bucket_mapping_id IN (%s)`, mappingIDs)
	if _, err := tx.ExecContext(ctx, deleteObjects, customerID, logicalName); err != nil {
		return fmt.Errorf("cascade delete objects: %w", err)
	}

	deleteMappings := fmt.Sprintf(`DELETE FROM bucket_mappings WHERE customer_id = %s AND logical_name = %s`, ph(1), ph(2))
	res, err := tx.ExecContext(ctx, deleteMappings, customerID, logicalName)
	if err != nil {
		return fmt.Errorf("delete mappings: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete mappings rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("bucket mapping (%s, %s): %w", customerID, logicalName, gwerr.ErrNotFound)
	}
	return tx.Commit()
}

// execInsertReturningID runs an INSERT and returns the new row's id,
// using "RETURNING id" for dialects whose driver can't report
// LastInsertId (postgres) and sql.Result.LastInsertId() otherwise.
func (s *sqlStore) execInsertReturningID(ctx context.Context, execer interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}, query string, args ...interface{}) (int64, error) {
	if s.dialect.useReturningID {
		var id int64
		if err := execer.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("insert returning id: %w", err)
		}
		return id, nil
	}
	res, err := execer.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert: %w", err)
	}
	return res.LastInsertId()
}

func (s *sqlStore) InsertObjectMetadata(ctx context.Context, mappingID int64, obj ObjectMetadata) (int64, error) {
	ph := s.dialect.placeholder
	query := fmt.Sprintf(`INSERT INTO object_metadata
		(bucket_mapping_id, object_key, size, etag, encrypted_key, residency, replica_count)
		VALUES (%s, %s, %s, %s, %s, %s, %s)`,
		ph(1), ph(2), ph(3), ph(4), ph(5), ph(6), ph(7))

	id, err := s.execInsertReturningID(ctx, s.db, query, mappingID, obj.ObjectKey, obj.Size, obj.ETag, obj.EncryptedKey, obj.Residency, obj.ReplicaCount)
	if err != nil {
		return 0, fmt.Errorf("insert object metadata: %w", err)
	}
	return id, nil
}

func (s *sqlStore) ListObjectMetadata(ctx context.Context, customerID, logicalName string) ([]ObjectMetadataWithMapping, error) {
	ph := s.dialect.placeholder
	query := fmt.Sprintf(`SELECT om.id, om.bucket_mapping_id, om.object_key, om.size, om.etag, om.encrypted_key,
			om.residency, om.replica_count, om.created_at, bm.customer_id, bm.logical_name, bm.backend_id, bm.backend_bucket
		FROM object_metadata om
		JOIN bucket_mappings bm ON om.bucket_mapping_id = bm.id
		WHERE bm.customer_id = %s AND bm.logical_name = %s`, ph(1), ph(2))
	rows, err := s.db.QueryContext(ctx, query, customerID, logicalName)
	if err != nil {
		return nil, fmt.Errorf("list object metadata: %w", err)
	}
	defer rows.Close()

	var out []ObjectMetadataWithMapping
	for rows.Next() {
		var o ObjectMetadataWithMapping
		var createdAt sql.NullTime
		if err := rows.Scan(&o.ID, &o.BucketMappingID, &o.ObjectKey, &o.Size, &o.ETag, &o.EncryptedKey,
			&o.Residency, &o.ReplicaCount, &createdAt, &o.CustomerID, &o.LogicalName, &o.BackendID, &o.BackendBucket); err != nil {
			return nil, fmt.Errorf("scan object metadata: %w", err)
		}
		if createdAt.Valid {
			o.CreatedAt = createdAt.Time
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *sqlStore) FetchObjectMetadata(ctx context.Context, objectID int64) (*ObjectMetadataWithMapping, error) {
	return fetchObjectMetadataRow(ctx, s.db, s.dialect, objectID)
}

// rowQueryer is satisfied by both *sql.DB and *sql.Tx, so reads that need
// to run inside an in-progress transaction can share the same query.
type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func fetchObjectMetadataRow(ctx context.Context, q rowQueryer, d dialect, objectID int64) (*ObjectMetadataWithMapping, error) {
	ph := d.placeholder
	query := fmt.Sprintf(`SELECT om.id, om.bucket_mapping_id, om.object_key, om.size, om.etag, om.encrypted_key,
			om.residency, om.replica_count, om.created_at, bm.customer_id, bm.logical_name, bm.backend_id, bm.backend_bucket
		FROM object_metadata om
		JOIN bucket_mappings bm ON om.bucket_mapping_id = bm.id
		WHERE om.id = %s`, ph(1))
	row := q.QueryRowContext(ctx, query, objectID)

	var o ObjectMetadataWithMapping
	var createdAt sql.NullTime
	if err := row.Scan(&o.ID, &o.BucketMappingID, &o.ObjectKey, &o.Size, &o.ETag, &o.EncryptedKey,
		&o.Residency, &o.ReplicaCount, &createdAt, &o.CustomerID, &o.LogicalName, &o.BackendID, &o.BackendBucket); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("object metadata %d: %w", objectID, gwerr.ErrNotFound)
		}
		return nil, fmt.Errorf("fetch object metadata: %w", err)
	}
	if createdAt.Valid {
		o.CreatedAt = createdAt.Time
	}
	return &o, nil
}

func (s *sqlStore) InsertReplicationJob(ctx context.Context, objectID int64, targetBackend string) (*ReplicationJob, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	job, err := insertReplicationJobTx(ctx, tx, s.dialect, objectID, targetBackend)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return job, nil
}

// insertReplicationJobTx inserts one replication job against an
// in-progress transaction, so callers needing several jobs (or a job plus
// its owning object insert) in one transaction can share it.
func insertReplicationJobTx(ctx context.Context, tx *sql.Tx, d dialect, objectID int64, targetBackend string) (*ReplicationJob, error) {
	ph := d.placeholder
	insertQuery := fmt.Sprintf(`INSERT INTO replication_jobs (bucket_mapping_id, object_metadata_id, source_backend_id, target_backend)
		SELECT bm.id, om.id, bm.backend_id, %s
		FROM object_metadata om
		JOIN bucket_mappings bm ON om.bucket_mapping_id = bm.id
		WHERE om.id = %s`, ph(1), ph(2))

	var jobID int64
	if d.useReturningID {
		row := tx.QueryRowContext(ctx, insertQuery+" RETURNING id", targetBackend, objectID)
		if err := row.Scan(&jobID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("object metadata %d: %w", objectID, gwerr.ErrNotFound)
			}
			return nil, fmt.Errorf("insert replication job: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx, insertQuery, targetBackend, objectID)
		if err != nil {
			return nil, fmt.Errorf("insert replication job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("replication job rows affected: %w", err)
		}
		if affected == 0 {
			return nil, fmt.Errorf("object metadata %d: %w", objectID, gwerr.ErrNotFound)
		}
		jobID, err = res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("replication job last insert id: %w", err)
		}
	}

	return fetchJobTx(ctx, tx, d, jobID)
}

// CreateObjectWithReplicationJobs records one object and every requested
// replication target in a single transaction, so a failure partway through
// the target list leaves neither the object nor any of its jobs behind.
func (s *sqlStore) CreateObjectWithReplicationJobs(ctx context.Context, mappingID int64, obj ObjectMetadata, targets []string) (*ObjectMetadataWithMapping, []ReplicationJob, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ph := s.dialect.placeholder
	insertObject := fmt.Sprintf(`INSERT INTO object_metadata
		(bucket_mapping_id, object_key, size, etag, encrypted_key, residency, replica_count)
		VALUES (%s, %s, %s, %s, %s, %s, %s)`,
		ph(1), ph(2), ph(3), ph(4), ph(5), ph(6), ph(7))

	objectID, err := s.execInsertReturningID(ctx, tx, insertObject,
		mappingID, obj.ObjectKey, obj.Size, obj.ETag, obj.EncryptedKey, obj.Residency, obj.ReplicaCount)
	if err != nil {
		return nil, nil, fmt.Errorf("insert object metadata: %w", err)
	}

	jobs := make([]ReplicationJob, 0, len(targets))
	for _, target := range targets {
		job, err := insertReplicationJobTx(ctx, tx, s.dialect, objectID, target)
		if err != nil {
			return nil, nil, err
		}
		jobs = append(jobs, *job)
	}

	created, err := fetchObjectMetadataRow(ctx, tx, s.dialect, objectID)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	return created, jobs, nil
}

func fetchJobTx(ctx context.Context, tx *sql.Tx, d dialect, jobID int64) (*ReplicationJob, error) {
	ph := d.placeholder
	query := fmt.Sprintf(`SELECT r.id, r.bucket_mapping_id, r.object_metadata_id, r.source_backend_id, r.target_backend,
			r.status, r.attempts, r.last_error, r.created_at, r.updated_at, bm.customer_id, bm.logical_name
		FROM replication_jobs r
		JOIN bucket_mappings bm ON r.bucket_mapping_id = bm.id
		WHERE r.id = %s`, ph(1))
	row := tx.QueryRowContext(ctx, query, jobID)
	return scanJob(row)
}

func scanJob(row *sql.Row) (*ReplicationJob, error) {
	var (
		j                    ReplicationJob
		status               string
		createdAt, updatedAt sql.NullTime
	)
	if err := row.Scan(&j.ID, &j.BucketMappingID, &j.ObjectID, &j.SourceBackendID, &j.TargetBackend,
		&status, &j.Attempts, &j.LastError, &createdAt, &updatedAt, &j.CustomerID, &j.LogicalName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("replication job: %w", gwerr.ErrNotFound)
		}
		return nil, fmt.Errorf("scan replication job: %w", err)
	}
	j.Status = JobStatus(status)
	if createdAt.Valid {
		j.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		j.UpdatedAt = updatedAt.Time
	}
	return &j, nil
}

func (s *sqlStore) ListReplicationJobs(ctx context.Context, status string) ([]ReplicationJob, error) {
	ph := s.dialect.placeholder
	base := `SELECT r.id, r.bucket_mapping_id, r.object_metadata_id, r.source_backend_id, r.target_backend,
			r.status, r.attempts, r.last_error, r.created_at, r.updated_at, bm.customer_id, bm.logical_name
		FROM replication_jobs r
		JOIN bucket_mappings bm ON r.bucket_mapping_id = bm.id`

	var (
		rows *sql.Rows
		err  error
	)
	if status != "" {
		query := fmt.Sprintf(base+` WHERE r.status = %s ORDER BY r.created_at ASC`, ph(1))
		rows, err = s.db.QueryContext(ctx, query, status)
	} else {
		query := base + ` ORDER BY r.created_at DESC`
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list replication jobs: %w", err)
	}
	defer rows.Close()

	var jobs []ReplicationJob
	for rows.Next() {
		var (
			j                    ReplicationJob
			jobStatus            string
			createdAt, updatedAt sql.NullTime
		)
		if err := rows.Scan(&j.ID, &j.BucketMappingID, &j.ObjectID, &j.SourceBackendID, &j.TargetBackend,
			&jobStatus, &j.Attempts, &j.LastError, &createdAt, &updatedAt, &j.CustomerID, &j.LogicalName); err != nil {
			return nil, fmt.Errorf("scan replication job: %w", err)
		}
		j.Status = JobStatus(jobStatus)
		if createdAt.Valid {
			j.CreatedAt = createdAt.Time
		}
		if updatedAt.Valid {
			j.UpdatedAt = updatedAt.Time
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// ClaimPendingJobs atomically claims up to limit pending jobs in FIFO
// order: each candidate row is conditionally updated with
// "WHERE status = 'pending' AND claimed_at IS NULL", so a second worker
// racing on the same row affects zero rows and moves on. This is the
// compare-and-set form spec.md §4.C requires in place of a plain
// select-then-update.
func (s *sqlStore) ClaimPendingJobs(ctx context.Context, limit int) ([]PendingJob, error) {
	ph := s.dialect.placeholder
	selectQuery := fmt.Sprintf(`SELECT id FROM replication_jobs
		WHERE status = 'pending' AND claimed_at IS NULL
		ORDER BY created_at ASC LIMIT %s`, ph(1))

	rows, err := s.db.QueryContext(ctx, selectQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending jobs: %w", err)
	}
	var candidateIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan pending job id: %w", err)
		}
		candidateIDs = append(candidateIDs, id)
	}
	rows.Close()

	var claimed []PendingJob
	now := time.Now().UTC()
	for _, id := range candidateIDs {
		claimQuery := fmt.Sprintf(`UPDATE replication_jobs SET claimed_at = %s
			WHERE id = %s AND status = 'pending' AND claimed_at IS NULL`, ph(1), ph(2))
		res, err := s.db.ExecContext(ctx, claimQuery, now, id)
		if err != nil {
			return nil, fmt.Errorf("claim job %d: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("claim job %d rows affected: %w", id, err)
		}
		if affected == 0 {
			continue // lost the race to another worker
		}
		job, err := s.fetchPendingJob(ctx, id)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, *job)
	}
	return claimed, nil
}

func (s *sqlStore) fetchPendingJob(ctx context.Context, id int64) (*PendingJob, error) {
	ph := s.dialect.placeholder
	query := fmt.Sprintf(`SELECT r.id, r.bucket_mapping_id, r.object_metadata_id, r.source_backend_id, r.target_backend,
			r.attempts, r.created_at, bm.customer_id, bm.logical_name, bm.backend_bucket,
			om.object_key, om.size, om.etag, om.residency
		FROM replication_jobs r
		JOIN bucket_mappings bm ON r.bucket_mapping_id = bm.id
		JOIN object_metadata om ON r.object_metadata_id = om.id
		WHERE r.id = %s`, ph(1))
	row := s.db.QueryRowContext(ctx, query, id)

	var (
		p         PendingJob
		createdAt sql.NullTime
	)
	p.Status = JobPending
	if err := row.Scan(&p.ID, &p.BucketMappingID, &p.ObjectID, &p.SourceBackendID, &p.TargetBackend,
		&p.Attempts, &createdAt, &p.CustomerID, &p.LogicalName, &p.BackendBucket,
		&p.ObjectKey, &p.Size, &p.ETag, &p.Residency); err != nil {
		return nil, fmt.Errorf("scan pending job: %w", err)
	}
	if createdAt.Valid {
		p.CreatedAt = createdAt.Time
	}
	return &p, nil
}

func (s *sqlStore) MarkJobCompleted(ctx context.Context, jobID int64) error {
	ph := s.dialect.placeholder
	query := fmt.Sprintf(`UPDATE replication_jobs SET status = 'completed', updated_at = %s WHERE id = %s`,
		s.dialect.timestampNow, ph(1))
	if _, err := s.db.ExecContext(ctx, query, jobID); err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	return nil
}

func (s *sqlStore) MarkJobFailed(ctx context.Context, jobID int64, errMsg string) error {
	ph := s.dialect.placeholder
	query := fmt.Sprintf(`UPDATE replication_jobs
		SET status = 'failed', attempts = attempts + 1, last_error = %s, updated_at = %s
		WHERE id = %s`, ph(1), s.dialect.timestampNow, ph(2))
	if _, err := s.db.ExecContext(ctx, query, errMsg, jobID); err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	return nil
}

func (s *sqlStore) SeedProviderCapabilities(ctx context.Context, rows []ProviderCapability) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, r := range rows {
		if r.ZoneCode == "" || r.Provider == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, s.dialect.upsertProvider,
			r.Country, r.RegionCity, r.ZoneCode, r.Provider,
			r.S3Compatible, r.ObjectLock, r.Versioning, r.ISO27001, r.VeeamReady, r.Notes); err != nil {
			return fmt.Errorf("seed provider capability: %w", err)
		}
	}
	return tx.Commit()
}
