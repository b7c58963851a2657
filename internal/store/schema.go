package store

import (
	"context"
	"fmt"
)

func (s *sqlStore) InitSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS tenant_credentials (
			id %s,
			customer_id TEXT NOT NULL,
			access_key TEXT NOT NULL,
			secret_key TEXT NOT NULL,
			created_at %s DEFAULT %s,
			UNIQUE(access_key)
		)`, s.dialect.pkClause, s.dialect.timestampType, s.dialect.timestampNow),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS bucket_mappings (
			id %s,
			customer_id TEXT NOT NULL,
			region_id TEXT NOT NULL,
			logical_name TEXT NOT NULL,
			backend_id TEXT NOT NULL,
			backend_bucket TEXT NOT NULL,
			UNIQUE(customer_id, logical_name, backend_id)
		)`, s.dialect.pkClause),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS object_metadata (
			id %s,
			bucket_mapping_id INTEGER NOT NULL,
			object_key TEXT NOT NULL,
			size INTEGER NOT NULL,
			etag TEXT NOT NULL,
			encrypted_key TEXT,
			residency TEXT,
			replica_count INTEGER,
			created_at %s DEFAULT %s
		)`, s.dialect.pkClause, s.dialect.timestampType, s.dialect.timestampNow),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS replication_jobs (
			id %s,
			bucket_mapping_id INTEGER NOT NULL,
			object_metadata_id INTEGER NOT NULL,
			source_backend_id TEXT NOT NULL,
			target_backend TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			claimed_at %s,
			created_at %s DEFAULT %s,
			updated_at %s DEFAULT %s
		)`, s.dialect.pkClause, s.dialect.timestampType, s.dialect.timestampType, s.dialect.timestampNow, s.dialect.timestampType, s.dialect.timestampNow),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS provider_capabilities (
			id %s,
			country TEXT NOT NULL,
			region_city TEXT NOT NULL,
			zone_code TEXT NOT NULL,
			provider TEXT NOT NULL,
			s3_compatible TEXT,
			object_lock TEXT,
			versioning TEXT,
			iso27001 TEXT,
			veeam_ready TEXT,
			notes TEXT,
			UNIQUE(provider, zone_code)
		)`, s.dialect.pkClause),
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
