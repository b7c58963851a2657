package store

import "fmt"

// dialect captures the small set of SQL differences between sqlite,
// postgres, and mysql that the store's queries need: placeholder syntax,
// autoincrement primary key DDL, current-timestamp DDL, and upsert clauses.
type dialect struct {
	name string

	// placeholder returns the positional placeholder for argument index n
	// (1-based).
	placeholder func(n int) string

	pkClause       string // e.g. "INTEGER PRIMARY KEY AUTOINCREMENT"
	timestampType  string // e.g. "TIMESTAMP"
	timestampNow   string // e.g. "CURRENT_TIMESTAMP"
	upsertTenant   string
	upsertMapping  string
	upsertProvider string

	// useReturningID is true for dialects (postgres) whose driver doesn't
	// support sql.Result.LastInsertId and need "RETURNING id" instead.
	useReturningID bool
}

func questionPlaceholder(int) string { return "?" }

func dollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

var sqliteDialect = dialect{
	name:        "sqlite",
	placeholder: questionPlaceholder,
	pkClause:    "INTEGER PRIMARY KEY AUTOINCREMENT",
	timestampType: "TIMESTAMP",
	timestampNow:  "CURRENT_TIMESTAMP",
	upsertTenant: `
		INSERT INTO tenant_credentials (customer_id, access_key, secret_key)
		VALUES (?, ?, ?)
		ON CONFLICT(access_key) DO UPDATE SET customer_id = excluded.customer_id, secret_key = excluded.secret_key
	`,
	upsertMapping: `
		INSERT INTO bucket_mappings (customer_id, region_id, logical_name, backend_id, backend_bucket)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(customer_id, logical_name, backend_id)
		DO UPDATE SET region_id = excluded.region_id, backend_bucket = excluded.backend_bucket
	`,
	upsertProvider: `
		INSERT OR IGNORE INTO provider_capabilities
		(country, region_city, zone_code, provider, s3_compatible, object_lock, versioning, iso27001, veeam_ready, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
}

var postgresDialect = dialect{
	name:           "postgres",
	placeholder:    dollarPlaceholder,
	pkClause:       "SERIAL PRIMARY KEY",
	timestampType:  "TIMESTAMP",
	timestampNow:   "CURRENT_TIMESTAMP",
	useReturningID: true,
	upsertTenant: `
		INSERT INTO tenant_credentials (customer_id, access_key, secret_key)
		VALUES ($1, $2, $3)
		ON CONFLICT(access_key) DO UPDATE SET customer_id = EXCLUDED.customer_id, secret_key = EXCLUDED.secret_key
	`,
	upsertMapping: `
		INSERT INTO bucket_mappings (customer_id, region_id, logical_name, backend_id, backend_bucket)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT(customer_id, logical_name, backend_id)
		DO UPDATE SET region_id = EXCLUDED.region_id, backend_bucket = EXCLUDED.backend_bucket
	`,
	upsertProvider: `
		INSERT INTO provider_capabilities
		(country, region_city, zone_code, provider, s3_compatible, object_lock, versioning, iso27001, veeam_ready, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT(provider, zone_code) DO NOTHING
	`,
}

var mysqlDialect = dialect{
	name:        "mysql",
	placeholder: questionPlaceholder,
	pkClause:    "INTEGER PRIMARY KEY AUTO_INCREMENT",
	timestampType: "DATETIME",
	timestampNow:  "CURRENT_TIMESTAMP",
	upsertTenant: `
		INSERT INTO tenant_credentials (customer_id, access_key, secret_key)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE customer_id = VALUES(customer_id), secret_key = VALUES(secret_key)
	`,
	upsertMapping: `
		INSERT INTO bucket_mappings (customer_id, region_id, logical_name, backend_id, backend_bucket)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE region_id = VALUES(region_id), backend_bucket = VALUES(backend_bucket)
	`,
	upsertProvider: `
		INSERT IGNORE INTO provider_capabilities
		(country, region_city, zone_code, provider, s3_compatible, object_lock, versioning, iso27001, veeam_ready, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
}
