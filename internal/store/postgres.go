package store

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// openPostgres opens a postgres-backed store using the pgx stdlib driver,
// for deployments that need more concurrent writers than the embedded
// sqlite store allows.
func openPostgres(dsn string) (Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &sqlStore{db: db, dialect: postgresDialect}, nil
}
