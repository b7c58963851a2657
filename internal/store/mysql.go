package store

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// openMySQL opens a mysql/mariadb-backed store using go-sql-driver/mysql.
func openMySQL(dsn string) (Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	return &sqlStore{db: db, dialect: mysqlDialect}, nil
}
