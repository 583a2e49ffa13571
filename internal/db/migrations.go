package db

import (
	"database/sql"
	"fmt"
)

// migration upgrades a database created by an older release. Each migration
// must be idempotent. Append new migrations at the end.
type migration struct {
	name  string
	apply func(*sql.DB) error
}

var migrations = []migration{
	{"add items.upc", addColumn("items", "upc", "TEXT")},
	{"add items.image_url", addColumn("items", "image_url", "TEXT")},
	{"add items.image", addColumn("items", "image", "BLOB")},
	{"add items.image_mime", addColumn("items", "image_mime", "TEXT")},
	{"add categories.image_url", addColumn("categories", "image_url", "TEXT")},
	{"add categories.image", addColumn("categories", "image", "BLOB")},
	{"add categories.image_mime", addColumn("categories", "image_mime", "TEXT")},
	{"lowercase usernames", exec(
		`UPDATE users SET username = lower(username)
		 WHERE username != lower(username)
		   AND NOT EXISTS (
		       SELECT 1 FROM users u2
		       WHERE u2.username = lower(users.username) AND u2.id != users.id AND u2.deleted_at IS NULL
		   )`,
	)},
}

// Migrate ensures the schema exists and runs all migrations in order.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if err := m.apply(db); err != nil {
			return fmt.Errorf("running migration %d (%s): %w", i+1, m.name, err)
		}
	}

	return nil
}

func exec(query string) func(*sql.DB) error {
	return func(db *sql.DB) error {
		_, err := db.Exec(query)
		return err
	}
}

func addColumn(table, column, decl string) func(*sql.DB) error {
	return func(db *sql.DB) error {
		exists, err := columnExists(db, table, column)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
		return err
	}
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return false, fmt.Errorf("reading table info for %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
