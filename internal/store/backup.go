package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/erazemk/freezer/internal/model"
)

// ErrNotBackup is returned when a restore source lacks the freezer tables.
var ErrNotBackup = errors.New("file is not a freezer database backup")

// Tables copied by RestoreBackup, in foreign key order.
var backupTables = []string{"users", "categories", "items", "settings", "user_settings", "revoked_tokens"}

// BackupTo writes a consistent snapshot of the database to dest.
// dest must not exist.
func BackupTo(ctx context.Context, db *sql.DB, dest string) error {
	if _, err := db.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return fmt.Errorf("writing backup: %w", err)
	}
	return nil
}

// GetBackupInfo describes the database file at path.
func GetBackupInfo(ctx context.Context, db *sql.DB, path string) (*model.BackupInfo, error) {
	info := &model.BackupInfo{Path: path}

	if st, err := os.Stat(path); err == nil {
		info.SizeBytes = st.Size()
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM items`, &info.Items},
		{`SELECT COUNT(*) FROM categories`, &info.Categories},
		{`SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`, &info.Users},
	}
	for _, c := range counts {
		if err := db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("reading backup info: %w", err)
		}
	}
	return info, nil
}

// RestoreBackup replaces every row in the live database with the contents of
// the database file at src. The whole copy runs in one transaction.
func RestoreBackup(ctx context.Context, db *sql.DB, src string) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `ATTACH DATABASE ? AS backup`, src); err != nil {
		return fmt.Errorf("attaching backup: %w", err)
	}
	defer conn.ExecContext(context.WithoutCancel(ctx), `DETACH DATABASE backup`)

	var tables int
	err = conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM backup.sqlite_master WHERE type = 'table' AND name IN ('items', 'categories', 'users')`,
	).Scan(&tables)
	if err != nil {
		return fmt.Errorf("reading backup tables: %w", err)
	}
	if tables != 3 {
		return ErrNotBackup
	}

	var check string
	if err := conn.QueryRowContext(ctx, `PRAGMA backup.quick_check`).Scan(&check); err != nil {
		return fmt.Errorf("checking backup: %w", err)
	}
	if check != "ok" {
		return fmt.Errorf("backup file is corrupt: %s", check)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning restore: %w", err)
	}
	defer tx.Rollback()

	for i := len(backupTables) - 1; i >= 0; i-- {
		if _, err := tx.ExecContext(ctx, `DELETE FROM main.`+backupTables[i]); err != nil {
			return fmt.Errorf("clearing %s: %w", backupTables[i], err)
		}
	}

	for _, table := range backupTables {
		cols, err := sharedColumns(ctx, tx, table)
		if err != nil {
			return err
		}
		if cols == "" {
			continue
		}
		_, err = tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO main.%s (%s) SELECT %s FROM backup.%s`, table, cols, cols, table),
		)
		if err != nil {
			return fmt.Errorf("restoring %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing restore: %w", err)
	}
	return nil
}

// sharedColumns lists the columns a table has in both databases, so backups
// taken before a migration still restore.
func sharedColumns(ctx context.Context, tx *sql.Tx, table string) (string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT m.name FROM pragma_table_info(?, 'main') m
		 JOIN pragma_table_info(?, 'backup') b ON b.name = m.name
		 ORDER BY m.cid`,
		table, table,
	)
	if err != nil {
		return "", fmt.Errorf("reading columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", err
		}
		if cols != "" {
			cols += ", "
		}
		cols += name
	}
	return cols, rows.Err()
}
