package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS categories (
    id                      INTEGER PRIMARY KEY,
    name                    TEXT NOT NULL UNIQUE COLLATE NOCASE,
    default_expiration_days INTEGER NOT NULL DEFAULT 180 CHECK (default_expiration_days >= 0),
    image_url               TEXT,
    image                   BLOB,
    image_mime              TEXT,
    is_system               INTEGER NOT NULL DEFAULT 0,
    created_by_user_id      INTEGER REFERENCES users(id),
    created_at              DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
    id               INTEGER PRIMARY KEY,
    qr_code          TEXT NOT NULL UNIQUE,
    upc              TEXT,
    name             TEXT NOT NULL,
    source           TEXT,
    weight           REAL,
    weight_unit      TEXT NOT NULL DEFAULT 'lb',
    category_id      INTEGER REFERENCES categories(id),
    added_date       TEXT NOT NULL,
    expiration_date  TEXT,
    status           TEXT NOT NULL DEFAULT 'in_freezer' CHECK (status IN ('in_freezer', 'consumed', 'thrown_out')),
    removed_date     TEXT,
    notes            TEXT,
    image_url        TEXT,
    image            BLOB,
    image_mime       TEXT,
    added_by_user_id INTEGER REFERENCES users(id),
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);
CREATE INDEX IF NOT EXISTS idx_items_category ON items(category_id);
CREATE INDEX IF NOT EXISTS idx_items_expiration ON items(expiration_date);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS user_settings (
    user_id INTEGER NOT NULL REFERENCES users(id),
    name    TEXT NOT NULL,
    value   TEXT NOT NULL,
    PRIMARY KEY (user_id, name)
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
