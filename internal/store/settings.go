package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"maps"

	"github.com/erazemk/freezer/internal/model"
)

// GetJWTSecret returns the signing secret, creating it on first use.
// INSERT OR IGNORE followed by a read keeps concurrent first starts consistent.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES ('jwt_secret', ?)`,
		hex.EncodeToString(buf),
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt_secret: %w", err)
	}

	var secret string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = 'jwt_secret'`,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying jwt_secret: %w", err)
	}

	return secret, nil
}

// GetUserSettings returns a user's settings merged over the defaults.
func GetUserSettings(ctx context.Context, db *sql.DB, userID int64) (map[string]string, error) {
	settings := maps.Clone(model.DefaultSettings)

	rows, err := db.QueryContext(ctx,
		`SELECT name, value FROM user_settings WHERE user_id = ?`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing user settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scanning user setting: %w", err)
		}
		settings[name] = value
	}
	return settings, rows.Err()
}

// SetUserSetting stores one setting for a user.
func SetUserSetting(ctx context.Context, db *sql.DB, userID int64, name, value string) error {
	if _, ok := model.DefaultSettings[name]; !ok {
		return fmt.Errorf("unknown setting %q", name)
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, name, value) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, name) DO UPDATE SET value = excluded.value`,
		userID, name, value,
	)
	if err != nil {
		return fmt.Errorf("storing user setting: %w", err)
	}
	return nil
}

// TrackHistory reports whether the user keeps consumed and discarded items.
func TrackHistory(ctx context.Context, db *sql.DB, userID int64) (bool, error) {
	settings, err := GetUserSettings(ctx, db, userID)
	if err != nil {
		return false, err
	}
	return settings[model.SettingTrackHistory] != "false", nil
}
