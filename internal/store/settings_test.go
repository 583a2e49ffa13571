package store

import (
	"context"
	"testing"

	"github.com/erazemk/freezer/internal/db"
	"github.com/erazemk/freezer/internal/model"
)

func TestGetJWTSecret_GeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	secret1, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(secret1) != 64 { // 32 bytes = 64 hex chars
		t.Fatalf("expected 64 hex chars, got %d", len(secret1))
	}

	secret2, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if secret1 != secret2 {
		t.Fatalf("expected same secret, got %q and %q", secret1, secret2)
	}
}

func TestUserSettings(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "dave", "hash", model.RoleUser)

	settings, err := GetUserSettings(ctx, database, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if settings[model.SettingTrackHistory] != "true" {
		t.Errorf("expected default track_history true, got %q", settings[model.SettingTrackHistory])
	}

	if err := SetUserSetting(ctx, database, user.ID, model.SettingTrackHistory, "false"); err != nil {
		t.Fatal(err)
	}
	// Upsert.
	if err := SetUserSetting(ctx, database, user.ID, model.SettingTrackHistory, "false"); err != nil {
		t.Fatal(err)
	}

	track, err := TrackHistory(ctx, database, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if track {
		t.Error("expected track_history off")
	}

	if model.DefaultSettings[model.SettingTrackHistory] != "true" {
		t.Error("defaults were mutated")
	}

	if err := SetUserSetting(ctx, database, user.ID, "theme", "dark"); err == nil {
		t.Error("expected error for unknown setting")
	}
}
