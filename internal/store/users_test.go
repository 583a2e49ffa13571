package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/freezer/internal/db"
	"github.com/erazemk/freezer/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "TestUser", "hash123", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Username != "testuser" {
		t.Errorf("expected lowercased username 'testuser', got %q", user.Username)
	}
	if user.Role != model.RoleUser {
		t.Errorf("expected role 'user', got %q", user.Role)
	}

	got, err := GetUser(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %q", got.Username)
	}
}

func TestGetUserByUsernameIgnoresCase(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "alice", "hash", model.RoleAdmin)

	user, err := GetUserByUsername(ctx, database, "ALICE")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if user == nil || user.Username != "alice" {
		t.Fatalf("expected alice, got %+v", user)
	}

	missing, err := GetUserByUsername(ctx, database, "bob")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing user")
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "alice", "hash", model.RoleUser)
	if _, err := CreateUser(ctx, database, "Alice", "hash", model.RoleUser); !errors.Is(err, ErrDuplicateUsername) {
		t.Errorf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestDeleteUserFreesUsername(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "admin", "hash", model.RoleAdmin)
	user, _ := CreateUser(ctx, database, "bob", "hash", model.RoleUser)

	if err := DeleteUser(ctx, database, user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	users, _ := ListUsers(ctx, database)
	if len(users) != 1 {
		t.Errorf("expected 1 active user, got %d", len(users))
	}

	again, err := CreateUser(ctx, database, "bob", "hash2", model.RoleUser)
	if err != nil {
		t.Fatalf("recreating deleted username: %v", err)
	}

	found, _ := GetUserByUsername(ctx, database, "bob")
	if found.ID != again.ID {
		t.Errorf("expected active user %d, got %d", again.ID, found.ID)
	}
}

func TestLastAdminProtected(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	admin, _ := CreateUser(ctx, database, "admin", "hash", model.RoleAdmin)

	if err := DeleteUser(ctx, database, admin.ID); !errors.Is(err, ErrLastAdmin) {
		t.Errorf("expected ErrLastAdmin on delete, got %v", err)
	}
	if err := UpdateUserRole(ctx, database, admin.ID, model.RoleUser); !errors.Is(err, ErrLastAdmin) {
		t.Errorf("expected ErrLastAdmin on demote, got %v", err)
	}

	other, _ := CreateUser(ctx, database, "second", "hash", model.RoleUser)
	if err := UpdateUserRole(ctx, database, other.ID, model.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	if err := UpdateUserRole(ctx, database, admin.ID, model.RoleUser); err != nil {
		t.Errorf("demote with another admin present: %v", err)
	}

	n, err := CountUsers(ctx, database)
	if err != nil || n != 2 {
		t.Errorf("expected 2 users, got %d (%v)", n, err)
	}
}

func TestUpdateUserPassword(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "carol", "old", model.RoleUser)
	if err := UpdateUserPassword(ctx, database, user.ID, "new"); err != nil {
		t.Fatal(err)
	}
	got, _ := GetUser(ctx, database, user.ID)
	if got.PasswordHash != "new" {
		t.Errorf("expected updated hash, got %q", got.PasswordHash)
	}
}
