package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/freezer/internal/db"
	"github.com/erazemk/freezer/internal/model"
)

func TestSeedDefaultCategories(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	n, err := SeedDefaultCategories(ctx, database)
	if err != nil {
		t.Fatalf("SeedDefaultCategories: %v", err)
	}
	if n != len(model.DefaultCategories) {
		t.Errorf("expected %d created, got %d", len(model.DefaultCategories), n)
	}

	// Second run creates nothing.
	n, err = SeedDefaultCategories(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected 0 created on reseed, got %d", n)
	}

	chicken, err := GetCategoryByName(ctx, database, "chicken")
	if err != nil {
		t.Fatal(err)
	}
	if chicken == nil || !chicken.IsSystem || chicken.DefaultExpirationDays != 270 {
		t.Errorf("unexpected seeded category: %+v", chicken)
	}
}

func TestCreateCategoryDuplicateName(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, err := CreateCategory(ctx, database, "Soups", 90, "", nil, false); err != nil {
		t.Fatal(err)
	}
	_, err := CreateCategory(ctx, database, "soups", 30, "", nil, false)
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}
}

func TestUpdateCategory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	soups, _ := CreateCategory(ctx, database, "Soups", 90, "", nil, false)
	CreateCategory(ctx, database, "Stews", 90, "", nil, false)

	updated, err := UpdateCategory(ctx, database, soups.ID, CategoryUpdate{
		DefaultExpirationDays: ptr(120),
		ImageURL:              ptr("https://example.com/soup.jpg"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != "Soups" || updated.DefaultExpirationDays != 120 || updated.ImageURL == "" {
		t.Errorf("unexpected update result: %+v", updated)
	}

	// Renaming to a different case of the same name is allowed.
	if _, err := UpdateCategory(ctx, database, soups.ID, CategoryUpdate{Name: ptr("SOUPS")}); err != nil {
		t.Errorf("case-only rename: %v", err)
	}

	_, err = UpdateCategory(ctx, database, soups.ID, CategoryUpdate{Name: ptr("stews")})
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}
}

func TestDeleteCategoryRules(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	system, _ := CreateCategory(ctx, database, "Fish", 180, "", nil, true)
	used, _ := CreateCategory(ctx, database, "Pies", 90, "", nil, false)
	unused, _ := CreateCategory(ctx, database, "Breads", 90, "", nil, false)
	CreateItem(ctx, database, ItemInput{Name: "Apple pie", CategoryID: &used.ID}, nil, today)

	if err := DeleteCategory(ctx, database, system.ID); !errors.Is(err, ErrSystemCategory) {
		t.Errorf("expected ErrSystemCategory, got %v", err)
	}
	if err := DeleteCategory(ctx, database, used.ID); !errors.Is(err, ErrCategoryInUse) {
		t.Errorf("expected ErrCategoryInUse, got %v", err)
	}
	if err := DeleteCategory(ctx, database, 9999); !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("expected ErrCategoryNotFound, got %v", err)
	}
	if err := DeleteCategory(ctx, database, unused.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}

	gone, _ := GetCategory(ctx, database, unused.ID)
	if gone != nil {
		t.Error("expected category to be deleted")
	}
}

func TestListCategoriesSystemFirst(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateCategory(ctx, database, "Apples", 90, "", nil, false)
	CreateCategory(ctx, database, "Zucchini", 90, "", nil, true)

	cats, err := ListCategories(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 2 || cats[0].Name != "Zucchini" {
		t.Errorf("expected system category first, got %+v", cats)
	}
}

func TestCategoryImage(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	cat, _ := CreateCategory(ctx, database, "Pies", 90, "", nil, false)

	data, _, err := GetCategoryImage(ctx, database, cat.ID)
	if err != nil || data != nil {
		t.Fatalf("expected no image yet, got %v, %v", data, err)
	}

	if err := SetCategoryImage(ctx, database, cat.ID, []byte("img"), "image/jpeg", "/api/categories/1/image"); err != nil {
		t.Fatal(err)
	}
	data, mime, err := GetCategoryImage(ctx, database, cat.ID)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "img" || mime != "image/jpeg" {
		t.Errorf("unexpected image %q %q", data, mime)
	}
}
