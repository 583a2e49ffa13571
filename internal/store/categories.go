package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/freezer/internal/model"
)

// CategoryUpdate holds the fields to change; nil fields are left alone.
type CategoryUpdate struct {
	Name                  *string
	DefaultExpirationDays *int
	ImageURL              *string
}

const categoryColumns = `id, name, default_expiration_days, image_url, is_system, created_by_user_id, created_at`

func scanCategory(s rowScanner) (*model.Category, error) {
	c := &model.Category{}
	var imageURL sql.NullString
	var createdBy sql.NullInt64
	if err := s.Scan(&c.ID, &c.Name, &c.DefaultExpirationDays, &imageURL, &c.IsSystem, &createdBy, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.ImageURL = imageURL.String
	if createdBy.Valid {
		id := createdBy.Int64
		c.CreatedByUserID = &id
	}
	return c, nil
}

// CreateCategory creates a category. Names are unique regardless of case.
func CreateCategory(ctx context.Context, db *sql.DB, name string, days int, imageURL string, createdBy *int64, system bool) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("category name is required")
	}
	if days < 0 {
		return nil, fmt.Errorf("default expiration days must not be negative")
	}

	existing, err := GetCategoryByName(ctx, db, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateName
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO categories (name, default_expiration_days, image_url, is_system, created_by_user_id)
		 VALUES (?, ?, ?, ?, ?)`,
		name, days, nullString(imageURL), system, createdBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("creating category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting category id: %w", err)
	}

	return GetCategory(ctx, db, id)
}

// GetCategory returns a category by ID.
func GetCategory(ctx context.Context, db *sql.DB, id int64) (*model.Category, error) {
	c, err := scanCategory(db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	return c, nil
}

// GetCategoryByName returns a category by case-insensitive name.
func GetCategoryByName(ctx context.Context, db *sql.DB, name string) (*model.Category, error) {
	c, err := scanCategory(db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE name = ? COLLATE NOCASE`, strings.TrimSpace(name),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category by name: %w", err)
	}
	return c, nil
}

// ListCategories returns all categories, system ones first, then by name.
func ListCategories(ctx context.Context, db *sql.DB) ([]model.Category, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories ORDER BY is_system DESC, name COLLATE NOCASE`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var cats []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		cats = append(cats, *c)
	}
	return cats, rows.Err()
}

// UpdateCategory applies a partial update.
func UpdateCategory(ctx context.Context, db *sql.DB, id int64, u CategoryUpdate) (*model.Category, error) {
	current, err := GetCategory(ctx, db, id)
	if err != nil || current == nil {
		return nil, err
	}

	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return nil, fmt.Errorf("category name is required")
		}
		if !strings.EqualFold(name, current.Name) {
			other, err := GetCategoryByName(ctx, db, name)
			if err != nil {
				return nil, err
			}
			if other != nil {
				return nil, ErrDuplicateName
			}
		}
		current.Name = name
	}
	if u.DefaultExpirationDays != nil {
		if *u.DefaultExpirationDays < 0 {
			return nil, fmt.Errorf("default expiration days must not be negative")
		}
		current.DefaultExpirationDays = *u.DefaultExpirationDays
	}
	if u.ImageURL != nil {
		current.ImageURL = *u.ImageURL
	}

	_, err = db.ExecContext(ctx,
		`UPDATE categories SET name = ?, default_expiration_days = ?, image_url = ? WHERE id = ?`,
		current.Name, current.DefaultExpirationDays, nullString(current.ImageURL), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating category: %w", err)
	}

	return GetCategory(ctx, db, id)
}

// DeleteCategory deletes a user category that no item references.
func DeleteCategory(ctx context.Context, db *sql.DB, id int64) error {
	c, err := GetCategory(ctx, db, id)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrCategoryNotFound
	}
	if c.IsSystem {
		return ErrSystemCategory
	}

	var inUse bool
	err = db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM items WHERE category_id = ?)`, id,
	).Scan(&inUse)
	if err != nil {
		return fmt.Errorf("checking category usage: %w", err)
	}
	if inUse {
		return ErrCategoryInUse
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	return nil
}

// SeedDefaultCategories creates the system categories that don't exist yet.
func SeedDefaultCategories(ctx context.Context, db *sql.DB) (int, error) {
	created := 0
	for _, dc := range model.DefaultCategories {
		existing, err := GetCategoryByName(ctx, db, dc.Name)
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}
		if _, err := CreateCategory(ctx, db, dc.Name, dc.Days, "", nil, true); err != nil {
			return created, fmt.Errorf("seeding category %q: %w", dc.Name, err)
		}
		created++
	}
	return created, nil
}

// SetCategoryImage stores an uploaded image and points image_url at it.
func SetCategoryImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime, url string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE categories SET image = ?, image_mime = ?, image_url = ? WHERE id = ?`,
		image, mime, url, id,
	)
	if err != nil {
		return fmt.Errorf("setting category image: %w", err)
	}
	return nil
}

// GetCategoryImage returns a category's stored image data and MIME type.
func GetCategoryImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM categories WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting category image: %w", err)
	}
	return image, mime.String, nil
}
