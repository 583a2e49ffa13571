package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/erazemk/freezer/internal/model"
)

// Store errors that handlers map to client errors.
var (
	ErrDuplicateCode     = errors.New("item code already exists")
	ErrDuplicateName     = errors.New("category name already exists")
	ErrSystemCategory    = errors.New("cannot delete system category")
	ErrCategoryInUse     = errors.New("cannot delete category with existing items")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrCodeUnavailable   = errors.New("could not generate a unique item code")
	ErrNameRequired      = errors.New("item name is required")
	ErrInvalidWeightUnit = errors.New("invalid weight unit")
)

// ItemInput carries the mutable fields of an item.
type ItemInput struct {
	Code           string
	UPC            string
	Name           string
	Source         string
	Weight         *float64
	WeightUnit     string
	CategoryID     *int64
	AddedDate      string
	ExpirationDate string
	Notes          string
	ImageURL       string
	Status         string
	RemovedDate    string
}

// ItemFilter selects and orders items for listing.
type ItemFilter struct {
	Status     string
	Search     string
	CategoryID *int64
	SortBy     string
	SortOrder  string
	StartDate  string
	EndDate    string
}

// Sortable item columns.
var itemSortColumns = map[string]string{
	"added_date":      "i.added_date",
	"expiration_date": "i.expiration_date",
	"name":            "i.name COLLATE NOCASE",
}

const itemColumns = `i.id, i.qr_code, i.upc, i.name, i.source, i.weight, i.weight_unit,
	i.category_id, c.name, i.added_date, i.expiration_date, i.status, i.removed_date,
	i.notes, i.image_url, i.added_by_user_id, u.username, i.created_at, i.updated_at`

const itemFrom = `FROM items i
	LEFT JOIN categories c ON c.id = i.category_id
	LEFT JOIN users u ON u.id = i.added_by_user_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(s rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var (
		upc, source, categoryName, expiration, removed sql.NullString
		notes, imageURL, addedBy                       sql.NullString
		weight                                         sql.NullFloat64
		categoryID, addedByID                          sql.NullInt64
	)
	err := s.Scan(&item.ID, &item.Code, &upc, &item.Name, &source, &weight, &item.WeightUnit,
		&categoryID, &categoryName, &item.AddedDate, &expiration, &item.Status, &removed,
		&notes, &imageURL, &addedByID, &addedBy, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.UPC = upc.String
	item.Source = source.String
	item.CategoryName = categoryName.String
	item.ExpirationDate = expiration.String
	item.RemovedDate = removed.String
	item.Notes = notes.String
	item.ImageURL = imageURL.String
	item.AddedByUsername = addedBy.String
	if weight.Valid {
		w := weight.Float64
		item.Weight = &w
	}
	if categoryID.Valid {
		id := categoryID.Int64
		item.CategoryID = &id
	}
	if addedByID.Valid {
		id := addedByID.Int64
		item.AddedByUserID = &id
	}
	return item, nil
}

// CreateItem inserts a new item. A blank code is replaced with a generated
// one, a blank added date with today, and a blank expiration date with
// today plus the category's default shelf life.
func CreateItem(ctx context.Context, db *sql.DB, in ItemInput, addedBy *int64, today string) (*model.Item, error) {
	if err := normalizeInput(&in); err != nil {
		return nil, err
	}
	if in.AddedDate == "" {
		in.AddedDate = today
	}
	if in.Status == "" {
		in.Status = model.ItemStatusInFreezer
	}
	if in.Status != model.ItemStatusInFreezer && in.RemovedDate == "" {
		in.RemovedDate = today
	}

	if in.CategoryID != nil {
		cat, err := GetCategory(ctx, db, *in.CategoryID)
		if err != nil {
			return nil, err
		}
		if cat == nil {
			return nil, ErrCategoryNotFound
		}
		if in.ExpirationDate == "" && cat.DefaultExpirationDays > 0 {
			exp, err := addDays(today, cat.DefaultExpirationDays)
			if err != nil {
				return nil, err
			}
			in.ExpirationDate = exp
		}
	}

	if in.Code == "" {
		code, err := uniqueCode(ctx, db)
		if err != nil {
			return nil, err
		}
		in.Code = code
	} else {
		existing, err := GetItemByCode(ctx, db, in.Code)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrDuplicateCode
		}
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO items (qr_code, upc, name, source, weight, weight_unit, category_id,
		                    added_date, expiration_date, status, removed_date, notes, image_url, added_by_user_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Code, nullString(in.UPC), in.Name, nullString(in.Source), in.Weight, in.WeightUnit, in.CategoryID,
		in.AddedDate, nullString(in.ExpirationDate), in.Status, nullString(in.RemovedDate),
		nullString(in.Notes), nullString(in.ImageURL), addedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateCode
		}
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` `+itemFrom+` WHERE i.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// GetItemByCode returns an item by its QR/item code.
func GetItemByCode(ctx context.Context, db *sql.DB, code string) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` `+itemFrom+` WHERE i.qr_code = ?`, code,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item by code: %w", err)
	}
	return item, nil
}

// ListItems returns items matching the filter.
func ListItems(ctx context.Context, db *sql.DB, f ItemFilter) ([]model.Item, error) {
	var (
		where []string
		args  []any
	)

	if f.Status != "" && f.Status != model.StatusAll {
		where = append(where, "i.status = ?")
		args = append(args, f.Status)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		where = append(where, `(i.name LIKE ? ESCAPE '\' OR i.source LIKE ? ESCAPE '\'
		                        OR i.notes LIKE ? ESCAPE '\' OR i.qr_code LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern, pattern)
	}
	if f.CategoryID != nil {
		where = append(where, "i.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.StartDate != "" {
		where = append(where, "i.added_date >= ?")
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		where = append(where, "i.added_date <= ?")
		args = append(args, f.EndDate)
	}

	query := `SELECT ` + itemColumns + ` ` + itemFrom
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + itemOrder(f.SortBy, f.SortOrder)

	return queryItems(ctx, db, query, args...)
}

func itemOrder(sortBy, sortOrder string) string {
	col, ok := itemSortColumns[sortBy]
	if !ok {
		sortBy = "added_date"
		col = itemSortColumns[sortBy]
	}
	dir := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		dir = "ASC"
	}
	// Items without an expiration date sort last in both directions.
	if sortBy == "expiration_date" {
		return fmt.Sprintf("i.expiration_date IS NULL, %s %s, i.id %s", col, dir, dir)
	}
	return fmt.Sprintf("%s %s, i.id %s", col, dir, dir)
}

// ListExpiringSoon returns in-freezer items expiring within days of today,
// including already expired ones, soonest first.
func ListExpiringSoon(ctx context.Context, db *sql.DB, today string, days int) ([]model.Item, error) {
	threshold, err := addDays(today, days)
	if err != nil {
		return nil, err
	}
	return queryItems(ctx, db,
		`SELECT `+itemColumns+` `+itemFrom+`
		 WHERE i.status = ? AND i.expiration_date IS NOT NULL AND i.expiration_date <= ?
		 ORDER BY i.expiration_date ASC, i.id ASC`,
		model.ItemStatusInFreezer, threshold,
	)
}

// ListOldest returns the in-freezer items that were added longest ago.
func ListOldest(ctx context.Context, db *sql.DB, limit int) ([]model.Item, error) {
	if limit <= 0 {
		limit = 10
	}
	return queryItems(ctx, db,
		`SELECT `+itemColumns+` `+itemFrom+`
		 WHERE i.status = ? ORDER BY i.added_date ASC, i.id ASC LIMIT ?`,
		model.ItemStatusInFreezer, limit,
	)
}

func queryItems(ctx context.Context, db *sql.DB, query string, args ...any) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem replaces the mutable fields of an item. The code is immutable.
// An empty status keeps the current one.
func UpdateItem(ctx context.Context, db *sql.DB, id int64, in ItemInput, today string) (*model.Item, error) {
	if err := normalizeInput(&in); err != nil {
		return nil, err
	}

	current, err := GetItem(ctx, db, id)
	if err != nil || current == nil {
		return nil, err
	}

	if in.CategoryID != nil {
		cat, err := GetCategory(ctx, db, *in.CategoryID)
		if err != nil {
			return nil, err
		}
		if cat == nil {
			return nil, ErrCategoryNotFound
		}
	}

	if in.AddedDate == "" {
		in.AddedDate = current.AddedDate
	}
	if in.Status == "" {
		in.Status = current.Status
		if in.RemovedDate == "" {
			in.RemovedDate = current.RemovedDate
		}
	}
	in.RemovedDate = removedDateFor(in.Status, in.RemovedDate, today)

	_, err = db.ExecContext(ctx,
		`UPDATE items SET upc = ?, name = ?, source = ?, weight = ?, weight_unit = ?, category_id = ?,
		                  added_date = ?, expiration_date = ?, status = ?, removed_date = ?, notes = ?,
		                  image_url = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		nullString(in.UPC), in.Name, nullString(in.Source), in.Weight, in.WeightUnit, in.CategoryID,
		in.AddedDate, nullString(in.ExpirationDate), in.Status, nullString(in.RemovedDate), nullString(in.Notes),
		nullString(in.ImageURL), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}

	return GetItem(ctx, db, id)
}

// SetItemStatus moves an item between in_freezer, consumed and thrown_out.
// Leaving the freezer stamps removed_date with today; returning clears it.
func SetItemStatus(ctx context.Context, db *sql.DB, id int64, status, today string) (*model.Item, error) {
	if !model.ValidItemStatus(status) {
		return nil, ErrInvalidStatus
	}

	_, err := db.ExecContext(ctx,
		`UPDATE items SET status = ?, removed_date = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, nullString(removedDateFor(status, "", today)), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item status: %w", err)
	}

	return GetItem(ctx, db, id)
}

func removedDateFor(status, removed, today string) string {
	if status == model.ItemStatusInFreezer {
		return ""
	}
	if removed == "" {
		return today
	}
	return removed
}

// DeleteItem permanently deletes an item.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// PurgeHistory deletes every item that has left the freezer.
func PurgeHistory(ctx context.Context, db *sql.DB) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM items WHERE status IN (?, ?)`,
		model.ItemStatusConsumed, model.ItemStatusThrownOut,
	)
	if err != nil {
		return 0, fmt.Errorf("purging history: %w", err)
	}
	return result.RowsAffected()
}

// SetItemImage stores an uploaded image and points image_url at it.
func SetItemImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime, url string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, image_url = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		image, mime, url, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns an item's stored image data and MIME type.
func GetItemImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

func normalizeInput(in *ItemInput) error {
	in.Code = strings.TrimSpace(in.Code)
	in.UPC = strings.TrimSpace(in.UPC)
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ErrNameRequired
	}
	if in.UPC != "" {
		if err := model.ValidateUPC(in.UPC); err != nil {
			return &ValidationError{Err: err}
		}
	}
	if in.WeightUnit == "" {
		in.WeightUnit = model.UnitPound
	}
	if !model.ValidWeightUnit(in.WeightUnit) {
		return ErrInvalidWeightUnit
	}
	if in.Status != "" && !model.ValidItemStatus(in.Status) {
		return ErrInvalidStatus
	}
	for _, d := range []string{in.AddedDate, in.ExpirationDate, in.RemovedDate} {
		if d == "" {
			continue
		}
		if err := model.ValidateDate(d); err != nil {
			return &ValidationError{Err: err}
		}
	}
	return nil
}

// uniqueCode generates codes like "ABC123" until one is unused.
func uniqueCode(ctx context.Context, db *sql.DB) (string, error) {
	for range 20 {
		code, err := generateCode()
		if err != nil {
			return "", fmt.Errorf("generating item code: %w", err)
		}
		existing, err := GetItemByCode(ctx, db, code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", ErrCodeUnavailable
}

func generateCode() (string, error) {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	const digits = "0123456789"
	code := make([]byte, 6)
	for i := range code {
		charset := letters
		if i >= 3 {
			charset = digits
		}
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[n.Int64()]
	}
	return string(code), nil
}
