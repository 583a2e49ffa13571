package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/freezer/internal/model"
	"github.com/erazemk/freezer/internal/transfer"
)

// ExportItems returns export records for items with the given status
// ("all" or empty exports everything).
func ExportItems(ctx context.Context, db *sql.DB, status string) ([]transfer.Record, error) {
	items, err := ListItems(ctx, db, ItemFilter{Status: status, SortBy: "added_date", SortOrder: "asc"})
	if err != nil {
		return nil, err
	}
	return transfer.FromItems(items), nil
}

// ImportItems creates items from decoded records. Records whose code already
// exists are skipped; unknown categories are created on the fly. A bad row
// is reported and does not stop the import.
func ImportItems(ctx context.Context, db *sql.DB, recs []transfer.Record, userID *int64, today string) (*model.ImportResult, error) {
	result := &model.ImportResult{}
	categories := map[string]int64{}

	for _, rec := range recs {
		if rec.Code != "" {
			existing, err := GetItemByCode(ctx, db, rec.Code)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				result.Skipped++
				continue
			}
		}

		in := ItemInput{
			Code:           rec.Code,
			UPC:            rec.UPC,
			Name:           rec.Name,
			Source:         rec.Source,
			Weight:         rec.Weight,
			WeightUnit:     rec.WeightUnit,
			AddedDate:      rec.AddedDate,
			ExpirationDate: rec.ExpirationDate,
			Status:         rec.Status,
			RemovedDate:    rec.RemovedDate,
			Notes:          rec.Notes,
		}

		if rec.Category != "" {
			id, err := importCategory(ctx, db, categories, rec.Category, userID)
			if err != nil {
				return nil, err
			}
			in.CategoryID = &id
		}

		_, err := CreateItem(ctx, db, in, userID, today)
		switch {
		case errors.Is(err, ErrDuplicateCode):
			result.Skipped++
		case err != nil && isRowError(err):
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rec.Line, err))
		case err != nil:
			return nil, err
		default:
			result.Imported++
		}
	}

	return result, nil
}

func importCategory(ctx context.Context, db *sql.DB, cache map[string]int64, name string, userID *int64) (int64, error) {
	if id, ok := cache[name]; ok {
		return id, nil
	}
	c, err := GetCategoryByName(ctx, db, name)
	if err != nil {
		return 0, err
	}
	if c == nil {
		c, err = CreateCategory(ctx, db, name, model.DefaultExpirationDays, "", userID, false)
		if err != nil {
			return 0, err
		}
	}
	cache[name] = c.ID
	return c.ID, nil
}

// isRowError reports whether err came from validating a single record
// rather than from the database.
func isRowError(err error) bool {
	var validation *ValidationError
	return errors.As(err, &validation) ||
		errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidWeightUnit) ||
		errors.Is(err, ErrCategoryNotFound)
}
