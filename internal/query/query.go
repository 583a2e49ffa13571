// Package query builds the filter and sort parameters of an item listing.
package query

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/erazemk/freezer/internal/model"
)

// Sort fields and directions accepted by the server.
const (
	SortAddedDate      = "added_date"
	SortExpirationDate = "expiration_date"
	SortName           = "name"

	Asc  = "asc"
	Desc = "desc"
)

// Params are the parameters of GET /api/items. Status, SortBy and SortOrder
// always carry a value; CategoryID is nil for all categories.
//
// Params is a value type. The With methods return modified copies.
type Params struct {
	Search     string
	CategoryID *int64
	Status     string
	SortBy     string
	SortOrder  string

	// StartDate and EndDate bound added_date, inclusive. Empty means open.
	StartDate string
	EndDate   string
}

// Default returns items in the freezer, newest first.
func Default() Params {
	return Params{
		Status:    model.ItemStatusInFreezer,
		SortBy:    SortAddedDate,
		SortOrder: Desc,
	}
}

// WithSearch returns p with the search text replaced.
func (p Params) WithSearch(s string) Params {
	p.Search = s
	return p
}

// WithCategory returns p restricted to one category.
func (p Params) WithCategory(id int64) Params {
	p.CategoryID = &id
	return p
}

// WithoutCategory returns p across all categories.
func (p Params) WithoutCategory() Params {
	p.CategoryID = nil
	return p
}

// WithStatus returns p filtered by status, or unfiltered for model.StatusAll.
// An empty status falls back to in_freezer.
func (p Params) WithStatus(status string) Params {
	if status == "" {
		status = model.ItemStatusInFreezer
	}
	p.Status = status
	return p
}

// WithSort returns p sorted by field in the given direction. Empty values
// keep the current ones.
func (p Params) WithSort(field, order string) Params {
	if field != "" {
		p.SortBy = field
	}
	if order != "" {
		p.SortOrder = order
	}
	return p
}

// WithAddedRange returns p limited to items added between start and end.
func (p Params) WithAddedRange(start, end string) Params {
	p.StartDate, p.EndDate = start, end
	return p
}

// Validate reports the first invalid parameter.
func (p Params) Validate() error {
	if p.Status != model.StatusAll && !model.ValidItemStatus(p.Status) {
		return fmt.Errorf("invalid status %q", p.Status)
	}
	switch p.SortBy {
	case SortAddedDate, SortExpirationDate, SortName:
	default:
		return fmt.Errorf("invalid sort field %q", p.SortBy)
	}
	if p.SortOrder != Asc && p.SortOrder != Desc {
		return fmt.Errorf("invalid sort order %q", p.SortOrder)
	}
	for _, d := range []string{p.StartDate, p.EndDate} {
		if d != "" {
			if err := model.ValidateDate(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// Values encodes p as query parameters. search is always present;
// category_id and the date bounds only when set.
func (p Params) Values() url.Values {
	v := url.Values{
		"status":     {p.Status},
		"search":     {p.Search},
		"sort_by":    {p.SortBy},
		"sort_order": {p.SortOrder},
	}
	if p.CategoryID != nil {
		v.Set("category_id", strconv.FormatInt(*p.CategoryID, 10))
	}
	if p.StartDate != "" {
		v.Set("start_date", p.StartDate)
	}
	if p.EndDate != "" {
		v.Set("end_date", p.EndDate)
	}
	return v
}
