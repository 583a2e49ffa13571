package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/erazemk/freezer/internal/model"
)

// CategoryUpdate changes the non-nil fields of a category.
type CategoryUpdate struct {
	Name                  *string `json:"name,omitempty"`
	DefaultExpirationDays *int    `json:"default_expiration_days,omitempty"`
	ImageURL              *string `json:"image_url,omitempty"`
}

// ListCategories returns all categories, system categories first.
func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// GetCategory returns one category.
func (c *Client) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	var cat model.Category
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/categories/%d", id), nil, nil, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// CreateCategory adds a user category with the given shelf life in days.
func (c *Client) CreateCategory(ctx context.Context, name string, days int) (*model.Category, error) {
	var cat model.Category
	err := c.do(ctx, http.MethodPost, "/categories", nil, map[string]any{
		"name":                    name,
		"default_expiration_days": days,
	}, &cat)
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

// UpdateCategory changes a category.
func (c *Client) UpdateCategory(ctx context.Context, id int64, u CategoryUpdate) (*model.Category, error) {
	var cat model.Category
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/categories/%d", id), nil, u, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// DeleteCategory removes an unused, non-system category.
func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/categories/%d", id), nil, nil, nil)
}

// StockImage returns the suggested image URL for a category, empty if none.
func (c *Client) StockImage(ctx context.Context, id int64) (string, error) {
	var res struct {
		StockImageURL string `json:"stock_image_url"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/categories/%d/stock-image", id), nil, nil, &res); err != nil {
		return "", err
	}
	return res.StockImageURL, nil
}

// UploadCategoryImage replaces a category's image.
func (c *Client) UploadCategoryImage(ctx context.Context, id int64, filename string, r io.Reader) (*model.Category, error) {
	var cat model.Category
	if err := c.upload(ctx, http.MethodPut, fmt.Sprintf("/categories/%d/image", id), "image", filename, r, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}
