package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/erazemk/freezer/internal/labels"
	"github.com/erazemk/freezer/internal/model"
	"github.com/erazemk/freezer/internal/query"
)

// ItemInput is the body of item create and update requests. Updates replace
// every mutable field; the code cannot change after creation.
type ItemInput struct {
	Code           string   `json:"qr_code,omitempty"`
	UPC            string   `json:"upc"`
	Name           string   `json:"name"`
	Source         string   `json:"source"`
	Weight         *float64 `json:"weight"`
	WeightUnit     string   `json:"weight_unit,omitempty"`
	CategoryID     *int64   `json:"category_id"`
	AddedDate      string   `json:"added_date,omitempty"`
	ExpirationDate string   `json:"expiration_date"`
	Notes          string   `json:"notes"`
	ImageURL       string   `json:"image_url"`
	Status         string   `json:"status,omitempty"`
	RemovedDate    string   `json:"removed_date,omitempty"`
}

// InputFrom copies the editable fields of item.
func InputFrom(item *model.Item) ItemInput {
	return ItemInput{
		Code:           item.Code,
		UPC:            item.UPC,
		Name:           item.Name,
		Source:         item.Source,
		Weight:         item.Weight,
		WeightUnit:     item.WeightUnit,
		CategoryID:     item.CategoryID,
		AddedDate:      item.AddedDate,
		ExpirationDate: item.ExpirationDate,
		Notes:          item.Notes,
		ImageURL:       item.ImageURL,
		Status:         item.Status,
		RemovedDate:    item.RemovedDate,
	}
}

// Product is the form data suggested by a UPC lookup.
type Product struct {
	UPC        string `json:"upc"`
	Name       string `json:"name,omitempty"`
	Notes      string `json:"notes,omitempty"`
	CategoryID *int64 `json:"category_id,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
}

// LookupResult is the outcome of a UPC lookup. Found=false is a normal
// result and Message says why.
type LookupResult struct {
	Found   bool     `json:"found"`
	Source  string   `json:"source"`
	Data    *Product `json:"data,omitempty"`
	Message string   `json:"message"`
}

// ListItems returns the items matching p.
func (c *Client) ListItems(ctx context.Context, p query.Params) ([]model.Item, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var items []model.Item
	if err := c.do(ctx, http.MethodGet, "/items", p.Values(), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetItem returns one item.
func (c *Client) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	var item model.Item
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/items/%d", id), nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// GetItemByCode returns the item with the given code. A missing item is an
// *APIError for which IsNotFound holds.
func (c *Client) GetItemByCode(ctx context.Context, code string) (*model.Item, error) {
	var item model.Item
	if err := c.do(ctx, http.MethodGet, "/items/code/"+url.PathEscape(code), nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ItemQR writes the PNG QR code of an item code to w.
func (c *Client) ItemQR(ctx context.Context, code string, w io.Writer) error {
	return c.download(ctx, "/items/code/"+url.PathEscape(code)+"/qr", nil, w)
}

// CreateItem adds an item. A blank code is generated by the server.
func (c *Client) CreateItem(ctx context.Context, in ItemInput) (*model.Item, error) {
	var item model.Item
	if err := c.do(ctx, http.MethodPost, "/items", nil, in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem replaces an item's mutable fields.
func (c *Client) UpdateItem(ctx context.Context, id int64, in ItemInput) (*model.Item, error) {
	var item model.Item
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/items/%d", id), nil, in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateStatus moves an item into or out of the freezer.
func (c *Client) UpdateStatus(ctx context.Context, id int64, status string) (*model.Item, error) {
	var item model.Item
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/items/%d/status", id), nil,
		map[string]string{"status": status}, &item)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem removes an item permanently.
func (c *Client) DeleteItem(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/items/%d", id), nil, nil, nil)
}

// UploadItemImage replaces an item's photo.
func (c *Client) UploadItemImage(ctx context.Context, id int64, filename string, r io.Reader) (*model.Item, error) {
	var item model.Item
	if err := c.upload(ctx, http.MethodPut, fmt.Sprintf("/items/%d/image", id), "image", filename, r, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ItemImage writes an item's stored photo to w.
func (c *Client) ItemImage(ctx context.Context, id int64, w io.Writer) error {
	return c.download(ctx, fmt.Sprintf("/items/%d/image", id), nil, w)
}

// ExpiringSoon returns items expiring within days, expired ones included.
func (c *Client) ExpiringSoon(ctx context.Context, days int) ([]model.Item, error) {
	var items []model.Item
	q := url.Values{"days": {strconv.Itoa(days)}}
	if err := c.do(ctx, http.MethodGet, "/items/expiring-soon", q, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Oldest returns the items that have been in the freezer longest.
func (c *Client) Oldest(ctx context.Context, limit int) ([]model.Item, error) {
	var items []model.Item
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.do(ctx, http.MethodGet, "/items/oldest", q, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// LookupUPC asks the server's product database about a 12 digit UPC.
func (c *Client) LookupUPC(ctx context.Context, upc string) (*LookupResult, error) {
	var res LookupResult
	if err := c.do(ctx, http.MethodGet, "/items/lookup-upc/"+url.PathEscape(upc), nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Labels writes a printable HTML label sheet for the given items to w.
func (c *Client) Labels(ctx context.Context, ids []int64, opts labels.Options, w io.Writer) error {
	body := struct {
		ItemIDs []int64 `json:"item_ids"`
		labels.Options
	}{ids, opts}

	resp, err := c.sendJSON(ctx, http.MethodPost, "/items/labels", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("reading labels: %w", err)
	}
	return nil
}

// Export writes all items with the given status ("all" for every item) in
// format (csv or json) to w.
func (c *Client) Export(ctx context.Context, format, status string, w io.Writer) error {
	q := url.Values{"format": {format}}
	if status != "" {
		q.Set("status", status)
	}
	return c.download(ctx, "/items/export", q, w)
}

// Import uploads a CSV or JSON export.
func (c *Client) Import(ctx context.Context, format string, r io.Reader) (*model.ImportResult, error) {
	contentType := "text/csv"
	if format == "json" {
		contentType = "application/json"
	}
	resp, err := c.send(ctx, http.MethodPost, "/items/import", url.Values{"format": {format}}, contentType, r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var res model.ImportResult
	if err := decode(resp.Body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
