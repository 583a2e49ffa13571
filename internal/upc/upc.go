// Package upc looks up product details for a 12 digit UPC in an external
// product database that speaks the UPCitemdb lookup format.
package upc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/erazemk/freezer/internal/model"
)

// DefaultBaseURL is the public UPCitemdb trial endpoint.
const DefaultBaseURL = "https://api.upcitemdb.com/prod/trial"

// Source names the product database in lookup results.
const Source = "upcitemdb"

// Lookup errors.
var (
	ErrNotFound = errors.New("no product found for this UPC")
	ErrDisabled = errors.New("UPC lookup is not configured")
)

// Product is the subset of a product record used to fill the item form.
type Product struct {
	UPC         string
	Title       string
	Brand       string
	Description string
	Category    string
	ImageURL    string
}

// Client queries the product database.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a client for baseURL. An empty baseURL disables lookups.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

type lookupResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Total   int    `json:"total"`
	Items   []struct {
		EAN         string   `json:"ean"`
		UPC         string   `json:"upc"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Brand       string   `json:"brand"`
		Category    string   `json:"category"`
		Images      []string `json:"images"`
	} `json:"items"`
}

// Lookup fetches the product for code. It returns ErrNotFound when the
// database has no record.
func (c *Client) Lookup(ctx context.Context, code string) (*Product, error) {
	if c == nil || c.BaseURL == "" {
		return nil, ErrDisabled
	}
	if err := model.ValidateUPC(code); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.BaseURL+"/lookup?"+url.Values{"upc": {code}}.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying product database: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("product database returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var lr lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("decoding lookup response: %w", err)
	}
	if len(lr.Items) == 0 {
		return nil, ErrNotFound
	}

	it := lr.Items[0]
	p := &Product{
		UPC:         code,
		Title:       strings.TrimSpace(it.Title),
		Brand:       strings.TrimSpace(it.Brand),
		Description: strings.TrimSpace(it.Description),
		Category:    it.Category,
	}
	if len(it.Images) > 0 {
		p.ImageURL = it.Images[0]
	}
	return p, nil
}

// Notes builds a short notes line from the brand and description.
func (p *Product) Notes() string {
	var parts []string
	if p.Brand != "" {
		parts = append(parts, "Brand: "+p.Brand)
	}
	if p.Description != "" {
		desc := p.Description
		if r := []rune(desc); len(r) > 200 {
			desc = string(r[:200]) + "…"
		}
		parts = append(parts, desc)
	}
	return strings.Join(parts, ". ")
}

// MatchCategory picks the category whose name best matches the product's
// category path or title. Longer names win so "Ice Cream" beats "Cream".
func MatchCategory(p *Product, cats []model.Category) *int64 {
	haystack := strings.ToLower(p.Category + " " + p.Title)
	var best *model.Category
	for i := range cats {
		c := &cats[i]
		for _, word := range strings.Split(c.Name, ",") {
			word = strings.ToLower(strings.TrimSpace(word))
			if word == "" || !strings.Contains(haystack, word) {
				continue
			}
			if best == nil || len(c.Name) > len(best.Name) {
				best = c
			}
		}
	}
	if best == nil {
		return nil
	}
	id := best.ID
	return &id
}
