package model

import "time"

// Category groups items and supplies a default shelf life.
type Category struct {
	ID                    int64     `json:"id"`
	Name                  string    `json:"name"`
	DefaultExpirationDays int       `json:"default_expiration_days"`
	ImageURL              string    `json:"image_url,omitempty"`
	IsSystem              bool      `json:"is_system"`
	CreatedByUserID       *int64    `json:"created_by_user_id,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

// DefaultExpirationDays is used when a category is created without one.
const DefaultExpirationDays = 180

// DefaultCategory describes a system category seeded on first run.
type DefaultCategory struct {
	Name string
	Days int
}

// DefaultCategories follow USDA freezer storage guidance.
var DefaultCategories = []DefaultCategory{
	{"Beef, Steak", 365},
	{"Pork, Roast", 180},
	{"Chicken", 270},
	{"Fish", 180},
	{"Ice Cream", 60},
	{"Appetizers", 90},
	{"Entrees", 90},
	{"Leftovers", 90},
	{"Staples", 90},
}
