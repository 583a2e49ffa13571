package model

import (
	"fmt"
	"regexp"
	"time"
)

// Item represents a single package stored in the freezer.
type Item struct {
	ID              int64     `json:"id"`
	Code            string    `json:"qr_code"`
	UPC             string    `json:"upc,omitempty"`
	Name            string    `json:"name"`
	Source          string    `json:"source,omitempty"`
	Weight          *float64  `json:"weight"`
	WeightUnit      string    `json:"weight_unit"`
	CategoryID      *int64    `json:"category_id"`
	CategoryName    string    `json:"category_name,omitempty"`
	AddedDate       string    `json:"added_date"`
	ExpirationDate  string    `json:"expiration_date,omitempty"`
	Status          string    `json:"status"`
	RemovedDate     string    `json:"removed_date,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	ImageURL        string    `json:"image_url,omitempty"`
	AddedByUserID   *int64    `json:"added_by_user_id,omitempty"`
	AddedByUsername string    `json:"added_by_username,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Item statuses.
const (
	ItemStatusInFreezer = "in_freezer"
	ItemStatusConsumed  = "consumed"
	ItemStatusThrownOut = "thrown_out"
)

// StatusAll is the list filter value that disables status filtering.
const StatusAll = "all"

// Weight units.
const (
	UnitPound    = "lb"
	UnitOunce    = "oz"
	UnitKilogram = "kg"
	UnitGram     = "g"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

var upcPattern = regexp.MustCompile(`^[0-9]{12}$`)

// ValidItemStatus reports whether status is a stored item status.
func ValidItemStatus(status string) bool {
	switch status {
	case ItemStatusInFreezer, ItemStatusConsumed, ItemStatusThrownOut:
		return true
	}
	return false
}

// ValidWeightUnit reports whether unit is a supported weight unit.
func ValidWeightUnit(unit string) bool {
	switch unit {
	case UnitPound, UnitOunce, UnitKilogram, UnitGram:
		return true
	}
	return false
}

// ValidateUPC checks that upc is exactly twelve digits.
func ValidateUPC(upc string) error {
	if !upcPattern.MatchString(upc) {
		return fmt.Errorf("UPC must be exactly 12 digits")
	}
	return nil
}

// ValidateDate checks that s is a YYYY-MM-DD calendar date.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s)
	}
	return nil
}

// QRPrefix is prepended to an item code in the QR payload printed on labels.
const QRPrefix = "freezer-item:"

// QRPayload returns the QR payload for an item code.
func QRPayload(code string) string {
	return QRPrefix + code
}
