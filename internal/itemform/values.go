package itemform

import (
	"strconv"
	"strings"

	"github.com/erazemk/freezer/internal/client"
	"github.com/erazemk/freezer/internal/model"
)

// Field names a form field. The names match the item JSON keys.
type Field string

const (
	FieldCode           Field = "qr_code"
	FieldUPC            Field = "upc"
	FieldName           Field = "name"
	FieldSource         Field = "source"
	FieldWeight         Field = "weight"
	FieldWeightUnit     Field = "weight_unit"
	FieldCategory       Field = "category_id"
	FieldAddedDate      Field = "added_date"
	FieldExpirationDate Field = "expiration_date"
	FieldNotes          Field = "notes"
	FieldImageURL       Field = "image_url"
)

// Fields lists every form field in display order.
var Fields = []Field{
	FieldCode, FieldUPC, FieldName, FieldSource, FieldWeight, FieldWeightUnit,
	FieldCategory, FieldAddedDate, FieldExpirationDate, FieldNotes, FieldImageURL,
}

// Values holds the form fields as entered. Weight stays text until submit so
// a half-typed number is not lost.
type Values struct {
	Code           string
	UPC            string
	Name           string
	Source         string
	Weight         string
	WeightUnit     string
	CategoryID     *int64
	AddedDate      string
	ExpirationDate string
	Notes          string
	ImageURL       string
}

func valuesOf(item *model.Item) Values {
	v := Values{
		Code:           item.Code,
		UPC:            item.UPC,
		Name:           item.Name,
		Source:         item.Source,
		WeightUnit:     item.WeightUnit,
		AddedDate:      item.AddedDate,
		ExpirationDate: item.ExpirationDate,
		Notes:          item.Notes,
		ImageURL:       item.ImageURL,
	}
	if v.WeightUnit == "" {
		v.WeightUnit = DefaultWeightUnit
	}
	if item.Weight != nil {
		v.Weight = strconv.FormatFloat(*item.Weight, 'f', -1, 64)
	}
	if item.CategoryID != nil {
		id := *item.CategoryID
		v.CategoryID = &id
	}
	return v
}

func (v Values) clone() Values {
	if v.CategoryID != nil {
		id := *v.CategoryID
		v.CategoryID = &id
	}
	return v
}

// Get returns a field in its text form.
func (v Values) Get(field Field) string {
	switch field {
	case FieldCode:
		return v.Code
	case FieldUPC:
		return v.UPC
	case FieldName:
		return v.Name
	case FieldSource:
		return v.Source
	case FieldWeight:
		return v.Weight
	case FieldWeightUnit:
		return v.WeightUnit
	case FieldCategory:
		if v.CategoryID == nil {
			return ""
		}
		return strconv.FormatInt(*v.CategoryID, 10)
	case FieldAddedDate:
		return v.AddedDate
	case FieldExpirationDate:
		return v.ExpirationDate
	case FieldNotes:
		return v.Notes
	case FieldImageURL:
		return v.ImageURL
	}
	return ""
}

func (v *Values) set(field Field, value string) error {
	switch field {
	case FieldCode:
		v.Code = value
	case FieldUPC:
		v.UPC = value
	case FieldName:
		v.Name = value
	case FieldSource:
		v.Source = value
	case FieldWeight:
		v.Weight = value
	case FieldWeightUnit:
		v.WeightUnit = value
	case FieldAddedDate:
		v.AddedDate = value
	case FieldExpirationDate:
		v.ExpirationDate = value
	case FieldNotes:
		v.Notes = value
	case FieldImageURL:
		v.ImageURL = value
	default:
		return ErrUnknownField
	}
	return nil
}

// input validates the values and converts them to a request body.
func (v Values) input() (client.ItemInput, error) {
	if strings.TrimSpace(v.Name) == "" {
		return client.ItemInput{}, &ValidationError{Field: FieldName, Message: "Name is required"}
	}
	if upc := strings.TrimSpace(v.UPC); upc != "" {
		if err := model.ValidateUPC(upc); err != nil {
			return client.ItemInput{}, &ValidationError{Field: FieldUPC, Message: err.Error()}
		}
	}
	if w := strings.TrimSpace(v.Weight); w != "" {
		n, err := strconv.ParseFloat(w, 64)
		if err != nil || n < 0 {
			return client.ItemInput{}, &ValidationError{Field: FieldWeight, Message: "Weight must be a number and cannot be negative"}
		}
	}
	if u := strings.TrimSpace(v.WeightUnit); u != "" && !model.ValidWeightUnit(u) {
		return client.ItemInput{}, &ValidationError{Field: FieldWeightUnit, Message: "Unknown weight unit " + strconv.Quote(u)}
	}
	for _, f := range []Field{FieldAddedDate, FieldExpirationDate} {
		if d := strings.TrimSpace(v.Get(f)); d != "" {
			if err := model.ValidateDate(d); err != nil {
				return client.ItemInput{}, &ValidationError{Field: f, Message: err.Error()}
			}
		}
	}
	return v.rawInput(), nil
}

// rawInput converts the values without validating them. An unparsable
// weight is sent as no weight.
func (v Values) rawInput() client.ItemInput {
	in := client.ItemInput{
		Code:           strings.TrimSpace(v.Code),
		UPC:            strings.TrimSpace(v.UPC),
		Name:           strings.TrimSpace(v.Name),
		Source:         strings.TrimSpace(v.Source),
		WeightUnit:     strings.TrimSpace(v.WeightUnit),
		CategoryID:     v.CategoryID,
		AddedDate:      strings.TrimSpace(v.AddedDate),
		ExpirationDate: strings.TrimSpace(v.ExpirationDate),
		Notes:          strings.TrimSpace(v.Notes),
		ImageURL:       strings.TrimSpace(v.ImageURL),
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(v.Weight), 64); err == nil {
		in.Weight = &n
	}
	return in
}

// Policy says how a looked-up product value is merged into a field.
type Policy int

const (
	NeverOverwrite Policy = iota
	OverwriteIfEmpty
	AlwaysOverwrite
)

// LookupPolicy is the merge policy for UPC lookups. Fields not listed are
// never overwritten. The product image always replaces the current one so
// the picture follows the scanned product.
var LookupPolicy = map[Field]Policy{
	FieldName:     OverwriteIfEmpty,
	FieldNotes:    OverwriteIfEmpty,
	FieldCategory: OverwriteIfEmpty,
	FieldImageURL: AlwaysOverwrite,
}

// Merge copies the non-empty product values into v according to policy.
func Merge(v *Values, p *client.Product, policy map[Field]Policy) {
	apply := func(field Field, current string, has bool) bool {
		if !has {
			return false
		}
		switch policy[field] {
		case AlwaysOverwrite:
			return true
		case OverwriteIfEmpty:
			return strings.TrimSpace(current) == ""
		}
		return false
	}

	if apply(FieldName, v.Name, p.Name != "") {
		v.Name = p.Name
	}
	if apply(FieldNotes, v.Notes, p.Notes != "") {
		v.Notes = p.Notes
	}
	if apply(FieldCategory, v.Get(FieldCategory), p.CategoryID != nil) {
		id := *p.CategoryID
		v.CategoryID = &id
	}
	if apply(FieldImageURL, v.ImageURL, p.ImageURL != "") {
		v.ImageURL = p.ImageURL
	}
	if apply(FieldUPC, v.UPC, p.UPC != "") {
		v.UPC = p.UPC
	}
}
