// Package itemform drives the add/edit item workflow: field editing,
// category-based expiration, UPC auto-fill, inline category creation and
// submission.
package itemform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/erazemk/freezer/internal/client"
	"github.com/erazemk/freezer/internal/dates"
	"github.com/erazemk/freezer/internal/model"
)

// FallbackMessage is shown when a failed save carries no server message.
const FallbackMessage = "Failed to save item. Please try again."

// NewCategorySentinel is the category selection that opens the inline
// category form instead of selecting a category.
const NewCategorySentinel int64 = -1

// NoCategory clears the category selection.
const NoCategory int64 = 0

// DefaultWeightUnit is preselected on new items.
const DefaultWeightUnit = model.UnitPound

// State is the workflow state.
type State int

const (
	Idle State = iota
	Editing
	Submitting
	Success
	Failure
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Failure:
		return "failure"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Workflow errors.
var (
	ErrNotOpen          = errors.New("form is not open")
	ErrBusy             = errors.New("a request is already in progress")
	ErrClosed           = errors.New("form was closed")
	ErrReadOnly         = errors.New("field cannot be changed")
	ErrUnknownField     = errors.New("unknown field")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrCategoryFormOpen = errors.New("finish creating the category first")
	ErrNotSaved         = errors.New("item has not been saved yet")
)

// ValidationError is a local input error. It never reaches the network.
type ValidationError struct {
	Field   Field
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// API is the subset of the server API the workflow uses.
type API interface {
	CreateItem(ctx context.Context, in client.ItemInput) (*model.Item, error)
	UpdateItem(ctx context.Context, id int64, in client.ItemInput) (*model.Item, error)
	LookupUPC(ctx context.Context, code string) (*client.LookupResult, error)
	CreateCategory(ctx context.Context, name string, days int) (*model.Category, error)
}

// SessionRecorder remembers newly created items for label printing.
type SessionRecorder interface {
	AddItem(id int64)
}

// Config wires a Form to its collaborators. API is required; the rest are
// optional.
type Config struct {
	API        API
	Session    SessionRecorder
	Categories []model.Category

	// Now returns the current time; expiration dates use its location.
	Now func() time.Time

	// OnSaved runs after every successful save. keepOpen is false for saves
	// that closed the form.
	OnSaved func(keepOpen bool)

	// OnCategoriesChanged runs after a category was created inline.
	OnCategoriesChanged func(created model.Category)
}

// Form is one add/edit workflow. Methods are safe for concurrent use; a
// response that arrives after Close or a reopen is discarded.
type Form struct {
	cfg Config

	mu         sync.Mutex
	state      State
	epoch      uint64
	item       *model.Item
	values     Values
	autoExpiry bool
	categories []model.Category
	newCatOpen bool
	err        string
	notice     string
}

// New returns an idle form.
func New(cfg Config) *Form {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Form{cfg: cfg, categories: slices.Clone(cfg.Categories)}
}

// Open starts editing. A nil item starts a new item; an item with an ID
// edits it; an item without an ID seeds a new item (for example a scanned
// code).
func (f *Form) Open(item *model.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.epoch++
	f.state = Editing
	f.err, f.notice = "", ""
	f.newCatOpen = false
	f.autoExpiry = false
	f.item = nil
	f.values = Values{WeightUnit: DefaultWeightUnit}

	if item == nil {
		return
	}
	f.values = valuesOf(item)
	if item.ID != 0 {
		cp := *item
		f.item = &cp
	}
}

// Close discards the form. Requests still in flight finish but their
// results are ignored.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.epoch++
	f.state = Idle
	f.item = nil
	f.values = Values{}
	f.newCatOpen = false
	f.err, f.notice = "", ""
}

// State returns the current state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Values returns a copy of the field values.
func (f *Form) Values() Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values.clone()
}

// Item returns the item being edited, nil for a new item.
func (f *Form) Item() *model.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.item == nil {
		return nil
	}
	cp := *f.item
	return &cp
}

// Err returns the form-level error message, empty if none.
func (f *Form) Err() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Notice returns the last informational message, such as a UPC that was not
// found.
func (f *Form) Notice() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notice
}

// Categories returns the categories offered for selection.
func (f *Form) Categories() []model.Category {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.categories)
}

// SetCategories replaces the categories offered for selection.
func (f *Form) SetCategories(cats []model.Category) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categories = slices.Clone(cats)
}

// CategoryFormOpen reports whether the inline category form is showing.
func (f *Form) CategoryFormOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.newCatOpen
}

func (f *Form) editable() error {
	switch f.state {
	case Editing, Failure:
		return nil
	case Submitting:
		return ErrBusy
	}
	return ErrNotOpen
}

// Set changes a field from its text form. The code of a saved item is read
// only. Setting the expiration date by hand stops category changes from
// recomputing it.
func (f *Form) Set(field Field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return err
	}

	switch field {
	case FieldCode:
		if f.item != nil {
			return ErrReadOnly
		}
	case FieldCategory:
		id := NoCategory
		if v := strings.TrimSpace(value); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return &ValidationError{Field: field, Message: "Category must be a number"}
			}
			id = n
		}
		return f.selectCategory(id)
	case FieldExpirationDate:
		f.autoExpiry = false
	}
	return f.values.set(field, value)
}

// SelectCategory selects a category. When the expiration date is empty or
// was computed from a previous category, it becomes today plus the
// category's default days. NewCategorySentinel opens the inline category
// form; NoCategory clears the selection.
func (f *Form) SelectCategory(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return err
	}
	return f.selectCategory(id)
}

func (f *Form) selectCategory(id int64) error {
	switch id {
	case NewCategorySentinel:
		f.newCatOpen = true
		return nil
	case NoCategory:
		f.values.CategoryID = nil
		return nil
	}

	i := slices.IndexFunc(f.categories, func(c model.Category) bool { return c.ID == id })
	if i < 0 {
		return ErrUnknownCategory
	}
	f.values.CategoryID = &id
	f.applyExpiration(f.categories[i])
	return nil
}

func (f *Form) applyExpiration(cat model.Category) {
	if f.values.ExpirationDate != "" && !f.autoExpiry {
		return
	}
	if cat.DefaultExpirationDays <= 0 {
		return
	}
	f.values.ExpirationDate = dates.AddDays(f.cfg.Now(), cat.DefaultExpirationDays)
	f.autoExpiry = true
}

// CancelCategory closes the inline category form without creating anything.
func (f *Form) CancelCategory() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newCatOpen = false
}

// CreateCategory creates a category from the inline form, tells the parent
// to refresh its list and selects the new category.
func (f *Form) CreateCategory(ctx context.Context, name string, days int) (*model.Category, error) {
	name = strings.TrimSpace(name)

	f.mu.Lock()
	if err := f.editable(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if !f.newCatOpen {
		f.mu.Unlock()
		return nil, ErrNotOpen
	}
	if name == "" {
		f.mu.Unlock()
		return nil, &ValidationError{Field: FieldCategory, Message: "Category name is required"}
	}
	if days < 0 {
		f.mu.Unlock()
		return nil, &ValidationError{Field: FieldCategory, Message: "Default expiration days cannot be negative"}
	}
	epoch := f.epoch
	f.mu.Unlock()

	cat, err := f.cfg.API.CreateCategory(ctx, name, days)

	f.mu.Lock()
	if f.epoch != epoch {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	if err != nil {
		f.err = client.Message(err, "Failed to create category")
		f.mu.Unlock()
		return nil, err
	}
	f.err = ""
	f.categories = append(f.categories, *cat)
	f.newCatOpen = false
	f.values.CategoryID = &cat.ID
	f.applyExpiration(*cat)
	f.mu.Unlock()

	slog.Debug("category created inline", "category", cat.Name, "days", cat.DefaultExpirationDays)
	if f.cfg.OnCategoriesChanged != nil {
		f.cfg.OnCategoriesChanged(*cat)
	}
	return cat, nil
}

// LookupUPC looks up the UPC field in the product database and merges a
// found product into the form according to LookupPolicy. An invalid UPC is
// rejected without a request. A product that is not found is a normal
// result; its message becomes the form notice.
func (f *Form) LookupUPC(ctx context.Context) (*client.LookupResult, error) {
	f.mu.Lock()
	if err := f.editable(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	code := strings.TrimSpace(f.values.UPC)
	if err := model.ValidateUPC(code); err != nil {
		f.mu.Unlock()
		return nil, &ValidationError{Field: FieldUPC, Message: err.Error()}
	}
	epoch := f.epoch
	f.mu.Unlock()

	res, err := f.cfg.API.LookupUPC(ctx, code)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.epoch != epoch {
		return nil, ErrClosed
	}
	if err != nil {
		f.err = client.Message(err, "UPC lookup failed. Please try again.")
		return nil, err
	}

	f.err = ""
	f.notice = res.Message
	if !res.Found || res.Data == nil {
		return res, nil
	}

	before := f.values.CategoryID
	Merge(&f.values, res.Data, LookupPolicy)
	if f.values.CategoryID != nil && before == nil {
		if i := slices.IndexFunc(f.categories, func(c model.Category) bool { return c.ID == *f.values.CategoryID }); i >= 0 {
			f.applyExpiration(f.categories[i])
		}
	}
	return res, nil
}

// Validate checks the fields without sending anything.
func (f *Form) Validate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := f.values.input()
	return err
}

// Submit validates and saves the item. With keepOpen the form goes back to
// editing a new item with only the category and expiration date retained;
// otherwise it closes. A failed save keeps the form open for a retry.
func (f *Form) Submit(ctx context.Context, keepOpen bool) (*model.Item, error) {
	f.mu.Lock()
	if err := f.editable(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if f.newCatOpen {
		f.mu.Unlock()
		return nil, ErrCategoryFormOpen
	}
	in, err := f.values.input()
	if err != nil {
		f.err = err.Error()
		f.mu.Unlock()
		return nil, err
	}
	var id int64
	if f.item != nil {
		id = f.item.ID
		in.Code = ""
	}
	return f.save(ctx, id, in, keepOpen)
}

// MarkConsumed saves the current field values as consumed today and closes
// the form. It skips validation.
func (f *Form) MarkConsumed(ctx context.Context) (*model.Item, error) {
	return f.markRemoved(ctx, model.ItemStatusConsumed)
}

// MarkThrownOut saves the current field values as thrown out today and
// closes the form. It skips validation.
func (f *Form) MarkThrownOut(ctx context.Context) (*model.Item, error) {
	return f.markRemoved(ctx, model.ItemStatusThrownOut)
}

func (f *Form) markRemoved(ctx context.Context, status string) (*model.Item, error) {
	f.mu.Lock()
	if err := f.editable(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if f.item == nil {
		f.mu.Unlock()
		return nil, ErrNotSaved
	}
	in := f.values.rawInput()
	in.Code = ""
	in.Status = status
	in.RemovedDate = dates.Today(f.cfg.Now())
	return f.save(ctx, f.item.ID, in, false)
}

// save sends in and applies the result. It is called with f.mu held and
// releases it.
func (f *Form) save(ctx context.Context, id int64, in client.ItemInput, keepOpen bool) (*model.Item, error) {
	epoch := f.epoch
	f.state = Submitting
	f.err = ""
	f.mu.Unlock()

	var item *model.Item
	var err error
	if id != 0 {
		item, err = f.cfg.API.UpdateItem(ctx, id, in)
	} else {
		item, err = f.cfg.API.CreateItem(ctx, in)
	}

	f.mu.Lock()
	closed := f.epoch != epoch
	if err != nil {
		if closed {
			f.mu.Unlock()
			slog.Debug("discarding failed save for closed form", "error", err)
			return nil, ErrClosed
		}
		f.state = Failure
		f.err = client.Message(err, FallbackMessage)
		f.mu.Unlock()
		return nil, err
	}
	// A closed form leaves its state alone, but the saved item still counts.
	if !closed {
		f.state = Success
	}
	f.mu.Unlock()

	if id == 0 && f.cfg.Session != nil {
		f.cfg.Session.AddItem(item.ID)
	}
	if f.cfg.OnSaved != nil {
		f.cfg.OnSaved(keepOpen)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.epoch != epoch {
		return item, nil
	}
	if keepOpen {
		f.values = Values{
			WeightUnit:     DefaultWeightUnit,
			CategoryID:     f.values.CategoryID,
			ExpirationDate: f.values.ExpirationDate,
		}
		f.item = nil
		f.state = Editing
		f.notice = ""
		return item, nil
	}
	f.epoch++
	f.state = Idle
	f.item = nil
	f.values = Values{}
	return item, nil
}
