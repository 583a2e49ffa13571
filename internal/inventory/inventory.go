// Package inventory keeps the filtered item list that the inventory view
// shows, with its warning counts, status actions and locate-by-code.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/erazemk/freezer/internal/client"
	"github.com/erazemk/freezer/internal/dates"
	"github.com/erazemk/freezer/internal/itemform"
	"github.com/erazemk/freezer/internal/model"
	"github.com/erazemk/freezer/internal/query"
)

// ErrStale is returned by a reload whose result was superseded by a newer
// reload.
var ErrStale = errors.New("superseded by a newer reload")

// API is the subset of the server API the controller uses.
type API interface {
	itemform.API
	ListItems(ctx context.Context, p query.Params) ([]model.Item, error)
	GetItemByCode(ctx context.Context, code string) (*model.Item, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*model.Item, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
}

// Summary holds the warning counts for the loaded items.
type Summary struct {
	ExpiringSoon int
	Expired      int
}

// Config wires a Controller. API is required.
type Config struct {
	API     API
	Session itemform.SessionRecorder
	Now     func() time.Time
}

// Controller holds the query parameters and the items they loaded. Every
// parameter change reloads once with the complete new parameters; a reload
// that finishes after a newer one started is dropped.
type Controller struct {
	cfg Config

	mu         sync.Mutex
	params     query.Params
	gen        uint64
	items      []model.Item
	loaded     bool
	err        error
	categories []model.Category
}

// New returns a controller with the default parameters. Nothing is loaded
// until Reload or a setter runs.
func New(cfg Config) *Controller {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Controller{cfg: cfg, params: query.Default()}
}

// Params returns the current query parameters.
func (c *Controller) Params() query.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// Items returns the loaded items.
func (c *Controller) Items() []model.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Err returns the error of the last reload, nil if it succeeded.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Empty reports whether the last reload succeeded and found nothing.
func (c *Controller) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded && c.err == nil && len(c.items) == 0
}

// Categories returns the categories from the last RefreshCategories.
func (c *Controller) Categories() []model.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.categories)
}

// Summary counts the loaded items that expire soon or already expired.
func (c *Controller) Summary() Summary {
	c.mu.Lock()
	items := c.items
	c.mu.Unlock()

	now := c.cfg.Now()
	var s Summary
	for _, item := range items {
		age := dates.Classify(item, now)
		if age.ExpiringSoon {
			s.ExpiringSoon++
		}
		if age.Expired {
			s.Expired++
		}
	}
	return s
}

// SetSearch filters by name, notes or code and reloads.
func (c *Controller) SetSearch(ctx context.Context, text string) error {
	return c.update(ctx, func(p query.Params) query.Params { return p.WithSearch(text) })
}

// SetCategory filters by category and reloads. A nil id shows every
// category.
func (c *Controller) SetCategory(ctx context.Context, id *int64) error {
	return c.update(ctx, func(p query.Params) query.Params {
		if id == nil {
			return p.WithoutCategory()
		}
		return p.WithCategory(*id)
	})
}

// SetStatus filters by status and reloads.
func (c *Controller) SetStatus(ctx context.Context, status string) error {
	return c.update(ctx, func(p query.Params) query.Params { return p.WithStatus(status) })
}

// SetSort changes the sort field and direction and reloads.
func (c *Controller) SetSort(ctx context.Context, field, order string) error {
	return c.update(ctx, func(p query.Params) query.Params { return p.WithSort(field, order) })
}

// SetParams replaces every parameter at once and reloads.
func (c *Controller) SetParams(ctx context.Context, p query.Params) error {
	return c.update(ctx, func(query.Params) query.Params { return p })
}

func (c *Controller) update(ctx context.Context, fn func(query.Params) query.Params) error {
	c.mu.Lock()
	p := fn(c.params)
	if err := p.Validate(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.params = p
	c.mu.Unlock()
	return c.Reload(ctx)
}

// Reload fetches the items for the current parameters.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	p := c.params
	c.mu.Unlock()

	items, err := c.cfg.API.ListItems(ctx, p)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		slog.Debug("dropping stale item list", "generation", gen, "current", c.gen)
		return ErrStale
	}
	c.loaded = true
	if err != nil {
		c.err = err
		return err
	}
	c.err = nil
	c.items = items
	return nil
}

// RefreshCategories reloads the category list used by forms.
func (c *Controller) RefreshCategories(ctx context.Context) error {
	cats, err := c.cfg.API.ListCategories(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.categories = cats
	c.mu.Unlock()
	return nil
}

// ChangeStatus moves an item to status and reloads the list.
func (c *Controller) ChangeStatus(ctx context.Context, id int64, status string) (*model.Item, error) {
	if !model.ValidItemStatus(status) {
		return nil, fmt.Errorf("invalid status %q", status)
	}
	item, err := c.cfg.API.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if err := c.Reload(ctx); err != nil && !errors.Is(err, ErrStale) {
		return item, err
	}
	return item, nil
}

// NewForm returns an add workflow that reloads the list after each save.
func (c *Controller) NewForm() *itemform.Form {
	f := c.form()
	f.Open(nil)
	return f
}

// EditForm returns a workflow editing item.
func (c *Controller) EditForm(item *model.Item) *itemform.Form {
	f := c.form()
	f.Open(item)
	return f
}

func (c *Controller) form() *itemform.Form {
	var f *itemform.Form
	f = itemform.New(itemform.Config{
		API:        c.cfg.API,
		Session:    c.cfg.Session,
		Categories: c.Categories(),
		Now:        c.cfg.Now,
		OnSaved: func(bool) {
			if err := c.Reload(context.Background()); err != nil && !errors.Is(err, ErrStale) {
				slog.Warn("reloading items after save failed", "error", err)
			}
		},
		OnCategoriesChanged: func(model.Category) {
			if err := c.RefreshCategories(context.Background()); err != nil {
				slog.Warn("refreshing categories failed", "error", err)
				return
			}
			f.SetCategories(c.Categories())
		},
	})
	return f
}

// Outcome is the result of locating an item by code.
type Outcome int

const (
	// Found means the code belongs to an item; offer Consume or Edit.
	Found Outcome = iota + 1
	// NotFound means no item has the code; offer Create.
	NotFound
)

// Located is a locate result with the actions it offers.
type Located struct {
	Outcome Outcome
	Code    string
	Item    *model.Item

	c *Controller
}

// Locate looks an item up by its code or scanned QR payload, regardless of
// the current filters.
func (c *Controller) Locate(ctx context.Context, input string) (*Located, error) {
	code := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), model.QRPrefix))
	if code == "" {
		return nil, errors.New("enter an item code")
	}

	item, err := c.cfg.API.GetItemByCode(ctx, code)
	switch {
	case client.IsNotFound(err):
		return &Located{Outcome: NotFound, Code: code, c: c}, nil
	case err != nil:
		return nil, err
	}
	return &Located{Outcome: Found, Code: item.Code, Item: item, c: c}, nil
}

// Consume marks the located item consumed and reloads the list.
func (l *Located) Consume(ctx context.Context) (*model.Item, error) {
	if l.Outcome != Found {
		return nil, errors.New("no item to consume")
	}
	return l.c.ChangeStatus(ctx, l.Item.ID, model.ItemStatusConsumed)
}

// Edit opens the located item for editing.
func (l *Located) Edit() (*itemform.Form, error) {
	if l.Outcome != Found {
		return nil, errors.New("no item to edit")
	}
	return l.c.EditForm(l.Item), nil
}

// Create opens a new item seeded with the located code.
func (l *Located) Create() (*itemform.Form, error) {
	if l.Outcome != NotFound {
		return nil, errors.New("item already exists")
	}
	return l.c.EditForm(&model.Item{Code: l.Code}), nil
}
