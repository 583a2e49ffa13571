package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/erazemk/freezer/internal/dates"
	"github.com/erazemk/freezer/internal/inventory"
	"github.com/erazemk/freezer/internal/itemform"
	"github.com/erazemk/freezer/internal/model"
	"github.com/erazemk/freezer/internal/query"
)

func newItemsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "items",
		Aliases: []string{"item", "i"},
		Short:   "List and manage freezer items",
	}
	cmd.AddCommand(
		newItemsListCmd(a),
		newItemsShowCmd(a),
		newItemsAddCmd(a),
		newItemsEditCmd(a),
		newStatusCmd(a, "consume", "Mark items as consumed", model.ItemStatusConsumed),
		newStatusCmd(a, "discard", "Mark items as thrown out", model.ItemStatusThrownOut),
		newStatusCmd(a, "return", "Put items back in the freezer", model.ItemStatusInFreezer),
		newItemsDeleteCmd(a),
		newItemsExpiringCmd(a),
		newItemsOldestCmd(a),
		newItemsQRCmd(a),
		newItemsImageCmd(a),
	)
	return cmd
}

func newItemsListCmd(a *app) *cobra.Command {
	var (
		search, category, status, sortBy, order, from, to string
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List items",
		Long: `List items, by default those still in the freezer, newest first.

Examples:
  freezerctl items list --search chicken
  freezerctl items list --status all --sort expiration_date --order asc`,
		Args: cobra.NoArgs,
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctrl := a.controller()

			p := query.Default().
				WithSearch(search).
				WithStatus(status).
				WithSort(sortBy, order).
				WithAddedRange(from, to)
			if category != "" {
				if err := ctrl.RefreshCategories(ctx); err != nil {
					return err
				}
				cat, err := findCategory(ctrl.Categories(), category)
				if err != nil {
					return err
				}
				p = p.WithCategory(cat.ID)
			}

			if err := ctrl.SetParams(ctx, p); err != nil {
				return err
			}
			if ctrl.Empty() {
				a.println("No items found.")
				return nil
			}

			printItems(a.out, ctrl.Items(), a.now())
			a.printSummary(ctrl.Summary())
			return nil
		}),
	}
	f := cmd.Flags()
	f.StringVarP(&search, "search", "q", "", "match name, notes or code")
	f.StringVarP(&category, "category", "c", "", "category name or ID")
	f.StringVar(&status, "status", model.ItemStatusInFreezer, "in_freezer, consumed, thrown_out or all")
	f.StringVar(&sortBy, "sort", query.SortAddedDate, "added_date, expiration_date or name")
	f.StringVar(&order, "order", query.Desc, "asc or desc")
	f.StringVar(&from, "from", "", "added on or after YYYY-MM-DD")
	f.StringVar(&to, "to", "", "added on or before YYYY-MM-DD")
	return cmd
}

func (a *app) printSummary(s inventory.Summary) {
	var parts []string
	if s.ExpiringSoon > 0 {
		parts = append(parts, warnStyle.Render(fmt.Sprintf("%d expiring within %d days", s.ExpiringSoon, dates.ExpiringSoonDays)))
	}
	if s.Expired > 0 {
		parts = append(parts, expiredStyle.Render(fmt.Sprintf("%d expired", s.Expired)))
	}
	if len(parts) > 0 {
		a.println()
		a.println(strings.Join(parts, ", "))
	}
}

func newItemsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|code>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			item, err := a.resolveItem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printItem(a.out, item, a.now())
			return nil
		}),
	}
}

// resolveItem accepts a numeric ID, an item code or a scanned QR payload.
func (a *app) resolveItem(ctx context.Context, ref string) (*model.Item, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return a.api.GetItem(ctx, id)
	}
	return a.api.GetItemByCode(ctx, strings.TrimPrefix(ref, model.QRPrefix))
}

// itemFlags are the editable item fields as command line flags.
type itemFlags struct {
	values      map[itemform.Field]*string
	category    string
	newCategory string
}

var itemFlagNames = map[itemform.Field]string{
	itemform.FieldCode:           "code",
	itemform.FieldUPC:            "upc",
	itemform.FieldName:           "name",
	itemform.FieldSource:         "source",
	itemform.FieldWeight:         "weight",
	itemform.FieldWeightUnit:     "unit",
	itemform.FieldAddedDate:      "added",
	itemform.FieldExpirationDate: "expires",
	itemform.FieldNotes:          "notes",
	itemform.FieldImageURL:       "image-url",
}

func addItemFlags(fs *pflag.FlagSet, withCode bool) *itemFlags {
	f := &itemFlags{values: make(map[itemform.Field]*string)}
	for _, field := range itemform.Fields {
		name, ok := itemFlagNames[field]
		if !ok || (field == itemform.FieldCode && !withCode) {
			continue
		}
		f.values[field] = fs.String(name, "", strings.ReplaceAll(string(field), "_", " "))
	}
	fs.StringVarP(&f.category, "category", "c", "", "category name or ID")
	fs.StringVar(&f.newCategory, "new-category", "", `create and use a category, "Name:days"`)
	return f
}

// apply copies the flags that were given on the command line into form.
// The category goes first so an explicit --expires wins over the category
// default.
func (f *itemFlags) apply(ctx context.Context, fs *pflag.FlagSet, form *itemform.Form) error {
	switch {
	case f.newCategory != "":
		name, days, err := parseNewCategory(f.newCategory)
		if err != nil {
			return err
		}
		if err := form.SelectCategory(itemform.NewCategorySentinel); err != nil {
			return err
		}
		if _, err := form.CreateCategory(ctx, name, days); err != nil {
			return err
		}
	case fs.Changed("category"):
		id := itemform.NoCategory
		if f.category != "" {
			cat, err := findCategory(form.Categories(), f.category)
			if err != nil {
				return err
			}
			id = cat.ID
		}
		if err := form.SelectCategory(id); err != nil {
			return err
		}
	}

	for _, field := range itemform.Fields {
		v, ok := f.values[field]
		if !ok || !fs.Changed(itemFlagNames[field]) {
			continue
		}
		if err := form.Set(field, *v); err != nil {
			return fmt.Errorf("--%s: %w", itemFlagNames[field], err)
		}
	}
	return nil
}

func parseNewCategory(s string) (string, int, error) {
	name, daysText, ok := strings.Cut(s, ":")
	if !ok {
		return strings.TrimSpace(s), model.DefaultExpirationDays, nil
	}
	days, err := strconv.Atoi(strings.TrimSpace(daysText))
	if err != nil {
		return "", 0, fmt.Errorf("--new-category: invalid days %q", daysText)
	}
	return strings.TrimSpace(name), days, nil
}

func findCategory(cats []model.Category, ref string) (*model.Category, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		for i := range cats {
			if cats[i].ID == id {
				return &cats[i], nil
			}
		}
	}
	for i := range cats {
		if strings.EqualFold(cats[i].Name, ref) {
			return &cats[i], nil
		}
	}
	return nil, fmt.Errorf("no category %q", ref)
}

func newItemsAddCmd(a *app) *cobra.Command {
	var (
		flags  *itemFlags
		lookup bool
		count  int
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add items",
		Long: `Add one or more items. With a category and no --expires, the
expiration date is the category's default shelf life from today.

--count adds several identical packages in one go; each gets its own code.
--lookup fills empty fields from the product database using --upc.

Examples:
  freezerctl items add --name "Chicken thighs" --category Chicken --weight 1.5
  freezerctl items add --upc 012345678905 --lookup
  freezerctl items add --name Pho --new-category "Soup:120" --count 3`,
		Args: cobra.NoArgs,
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if count < 1 {
				return errors.New("--count must be at least 1")
			}
			if count > 1 && cmd.Flags().Changed("code") {
				return errors.New("--code cannot be combined with --count")
			}

			ctrl := a.controller()
			if err := ctrl.RefreshCategories(ctx); err != nil {
				return err
			}
			form := ctrl.NewForm()
			defer form.Close()

			var created []model.Item
			for i := range count {
				if err := flags.apply(ctx, cmd.Flags(), form); err != nil {
					return err
				}
				if lookup && i == 0 {
					if err := a.lookup(ctx, form); err != nil {
						return err
					}
				}
				item, err := form.Submit(ctx, i < count-1)
				if err != nil {
					return a.formError(form, err)
				}
				created = append(created, *item)
				// The new category stays selected for the next package.
				flags.newCategory = ""
			}

			printItems(a.out, created, a.now())
			a.printBanner()
			return nil
		}),
	}
	flags = addItemFlags(cmd.Flags(), true)
	cmd.Flags().BoolVar(&lookup, "lookup", false, "fill empty fields from the UPC database")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of identical packages")
	return cmd
}

// lookup runs a UPC lookup on form and reports the outcome.
func (a *app) lookup(ctx context.Context, form *itemform.Form) error {
	res, err := form.LookupUPC(ctx)
	if err != nil {
		return a.formError(form, err)
	}
	if !res.Found {
		_, _ = fmt.Fprintln(a.errOut, mutedStyle.Render("Lookup: "+res.Message))
		return nil
	}
	_, _ = fmt.Fprintln(a.errOut, okStyle.Render("Lookup: found "+res.Data.Name))
	return nil
}

// formError prefers the message the form shows over the raw error.
func (a *app) formError(form *itemform.Form, err error) error {
	var verr *itemform.ValidationError
	if errors.As(err, &verr) {
		return err
	}
	if msg := form.Err(); msg != "" {
		return errors.New(msg)
	}
	return err
}

func newItemsEditCmd(a *app) *cobra.Command {
	var (
		flags     *itemFlags
		lookup    bool
		consumed  bool
		thrownOut bool
	)
	cmd := &cobra.Command{
		Use:   "edit <id|code>",
		Short: "Change an item",
		Long: `Change the given fields of an item. Fields without a flag keep their
value. --consumed and --thrown-out save the changes and take the item out of
the freezer in one step.`,
		Args: cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if consumed && thrownOut {
				return errors.New("--consumed and --thrown-out are exclusive")
			}

			item, err := a.resolveItem(ctx, args[0])
			if err != nil {
				return err
			}
			ctrl := a.controller()
			if err := ctrl.RefreshCategories(ctx); err != nil {
				return err
			}
			form := ctrl.EditForm(item)
			defer form.Close()

			if err := flags.apply(ctx, cmd.Flags(), form); err != nil {
				return err
			}
			if lookup {
				if err := a.lookup(ctx, form); err != nil {
					return err
				}
			}

			var saved *model.Item
			switch {
			case consumed:
				saved, err = form.MarkConsumed(ctx)
			case thrownOut:
				saved, err = form.MarkThrownOut(ctx)
			default:
				saved, err = form.Submit(ctx, false)
			}
			if err != nil {
				return a.formError(form, err)
			}
			printItem(a.out, saved, a.now())
			return nil
		}),
	}
	flags = addItemFlags(cmd.Flags(), false)
	cmd.Flags().BoolVar(&lookup, "lookup", false, "fill empty fields from the UPC database")
	cmd.Flags().BoolVar(&consumed, "consumed", false, "also mark the item consumed")
	cmd.Flags().BoolVar(&thrownOut, "thrown-out", false, "also mark the item thrown out")
	return cmd
}

func newStatusCmd(a *app, use, short, status string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id|code>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctrl := a.controller()
			for _, ref := range args {
				item, err := a.resolveItem(ctx, ref)
				if err != nil {
					return fmt.Errorf("%s: %w", ref, err)
				}
				updated, err := ctrl.ChangeStatus(ctx, item.ID, status)
				if err != nil {
					return fmt.Errorf("%s: %w", ref, err)
				}
				a.printf("%s %s: %s\n", updated.Code, updated.Name, strings.ReplaceAll(updated.Status, "_", " "))
			}
			return nil
		}),
	}
}

func newItemsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|code>...",
		Short: "Delete items permanently (admin)",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			for _, ref := range args {
				item, err := a.resolveItem(cmd.Context(), ref)
				if err != nil {
					return fmt.Errorf("%s: %w", ref, err)
				}
				if err := a.api.DeleteItem(cmd.Context(), item.ID); err != nil {
					return fmt.Errorf("%s: %w", ref, err)
				}
				a.printf("Deleted %s %s\n", item.Code, item.Name)
			}
			return nil
		}),
	}
}

func newItemsExpiringCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "expiring",
		Short: "List items expiring soon",
		Args:  cobra.NoArgs,
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			items, err := a.api.ExpiringSoon(cmd.Context(), days)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				a.printf("Nothing expires within %s.\n", plural(days, "day"))
				return nil
			}
			printItems(a.out, items, a.now())
			return nil
		}),
	}
	cmd.Flags().IntVarP(&days, "days", "d", dates.ExpiringSoonDays, "look ahead this many days")
	return cmd
}

func newItemsOldestCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "oldest",
		Short: "List the items frozen longest",
		Args:  cobra.NoArgs,
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			items, err := a.api.Oldest(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				a.println("No items found.")
				return nil
			}
			printItems(a.out, items, a.now())
			return nil
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of items")
	return cmd
}

func newItemsQRCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "qr <id|code>",
		Short: "Save an item's QR code as PNG",
		Args:  cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			item, err := a.resolveItem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = item.Code + ".png"
			}
			return a.writeFile(output, func(f *os.File) error {
				return a.api.ItemQR(cmd.Context(), item.Code, f)
			})
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <code>.png)")
	return cmd
}

func newItemsImageCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "image <id|code> <file>",
		Short: "Upload a photo of an item",
		Args:  cobra.ExactArgs(2),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			item, err := a.resolveItem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			updated, err := a.api.UploadItemImage(cmd.Context(), item.ID, filepath.Base(args[1]), f)
			if err != nil {
				return err
			}
			a.printf("Image saved for %s: %s\n", updated.Code, updated.ImageURL)
			return nil
		}),
	}
}

// writeFile creates path, lets fn fill it and removes it again on failure.
func (a *app) writeFile(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	a.printf("Wrote %s\n", path)
	return nil
}
