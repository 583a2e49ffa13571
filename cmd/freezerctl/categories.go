package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/erazemk/freezer/internal/client"
	"github.com/erazemk/freezer/internal/model"
)

func newCategoriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category", "cat"},
		Short:   "Manage categories",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List categories",
			Args:    cobra.NoArgs,
			RunE: a.authed(func(cmd *cobra.Command, args []string) error {
				cats, err := a.api.ListCategories(cmd.Context())
				if err != nil {
					return err
				}
				printCategories(a, cats)
				return nil
			}),
		},
		newCategoriesAddCmd(a),
		newCategoriesEditCmd(a),
		&cobra.Command{
			Use:   "delete <name|id>",
			Short: "Delete an unused category (admin)",
			Args:  cobra.ExactArgs(1),
			RunE: a.authed(func(cmd *cobra.Command, args []string) error {
				cat, err := a.category(cmd, args[0])
				if err != nil {
					return err
				}
				if err := a.api.DeleteCategory(cmd.Context(), cat.ID); err != nil {
					return err
				}
				a.printf("Deleted category %s\n", cat.Name)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "stock-image <name|id>",
			Short: "Show the suggested image for a category",
			Args:  cobra.ExactArgs(1),
			RunE: a.authed(func(cmd *cobra.Command, args []string) error {
				cat, err := a.category(cmd, args[0])
				if err != nil {
					return err
				}
				url, err := a.api.StockImage(cmd.Context(), cat.ID)
				if err != nil {
					return err
				}
				if url == "" {
					a.printf("No stock image for %s\n", cat.Name)
					return nil
				}
				a.println(url)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "image <name|id> <file>",
			Short: "Upload a category image",
			Args:  cobra.ExactArgs(2),
			RunE: a.authed(func(cmd *cobra.Command, args []string) error {
				cat, err := a.category(cmd, args[0])
				if err != nil {
					return err
				}
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				updated, err := a.api.UploadCategoryImage(cmd.Context(), cat.ID, filepath.Base(args[1]), f)
				if err != nil {
					return err
				}
				a.printf("Image saved for %s: %s\n", updated.Name, updated.ImageURL)
				return nil
			}),
		},
	)
	return cmd
}

func (a *app) category(cmd *cobra.Command, ref string) (*model.Category, error) {
	cats, err := a.api.ListCategories(cmd.Context())
	if err != nil {
		return nil, err
	}
	return findCategory(cats, ref)
}

func printCategories(a *app, cats []model.Category) {
	t := &table{headers: []string{"ID", "NAME", "DAYS", "TYPE", "IMAGE"}}
	for _, c := range cats {
		kind := plain("custom")
		if c.IsSystem {
			kind = styled("system", mutedStyle)
		}
		t.add(
			plain(strconv.FormatInt(c.ID, 10)),
			plain(c.Name),
			plain(strconv.Itoa(c.DefaultExpirationDays)),
			kind,
			plain(orDash(c.ImageURL)),
		)
	}
	t.render(a.out)
}

func newCategoriesAddCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			cat, err := a.api.CreateCategory(cmd.Context(), args[0], days)
			if err != nil {
				return err
			}
			a.printf("Created category %s (%d, %s)\n", cat.Name, cat.ID, plural(cat.DefaultExpirationDays, "day"))
			return nil
		}),
	}
	cmd.Flags().IntVarP(&days, "days", "d", model.DefaultExpirationDays, "default shelf life in days")
	return cmd
}

func newCategoriesEditCmd(a *app) *cobra.Command {
	var (
		name, image string
		days        int
	)
	cmd := &cobra.Command{
		Use:   "edit <name|id>",
		Short: "Rename a category or change its shelf life",
		Args:  cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			var u client.CategoryUpdate
			f := cmd.Flags()
			if f.Changed("name") {
				u.Name = &name
			}
			if f.Changed("days") {
				u.DefaultExpirationDays = &days
			}
			if f.Changed("image-url") {
				u.ImageURL = &image
			}
			if u == (client.CategoryUpdate{}) {
				return errors.New("nothing to change (use --name, --days or --image-url)")
			}

			cat, err := a.category(cmd, args[0])
			if err != nil {
				return err
			}
			updated, err := a.api.UpdateCategory(cmd.Context(), cat.ID, u)
			if err != nil {
				return err
			}
			a.printf("Updated category %s (%s)\n", updated.Name, plural(updated.DefaultExpirationDays, "day"))
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().IntVarP(&days, "days", "d", 0, "default shelf life in days")
	cmd.Flags().StringVar(&image, "image-url", "", "image URL")
	return cmd
}
