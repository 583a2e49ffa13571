package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erazemk/freezer/internal/inventory"
)

func newLocateCmd(a *app) *cobra.Command {
	var (
		consume bool
		flags   *itemFlags
	)
	cmd := &cobra.Command{
		Use:   "locate <code>",
		Short: "Find an item by its code or scanned QR text",
		Long: `Find an item by code regardless of list filters.

A found item can be consumed right away with --consume. An unknown code can
be turned into a new item by giving at least --name.

Examples:
  freezerctl locate freezer-item:ABC123 --consume
  freezerctl locate XYZ789 --name "Beef stew" --category Entrees`,
		Args: cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctrl := a.controller()

			loc, err := ctrl.Locate(ctx, args[0])
			if err != nil {
				return err
			}

			if loc.Outcome == inventory.Found {
				if consume {
					item, err := loc.Consume(ctx)
					if err != nil {
						return err
					}
					a.printf("%s %s: consumed\n", item.Code, item.Name)
					return nil
				}
				printItem(a.out, loc.Item, a.now())
				a.println()
				a.println(mutedStyle.Render(fmt.Sprintf(
					"Consume with \"freezerctl locate %s --consume\" or edit with \"freezerctl items edit %s\".",
					loc.Code, loc.Code)))
				return nil
			}

			if !cmd.Flags().Changed("name") {
				a.printf("No item with code %s.\n", loc.Code)
				a.println(mutedStyle.Render("Create it by running the same command with --name."))
				return nil
			}

			if err := ctrl.RefreshCategories(ctx); err != nil {
				return err
			}
			form, err := loc.Create()
			if err != nil {
				return err
			}
			defer form.Close()
			if err := flags.apply(ctx, cmd.Flags(), form); err != nil {
				return err
			}
			item, err := form.Submit(ctx, false)
			if err != nil {
				return a.formError(form, err)
			}
			printItem(a.out, item, a.now())
			a.printBanner()
			return nil
		}),
	}
	cmd.Flags().BoolVar(&consume, "consume", false, "mark a found item consumed")
	flags = addItemFlags(cmd.Flags(), false)
	return cmd
}
