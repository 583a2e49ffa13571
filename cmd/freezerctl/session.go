package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/freezer/internal/labels"
)

// printBanner reminds the user to print labels for the items added
// recently.
func (a *app) printBanner() {
	n := a.sessions().Count()
	if n == 0 {
		return
	}
	msg := fmt.Sprintf("%s added in this session.\nPrint their labels with \"freezerctl session labels\".", plural(n, "item"))
	a.println(bannerStyle.Render(msg))
}

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Show the items added recently, for label printing",
		Long: `Items created from this machine are remembered for 24 hours after the
last addition so their labels can be printed in one sheet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.sessions().Count() == 0 {
				a.println("No items added in the last 24 hours.")
				return nil
			}
			a.printBanner()
			return nil
		},
	}
	cmd.AddCommand(newSessionLabelsCmd(a), &cobra.Command{
		Use:   "clear",
		Short: "Forget the recently added items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.sessions().Clear()
			a.println("Session cleared")
			return nil
		},
	})
	return cmd
}

func newSessionLabelsCmd(a *app) *cobra.Command {
	var (
		output string
		opts   = labels.DefaultOptions
		noName bool
		noExp  bool
		keep   bool
	)
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Write a printable label sheet for the recently added items",
		Args:  cobra.NoArgs,
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			ids := a.sessions().ItemIDs()
			if len(ids) == 0 {
				return errors.New("no items added in the last 24 hours")
			}
			opts.ShowName = !noName
			opts.ShowExpiration = !noExp

			err := a.writeFile(output, func(f *os.File) error {
				return a.api.Labels(cmd.Context(), ids, opts, f)
			})
			if err != nil {
				return err
			}
			if !keep {
				a.sessions().Clear()
			}
			return nil
		}),
	}
	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "labels.html", "output file")
	f.BoolVar(&noName, "no-name", false, "leave the item name off")
	f.BoolVar(&noExp, "no-expiration", false, "leave the expiration date off")
	f.BoolVar(&opts.ShowCategory, "category", false, "print the category")
	f.BoolVar(&opts.ShowWeight, "weight", false, "print the weight")
	f.BoolVar(&keep, "keep", false, "keep the session after printing")
	return cmd
}
