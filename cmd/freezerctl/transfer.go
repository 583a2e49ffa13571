package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erazemk/freezer/internal/model"
)

// formatOf infers csv or json from a file extension.
func formatOf(path, explicit string) string {
	if explicit != "" {
		return strings.ToLower(explicit)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return "json"
	}
	return "csv"
}

func newExportCmd(a *app) *cobra.Command {
	var output, format, status string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export items as CSV or JSON",
		Args:  cobra.NoArgs,
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			format = formatOf(output, format)
			if output == "" {
				output = fmt.Sprintf("freezer-export-%s.%s", a.now().Format("20060102"), format)
			}
			return a.writeFile(output, func(f *os.File) error {
				return a.api.Export(cmd.Context(), format, status, f)
			})
		}),
	}
	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "output file (default: freezer-export-<date>.<format>)")
	f.StringVarP(&format, "format", "f", "", "csv or json (default: from the file name, else csv)")
	f.StringVar(&status, "status", model.StatusAll, "in_freezer, consumed, thrown_out or all")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import items from CSV or JSON",
		Long: `Import items from a file written by "freezerctl export" or by hand.
Missing categories are created and codes that already exist are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := a.api.Import(cmd.Context(), formatOf(args[0], format), f)
			if err != nil {
				return err
			}
			a.printf("Imported %d, skipped %d\n", res.Imported, res.Skipped)
			for _, e := range res.Errors {
				a.println(warnStyle.Render("  " + e))
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "csv or json (default: from the file name)")
	return cmd
}
