package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change your settings",
		Args:  cobra.NoArgs,
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			s, err := a.api.Settings(cmd.Context())
			if err != nil {
				return err
			}
			printSettings(a, s)
			return nil
		}),
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <key=value>...",
			Short: "Change settings, for example track_history=false",
			Args:  cobra.MinimumNArgs(1),
			RunE: a.authed(func(cmd *cobra.Command, args []string) error {
				values := make(map[string]string, len(args))
				for _, arg := range args {
					k, v, ok := strings.Cut(arg, "=")
					if !ok {
						return fmt.Errorf("expected key=value, got %q", arg)
					}
					values[strings.TrimSpace(k)] = strings.TrimSpace(v)
				}
				s, err := a.api.UpdateSettings(cmd.Context(), values)
				if err != nil {
					return err
				}
				printSettings(a, s)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "purge-history",
			Short: "Delete all consumed and thrown out items (admin)",
			Args:  cobra.NoArgs,
			RunE: a.authed(func(cmd *cobra.Command, args []string) error {
				n, err := a.api.PurgeHistory(cmd.Context())
				if err != nil {
					return err
				}
				a.printf("Purged %s\n", plural(int(n), "item"))
				return nil
			}),
		},
	)
	return cmd
}

func printSettings(a *app, s map[string]string) {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		a.printf("%s = %s\n", k, s[k])
	}
}

func newBackupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up or restore the server database (admin)",
	}

	var output string
	download := &cobra.Command{
		Use:   "download",
		Short: "Download a snapshot of the database",
		Args:  cobra.NoArgs,
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = fmt.Sprintf("freezer-backup-%s.db", a.now().Format("20060102-150405"))
			}
			return a.writeFile(output, func(f *os.File) error {
				return a.api.DownloadBackup(cmd.Context(), f)
			})
		}),
	}
	download.Flags().StringVarP(&output, "output", "o", "", "output file (default: freezer-backup-<time>.db)")

	var yes bool
	restore := &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace the server database with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			if !yes {
				answer, err := a.prompt("This replaces every item, category and user on the server. Type \"restore\" to continue: ")
				if err != nil {
					return err
				}
				if answer != "restore" {
					return fmt.Errorf("restore cancelled")
				}
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			if err := a.api.RestoreBackup(cmd.Context(), filepath.Base(args[0]), f); err != nil {
				return err
			}
			a.println("Backup restored")
			return nil
		}),
	}
	restore.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "info",
			Short: "Describe the server database",
			Args:  cobra.NoArgs,
			RunE: a.authed(func(cmd *cobra.Command, args []string) error {
				info, err := a.api.BackupInfo(cmd.Context())
				if err != nil {
					return err
				}
				a.printf("Path:       %s\n", info.Path)
				a.printf("Size:       %s\n", humanize.Bytes(uint64(info.SizeBytes)))
				a.printf("Items:      %d\n", info.Items)
				a.printf("Categories: %d\n", info.Categories)
				a.printf("Users:      %d\n", info.Users)
				return nil
			}),
		},
		download,
		restore,
	)
	return cmd
}
