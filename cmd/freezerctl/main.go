// Command freezerctl manages a freezer inventory server from the terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/freezer/internal/client"
	"github.com/erazemk/freezer/internal/config"
	"github.com/erazemk/freezer/internal/inventory"
	"github.com/erazemk/freezer/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app holds what every command shares: streams, configuration and the
// lazily opened API client and session store.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	now    func() time.Time

	configPath string
	server     string
	token      string
	verbose    bool

	cfg     *config.Config
	api     *client.Client
	session *session.Store
	lines   *lineReader
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	a := &app{in: in, out: out, errOut: errOut, now: time.Now}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	return root.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "freezerctl",
		Short: "Manage a freezer inventory",
		Long: `freezerctl talks to a freezer inventory server.

Log in once with "freezerctl login"; the token is kept in the config file
(see --config). FREEZER_SERVER and FREEZER_TOKEN override the file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default: user config dir/freezer/config.ini)")
	pf.StringVarP(&a.server, "server", "s", "", "server URL")
	pf.StringVar(&a.token, "token", "", "API token")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log requests and debug details")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newPasswordCmd(a),
		newItemsCmd(a),
		newLocateCmd(a),
		newCategoriesCmd(a),
		newSessionCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newUsersCmd(a),
		newSettingsCmd(a),
		newBackupCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("server") {
		cfg.ServerURL = a.server
	}
	if cmd.Flags().Changed("token") {
		cfg.Token = a.token
	}
	a.cfg = cfg
	a.api = cfg.Client()
	slog.Debug("using server", "url", cfg.ServerURL, "config", cfg.Path)
	return nil
}

// sessions opens the label session store on first use.
func (a *app) sessions() *session.Store {
	if a.session == nil {
		a.session = session.Open(a.cfg.SessionPath, session.WithClock(a.now))
	}
	return a.session
}

func (a *app) controller() *inventory.Controller {
	return inventory.New(inventory.Config{API: a.api, Session: a.sessions(), Now: a.now})
}

func (a *app) close() {
	if a.session != nil {
		a.session.Close()
	}
}

// requireLogin fails early with a hint when no token is configured.
func (a *app) requireLogin() error {
	if a.api.Token == "" {
		return fmt.Errorf("not logged in (run \"freezerctl login\")")
	}
	return nil
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func (a *app) println(args ...any) {
	_, _ = fmt.Fprintln(a.out, args...)
}
