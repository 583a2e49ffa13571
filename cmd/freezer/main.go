// Command freezer serves the freezer inventory API backed by SQLite.
package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/freezer/internal/api"
	"github.com/erazemk/freezer/internal/db"
	"github.com/erazemk/freezer/internal/model"
	"github.com/erazemk/freezer/internal/store"
	"github.com/erazemk/freezer/internal/upc"
)

type options struct {
	dbPath      string
	addr        string
	adminUser   string
	logPath     string
	upcURL      string
	stockImages string
	verbose     bool
}

func main() {
	fs := flag.NewFlagSet("freezer", flag.ContinueOnError)

	var opts options
	fs.StringVar(&opts.dbPath, "db", "freezer.sqlite3", "")
	fs.StringVar(&opts.dbPath, "d", "freezer.sqlite3", "")
	fs.StringVar(&opts.addr, "addr", ":8080", "")
	fs.StringVar(&opts.addr, "a", ":8080", "")
	fs.StringVar(&opts.adminUser, "user", "admin", "")
	fs.StringVar(&opts.adminUser, "u", "admin", "")
	fs.StringVar(&opts.logPath, "log", "", "")
	fs.StringVar(&opts.logPath, "l", "", "")
	fs.StringVar(&opts.upcURL, "upc-url", upc.DefaultBaseURL, "")
	fs.StringVar(&opts.stockImages, "stock-images", "", "")
	fs.BoolVar(&opts.verbose, "v", false, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: freezer [flags]

Flags:
  -d, -db <path>            SQLite database path (default: freezer.sqlite3)
  -a, -addr <host:port>     listen address (default: :8080)
  -u, -user <name>          admin username on first run (default: admin)
  -l, -log <path>           also append logs to this file
  -upc-url <url>            UPC product database (empty disables lookups)
  -stock-images <path>      INI file mapping category names to image URLs
  -v                        debug logging
  -h, -help                 show this help and exit
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(1)
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	closeLog, err := setupLogger(opts.logPath, opts.verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(opts); err != nil {
		slog.Error("freezer stopped", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(opts options) error {
	ctx := context.Background()

	_, statErr := os.Stat(opts.dbPath)
	firstRun := errors.Is(statErr, os.ErrNotExist)

	database, err := db.Open(opts.dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	if firstRun {
		password, err := createAdmin(ctx, database, opts.adminUser)
		if err != nil {
			database.Close()
			os.Remove(opts.dbPath)
			return err
		}
		printInitResult(opts.dbPath, model.NormalizeUsername(opts.adminUser), password)
	}

	seeded, err := store.SeedDefaultCategories(ctx, database)
	if err != nil {
		return fmt.Errorf("seeding categories: %w", err)
	}
	if seeded > 0 {
		slog.Info("default categories created", "count", seeded)
	}
	slog.Info("database ready", "path", opts.dbPath)

	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return err
	}

	stock, err := loadStockImages(opts.stockImages)
	if err != nil {
		return err
	}

	var lookup *upc.Client
	if opts.upcURL != "" {
		lookup = upc.NewClient(opts.upcURL)
	} else {
		slog.Info("UPC lookup disabled")
	}

	router, err := api.NewRouter(api.Config{
		DB:          database,
		JWTSecret:   jwtSecret,
		DBPath:      opts.dbPath,
		UPC:         lookup,
		StockImages: stock,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              opts.addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", opts.addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	slog.Info("server stopped, closing database")
	return nil
}

// createAdmin adds the first admin account with a random password.
func createAdmin(ctx context.Context, database *sql.DB, username string) (string, error) {
	password, err := generatePassword(16)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	if _, err := store.CreateUser(ctx, database, username, string(hash), model.RoleAdmin); err != nil {
		return "", fmt.Errorf("creating admin user: %w", err)
	}
	return password, nil
}

func printInitResult(dbPath, username, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it is shown only once.")
	fmt.Println("Change it with: freezerctl password")
	fmt.Println()
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
