package api

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/erazemk/freezer/internal/auth"
	"github.com/erazemk/freezer/internal/labels"
	"github.com/erazemk/freezer/internal/model"
	"github.com/erazemk/freezer/internal/upc"
)

// Config carries the router's dependencies.
type Config struct {
	DB        *sql.DB
	JWTSecret string

	// DBPath is the database file, used for backup info and restores.
	DBPath string

	// UPC looks up products; nil disables lookups.
	UPC *upc.Client

	// StockImages maps category names to fallback image URLs.
	StockImages map[string]string

	// Now returns the current time; calendar dates are taken in its location.
	Now func() time.Time
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(cfg Config) (http.Handler, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	sheet, err := labels.NewSheet()
	if err != nil {
		return nil, fmt.Errorf("loading label template: %w", err)
	}

	tokens := auth.NewTokens(cfg.JWTSecret)
	today := func() string { return cfg.Now().Format(model.DateLayout) }

	authHandler := &AuthHandler{DB: cfg.DB, Tokens: tokens}
	usersHandler := &UsersHandler{DB: cfg.DB}
	itemsHandler := &ItemsHandler{DB: cfg.DB, UPC: cfg.UPC, Sheet: sheet, Today: today}
	categoriesHandler := &CategoriesHandler{DB: cfg.DB, StockImages: cfg.StockImages}
	settingsHandler := &SettingsHandler{DB: cfg.DB, DBPath: cfg.DBPath, Now: cfg.Now}

	mux := http.NewServeMux()
	authMW := AuthMiddleware(tokens, cfg.DB)
	requireAdmin := RequireRole(model.RoleAdmin)

	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	// Public.
	mux.HandleFunc("GET /api/health", healthHandler(cfg.DB))
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Own account.
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))
	mux.Handle("GET /api/auth/me", authed(authHandler.Me))
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))

	// Users (admin only).
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("GET /api/users/{id}", admin(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("PUT /api/users/{id}/password", admin(usersHandler.ResetPassword))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	// Items.
	mux.Handle("GET /api/items", authed(itemsHandler.List))
	mux.Handle("POST /api/items", authed(itemsHandler.Create))
	mux.Handle("GET /api/items/expiring-soon", authed(itemsHandler.ExpiringSoon))
	mux.Handle("GET /api/items/oldest", authed(itemsHandler.Oldest))
	mux.Handle("GET /api/items/export", authed(itemsHandler.Export))
	mux.Handle("POST /api/items/import", authed(itemsHandler.Import))
	mux.Handle("POST /api/items/labels", authed(itemsHandler.Labels))
	mux.Handle("GET /api/items/lookup-upc/{upc}", authed(itemsHandler.LookupUPC))
	mux.Handle("GET /api/items/code/{code}", authed(itemsHandler.GetByCode))
	mux.Handle("GET /api/items/code/{code}/qr", authed(itemsHandler.QR))
	mux.Handle("GET /api/items/{id}", authed(itemsHandler.Get))
	mux.Handle("PUT /api/items/{id}", authed(itemsHandler.Update))
	mux.Handle("PUT /api/items/{id}/status", authed(itemsHandler.UpdateStatus))
	mux.Handle("DELETE /api/items/{id}", admin(itemsHandler.Delete))
	mux.Handle("PUT /api/items/{id}/image", authed(itemsHandler.UploadImage))
	// GET /api/items/{id}/image. The literal code/ and lookup-upc/ routes
	// above are more specific, so only the wildcard form is registered.
	mux.Handle("GET /api/items/{id}/{resource}", authed(itemsHandler.GetSubresource))

	// Categories.
	mux.Handle("GET /api/categories", authed(categoriesHandler.List))
	mux.Handle("POST /api/categories", authed(categoriesHandler.Create))
	mux.Handle("GET /api/categories/{id}", authed(categoriesHandler.Get))
	mux.Handle("PUT /api/categories/{id}", authed(categoriesHandler.Update))
	mux.Handle("DELETE /api/categories/{id}", admin(categoriesHandler.Delete))
	mux.Handle("GET /api/categories/{id}/stock-image", authed(categoriesHandler.StockImage))
	mux.Handle("PUT /api/categories/{id}/image", authed(categoriesHandler.UploadImage))
	mux.Handle("GET /api/categories/{id}/image", authed(categoriesHandler.GetImage))

	// Settings.
	mux.Handle("GET /api/settings", authed(settingsHandler.Get))
	mux.Handle("PUT /api/settings", authed(settingsHandler.Update))
	mux.Handle("POST /api/settings/purge-history", admin(settingsHandler.PurgeHistory))
	mux.Handle("GET /api/settings/backup/info", admin(settingsHandler.BackupInfo))
	mux.Handle("GET /api/settings/backup/download", admin(settingsHandler.BackupDownload))
	mux.Handle("POST /api/settings/backup/restore", admin(settingsHandler.BackupRestore))

	return LoggingMiddleware(mux), nil
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
