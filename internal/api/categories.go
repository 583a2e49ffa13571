package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/freezer/internal/model"
	"github.com/erazemk/freezer/internal/store"
)

// CategoriesHandler handles category endpoints.
type CategoriesHandler struct {
	DB          *sql.DB
	StockImages map[string]string
}

type createCategoryRequest struct {
	Name                  string `json:"name"`
	DefaultExpirationDays *int   `json:"default_expiration_days"`
	ImageURL              string `json:"image_url"`
}

type updateCategoryRequest struct {
	Name                  *string `json:"name"`
	DefaultExpirationDays *int    `json:"default_expiration_days"`
	ImageURL              *string `json:"image_url"`
}

type stockImageResponse struct {
	CategoryID    int64  `json:"category_id"`
	CategoryName  string `json:"category_name"`
	StockImageURL string `json:"stock_image_url"`
}

// List handles GET /api/categories.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	cats, err := store.ListCategories(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list categories", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	if cats == nil {
		cats = []model.Category{}
	}
	jsonResponse(w, http.StatusOK, cats)
}

// Get handles GET /api/categories/{id}.
func (h *CategoriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "category")
	if !ok {
		return
	}
	if cat, ok := h.load(w, r, id); ok {
		jsonResponse(w, http.StatusOK, cat)
	}
}

// Create handles POST /api/categories.
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		jsonError(w, http.StatusBadRequest, "category name is required")
		return
	}
	days := model.DefaultExpirationDays
	if req.DefaultExpirationDays != nil {
		days = *req.DefaultExpirationDays
	}
	if days < 0 {
		jsonError(w, http.StatusBadRequest, "default expiration days must not be negative")
		return
	}

	claims := GetClaims(r.Context())
	cat, err := store.CreateCategory(r.Context(), h.DB, req.Name, days, strings.TrimSpace(req.ImageURL), &claims.UserID, false)
	if err != nil {
		if !storeError(w, err) {
			slog.Error("failed to create category", "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to create category")
		}
		return
	}

	slog.Info("category created", "user", claims.Username, "category", cat.Name, "days", cat.DefaultExpirationDays)
	jsonResponse(w, http.StatusCreated, cat)
}

// Update handles PUT /api/categories/{id}. System categories are admin only.
func (h *CategoriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "category")
	if !ok {
		return
	}

	var req updateCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	current, ok := h.load(w, r, id)
	if !ok {
		return
	}

	claims := GetClaims(r.Context())
	if current.IsSystem && !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		jsonError(w, http.StatusForbidden, "only admins can modify system categories")
		return
	}

	cat, err := store.UpdateCategory(r.Context(), h.DB, id, store.CategoryUpdate{
		Name:                  req.Name,
		DefaultExpirationDays: req.DefaultExpirationDays,
		ImageURL:              req.ImageURL,
	})
	if err != nil {
		if !storeError(w, err) {
			// Remaining store errors are field validation messages.
			jsonError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	slog.Info("category updated", "user", claims.Username, "category", cat.Name)
	jsonResponse(w, http.StatusOK, cat)
}

// Delete handles DELETE /api/categories/{id}.
func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "category")
	if !ok {
		return
	}

	cat, ok := h.load(w, r, id)
	if !ok {
		return
	}

	if err := store.DeleteCategory(r.Context(), h.DB, id); err != nil {
		if !storeError(w, err) {
			slog.Error("failed to delete category", "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to delete category")
		}
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("category deleted", "user", claims.Username, "category", cat.Name)
	jsonMessage(w, "category deleted")
}

// StockImage handles GET /api/categories/{id}/stock-image. A category's own
// image wins over the configured stock image.
func (h *CategoriesHandler) StockImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "category")
	if !ok {
		return
	}

	cat, ok := h.load(w, r, id)
	if !ok {
		return
	}

	url := cat.ImageURL
	if url == "" {
		url = h.stockImage(cat.Name)
	}
	jsonResponse(w, http.StatusOK, stockImageResponse{
		CategoryID:    cat.ID,
		CategoryName:  cat.Name,
		StockImageURL: url,
	})
}

func (h *CategoriesHandler) stockImage(name string) string {
	if url, ok := h.StockImages[name]; ok {
		return url
	}
	for k, url := range h.StockImages {
		if strings.EqualFold(k, name) {
			return url
		}
	}
	return ""
}

// UploadImage handles PUT /api/categories/{id}/image.
func (h *CategoriesHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "category")
	if !ok {
		return
	}

	cat, ok := h.load(w, r, id)
	if !ok {
		return
	}

	claims := GetClaims(r.Context())
	if cat.IsSystem && !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		jsonError(w, http.StatusForbidden, "only admins can modify system categories")
		return
	}

	photo, ok := readPhoto(w, r)
	if !ok {
		return
	}

	url := fmt.Sprintf("/api/categories/%d/image", id)
	if err := store.SetCategoryImage(r.Context(), h.DB, id, photo.Data, photo.MIME, url); err != nil {
		slog.Error("failed to save category image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save image")
		return
	}

	slog.Info("category image uploaded", "user", claims.Username, "category", cat.Name)
	cat, _ = store.GetCategory(r.Context(), h.DB, id)
	jsonResponse(w, http.StatusOK, cat)
}

// GetImage handles GET /api/categories/{id}/image.
func (h *CategoriesHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "category")
	if !ok {
		return
	}

	data, mime, err := store.GetCategoryImage(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get category image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	writeImage(w, data, mime)
}

// load fetches a category or writes a 404.
func (h *CategoriesHandler) load(w http.ResponseWriter, r *http.Request, id int64) (*model.Category, bool) {
	cat, err := store.GetCategory(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get category", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get category")
		return nil, false
	}
	if cat == nil {
		jsonError(w, http.StatusNotFound, "category not found")
		return nil, false
	}
	return cat, true
}
