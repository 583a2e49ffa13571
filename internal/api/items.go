package api

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/erazemk/freezer/internal/imaging"
	"github.com/erazemk/freezer/internal/labels"
	"github.com/erazemk/freezer/internal/model"
	"github.com/erazemk/freezer/internal/store"
	"github.com/erazemk/freezer/internal/transfer"
	"github.com/erazemk/freezer/internal/upc"
)

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	DB    *sql.DB
	UPC   *upc.Client
	Sheet *labels.Sheet
	Today func() string
}

// itemRequest is the body of item create and update requests.
type itemRequest struct {
	Code           string   `json:"qr_code"`
	UPC            string   `json:"upc"`
	Name           string   `json:"name"`
	Source         string   `json:"source"`
	Weight         *float64 `json:"weight"`
	WeightUnit     string   `json:"weight_unit"`
	CategoryID     *int64   `json:"category_id"`
	AddedDate      string   `json:"added_date"`
	ExpirationDate string   `json:"expiration_date"`
	Notes          string   `json:"notes"`
	ImageURL       string   `json:"image_url"`
	Status         string   `json:"status"`
	RemovedDate    string   `json:"removed_date"`
}

func (req itemRequest) input() store.ItemInput {
	return store.ItemInput{
		Code:           req.Code,
		UPC:            req.UPC,
		Name:           req.Name,
		Source:         strings.TrimSpace(req.Source),
		Weight:         req.Weight,
		WeightUnit:     req.WeightUnit,
		CategoryID:     req.CategoryID,
		AddedDate:      req.AddedDate,
		ExpirationDate: req.ExpirationDate,
		Notes:          strings.TrimSpace(req.Notes),
		ImageURL:       strings.TrimSpace(req.ImageURL),
		Status:         req.Status,
		RemovedDate:    req.RemovedDate,
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

type labelsRequest struct {
	ItemIDs []int64 `json:"item_ids"`
	labels.Options
}

// lookupResponse is the body of a UPC lookup. Not found is a normal result.
type lookupResponse struct {
	Found   bool        `json:"found"`
	Source  string      `json:"source"`
	Data    *lookupData `json:"data,omitempty"`
	Message string      `json:"message"`
}

type lookupData struct {
	UPC        string `json:"upc"`
	Name       string `json:"name,omitempty"`
	Notes      string `json:"notes,omitempty"`
	CategoryID *int64 `json:"category_id,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
}

// storeError maps store errors to responses. It returns false for errors it
// does not recognize, which the caller reports as internal.
func storeError(w http.ResponseWriter, err error) bool {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		jsonError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, store.ErrDuplicateCode):
		jsonError(w, http.StatusBadRequest, "QR code already exists")
	case errors.Is(err, store.ErrNameRequired),
		errors.Is(err, store.ErrInvalidStatus),
		errors.Is(err, store.ErrInvalidWeightUnit),
		errors.Is(err, store.ErrCategoryNotFound),
		errors.Is(err, store.ErrDuplicateName),
		errors.Is(err, store.ErrCategoryInUse):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrSystemCategory):
		jsonError(w, http.StatusForbidden, err.Error())
	default:
		return false
	}
	return true
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ItemFilter{
		Status:    q.Get("status"),
		Search:    q.Get("search"),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}
	if f.Status == "" {
		f.Status = model.ItemStatusInFreezer
	}
	if f.Status != model.StatusAll && !model.ValidItemStatus(f.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}
	for _, d := range []string{f.StartDate, f.EndDate} {
		if d != "" && model.ValidateDate(d) != nil {
			jsonError(w, http.StatusBadRequest, "invalid date filter (expected YYYY-MM-DD)")
			return
		}
	}
	if v := q.Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid category id")
			return
		}
		f.CategoryID = &id
	}

	// Without history tracking only items still in the freezer are shown.
	claims := GetClaims(r.Context())
	track, err := store.TrackHistory(r.Context(), h.DB, claims.UserID)
	if err != nil {
		slog.Error("failed to read settings", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if !track {
		f.Status = model.ItemStatusInFreezer
	}

	items, err := store.ListItems(r.Context(), h.DB, f)
	if err != nil {
		slog.Error("failed to list items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	h.writeItems(w, items)
}

func (h *ItemsHandler) writeItems(w http.ResponseWriter, items []model.Item) {
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "item")
	if !ok {
		return
	}
	if item, ok := h.load(w, r, id); ok {
		jsonResponse(w, http.StatusOK, item)
	}
}

// GetByCode handles GET /api/items/code/{code}.
func (h *ItemsHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimPrefix(strings.TrimSpace(r.PathValue("code")), model.QRPrefix)

	item, err := store.GetItemByCode(r.Context(), h.DB, code)
	if err != nil {
		slog.Error("failed to get item by code", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// QR handles GET /api/items/code/{code}/qr.
func (h *ItemsHandler) QR(w http.ResponseWriter, r *http.Request) {
	png, err := labels.QR(r.PathValue("code"))
	if err != nil {
		slog.Error("failed to render QR code", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to render QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(png)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	item, err := store.CreateItem(r.Context(), h.DB, req.input(), &claims.UserID, h.Today())
	if err != nil {
		if !storeError(w, err) {
			slog.Error("failed to create item", "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to create item")
		}
		return
	}

	slog.Info("item created", "user", claims.Username, "item", item.Name, "code", item.Code)
	jsonResponse(w, http.StatusCreated, item)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "item")
	if !ok {
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := store.UpdateItem(r.Context(), h.DB, id, req.input(), h.Today())
	if err != nil {
		if !storeError(w, err) {
			slog.Error("failed to update item", "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to update item")
		}
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item updated", "user", claims.Username, "item", item.Name, "code", item.Code, "status", item.Status)
	jsonResponse(w, http.StatusOK, item)
}

// UpdateStatus handles PUT /api/items/{id}/status.
func (h *ItemsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "item")
	if !ok {
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.ValidItemStatus(req.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	if _, ok := h.load(w, r, id); !ok {
		return
	}

	item, err := store.SetItemStatus(r.Context(), h.DB, id, req.Status, h.Today())
	if err != nil {
		slog.Error("failed to update item status", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update status")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item status changed", "user", claims.Username, "code", item.Code, "status", item.Status)
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "item")
	if !ok {
		return
	}

	item, ok := h.load(w, r, id)
	if !ok {
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, id); err != nil {
		slog.Error("failed to delete item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item deleted", "user", claims.Username, "item", item.Name, "code", item.Code)
	jsonMessage(w, "item deleted")
}

// UploadImage handles PUT /api/items/{id}/image.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "item")
	if !ok {
		return
	}
	if _, ok := h.load(w, r, id); !ok {
		return
	}

	photo, ok := readPhoto(w, r)
	if !ok {
		return
	}

	url := fmt.Sprintf("/api/items/%d/image", id)
	if err := store.SetItemImage(r.Context(), h.DB, id, photo.Data, photo.MIME, url); err != nil {
		slog.Error("failed to save item image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save image")
		return
	}

	item, _ := store.GetItem(r.Context(), h.DB, id)
	jsonResponse(w, http.StatusOK, item)
}

// GetSubresource handles GET /api/items/{id}/{resource}. Only "image" exists.
func (h *ItemsHandler) GetSubresource(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("resource") != "image" {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}

	id, ok := pathID(w, r, "item")
	if !ok {
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get item image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	writeImage(w, data, mime)
}

// ExpiringSoon handles GET /api/items/expiring-soon?days=30.
func (h *ItemsHandler) ExpiringSoon(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListExpiringSoon(r.Context(), h.DB, h.Today(), queryInt(r, "days", 30))
	if err != nil {
		slog.Error("failed to list expiring items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	h.writeItems(w, items)
}

// Oldest handles GET /api/items/oldest?limit=10.
func (h *ItemsHandler) Oldest(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListOldest(r.Context(), h.DB, queryInt(r, "limit", 10))
	if err != nil {
		slog.Error("failed to list oldest items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	h.writeItems(w, items)
}

// LookupUPC handles GET /api/items/lookup-upc/{upc}.
func (h *ItemsHandler) LookupUPC(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("upc")
	if err := model.ValidateUPC(code); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.UPC.Lookup(r.Context(), code)
	switch {
	case errors.Is(err, upc.ErrNotFound), errors.Is(err, upc.ErrDisabled):
		jsonResponse(w, http.StatusOK, lookupResponse{Source: upc.Source, Message: err.Error()})
		return
	case err != nil:
		slog.Error("UPC lookup failed", "upc", code, "error", err)
		jsonError(w, http.StatusBadGateway, "UPC lookup failed, try again later")
		return
	}

	cats, err := store.ListCategories(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list categories", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}

	jsonResponse(w, http.StatusOK, lookupResponse{
		Found:  true,
		Source: upc.Source,
		Data: &lookupData{
			UPC:        code,
			Name:       product.Title,
			Notes:      product.Notes(),
			CategoryID: upc.MatchCategory(product, cats),
			ImageURL:   product.ImageURL,
		},
		Message: "product found",
	})
}

// Labels handles POST /api/items/labels and returns a printable HTML sheet.
func (h *ItemsHandler) Labels(w http.ResponseWriter, r *http.Request) {
	req := labelsRequest{Options: labels.DefaultOptions}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.ItemIDs) == 0 {
		jsonError(w, http.StatusBadRequest, "no items selected")
		return
	}

	var items []model.Item
	for _, id := range req.ItemIDs {
		item, err := store.GetItem(r.Context(), h.DB, id)
		if err != nil {
			slog.Error("failed to get item", "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to generate labels")
			return
		}
		if item != nil {
			items = append(items, *item)
		}
	}
	if len(items) == 0 {
		jsonError(w, http.StatusNotFound, "no items found")
		return
	}

	var buf bytes.Buffer
	if err := h.Sheet.Render(&buf, items, req.Options); err != nil {
		slog.Error("failed to render labels", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to generate labels")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// Export handles GET /api/items/export?format=csv|json&status=all.
func (h *ItemsHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = transfer.FormatCSV
	}
	status := r.URL.Query().Get("status")
	if status == "" {
		status = model.StatusAll
	}

	recs, err := store.ExportItems(r.Context(), h.DB, status)
	if err != nil {
		slog.Error("failed to export items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to export items")
		return
	}

	var buf bytes.Buffer
	if err := transfer.Encode(&buf, format, recs); err != nil {
		if errors.Is(err, transfer.ErrUnknownFormat) {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("failed to encode export", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to export items")
		return
	}

	filename := fmt.Sprintf("freezer-export-%s.%s", h.Today(), format)
	w.Header().Set("Content-Type", transfer.ContentType(format))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Write(buf.Bytes())

	claims := GetClaims(r.Context())
	slog.Info("items exported", "user", claims.Username, "format", format, "count", len(recs))
}

// Import handles POST /api/items/import?format=csv|json. The file is either
// the raw body or the "file" field of a multipart form.
func (h *ItemsHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 20<<20)

	format := strings.ToLower(r.URL.Query().Get("format"))
	var body io.Reader = r.Body

	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			jsonError(w, http.StatusBadRequest, "import file required")
			return
		}
		defer file.Close()
		body = file
		if format == "" {
			format = strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
		}
	} else if format == "" && mt == "application/json" {
		format = transfer.FormatJSON
	}
	if format == "" {
		format = transfer.FormatCSV
	}

	batch, err := transfer.Decode(body, format)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims := GetClaims(r.Context())
	result, err := store.ImportItems(r.Context(), h.DB, batch.Records, &claims.UserID, h.Today())
	if err != nil {
		slog.Error("failed to import items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to import items")
		return
	}
	result.Errors = append(batch.Errors, result.Errors...)

	slog.Info("items imported", "user", claims.Username, "imported", result.Imported,
		"skipped", result.Skipped, "errors", len(result.Errors))
	jsonResponse(w, http.StatusOK, result)
}

// load fetches an item or writes a 404.
func (h *ItemsHandler) load(w http.ResponseWriter, r *http.Request, id int64) (*model.Item, bool) {
	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return nil, false
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return nil, false
	}
	return item, true
}

// readPhoto reads and normalizes an uploaded image from the "image" field of
// a multipart form, or from the raw body.
func readPhoto(w http.ResponseWriter, r *http.Request) (*imaging.Photo, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)

	var src io.Reader = r.Body
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		file, _, err := r.FormFile("image")
		if err != nil {
			jsonError(w, http.StatusBadRequest, "image file required")
			return nil, false
		}
		defer file.Close()
		src = file
	}

	photo, err := imaging.Process(src)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return photo, true
}

func writeImage(w http.ResponseWriter, data []byte, mime string) {
	if len(data) == 0 {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(data)
}
