package api

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/freezer/internal/model"
	"github.com/erazemk/freezer/internal/store"
)

// maxRestoreBytes caps uploaded backup files.
const maxRestoreBytes = 256 << 20

// SettingsHandler handles per-user settings and database maintenance.
type SettingsHandler struct {
	DB     *sql.DB
	DBPath string
	Now    func() time.Time
}

type purgeResponse struct {
	Message string `json:"message"`
	Purged  int64  `json:"purged"`
}

// Get handles GET /api/settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	settings, err := store.GetUserSettings(r.Context(), h.DB, claims.UserID)
	if err != nil {
		slog.Error("failed to get settings", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}
	jsonResponse(w, http.StatusOK, settings)
}

// Update handles PUT /api/settings. Values may be JSON strings, booleans or
// numbers and are stored in their string form.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req) == 0 {
		jsonError(w, http.StatusBadRequest, "no settings given")
		return
	}

	values := make(map[string]string, len(req))
	for name, v := range req {
		if _, ok := model.DefaultSettings[name]; !ok {
			jsonError(w, http.StatusBadRequest, fmt.Sprintf("unknown setting %q", name))
			return
		}
		switch v := v.(type) {
		case string:
			values[name] = v
		case bool, float64:
			values[name] = fmt.Sprint(v)
		default:
			jsonError(w, http.StatusBadRequest, fmt.Sprintf("invalid value for %q", name))
			return
		}
	}

	claims := GetClaims(r.Context())
	for name, value := range values {
		if err := store.SetUserSetting(r.Context(), h.DB, claims.UserID, name, value); err != nil {
			slog.Error("failed to update setting", "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to update settings")
			return
		}
		slog.Info("setting updated", "user", claims.Username, "setting", name, "value", value)
	}

	h.Get(w, r)
}

// PurgeHistory handles POST /api/settings/purge-history.
func (h *SettingsHandler) PurgeHistory(w http.ResponseWriter, r *http.Request) {
	n, err := store.PurgeHistory(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to purge history", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to purge history")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("history purged", "user", claims.Username, "purged", n)
	jsonResponse(w, http.StatusOK, purgeResponse{
		Message: fmt.Sprintf("purged %d item(s)", n),
		Purged:  n,
	})
}

// BackupInfo handles GET /api/settings/backup/info.
func (h *SettingsHandler) BackupInfo(w http.ResponseWriter, r *http.Request) {
	info, err := store.GetBackupInfo(r.Context(), h.DB, h.DBPath)
	if err != nil {
		slog.Error("failed to get backup info", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get backup info")
		return
	}
	jsonResponse(w, http.StatusOK, info)
}

// BackupDownload handles GET /api/settings/backup/download.
func (h *SettingsHandler) BackupDownload(w http.ResponseWriter, r *http.Request) {
	tmp := filepath.Join(os.TempDir(), "freezer-backup-"+uuid.NewString()+".db")
	defer os.Remove(tmp)

	if err := store.BackupTo(r.Context(), h.DB, tmp); err != nil {
		slog.Error("failed to create backup", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create backup")
		return
	}

	f, err := os.Open(tmp)
	if err != nil {
		slog.Error("failed to open backup", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create backup")
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("freezer-backup-%s.db", h.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.sqlite3")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	if st, err := f.Stat(); err == nil {
		w.Header().Set("Content-Length", fmt.Sprint(st.Size()))
	}
	if _, err := io.Copy(w, f); err != nil {
		slog.Warn("backup download interrupted", "error", err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("backup downloaded", "user", claims.Username, "file", filename)
}

// BackupRestore handles POST /api/settings/backup/restore. The backup is
// either the "file" field of a multipart form or the raw body.
func (h *SettingsHandler) BackupRestore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRestoreBytes)

	var body io.Reader = r.Body
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		file, _, err := r.FormFile("file")
		if err != nil {
			jsonError(w, http.StatusBadRequest, "backup file required")
			return
		}
		defer file.Close()
		body = file
	}

	tmp, err := os.CreateTemp("", "freezer-restore-*.db")
	if err != nil {
		slog.Error("failed to create temp file", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to restore backup")
		return
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		jsonError(w, http.StatusBadRequest, "failed to read backup file")
		return
	}
	if n == 0 {
		jsonError(w, http.StatusBadRequest, "backup file required")
		return
	}

	if err := store.RestoreBackup(r.Context(), h.DB, tmp.Name()); err != nil {
		if errors.Is(err, store.ErrNotBackup) {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("failed to restore backup", "error", err)
		jsonError(w, http.StatusBadRequest, "failed to restore backup")
		return
	}

	claims := GetClaims(r.Context())
	slog.Warn("database restored from backup", "user", claims.Username, "bytes", n)
	jsonMessage(w, "backup restored")
}
