package client

import (
	"context"
	"io"
	"net/http"

	"github.com/erazemk/freezer/internal/model"
)

// Settings returns the logged-in user's settings.
func (c *Client) Settings(ctx context.Context) (map[string]string, error) {
	var s map[string]string
	if err := c.do(ctx, http.MethodGet, "/settings", nil, nil, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateSettings stores the given settings and returns the full set.
func (c *Client) UpdateSettings(ctx context.Context, values map[string]string) (map[string]string, error) {
	var s map[string]string
	if err := c.do(ctx, http.MethodPut, "/settings", nil, values, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// PurgeHistory deletes consumed and thrown out items and returns how many
// were removed.
func (c *Client) PurgeHistory(ctx context.Context) (int64, error) {
	var res struct {
		Purged int64 `json:"purged"`
	}
	if err := c.do(ctx, http.MethodPost, "/settings/purge-history", nil, nil, &res); err != nil {
		return 0, err
	}
	return res.Purged, nil
}

// BackupInfo describes the server database.
func (c *Client) BackupInfo(ctx context.Context) (*model.BackupInfo, error) {
	var info model.BackupInfo
	if err := c.do(ctx, http.MethodGet, "/settings/backup/info", nil, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// DownloadBackup writes a snapshot of the server database to w.
func (c *Client) DownloadBackup(ctx context.Context, w io.Writer) error {
	return c.download(ctx, "/settings/backup/download", nil, w)
}

// RestoreBackup replaces the server database with the snapshot read from r.
func (c *Client) RestoreBackup(ctx context.Context, filename string, r io.Reader) error {
	return c.upload(ctx, http.MethodPost, "/settings/backup/restore", "file", filename, r, nil)
}
