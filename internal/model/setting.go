package model

// Per-user setting keys.
const (
	SettingTrackHistory = "track_history"
)

// DefaultSettings are returned for keys a user has never set.
var DefaultSettings = map[string]string{
	SettingTrackHistory: "true",
}

// ImportResult summarizes an import run.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// BackupInfo describes the live database file.
type BackupInfo struct {
	Path       string `json:"path"`
	SizeBytes  int64  `json:"size_bytes"`
	Items      int    `json:"items"`
	Categories int    `json:"categories"`
	Users      int    `json:"users"`
}
