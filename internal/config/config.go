// Package config loads and saves the command line client's settings.
//
// The file is INI formatted:
//
//	[server]
//	url = http://freezer.local:8080
//	token = eyJhbGciOi...
//
//	[client]
//	session_path = /home/me/.config/freezer/session.db
//	timeout = 30s
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/erazemk/freezer/internal/client"
)

// AppName names the directory under the user config directory.
const AppName = "freezer"

// DefaultServerURL is used when neither the file nor the environment names
// a server.
const DefaultServerURL = "http://localhost:8080"

// Environment variables that override the file.
const (
	EnvServer = "FREEZER_SERVER"
	EnvToken  = "FREEZER_TOKEN"
)

// Config is the client configuration.
type Config struct {
	// Path is the file the configuration was loaded from and is saved to.
	Path string

	ServerURL   string
	Token       string
	SessionPath string
	Timeout     time.Duration
}

// Dir returns the client's directory under the user config directory.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.ini"), nil
}

// Load reads path, applies defaults and then the environment overrides. A
// missing file is not an error. An empty path uses DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := &Config{Path: path}

	file, err := ini.LooseLoad(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	server := file.Section("server")
	cfg.ServerURL = strings.TrimSpace(server.Key("url").String())
	cfg.Token = strings.TrimSpace(server.Key("token").String())

	cl := file.Section("client")
	cfg.SessionPath = strings.TrimSpace(cl.Key("session_path").String())
	if cl.HasKey("timeout") {
		d, err := cl.Key("timeout").Duration()
		if err != nil {
			return nil, fmt.Errorf("config %s: invalid client.timeout: %w", path, err)
		}
		cfg.Timeout = d
	}

	if v := strings.TrimSpace(os.Getenv(EnvServer)); v != "" {
		cfg.ServerURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvToken)); v != "" {
		cfg.Token = v
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = client.DefaultTimeout
	}
	if cfg.SessionPath == "" {
		cfg.SessionPath = filepath.Join(filepath.Dir(path), "session.db")
	}
	return cfg, nil
}

// Save writes the configuration to Path with owner-only permissions, since
// it holds the login token.
func (c *Config) Save() error {
	if c.Path == "" {
		return errors.New("config has no path")
	}

	file := ini.Empty()
	server := file.Section("server")
	server.Key("url").SetValue(c.ServerURL)
	server.Key("token").SetValue(c.Token)

	cl := file.Section("client")
	cl.Key("session_path").SetValue(c.SessionPath)
	cl.Key("timeout").SetValue(c.Timeout.String())

	if err := os.MkdirAll(filepath.Dir(c.Path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(c.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if _, err := file.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Client returns an API client for the configured server.
func (c *Config) Client() *client.Client {
	return client.New(c.ServerURL, c.Token, c.Timeout)
}
