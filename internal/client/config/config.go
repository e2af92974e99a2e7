// Package config loads the settings of the diary application from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Storage backends for local persistence.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// Config holds the resolved diary settings.
type Config struct {
	Listen        string
	DataDir       string
	Storage       string
	SnapshotURL   string
	MirrorURL     string
	PushDelay     time.Duration
	MirrorTimeout time.Duration
	LogLevel      string
}

const (
	DefaultPath          = "~/.config/food-diary/config.toml"
	defaultListen        = "127.0.0.1:8090"
	defaultDataDir       = "~/.local/share/food-diary"
	defaultSnapshotURL   = "http://127.0.0.1:8080/api/snapshot"
	defaultMirrorURL     = "http://127.0.0.1:8080/api/mirror"
	defaultPushDelay     = time.Second
	defaultMirrorTimeout = 5 * time.Second
	defaultLogLevel      = "info"
)

// Default returns the settings used when no file is present.
func Default() Config {
	return Config{
		Listen:        defaultListen,
		DataDir:       mustExpand(defaultDataDir),
		Storage:       StorageFile,
		SnapshotURL:   defaultSnapshotURL,
		MirrorURL:     defaultMirrorURL,
		PushDelay:     defaultPushDelay,
		MirrorTimeout: defaultMirrorTimeout,
		LogLevel:      defaultLogLevel,
	}
}

// Load reads the config at path, or at DefaultPath when path is empty.
// A missing file yields the defaults. Empty values keep their defaults;
// snapshot_url and mirror_url may be set to "off" to disable the remote store.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		Listen        string `toml:"listen"`
		DataDir       string `toml:"data_dir"`
		Storage       string `toml:"storage"`
		SnapshotURL   string `toml:"snapshot_url"`
		MirrorURL     string `toml:"mirror_url"`
		PushDelay     string `toml:"push_delay"`
		MirrorTimeout string `toml:"mirror_timeout"`
		LogLevel      string `toml:"log_level"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	setString(&cfg.Listen, raw.Listen)
	setString(&cfg.SnapshotURL, raw.SnapshotURL)
	setString(&cfg.MirrorURL, raw.MirrorURL)
	setString(&cfg.LogLevel, raw.LogLevel)

	if dir := strings.TrimSpace(raw.DataDir); dir != "" {
		cfg.DataDir = mustExpand(dir)
	}

	if s := strings.ToLower(strings.TrimSpace(raw.Storage)); s != "" {
		if s != StorageFile && s != StorageSQLite {
			return Config{}, fmt.Errorf("parse config: unknown storage %q", raw.Storage)
		}
		cfg.Storage = s
	}

	if cfg.PushDelay, err = parseDuration("push_delay", raw.PushDelay, cfg.PushDelay); err != nil {
		return Config{}, err
	}
	if cfg.MirrorTimeout, err = parseDuration("mirror_timeout", raw.MirrorTimeout, cfg.MirrorTimeout); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// SnapshotEnabled reports whether the snapshot endpoint is in use.
func (c Config) SnapshotEnabled() bool { return !disabled(c.SnapshotURL) }

// MirrorEnabled reports whether the mirror proxy is in use.
func (c Config) MirrorEnabled() bool { return !disabled(c.MirrorURL) }

// SQLitePath returns the database file used by the sqlite storage backend.
func (c Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "diary.db")
}

func disabled(u string) bool {
	u = strings.ToLower(strings.TrimSpace(u))
	return u == "" || u == "off"
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func parseDuration(name, v string, def time.Duration) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("parse config: invalid %s %q", name, v)
	}
	return d, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(DefaultPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
