// Package config loads the todo-tracker TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// DirEnv overrides the storage directory when set.
const DirEnv = "TODO_TRACKER_DIR"

var (
	ErrUnknownBackend = errors.New("unknown storage backend")
	ErrUnknownKeys    = errors.New("unknown config keys")
)

// Config represents config.toml.
type Config struct {
	Storage Storage `toml:"storage"`
	Export  Export  `toml:"export"`
}

// Storage selects where the task lists are persisted.
type Storage struct {
	// Backend is one of "file", "sqlite" or "memory".
	Backend string `toml:"backend"`
	// Dir holds the JSON files or the SQLite database.
	Dir string `toml:"dir"`
}

// Export configures where exported payloads are written.
type Export struct {
	Dir string `toml:"dir"`
}

// SQLitePath is the database file used by the sqlite backend.
func (s Storage) SQLitePath() string {
	return filepath.Join(s.Dir, "todo.db")
}

// Default returns the configuration used when no file exists.
func Default() (*Config, error) {
	dir, err := DefaultStateDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		Storage: Storage{Backend: BackendFile, Dir: dir},
		Export:  Export{Dir: "."},
	}, nil
}

// DefaultPath returns ~/.config/todo-tracker/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "todo-tracker", "config.toml"), nil
}

// DefaultStateDir returns ~/.local/state/todo-tracker.
func DefaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", "todo-tracker"), nil
}

// Load reads the config file at path, or DefaultPath when path is empty.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return finish(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	meta, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%w in %s: %s", ErrUnknownKeys, path, strings.Join(keys, ", "))
	}

	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	if dir := strings.TrimSpace(os.Getenv(DirEnv)); dir != "" {
		cfg.Storage.Dir = dir
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize trims values, expands a leading ~ and validates the backend.
func (c *Config) Normalize() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendFile
	}
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Storage.Backend)
	}

	dir, err := expandHome(strings.TrimSpace(c.Storage.Dir))
	if err != nil {
		return err
	}
	if dir == "" {
		if dir, err = DefaultStateDir(); err != nil {
			return err
		}
	}
	c.Storage.Dir = dir

	exportDir, err := expandHome(strings.TrimSpace(c.Export.Dir))
	if err != nil {
		return err
	}
	if exportDir == "" {
		exportDir = "."
	}
	c.Export.Dir = exportDir
	return nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
