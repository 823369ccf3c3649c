package store

import (
	"fmt"
	"log"

	"todo-tracker/config"
)

// Open returns the backend selected by cfg.
func Open(cfg config.Storage, logger *log.Logger) (Backend, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryKV(), nil
	case config.BackendSQLite:
		return OpenSQLite(cfg.SQLitePath())
	case config.BackendFile, "":
		return NewFileKV(cfg.Dir, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Backend)
	}
}
