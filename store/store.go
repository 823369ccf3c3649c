// Package store persists values under string keys. Values are JSON documents;
// Load and Save hide storage failures from callers that keep state in memory.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
)

const (
	// ListKey holds the active task list as a bare JSON array.
	ListKey = "todo:list:v1"
	// TrashKey holds the trash list in the same shape.
	TrashKey = "todo:trash:v1"
)

var ErrNotFound = errors.New("key not found")

// KV is the storage port. Get returns ErrNotFound for a missing key.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// Backend is a KV that owns resources.
type Backend interface {
	KV
	Close() error
}

// Load decodes the value stored under key. A missing key, a read failure or
// malformed content all yield def; failures other than a missing key are logged.
func Load[T any](kv KV, key string, def T, logger *log.Logger) T {
	if kv == nil {
		return def
	}
	data, err := kv.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logf(logger, "load %s: %v", key, err)
		}
		return def
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		logf(logger, "load %s: discarding malformed value: %v", key, err)
		return def
	}
	return value
}

// Save encodes value and writes it under key. Failures are logged and returned;
// callers that treat memory as authoritative may ignore the error.
func Save[T any](kv KV, key string, value T, logger *log.Logger) error {
	if kv == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		err = fmt.Errorf("encode %s: %w", key, err)
		logf(logger, "save: %v", err)
		return err
	}
	if err := kv.Set(key, data); err != nil {
		err = fmt.Errorf("write %s: %w", key, err)
		logf(logger, "save: %v", err)
		return err
	}
	return nil
}

func logf(logger *log.Logger, format string, args ...any) {
	if logger == nil {
		return
	}
	logger.Printf(format, args...)
}
