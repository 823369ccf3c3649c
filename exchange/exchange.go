// Package exchange converts task lists to and from the versioned JSON
// document used for export files, and recognizes the bare-array form
// written by older versions.
package exchange

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"todo-tracker/model"
)

var ErrMalformed = errors.New("malformed import data")

// Kind tells whether Parse understood the document.
type Kind int

const (
	Unrecognized Kind = iota
	Recognized
)

func (k Kind) String() string {
	if k == Recognized {
		return "recognized"
	}
	return "unrecognized"
}

// Shape is the form a recognized document had.
type Shape int

const (
	ShapeNone Shape = iota
	// ShapeArray is a bare array of tasks.
	ShapeArray
	// ShapePayload is an object with a todos array and an optional trash array.
	ShapePayload
)

// Result is the outcome of Parse. Todos and Trash are never nil.
type Result struct {
	Kind    Kind
	Shape   Shape
	Version int
	Todos   []model.Task
	Trash   []model.Task
	// Skipped counts entries that were not task objects, lacked an id or
	// title, or repeated an id already seen in the same list.
	Skipped int
}

// Empty reports whether the result carries no tasks at all.
func (r Result) Empty() bool {
	return len(r.Todos) == 0 && len(r.Trash) == 0
}

// Build wraps both lists in a payload of the current version.
func Build(tasks, trash []model.Task, now time.Time) model.ExportPayload {
	return model.ExportPayload{
		Version:    model.PayloadVersion,
		ExportedAt: model.Millis(now),
		Todos:      model.CloneTasks(tasks),
		Trash:      model.CloneTasks(trash),
	}
}

// Encode writes p as indented JSON.
func Encode(w io.Writer, p model.ExportPayload) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

// Filename derives the export file name from now, e.g. todos-20260219-123000.json.
func Filename(now time.Time) string {
	return fmt.Sprintf("todos-%s.json", now.Format("20060102-150405"))
}

// WriteFile encodes p into dir under Filename(now) and returns the path written.
func WriteFile(dir string, p model.ExportPayload, now time.Time) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, p); err != nil {
		return "", fmt.Errorf("encode export: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, Filename(now))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// ReadFile reads and parses an import file.
func ReadFile(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return unrecognized(), fmt.Errorf("read import file: %w", err)
	}
	return Parse(data)
}

// Parse decodes an import document. Invalid JSON is an error wrapping
// ErrMalformed. Valid JSON of any shape other than a task array or an object
// with a todos array yields an Unrecognized result and no error.
func Parse(data []byte) (Result, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return unrecognized(), fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	trimmed := bytes.TrimSpace(raw)
	switch trimmed[0] {
	case '[':
		todos, skipped, ok := decodeTasks(trimmed)
		if !ok {
			return unrecognized(), nil
		}
		return Result{
			Kind:    Recognized,
			Shape:   ShapeArray,
			Todos:   todos,
			Trash:   []model.Task{},
			Skipped: skipped,
		}, nil
	case '{':
		return parseObject(trimmed), nil
	default:
		return unrecognized(), nil
	}
}

func parseObject(raw []byte) Result {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return unrecognized()
	}

	todosRaw, ok := fields["todos"]
	if !ok {
		return unrecognized()
	}
	todos, skipped, ok := decodeTasks(todosRaw)
	if !ok {
		return unrecognized()
	}

	trash := []model.Task{}
	if trashRaw, ok := fields["trash"]; ok {
		if decoded, n, ok := decodeTasks(trashRaw); ok {
			trash = decoded
			skipped += n
		}
	}

	var version int
	if v, ok := fields["version"]; ok {
		if err := json.Unmarshal(v, &version); err != nil {
			return unrecognized()
		}
	}

	return Result{
		Kind:    Recognized,
		Shape:   ShapePayload,
		Version: version,
		Todos:   todos,
		Trash:   trash,
		Skipped: skipped,
	}
}

// decodeTasks reports ok=false when raw is not a JSON array. Entries repeating
// an earlier id are skipped.
func decodeTasks(raw []byte) ([]model.Task, int, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, 0, false
	}

	tasks := make([]model.Task, 0, len(items))
	seen := make(map[string]bool, len(items))
	skipped := 0
	for _, item := range items {
		var t model.Task
		if err := json.Unmarshal(item, &t); err != nil {
			skipped++
			continue
		}
		if strings.TrimSpace(t.ID) == "" || strings.TrimSpace(t.Title) == "" {
			skipped++
			continue
		}
		if seen[t.ID] {
			skipped++
			continue
		}
		seen[t.ID] = true
		tasks = append(tasks, t)
	}
	return tasks, skipped, true
}

func unrecognized() Result {
	return Result{Kind: Unrecognized, Todos: []model.Task{}, Trash: []model.Task{}}
}
