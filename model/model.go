package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Filter selects which subset of tasks a view shows.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
	FilterTrash     Filter = "trash"
)

// Filters lists every filter in the order views cycle through them.
var Filters = []Filter{FilterAll, FilterActive, FilterCompleted, FilterTrash}

var ErrInvalidFilter = errors.New("invalid filter")

// ParseFilter converts user input into a Filter. Blank input means FilterAll.
func ParseFilter(s string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterActive, FilterCompleted, FilterTrash:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFilter, s)
	}
}

// Next returns the filter that follows f in Filters.
func (f Filter) Next() Filter {
	for i, candidate := range Filters {
		if candidate == f {
			return Filters[(i+1)%len(Filters)]
		}
	}
	return FilterAll
}

// Task is a single todo item. Timestamps are Unix milliseconds.
type Task struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
	Order     int    `json:"order"`
	Note      string `json:"note,omitempty"`
	DueAt     *int64 `json:"dueAt,omitempty"`
}

// AddOptions are the optional fields accepted when creating a task.
type AddOptions struct {
	Note  string
	DueAt *int64
}

// Patch is a partial update. Nil fields are left untouched.
// The id and creation time of a task can never be patched.
type Patch struct {
	Title      *string
	Completed  *bool
	Order      *int
	Note       *string
	DueAt      *int64
	ClearDueAt bool
}

// Empty reports whether the patch would change nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Completed == nil && p.Order == nil &&
		p.Note == nil && p.DueAt == nil && !p.ClearDueAt
}

// Stats aggregates the active list.
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Active    int `json:"active"`
}

// ReorderRequest is either an explicit id sequence or a from/to index pair
// over the list sorted by order. Build one with ReorderByIDs or ReorderByIndex.
type ReorderRequest struct {
	IDs     []string
	From    int
	To      int
	byIndex bool
}

func ReorderByIDs(ids ...string) ReorderRequest {
	return ReorderRequest{IDs: ids}
}

func ReorderByIndex(from, to int) ReorderRequest {
	return ReorderRequest{From: from, To: to, byIndex: true}
}

// ByIndex reports whether the request is an index pair.
func (r ReorderRequest) ByIndex() bool {
	return r.byIndex
}

// PayloadVersion is the current export schema version.
const PayloadVersion = 1

// ExportPayload is the versioned document written by export and read by import.
type ExportPayload struct {
	Version    int    `json:"version"`
	ExportedAt int64  `json:"exportedAt"`
	Todos      []Task `json:"todos"`
	Trash      []Task `json:"trash"`
}

// Millis converts t to Unix milliseconds.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts Unix milliseconds to a local time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// CloneTask returns a copy of t that shares no pointers with it.
func CloneTask(t Task) Task {
	if t.DueAt != nil {
		due := *t.DueAt
		t.DueAt = &due
	}
	return t
}

// CloneTasks deep-copies a slice of tasks. A nil slice yields an empty one.
func CloneTasks(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = CloneTask(t)
	}
	return out
}
