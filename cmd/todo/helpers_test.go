package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"todo-tracker/model"
)

func TestParseDue(t *testing.T) {
	got, err := parseDue("2030-05-06")
	if err != nil {
		t.Fatalf("parseDue failed: %v", err)
	}
	want := time.Date(2030, 5, 6, 0, 0, 0, 0, time.Local).UnixMilli()
	if got != want {
		t.Fatalf("parseDue = %d, want %d", got, want)
	}

	got, err = parseDue("2030-05-06T10:00:00Z")
	if err != nil {
		t.Fatalf("parseDue rfc3339 failed: %v", err)
	}
	if want := time.Date(2030, 5, 6, 10, 0, 0, 0, time.UTC).UnixMilli(); got != want {
		t.Fatalf("parseDue = %d, want %d", got, want)
	}

	if _, err := parseDue("next tuesday"); err == nil {
		t.Fatalf("expected error for free-form date")
	}
}

func TestParsePosition(t *testing.T) {
	if n, err := parsePosition(" 3 "); err != nil || n != 3 {
		t.Fatalf("parsePosition = %d, %v", n, err)
	}
	for _, in := range []string{"0", "-1", "two", ""} {
		if _, err := parsePosition(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestPlural(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0 tasks"},
		{1, "1 task"},
		{2, "2 tasks"},
	}
	for _, tt := range tests {
		if got := plural(tt.n, "task"); got != tt.want {
			t.Fatalf("plural(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Fatalf("shortID = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Fatalf("shortID = %q", got)
	}
}

func TestPrintTasks(t *testing.T) {
	due := time.Date(2000, 1, 2, 0, 0, 0, 0, time.Local).UnixMilli()
	tasks := []model.Task{
		{ID: "aaaaaaaa-1", Title: "Open task", Order: 2, DueAt: &due},
		{ID: "bbbbbbbb-2", Title: strings.Repeat("x", 80), Completed: true, Order: 1},
	}
	positions := positionsOf([]model.Task{tasks[1], tasks[0]})

	var buf bytes.Buffer
	printTasks(&buf, tasks, positions, model.FilterAll, time.Date(2001, 1, 1, 0, 0, 0, 0, time.Local))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "  2  [ ]  aaaaaaaa  Open task") {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[0], "due 2000-01-02 (overdue)") {
		t.Fatalf("expected overdue marker in %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "  1  [x]  bbbbbbbb") || !strings.Contains(lines[1], "…") {
		t.Fatalf("expected truncated completed line, got %q", lines[1])
	}
}

func TestPrintTasksEmpty(t *testing.T) {
	var buf bytes.Buffer
	printTasks(&buf, nil, nil, model.FilterTrash, time.Now())
	if buf.String() != "Trash is empty.\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
	buf.Reset()
	printTasks(&buf, nil, nil, model.FilterActive, time.Now())
	if buf.String() != "No tasks.\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestPrintTaskDetailRendersNote(t *testing.T) {
	var buf bytes.Buffer
	task := model.Task{ID: "abc", Title: "Report", Order: 1, Note: "Check the **numbers**"}
	if err := printTaskDetail(&buf, task, true, false); err != nil {
		t.Fatalf("printTaskDetail failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Report", "trashed", "numbers"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
