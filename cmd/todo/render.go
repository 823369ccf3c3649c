package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"todo-tracker/model"
)

const (
	shortIDLen    = 8
	maxTitleWidth = 60
	noteWidth     = 80
	timeLayout    = "2006-01-02 15:04"
	dateLayout    = "2006-01-02"
)

var (
	doneStyle    = lipgloss.NewStyle().Faint(true)
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	labelStyle   = lipgloss.NewStyle().Bold(true)
)

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

// printTasks writes one line per task. positions maps ids to their 1-based
// place in the task order; tasks without a position show a dash.
func printTasks(w io.Writer, tasks []model.Task, positions map[string]int, filter model.Filter, now time.Time) {
	if len(tasks) == 0 {
		if filter == model.FilterTrash {
			fmt.Fprintln(w, "Trash is empty.")
		} else {
			fmt.Fprintln(w, "No tasks.")
		}
		return
	}

	nowMs := model.Millis(now)
	for _, t := range tasks {
		pos := "-"
		if p, ok := positions[t.ID]; ok {
			pos = fmt.Sprint(p)
		}
		box := "[ ]"
		if t.Completed {
			box = "[x]"
		}
		title := truncate.StringWithTail(t.Title, maxTitleWidth, "…")
		if t.Completed {
			title = doneStyle.Render(title)
		}
		line := fmt.Sprintf("%3s  %s  %s  %s", pos, box, idStyle.Render(shortID(t.ID)), title)
		if t.DueAt != nil {
			due := "due " + model.FromMillis(*t.DueAt).Format(dateLayout)
			if !t.Completed && *t.DueAt < nowMs {
				due = overdueStyle.Render(due + " (overdue)")
			}
			line += "  " + due
		}
		fmt.Fprintln(w, line)
	}
}

// positionsOf numbers tasks from 1 in slice order.
func positionsOf(ordered []model.Task) map[string]int {
	out := make(map[string]int, len(ordered))
	for i, t := range ordered {
		out[t.ID] = i + 1
	}
	return out
}

func printTaskDetail(w io.Writer, t model.Task, trashed, tty bool) error {
	status := "open"
	switch {
	case trashed:
		status = "trashed"
	case t.Completed:
		status = "done"
	}

	field := func(name, value string) {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-8s", name+":")), value)
	}
	field("id", t.ID)
	field("title", t.Title)
	field("status", status)
	field("order", fmt.Sprint(t.Order))
	field("created", model.FromMillis(t.CreatedAt).Format(timeLayout))
	field("updated", model.FromMillis(t.UpdatedAt).Format(timeLayout))
	if t.DueAt != nil {
		field("due", model.FromMillis(*t.DueAt).Format(dateLayout))
	}

	note := strings.TrimSpace(t.Note)
	if note == "" {
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderNote(note, tty))
	return nil
}

// renderNote formats a note as markdown. It falls back to the raw text when
// the renderer fails.
func renderNote(note string, tty bool) string {
	style := glamour.WithStyles(styles.ASCIIStyleConfig)
	if tty {
		style = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(noteWidth))
	if err != nil {
		return note
	}
	out, err := r.Render(note)
	if err != nil {
		return note
	}
	return strings.TrimRight(out, "\n")
}
