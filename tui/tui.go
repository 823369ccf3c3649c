package tui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"todo-tracker/app"
	"todo-tracker/model"
)

type uiMode int

const (
	modeNormal uiMode = iota
	modeAddTask
	modeEditTitle
	modeEditNote
	modeConfirm
)

type confirmKind int

const (
	confirmNone confirmKind = iota
	confirmPurge
	confirmClearCompleted
	confirmEmptyTrash
	confirmReset
)

type Model struct {
	svc *app.Service

	mode   uiMode
	cursor int
	input  textinput.Model

	editID      string
	confirmKind confirmKind
	confirmID   string
	confirmText string

	showHelp bool

	status    string
	statusErr bool

	width  int
	height int

	now func() time.Time
}

func NewModel(svc *app.Service, startupStatus string) *Model {
	status := strings.TrimSpace(startupStatus)
	if status == "" {
		status = "Ready"
	}

	input := textinput.New()
	input.CharLimit = 280

	m := &Model{
		svc:    svc,
		mode:   modeNormal,
		input:  input,
		status: status,
		now:    time.Now,
	}
	if startupStatus == "" && len(svc.Tasks()) == 0 && len(svc.Trash()) == 0 {
		m.setStatus("Welcome. Press 'a' to add your first task.", false)
	}
	return m
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		switch m.mode {
		case modeAddTask, modeEditTitle, modeEditNote:
			return m, m.updateInputMode(msg)
		case modeConfirm:
			m.updateConfirmMode(msg)
		default:
			if quit := m.updateNormalMode(msg); quit {
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m *Model) updateNormalMode(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "ctrl+c", "q":
		return true
	case "j", "down":
		m.moveCursor(1)
	case "k", "up":
		m.moveCursor(-1)
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		m.cursor = len(m.svc.Filtered()) - 1
	case "a":
		m.startInput(modeAddTask, "", "New task: ")
	case "e", "enter":
		m.startEdit(modeEditTitle)
	case "n":
		m.startEdit(modeEditNote)
	case "x", " ":
		m.toggleSelected()
	case "d", "delete":
		m.removeSelected()
	case "r":
		m.restoreSelected()
	case "J":
		m.moveSelected(1)
	case "K":
		m.moveSelected(-1)
	case "f", "tab":
		m.setFilter(m.svc.Filter().Next())
	case "1", "2", "3", "4":
		m.setFilter(model.Filters[int(msg.String()[0]-'1')])
	case "A":
		m.completeAll()
	case "C":
		m.startConfirm(confirmClearCompleted, "", fmt.Sprintf("Discard %d completed tasks?", m.svc.Stats().Completed))
	case "T":
		m.startConfirm(confirmEmptyTrash, "", fmt.Sprintf("Permanently delete %d tasks in the trash?", len(m.svc.Trash())))
	case "R":
		m.startConfirm(confirmReset, "", fmt.Sprintf("Remove all %d active tasks?", m.svc.Stats().Total))
	case "u":
		m.undo()
	case "?":
		m.showHelp = !m.showHelp
		if m.showHelp {
			m.setStatus("Shortcuts open (press ? or Esc to close)", false)
		} else {
			m.setStatus("Shortcuts hidden", false)
		}
	case "esc":
		if m.showHelp {
			m.showHelp = false
			m.setStatus("Shortcuts hidden", false)
		}
	}

	m.ensureSelection()
	return false
}

func (m *Model) updateInputMode(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.stopInput()
		m.setStatus("Cancelled", false)
		return nil
	case "enter":
		m.applyInput()
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) updateConfirmMode(msg tea.KeyMsg) {
	switch strings.ToLower(msg.String()) {
	case "y":
		m.confirm()
	case "n", "esc", "enter":
		m.mode = modeNormal
		m.confirmKind = confirmNone
		m.confirmID = ""
		m.confirmText = ""
		m.setStatus("Cancelled", false)
	}
}

func (m *Model) startInput(mode uiMode, value, prompt string) {
	m.mode = mode
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
	m.setStatus("Enter to confirm • Esc to cancel", false)
}

func (m *Model) stopInput() {
	m.mode = modeNormal
	m.editID = ""
	m.input.Blur()
	m.input.SetValue("")
}

func (m *Model) startEdit(mode uiMode) {
	task, ok := m.selectedTask()
	if !ok {
		m.setStatus("No task selected", true)
		return
	}
	if m.svc.Filter() == model.FilterTrash {
		m.setStatus("Restore the task before editing it", true)
		return
	}
	m.editID = task.ID
	if mode == modeEditNote {
		m.startInput(mode, task.Note, "Note: ")
		return
	}
	m.startInput(mode, task.Title, "Edit task: ")
}

func (m *Model) applyInput() {
	text := strings.TrimSpace(m.input.Value())
	switch m.mode {
	case modeAddTask:
		if text == "" {
			m.setStatus("Task title cannot be empty", true)
			return
		}
		task, _ := m.svc.Add(text, model.AddOptions{})
		m.stopInput()
		if m.svc.Filter() == model.FilterCompleted || m.svc.Filter() == model.FilterTrash {
			_ = m.svc.SetFilter(model.FilterAll)
		}
		m.cursor = m.indexOf(task.ID)
		m.setStatus("Task added", false)
	case modeEditTitle:
		if text == "" {
			m.setStatus("Task title cannot be empty", true)
			return
		}
		if _, ok := m.svc.Update(m.editID, model.Patch{Title: &text}); !ok {
			m.stopInput()
			m.setStatus("Task no longer exists", true)
			return
		}
		m.stopInput()
		m.setStatus("Task updated", false)
	case modeEditNote:
		if _, ok := m.svc.Update(m.editID, model.Patch{Note: &text}); !ok {
			m.stopInput()
			m.setStatus("Task no longer exists", true)
			return
		}
		m.stopInput()
		m.setStatus("Note saved", false)
	}
	m.ensureSelection()
}

func (m *Model) moveCursor(delta int) {
	tasks := m.svc.Filtered()
	if len(tasks) == 0 {
		return
	}
	m.cursor = clamp(m.cursor+delta, 0, len(tasks)-1)
}

func (m *Model) toggleSelected() {
	task, ok := m.selectedTask()
	if !ok || m.svc.Filter() == model.FilterTrash {
		return
	}
	toggled, ok := m.svc.Toggle(task.ID)
	if !ok {
		return
	}
	if toggled.Completed {
		m.setStatus("Completed • u undoes", false)
	} else {
		m.setStatus("Reopened", false)
	}
	if m.svc.Filter() == model.FilterAll {
		m.cursor = m.indexOf(task.ID)
	}
}

func (m *Model) removeSelected() {
	task, ok := m.selectedTask()
	if !ok {
		return
	}
	if m.svc.Filter() == model.FilterTrash {
		m.startConfirm(confirmPurge, task.ID, fmt.Sprintf("Permanently delete %q?", task.Title))
		return
	}
	if m.svc.Remove(task.ID) {
		m.setStatus("Moved to trash • u undoes", false)
	}
}

func (m *Model) restoreSelected() {
	if m.svc.Filter() != model.FilterTrash {
		m.setStatus("Switch to the trash (4) to restore tasks", false)
		return
	}
	task, ok := m.selectedTask()
	if !ok {
		return
	}
	if _, ok := m.svc.Restore(task.ID); ok {
		m.setStatus(fmt.Sprintf("Restored %q", task.Title), false)
	}
}

// moveSelected swaps the selected task with its visible neighbour by
// translating both into positions of the order-sorted list.
func (m *Model) moveSelected(delta int) {
	if m.svc.Filter() == model.FilterTrash {
		m.setStatus("Trash cannot be reordered", true)
		return
	}
	visible := m.svc.Filtered()
	if len(visible) == 0 {
		return
	}
	target := m.cursor + delta
	if target < 0 {
		m.setStatus("Task is already at the top", true)
		return
	}
	if target >= len(visible) {
		m.setStatus("Task is already at the bottom", true)
		return
	}

	selectedID := visible[m.cursor].ID
	from := indexIn(m.svc.Ordered(), selectedID)
	to := indexIn(m.svc.Ordered(), visible[target].ID)
	if !m.svc.Reorder(model.ReorderByIndex(from, to)) {
		return
	}
	m.cursor = m.indexOf(selectedID)
	m.setStatus("Reordered", false)
}

func (m *Model) setFilter(f model.Filter) {
	if err := m.svc.SetFilter(f); err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.cursor = 0
	m.setStatus("Showing "+filterLabel(f), false)
}

func (m *Model) completeAll() {
	n := m.svc.CompleteAll()
	if n == 0 {
		m.setStatus("Nothing to complete", false)
		return
	}
	m.setStatus(fmt.Sprintf("%d tasks completed • u undoes", n), false)
}

func (m *Model) startConfirm(kind confirmKind, id, text string) {
	switch kind {
	case confirmClearCompleted:
		if m.svc.Stats().Completed == 0 {
			m.setStatus("No completed tasks to clear", false)
			return
		}
	case confirmEmptyTrash:
		if len(m.svc.Trash()) == 0 {
			m.setStatus("Trash is already empty", false)
			return
		}
	case confirmReset:
		if m.svc.Stats().Total == 0 {
			m.setStatus("No tasks to remove", false)
			return
		}
	}
	m.mode = modeConfirm
	m.confirmKind = kind
	m.confirmID = id
	m.confirmText = text
}

func (m *Model) confirm() {
	switch m.confirmKind {
	case confirmPurge:
		if m.svc.PermanentlyDelete(m.confirmID) {
			m.setStatus("Deleted permanently • u undoes", false)
		}
	case confirmClearCompleted:
		m.setStatus(fmt.Sprintf("%d completed tasks discarded • u undoes", m.svc.ClearCompleted()), false)
	case confirmEmptyTrash:
		m.setStatus(fmt.Sprintf("%d tasks deleted from the trash • u undoes", m.svc.ClearTrash()), false)
	case confirmReset:
		m.svc.ResetAll()
		m.setStatus("All active tasks removed • u undoes", false)
	}
	m.mode = modeNormal
	m.confirmKind = confirmNone
	m.confirmID = ""
	m.confirmText = ""
	m.ensureSelection()
}

func (m *Model) undo() {
	if err := m.svc.Undo(); err != nil {
		m.setStatus("Nothing to undo", true)
		return
	}
	m.setStatus("Undone", false)
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m *Model) ensureSelection() {
	tasks := m.svc.Filtered()
	if len(tasks) == 0 {
		m.cursor = 0
		return
	}
	m.cursor = clamp(m.cursor, 0, len(tasks)-1)
}

func (m *Model) selectedTask() (model.Task, bool) {
	tasks := m.svc.Filtered()
	if len(tasks) == 0 {
		return model.Task{}, false
	}
	if m.cursor < 0 || m.cursor >= len(tasks) {
		m.cursor = 0
	}
	return tasks[m.cursor], true
}

func (m *Model) indexOf(taskID string) int {
	tasks := m.svc.Filtered()
	if i := indexIn(tasks, taskID); i >= 0 {
		return i
	}
	if len(tasks) == 0 {
		return 0
	}
	return len(tasks) - 1
}

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "loading..."
	}

	stats := m.svc.Stats()
	title := lipgloss.NewStyle().Bold(true).Render("todo")
	summary := fmt.Sprintf("filter: %s • %d open • %d done • %d in trash",
		filterLabel(m.svc.Filter()), stats.Active, stats.Completed, len(m.svc.Trash()))
	header := lipgloss.JoinHorizontal(lipgloss.Left,
		title,
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("  "+summary),
	)

	viewW := m.viewportWidth()
	panelH := m.height - 5
	if panelH < 6 {
		panelH = 6
	}
	innerW := viewW - 2
	if innerW < 20 {
		innerW = viewW
	}

	frameColor := lipgloss.Color("240")
	if m.mode == modeNormal {
		frameColor = lipgloss.Color("39")
	}
	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(frameColor).
		Width(innerW).
		Height(panelH - 2).
		Render(m.renderTasksPanel(innerW, panelH-2))

	if m.showHelp {
		popupW := viewW - 8
		if popupW > 80 {
			popupW = 80
		}
		if popupW < 40 {
			popupW = viewW - 2
		}
		panel = lipgloss.Place(viewW, panelH, lipgloss.Center, lipgloss.Center, m.renderHelpOverlay(popupW))
	}

	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	if m.statusErr {
		statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	}
	rightHint := "? shortcuts"
	if m.showHelp {
		rightHint = "Esc/? close"
	}
	footer := m.renderFooter(m.status, statusStyle, rightHint)

	parts := []string{header, panel, footer}
	if prompt := m.promptLine(viewW); prompt != "" && !m.showHelp {
		parts = append(parts, prompt)
	}
	return strings.Join(parts, "\n")
}

func (m *Model) promptLine(width int) string {
	line := ""
	switch m.mode {
	case modeAddTask, modeEditTitle, modeEditNote:
		line = m.input.View()
	case modeConfirm:
		line = m.confirmText + " [y/N]"
	default:
		return ""
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Width(width).Render(line)
}

func (m *Model) viewportWidth() int {
	if m.width <= 0 {
		return 1
	}
	// Leave the last column free; some terminals wrap on it.
	if m.width > 1 {
		return m.width - 1
	}
	return m.width
}

func (m *Model) renderFooter(statusText string, statusStyle lipgloss.Style, rightHint string) string {
	left := strings.TrimSpace(statusText)
	right := strings.TrimSpace(rightHint)
	if left == "" {
		left = "Ready"
	}

	leftW := utf8.RuneCountInString(left)
	rightW := utf8.RuneCountInString(right)
	width := m.viewportWidth()

	if leftW+rightW+1 > width {
		maxLeft := width - rightW - 1
		if maxLeft < 8 {
			maxLeft = 8
		}
		left = truncate.StringWithTail(left, uint(maxLeft), "…")
		leftW = utf8.RuneCountInString(left)
	}

	padding := width - leftW - rightW
	if padding < 1 {
		padding = 1
	}

	rightStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	line := statusStyle.Render(left) + strings.Repeat(" ", padding) + rightStyle.Render(right)
	return lipgloss.NewStyle().Width(width).Render(line)
}

func (m *Model) renderHelpOverlay(width int) string {
	title := lipgloss.NewStyle().Bold(true).Render("Shortcuts")
	section := lipgloss.NewStyle().Foreground(lipgloss.Color("111")).Bold(true)
	line := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	rows := []string{
		title,
		"",
		section.Render("Navigation"),
		line.Render("  j/k move • g/G top/bottom • f or 1..4 filter • q quit"),
		"",
		section.Render("Tasks"),
		line.Render("  a add • e edit title • n edit note • x toggle done"),
		line.Render("  J/K reorder • d move to trash • A complete all"),
		line.Render("  C discard completed • R remove all • u undo"),
		"",
		section.Render("Trash (filter 4)"),
		line.Render("  r restore • d delete permanently • T empty trash"),
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("244")).
		Padding(1, 2)

	return style.Width(width).Render(strings.Join(rows, "\n"))
}

func (m *Model) renderTasksPanel(width, height int) string {
	tasks := m.svc.Filtered()
	filter := m.svc.Filter()
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	lines := make([]string, 0, len(tasks)+1)
	lines = append(lines, lipgloss.NewStyle().Bold(true).Render(panelTitle(filter)))

	if len(tasks) == 0 {
		switch {
		case filter == model.FilterTrash:
			lines = append(lines, muted.Render("Trash is empty."))
		case m.svc.Stats().Total == 0:
			lines = append(lines, muted.Render("No tasks yet. Press 'a' to add one."))
		default:
			lines = append(lines, muted.Render("No tasks for this filter (press 'f')."))
		}
	}

	start := 0
	visibleRows := height - 1
	if visibleRows > 0 && m.cursor >= visibleRows {
		start = m.cursor - visibleRows + 1
	}
	now := model.Millis(m.now())
	for i := start; i < len(tasks); i++ {
		if visibleRows > 0 && i-start >= visibleRows {
			break
		}
		lines = append(lines, m.renderTaskLine(tasks[i], i == m.cursor, width, now))
	}

	return lipgloss.NewStyle().Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderTaskLine(t model.Task, selected bool, width int, now int64) string {
	cursor := " "
	if selected {
		cursor = "▸"
	}
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}

	suffix := ""
	if t.DueAt != nil {
		suffix = " due " + model.FromMillis(*t.DueAt).Format("Jan 2")
	}
	if t.Note != "" {
		suffix += " ✎"
	}

	textStyle := lipgloss.NewStyle()
	if t.Completed {
		textStyle = textStyle.Faint(true)
	}
	suffixStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	if t.DueAt != nil && *t.DueAt < now && !t.Completed {
		suffixStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	}
	if selected {
		sel := lipgloss.Color("229")
		textStyle = textStyle.Bold(true).Foreground(sel)
	}

	room := width - 6 - utf8.RuneCountInString(suffix)
	if room < 4 {
		room = 4
	}
	title := truncate.StringWithTail(t.Title, uint(room), "…")

	return lipgloss.JoinHorizontal(lipgloss.Left,
		textStyle.Render(cursor+" "+check+" "+title),
		suffixStyle.Render(suffix),
	)
}

func panelTitle(f model.Filter) string {
	switch f {
	case model.FilterTrash:
		return "Trash"
	case model.FilterActive:
		return "Open tasks"
	case model.FilterCompleted:
		return "Completed tasks"
	default:
		return "Tasks"
	}
}

func filterLabel(f model.Filter) string {
	switch f {
	case model.FilterActive:
		return "open"
	case model.FilterCompleted:
		return "completed"
	case model.FilterTrash:
		return "trash"
	default:
		return "all"
	}
}

func indexIn(tasks []model.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
