package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"todo-tracker/app"
	"todo-tracker/model"
)

// todo add
var addCmd = &cobra.Command{
	Use:   "add <title>...",
	Short: "Add a task to the end of the list",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

var (
	addNote string
	addDue  string
)

// todo list
var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var (
	listFilter string
	listJSON   bool
)

// todo toggle
var toggleCmd = &cobra.Command{
	Use:   "toggle <id>...",
	Short: "Flip the completion state of tasks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runToggle,
}

// todo edit
var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change the title, note, due date or state of a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

var (
	editTitle    string
	editNote     string
	editDue      string
	editClearDue bool
	editDone     bool
	editOpen     bool
)

// todo rm
var rmCmd = &cobra.Command{
	Use:     "rm <id>...",
	Aliases: []string{"remove"},
	Short:   "Move tasks to the trash",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runRemove,
}

// todo restore
var restoreCmd = &cobra.Command{
	Use:   "restore <id>...",
	Short: "Bring tasks back from the trash",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRestore,
}

// todo purge
var purgeCmd = &cobra.Command{
	Use:   "purge <id>...",
	Short: "Delete trashed tasks for good",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPurge,
}

// todo empty-trash
var emptyTrashCmd = &cobra.Command{
	Use:   "empty-trash",
	Short: "Delete everything in the trash",
	Args:  cobra.NoArgs,
	RunE:  runEmptyTrash,
}

// todo clear-completed
var clearCompletedCmd = &cobra.Command{
	Use:   "clear-completed",
	Short: "Discard completed tasks without moving them to the trash",
	Args:  cobra.NoArgs,
	RunE:  runClearCompleted,
}

// todo complete-all
var completeAllCmd = &cobra.Command{
	Use:   "complete-all",
	Short: "Mark every task completed",
	Args:  cobra.NoArgs,
	RunE:  runCompleteAll,
}

// todo move
var moveCmd = &cobra.Command{
	Use:   "move <from> <to>",
	Short: "Move the task at position <from> to position <to>",
	Long: `Move the task at position <from> to position <to>.

Positions are 1-based and follow the task order, including completed
tasks. "todo list" prints each task's position in its first column.`,
	Args: cobra.ExactArgs(2),
	RunE: runMove,
}

// todo order
var orderCmd = &cobra.Command{
	Use:   "order <id>...",
	Short: "Rewrite the display order from a full list of ids",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runOrder,
}

// todo reset
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every task from the list (the trash is kept)",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

var resetYes bool

// todo stats
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show task counts",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var statsJSON bool

// todo show
var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a task with its note rendered as markdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

// todo tui
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive task list",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	addCmd.Flags().StringVar(&addNote, "note", "", "note attached to the task")
	addCmd.Flags().StringVar(&addDue, "due", "", "due date (YYYY-MM-DD or RFC 3339)")

	addListFlags(listCmd.Flags())

	editCmd.Flags().StringVar(&editTitle, "title", "", "new title")
	editCmd.Flags().StringVar(&editNote, "note", "", "new note (empty clears it)")
	editCmd.Flags().StringVar(&editDue, "due", "", "new due date (YYYY-MM-DD or RFC 3339)")
	editCmd.Flags().BoolVar(&editClearDue, "clear-due", false, "remove the due date")
	editCmd.Flags().BoolVar(&editDone, "done", false, "mark completed")
	editCmd.Flags().BoolVar(&editOpen, "open", false, "mark not completed")
	editCmd.MarkFlagsMutuallyExclusive("done", "open")
	editCmd.MarkFlagsMutuallyExclusive("due", "clear-due")

	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "do not ask for confirmation")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output JSON")

	rootCmd.AddCommand(addCmd, listCmd, toggleCmd, editCmd, rmCmd, restoreCmd, purgeCmd,
		emptyTrashCmd, clearCompletedCmd, completeAllCmd, moveCmd, orderCmd, resetCmd,
		statsCmd, showCmd, tuiCmd)
}

func addListFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&listFilter, "filter", "f", "all", "all, active, completed or trash")
	fs.BoolVar(&listJSON, "json", false, "output JSON")
}

func runAdd(cmd *cobra.Command, args []string) error {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		return errors.New("title cannot be empty")
	}
	opts := model.AddOptions{Note: addNote}
	if addDue != "" {
		due, err := parseDue(addDue)
		if err != nil {
			return err
		}
		opts.DueAt = &due
	}

	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	task, ok := s.svc.Add(title, opts)
	if !ok {
		return errors.New("title cannot be empty")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s\n", shortID(task.ID), task.Title)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	filter, err := model.ParseFilter(listFilter)
	if err != nil {
		return err
	}

	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	tasks := s.svc.FilteredBy(filter)
	if listJSON {
		return writeJSON(cmd, tasks)
	}
	var positions map[string]int
	if filter != model.FilterTrash {
		positions = positionsOf(s.svc.Ordered())
	}
	printTasks(cmd.OutOrStdout(), tasks, positions, filter, time.Now())
	return nil
}

func runToggle(cmd *cobra.Command, args []string) error {
	return eachTask(cmd, args, func(svc *app.Service, id string) (string, error) {
		task, ok := svc.Toggle(id)
		if !ok {
			return "", notActive(id)
		}
		state := "open"
		if task.Completed {
			state = "done"
		}
		return fmt.Sprintf("Marked %s %s: %s", shortID(id), state, task.Title), nil
	})
}

func runEdit(cmd *cobra.Command, args []string) error {
	var patch model.Patch
	flags := cmd.Flags()
	if flags.Changed("title") {
		patch.Title = &editTitle
		if strings.TrimSpace(editTitle) == "" {
			return errors.New("title cannot be empty")
		}
	}
	if flags.Changed("note") {
		patch.Note = &editNote
	}
	if flags.Changed("due") {
		due, err := parseDue(editDue)
		if err != nil {
			return err
		}
		patch.DueAt = &due
	}
	patch.ClearDueAt = editClearDue
	if editDone || editOpen {
		done := editDone
		patch.Completed = &done
	}
	if patch.Empty() {
		return errors.New("nothing to change: pass --title, --note, --due, --clear-due, --done or --open")
	}

	return eachTask(cmd, args, func(svc *app.Service, id string) (string, error) {
		task, ok := svc.Update(id, patch)
		if !ok {
			return "", notActive(id)
		}
		return fmt.Sprintf("Updated %s %s", shortID(id), task.Title), nil
	})
}

func runRemove(cmd *cobra.Command, args []string) error {
	return eachTask(cmd, args, func(svc *app.Service, id string) (string, error) {
		task, _ := svc.Get(id)
		if !svc.Remove(id) {
			return "", notActive(id)
		}
		return fmt.Sprintf("Moved %s to trash: %s", shortID(id), task.Title), nil
	})
}

func runRestore(cmd *cobra.Command, args []string) error {
	return eachTask(cmd, args, func(svc *app.Service, id string) (string, error) {
		task, ok := svc.Restore(id)
		if !ok {
			return "", fmt.Errorf("task %s is not in the trash", shortID(id))
		}
		return fmt.Sprintf("Restored %s %s", shortID(id), task.Title), nil
	})
}

func runPurge(cmd *cobra.Command, args []string) error {
	return eachTask(cmd, args, func(svc *app.Service, id string) (string, error) {
		task, _ := svc.GetTrashed(id)
		if !svc.PermanentlyDelete(id) {
			return "", fmt.Errorf("task %s is not in the trash", shortID(id))
		}
		return fmt.Sprintf("Deleted %s %s", shortID(id), task.Title), nil
	})
}

func runEmptyTrash(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	n := s.svc.ClearTrash()
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s from trash\n", plural(n, "task"))
	return nil
}

func runClearCompleted(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	n := s.svc.ClearCompleted()
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", plural(n, "completed task"))
	return nil
}

func runCompleteAll(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	n := s.svc.CompleteAll()
	fmt.Fprintf(cmd.OutOrStdout(), "Completed %s\n", plural(n, "task"))
	return nil
}

func runMove(cmd *cobra.Command, args []string) error {
	from, err := parsePosition(args[0])
	if err != nil {
		return err
	}
	to, err := parsePosition(args[1])
	if err != nil {
		return err
	}

	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	n := len(s.svc.Tasks())
	if from > n || to > n {
		return fmt.Errorf("position out of range: the list has %s", plural(n, "task"))
	}
	if from == to {
		return nil
	}
	s.svc.Reorder(model.ReorderByIndex(from-1, to-1))
	fmt.Fprintf(cmd.OutOrStdout(), "Moved task %d to position %d\n", from, to)
	return nil
}

func runOrder(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	ids := make([]string, 0, len(args))
	seen := make(map[string]bool, len(args))
	for _, ref := range args {
		id, err := s.svc.ResolveID(ref)
		if err != nil {
			return err
		}
		if _, ok := s.svc.Get(id); !ok {
			return notActive(id)
		}
		if seen[id] {
			return fmt.Errorf("task %s listed twice", shortID(id))
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if total := len(s.svc.Tasks()); len(ids) != total {
		return fmt.Errorf("order needs every task id: got %d of %d", len(ids), total)
	}

	s.svc.Reorder(model.ReorderByIDs(ids...))
	fmt.Fprintf(cmd.OutOrStdout(), "Reordered %s\n", plural(len(ids), "task"))
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		return errors.New("reset removes every task; pass --yes to confirm")
	}

	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	n := len(s.svc.Tasks())
	s.svc.ResetAll()
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", plural(n, "task"))
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	stats := s.svc.Stats()
	if statsJSON {
		return writeJSON(cmd, stats)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "total: %d\nactive: %d\ncompleted: %d\ntrash: %d\n",
		stats.Total, stats.Active, stats.Completed, len(s.svc.Trash()))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := s.svc.ResolveID(args[0])
	if err != nil {
		return err
	}
	task, ok := s.svc.Get(id)
	trashed := false
	if !ok {
		task, _ = s.svc.GetTrashed(id)
		trashed = true
	}
	return printTaskDetail(cmd.OutOrStdout(), task, trashed, isInteractive())
}

// eachTask resolves every id reference before running fn, so a bad
// reference changes nothing.
func eachTask(cmd *cobra.Command, refs []string, fn func(*app.Service, string) (string, error)) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		id, err := s.svc.ResolveID(ref)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	out := cmd.OutOrStdout()
	for _, id := range ids {
		msg, err := fn(s.svc, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, msg)
	}
	return nil
}

func notActive(id string) error {
	return fmt.Errorf("task %s is in the trash; restore it first", shortID(id))
}

// parseDue accepts a calendar date in local time or a full RFC 3339 timestamp.
func parseDue(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return model.Millis(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return model.Millis(t), nil
	}
	return 0, fmt.Errorf("invalid due date %q: use YYYY-MM-DD or RFC 3339", s)
}

func parsePosition(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid position %q: must be a positive number", s)
	}
	return n, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
