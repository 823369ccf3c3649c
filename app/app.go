package app

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"todo-tracker/exchange"
	"todo-tracker/model"
	"todo-tracker/store"
)

const undoStackLimit = 20

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrTaskNotFound  = errors.New("task not found")
	ErrAmbiguousID   = errors.New("ambiguous task id")
)

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

type snapshot struct {
	tasks []model.Task
	trash []model.Task
}

// Service owns the active list, the trash and the current filter.
// Every mutation is written through to the key-value store; write failures
// are logged and the in-memory state stays authoritative.
// A Service is not safe for concurrent use.
type Service struct {
	kv     store.KV
	logger *log.Logger
	now    func() time.Time
	newID  func() string

	tasks  []model.Task
	trash  []model.Task
	filter model.Filter
	undo   []snapshot
}

// NewService rehydrates both lists from kv. A nil kv gives an in-memory service.
func NewService(kv store.KV, opts ...Option) *Service {
	s := &Service{
		kv:     kv,
		logger: log.New(os.Stderr, "todo: ", log.LstdFlags),
		now:    time.Now,
		newID:  uuid.NewString,
		filter: model.FilterAll,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.tasks = normalizeList(store.Load(kv, store.ListKey, []model.Task{}, s.logger))
	s.trash = normalizeList(store.Load(kv, store.TrashKey, []model.Task{}, s.logger))
	s.trash = withoutIDs(s.trash, s.tasks)
	return s
}

// Tasks returns the active list in storage order (newest first).
func (s *Service) Tasks() []model.Task {
	return model.CloneTasks(s.tasks)
}

// Trash returns the trash in storage order (oldest removal first).
func (s *Service) Trash() []model.Task {
	return model.CloneTasks(s.trash)
}

// Get returns an active task by id.
func (s *Service) Get(id string) (model.Task, bool) {
	if i := indexOf(s.tasks, id); i >= 0 {
		return model.CloneTask(s.tasks[i]), true
	}
	return model.Task{}, false
}

// GetTrashed returns a trashed task by id.
func (s *Service) GetTrashed(id string) (model.Task, bool) {
	if i := indexOf(s.trash, id); i >= 0 {
		return model.CloneTask(s.trash[i]), true
	}
	return model.Task{}, false
}

// ResolveID expands an id or unique id prefix over both lists.
func (s *Service) ResolveID(ref string) (string, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return "", ErrTaskNotFound
	}

	var matches []string
	for _, list := range [][]model.Task{s.tasks, s.trash} {
		for _, t := range list {
			id := strings.ToLower(t.ID)
			if id == ref {
				return t.ID, nil
			}
			if strings.HasPrefix(id, ref) {
				matches = append(matches, t.ID)
			}
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrTaskNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s matches %d tasks", ErrAmbiguousID, ref, len(matches))
	}
}

// Add creates a task at the end of the display order and stores it first.
// A title that is blank after trimming is ignored.
func (s *Service) Add(title string, opts model.AddOptions) (model.Task, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Task{}, false
	}

	ts := s.stamp()
	task := model.Task{
		ID:        s.freshID(),
		Title:     title,
		CreatedAt: ts,
		UpdatedAt: ts,
		Order:     nextOrder(s.tasks),
		Note:      opts.Note,
	}
	if opts.DueAt != nil {
		due := *opts.DueAt
		task.DueAt = &due
	}

	s.pushUndo()
	s.tasks = append([]model.Task{task}, s.tasks...)
	s.persist()
	return model.CloneTask(task), true
}

// Toggle flips the completion flag of an active task.
func (s *Service) Toggle(id string) (model.Task, bool) {
	i := indexOf(s.tasks, id)
	if i < 0 {
		return model.Task{}, false
	}
	s.pushUndo()
	s.tasks[i].Completed = !s.tasks[i].Completed
	s.tasks[i].UpdatedAt = s.stamp()
	s.persist()
	return model.CloneTask(s.tasks[i]), true
}

// Update merges patch into an active task. Empty patches, blank titles and
// non-positive orders are ignored.
func (s *Service) Update(id string, patch model.Patch) (model.Task, bool) {
	i := indexOf(s.tasks, id)
	if i < 0 || patch.Empty() {
		return model.Task{}, false
	}

	next := model.CloneTask(s.tasks[i])
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return model.Task{}, false
		}
		next.Title = title
	}
	if patch.Order != nil {
		if *patch.Order < 1 {
			return model.Task{}, false
		}
		next.Order = *patch.Order
	}
	if patch.Completed != nil {
		next.Completed = *patch.Completed
	}
	if patch.Note != nil {
		next.Note = *patch.Note
	}
	if patch.ClearDueAt {
		next.DueAt = nil
	}
	if patch.DueAt != nil {
		due := *patch.DueAt
		next.DueAt = &due
	}
	next.UpdatedAt = s.stamp()

	s.pushUndo()
	s.tasks[i] = next
	s.persist()
	return model.CloneTask(next), true
}

// Remove moves an active task to the end of the trash.
func (s *Service) Remove(id string) bool {
	i := indexOf(s.tasks, id)
	if i < 0 {
		return false
	}
	s.pushUndo()
	task := s.tasks[i]
	s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
	s.trash = append(s.trash, task)
	s.persist()
	return true
}

// PermanentlyDelete drops a task from the trash.
func (s *Service) PermanentlyDelete(id string) bool {
	i := indexOf(s.trash, id)
	if i < 0 {
		return false
	}
	s.pushUndo()
	s.trash = append(s.trash[:i:i], s.trash[i+1:]...)
	s.persist()
	return true
}

// Restore moves a trashed task to the front of the active list. It receives
// the next free order so it shows up after the tasks already present.
func (s *Service) Restore(id string) (model.Task, bool) {
	i := indexOf(s.trash, id)
	if i < 0 {
		return model.Task{}, false
	}
	s.pushUndo()
	task := s.trash[i]
	s.trash = append(s.trash[:i:i], s.trash[i+1:]...)
	task.Order = nextOrder(s.tasks)
	s.tasks = append([]model.Task{task}, s.tasks...)
	s.persist()
	return model.CloneTask(task), true
}

// ClearTrash empties the trash and returns how many tasks were dropped.
func (s *Service) ClearTrash() int {
	n := len(s.trash)
	if n == 0 {
		return 0
	}
	s.pushUndo()
	s.trash = []model.Task{}
	s.persist()
	return n
}

// ClearCompleted discards completed active tasks without moving them to the trash.
func (s *Service) ClearCompleted() int {
	kept := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !t.Completed {
			kept = append(kept, t)
		}
	}
	removed := len(s.tasks) - len(kept)
	if removed == 0 {
		return 0
	}
	s.pushUndo()
	s.tasks = kept
	s.persist()
	return removed
}

// CompleteAll marks every active task completed.
func (s *Service) CompleteAll() int {
	if len(s.tasks) == 0 {
		return 0
	}
	s.pushUndo()
	ts := s.stamp()
	for i := range s.tasks {
		s.tasks[i].Completed = true
		s.tasks[i].UpdatedAt = ts
	}
	s.persist()
	return len(s.tasks)
}

// Reorder rewrites the display order of the active list. Both request kinds
// are first resolved to a sequence of ids. Index pairs outside the list are
// ignored. Ids that match no task are skipped, repeated ids count once, and
// tasks missing from an explicit sequence are dropped from the list.
func (s *Service) Reorder(req model.ReorderRequest) bool {
	ids, ok := s.resolveReorder(req)
	if !ok {
		return false
	}
	s.pushUndo()
	s.applyOrder(ids)
	s.persist()
	return true
}

// ReplaceAll swaps the active list wholesale. The trash is untouched.
func (s *Service) ReplaceAll(tasks []model.Task) {
	s.pushUndo()
	s.tasks = normalizeList(model.CloneTasks(tasks))
	s.trash = withoutIDs(s.trash, s.tasks)
	s.persist()
}

// ResetAll empties the active list. The trash is untouched.
func (s *Service) ResetAll() {
	s.pushUndo()
	s.tasks = []model.Task{}
	s.persist()
}

// Import applies a parsed payload. Only recognized payloads are applied: they
// replace the active list, and payloads in export form also replace the trash.
func (s *Service) Import(res exchange.Result) bool {
	if res.Kind != exchange.Recognized {
		return false
	}
	s.pushUndo()
	s.tasks = normalizeList(model.CloneTasks(res.Todos))
	if res.Shape == exchange.ShapePayload {
		s.trash = normalizeList(model.CloneTasks(res.Trash))
	}
	s.trash = withoutIDs(s.trash, s.tasks)
	s.persist()
	return true
}

// Export builds a payload of both lists stamped with the current time.
func (s *Service) Export() model.ExportPayload {
	return exchange.Build(s.tasks, s.trash, s.now())
}

// Undo reverts the latest mutation.
func (s *Service) Undo() error {
	if len(s.undo) == 0 {
		return ErrNothingToUndo
	}
	last := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.tasks = last.tasks
	s.trash = last.trash
	s.persist()
	return nil
}

// CanUndo reports whether Undo has anything to revert.
func (s *Service) CanUndo() bool {
	return len(s.undo) > 0
}

func (s *Service) resolveReorder(req model.ReorderRequest) ([]string, bool) {
	if !req.ByIndex() {
		return req.IDs, true
	}

	ordered := sortedByOrder(s.tasks)
	n := len(ordered)
	if req.From < 0 || req.From >= n || req.To < 0 || req.To >= n {
		return nil, false
	}

	ids := make([]string, 0, n)
	for _, t := range ordered {
		ids = append(ids, t.ID)
	}
	moved := ids[req.From]
	ids = append(ids[:req.From], ids[req.From+1:]...)
	ids = append(ids[:req.To], append([]string{moved}, ids[req.To:]...)...)
	return ids, true
}

func (s *Service) applyOrder(ids []string) {
	byID := make(map[string]model.Task, len(s.tasks))
	for _, t := range s.tasks {
		byID[t.ID] = t
	}

	ts := s.stamp()
	seen := make(map[string]bool, len(ids))
	out := make([]model.Task, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		t.Order = len(out) + 1
		t.UpdatedAt = ts
		out = append(out, t)
	}
	s.tasks = out
}

func (s *Service) persist() {
	_ = store.Save(s.kv, store.ListKey, s.tasks, s.logger)
	_ = store.Save(s.kv, store.TrashKey, s.trash, s.logger)
}

func (s *Service) pushUndo() {
	s.undo = append(s.undo, snapshot{
		tasks: model.CloneTasks(s.tasks),
		trash: model.CloneTasks(s.trash),
	})
	if len(s.undo) > undoStackLimit {
		s.undo = s.undo[len(s.undo)-undoStackLimit:]
	}
}

func (s *Service) stamp() int64 {
	return model.Millis(s.now())
}

func (s *Service) freshID() string {
	for i := 0; i < 8; i++ {
		id := s.newID()
		if id != "" && indexOf(s.tasks, id) < 0 && indexOf(s.trash, id) < 0 {
			return id
		}
	}
	return uuid.NewString()
}

func indexOf(tasks []model.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func nextOrder(tasks []model.Task) int {
	maxOrder := 0
	for _, t := range tasks {
		if t.Order > maxOrder {
			maxOrder = t.Order
		}
	}
	return maxOrder + 1
}

// normalizeList drops tasks repeating an earlier id and gives tasks without
// a positive order one after the current maximum, keeping their relative
// storage order.
func normalizeList(tasks []model.Task) []model.Task {
	if tasks == nil {
		return []model.Task{}
	}
	seen := make(map[string]bool, len(tasks))
	unique := tasks[:0]
	for _, t := range tasks {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		unique = append(unique, t)
	}
	tasks = unique

	next := nextOrder(tasks)
	for i := len(tasks) - 1; i >= 0; i-- {
		if tasks[i].Order < 1 {
			tasks[i].Order = next
			next++
		}
	}
	return tasks
}

func withoutIDs(tasks, exclude []model.Task) []model.Task {
	if len(exclude) == 0 || len(tasks) == 0 {
		return tasks
	}
	skip := make(map[string]bool, len(exclude))
	for _, t := range exclude {
		skip[t.ID] = true
	}
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if !skip[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

func sortedByOrder(tasks []model.Task) []model.Task {
	out := model.CloneTasks(tasks)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}
