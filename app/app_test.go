package app

import (
	"errors"
	"reflect"
	"testing"

	"todo-tracker/model"
)

func TestAddAssignsIncreasingOrderAndPrepends(t *testing.T) {
	svc, _ := newTestService(t, nil)

	a := mustAdd(t, svc, "A")
	b := mustAdd(t, svc, "B")

	if a.Order != 1 || b.Order != 2 {
		t.Fatalf("expected orders 1 and 2, got %d and %d", a.Order, b.Order)
	}
	if a.ID == b.ID {
		t.Fatalf("expected unique ids, both were %q", a.ID)
	}

	stored := svc.Tasks()
	if !reflect.DeepEqual(titles(stored), []string{"B", "A"}) {
		t.Fatalf("expected newest-first storage, got %v", titles(stored))
	}
	if !reflect.DeepEqual(orders(stored), []int{2, 1}) {
		t.Fatalf("unexpected stored orders %v", orders(stored))
	}

	view := svc.Filtered()
	if !reflect.DeepEqual(titles(view), []string{"A", "B"}) {
		t.Fatalf("expected all view ascending by order, got %v", titles(view))
	}
}

func TestAddTrimsAndSetsTimestamps(t *testing.T) {
	svc, _ := newTestService(t, nil)
	due := int64(1800000000000)

	task, ok := svc.Add("  Buy milk  ", model.AddOptions{Note: "2 litres", DueAt: &due})
	if !ok {
		t.Fatalf("add failed")
	}
	if task.Title != "Buy milk" {
		t.Fatalf("expected trimmed title, got %q", task.Title)
	}
	if task.CreatedAt == 0 || task.CreatedAt != task.UpdatedAt {
		t.Fatalf("expected createdAt == updatedAt, got %d / %d", task.CreatedAt, task.UpdatedAt)
	}
	if task.Completed {
		t.Fatalf("new task must be open")
	}
	if task.Note != "2 litres" || task.DueAt == nil || *task.DueAt != due {
		t.Fatalf("options not merged: %+v", task)
	}

	due = 1
	stored, _ := svc.Get(task.ID)
	if *stored.DueAt != 1800000000000 {
		t.Fatalf("stored dueAt aliases caller value")
	}
}

func TestAddUsesMaxOrderNotLength(t *testing.T) {
	svc, _ := newTestService(t, nil)
	svc.ReplaceAll([]model.Task{{ID: "x", Title: "X", Order: 7}})

	task := mustAdd(t, svc, "Y")
	if task.Order != 8 {
		t.Fatalf("expected order 8, got %d", task.Order)
	}
}

func TestAddBlankTitleIsNoOp(t *testing.T) {
	svc, _ := newTestService(t, nil)
	mustAdd(t, svc, "A")
	before := svc.Tasks()

	for _, title := range []string{"", "   ", "\t\n"} {
		if _, ok := svc.Add(title, model.AddOptions{}); ok {
			t.Fatalf("expected add(%q) to be ignored", title)
		}
	}
	if !reflect.DeepEqual(before, svc.Tasks()) {
		t.Fatalf("blank add changed the list")
	}
}

func TestToggleFlipsAndRefreshesUpdatedAt(t *testing.T) {
	svc, _ := newTestService(t, nil)
	a := mustAdd(t, svc, "A")

	toggled, ok := svc.Toggle(a.ID)
	if !ok || !toggled.Completed {
		t.Fatalf("expected task to be completed, got %+v", toggled)
	}
	if toggled.UpdatedAt <= a.UpdatedAt {
		t.Fatalf("expected updatedAt to advance")
	}

	again, _ := svc.Toggle(a.ID)
	if again.Completed {
		t.Fatalf("expected second toggle to reopen")
	}

	if _, ok := svc.Toggle("missing"); ok {
		t.Fatalf("expected toggle of missing id to be a no-op")
	}
}

func TestUpdateMergesPatch(t *testing.T) {
	svc, _ := newTestService(t, nil)
	a := mustAdd(t, svc, "A")
	title := "  Renamed "
	note := "details"
	due := int64(42)

	updated, ok := svc.Update(a.ID, model.Patch{Title: &title, Note: &note, DueAt: &due})
	if !ok {
		t.Fatalf("update failed")
	}
	if updated.Title != "Renamed" || updated.Note != "details" || *updated.DueAt != 42 {
		t.Fatalf("patch not applied: %+v", updated)
	}
	if updated.ID != a.ID || updated.CreatedAt != a.CreatedAt || updated.Order != a.Order {
		t.Fatalf("identity fields changed: %+v", updated)
	}
	if updated.UpdatedAt <= a.UpdatedAt {
		t.Fatalf("expected updatedAt to advance")
	}

	cleared, ok := svc.Update(a.ID, model.Patch{ClearDueAt: true})
	if !ok || cleared.DueAt != nil {
		t.Fatalf("expected dueAt to be cleared, got %+v", cleared)
	}
}

func TestUpdateRejectsInvalidPatches(t *testing.T) {
	svc, _ := newTestService(t, nil)
	a := mustAdd(t, svc, "A")
	blank := "   "
	zero := 0

	cases := map[string]model.Patch{
		"empty":       {},
		"blank title": {Title: &blank},
		"zero order":  {Order: &zero},
	}
	for name, patch := range cases {
		if _, ok := svc.Update(a.ID, patch); ok {
			t.Fatalf("%s: expected no-op", name)
		}
	}
	title := "X"
	if _, ok := svc.Update("missing", model.Patch{Title: &title}); ok {
		t.Fatalf("expected update of missing id to be a no-op")
	}

	got, _ := svc.Get(a.ID)
	if !reflect.DeepEqual(a, got) {
		t.Fatalf("task changed by rejected patches\nwant=%+v\ngot=%+v", a, got)
	}
}

func TestRemoveMovesToTrashAndRestoreBringsBack(t *testing.T) {
	svc, _ := newTestService(t, nil)
	a := mustAdd(t, svc, "A")
	b := mustAdd(t, svc, "B")

	if !svc.Remove(a.ID) {
		t.Fatalf("remove failed")
	}
	if _, ok := svc.Get(a.ID); ok {
		t.Fatalf("removed task still active")
	}
	trashed, ok := svc.GetTrashed(a.ID)
	if !ok || !reflect.DeepEqual(a, trashed) {
		t.Fatalf("expected task moved to trash unchanged, got %+v", trashed)
	}
	if svc.Remove(a.ID) {
		t.Fatalf("second remove should be a no-op")
	}

	restored, ok := svc.Restore(a.ID)
	if !ok {
		t.Fatalf("restore failed")
	}
	if _, ok := svc.GetTrashed(a.ID); ok {
		t.Fatalf("restored task still in trash")
	}
	if restored.Order != b.Order+1 {
		t.Fatalf("expected restored order %d, got %d", b.Order+1, restored.Order)
	}
	want := a
	want.Order = restored.Order
	if !reflect.DeepEqual(want, restored) {
		t.Fatalf("restore changed more than order\nwant=%+v\ngot=%+v", want, restored)
	}
	if svc.Tasks()[0].ID != a.ID {
		t.Fatalf("expected restored task at the front of storage")
	}
	if _, ok := svc.Restore(a.ID); ok {
		t.Fatalf("second restore should be a no-op")
	}
}

func TestRemoveAppendsToTrash(t *testing.T) {
	svc, _ := newTestService(t, nil)
	a := mustAdd(t, svc, "A")
	b := mustAdd(t, svc, "B")

	svc.Remove(b.ID)
	svc.Remove(a.ID)

	if !reflect.DeepEqual(titles(svc.Trash()), []string{"B", "A"}) {
		t.Fatalf("expected trash in removal order, got %v", titles(svc.Trash()))
	}
	if !reflect.DeepEqual(titles(svc.FilteredBy(model.FilterTrash)), []string{"A", "B"}) {
		t.Fatalf("expected trash view sorted by order, got %v", titles(svc.FilteredBy(model.FilterTrash)))
	}
}

func TestPermanentlyDeleteOnlyTouchesTrash(t *testing.T) {
	svc, _ := newTestService(t, nil)
	a := mustAdd(t, svc, "A")
	b := mustAdd(t, svc, "B")

	if svc.PermanentlyDelete(b.ID) {
		t.Fatalf("active task must not be deleted permanently")
	}
	svc.Remove(a.ID)
	if !svc.PermanentlyDelete(a.ID) {
		t.Fatalf("permanent delete failed")
	}
	if len(svc.Trash()) != 0 {
		t.Fatalf("expected empty trash")
	}
	if _, ok := svc.Restore(a.ID); ok {
		t.Fatalf("permanently deleted task must not be restorable")
	}
	if len(svc.Tasks()) != 1 {
		t.Fatalf("active list changed")
	}
}

func TestClearTrash(t *testing.T) {
	svc, _ := newTestService(t, nil)
	a := mustAdd(t, svc, "A")
	b := mustAdd(t, svc, "B")
	svc.Remove(a.ID)
	svc.Remove(b.ID)

	if n := svc.ClearTrash(); n != 2 {
		t.Fatalf("expected 2 cleared, got %d", n)
	}
	if n := svc.ClearTrash(); n != 0 {
		t.Fatalf("expected empty trash to clear 0, got %d", n)
	}
}

func TestClearCompletedDiscardsWithoutTrash(t *testing.T) {
	svc, _ := newTestService(t, nil)
	a := mustAdd(t, svc, "A")
	mustAdd(t, svc, "B")
	c := mustAdd(t, svc, "C")
	svc.Toggle(a.ID)
	svc.Toggle(c.ID)

	if n := svc.ClearCompleted(); n != 2 {
		t.Fatalf("expected 2 cleared, got %d", n)
	}
	if !reflect.DeepEqual(titles(svc.Tasks()), []string{"B"}) {
		t.Fatalf("unexpected remaining tasks %v", titles(svc.Tasks()))
	}
	if len(svc.Trash()) != 0 {
		t.Fatalf("clear completed must not fill the trash")
	}
}

func TestCompleteAll(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if n := svc.CompleteAll(); n != 0 {
		t.Fatalf("expected no-op on empty list, got %d", n)
	}

	a := mustAdd(t, svc, "A")
	mustAdd(t, svc, "B")
	svc.Toggle(a.ID)

	if n := svc.CompleteAll(); n != 2 {
		t.Fatalf("expected 2 completed, got %d", n)
	}
	stats := svc.Stats()
	if stats.Active != 0 || stats.Completed != stats.Total || stats.Total != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	for _, task := range svc.Tasks() {
		if task.UpdatedAt <= task.CreatedAt {
			t.Fatalf("expected updatedAt refreshed on %s", task.Title)
		}
	}
}

func TestStats(t *testing.T) {
	svc, _ := newTestService(t, nil)
	a := mustAdd(t, svc, "A")
	mustAdd(t, svc, "B")
	c := mustAdd(t, svc, "C")
	svc.Toggle(a.ID)
	svc.Remove(c.ID)

	want := model.Stats{Total: 2, Completed: 1, Active: 1}
	if got := svc.Stats(); got != want {
		t.Fatalf("stats = %+v, want %+v", got, want)
	}
}

func TestReplaceAllAndResetAll(t *testing.T) {
	svc, _ := newTestService(t, nil)
	a := mustAdd(t, svc, "A")
	mustAdd(t, svc, "B")
	svc.Remove(a.ID)

	svc.ReplaceAll([]model.Task{{ID: "n1", Title: "New", Order: 1}})
	if !reflect.DeepEqual(titles(svc.Tasks()), []string{"New"}) {
		t.Fatalf("replace all failed: %v", titles(svc.Tasks()))
	}

	svc.ResetAll()
	if len(svc.Tasks()) != 0 {
		t.Fatalf("expected empty active list")
	}
	if len(svc.Trash()) != 1 {
		t.Fatalf("reset must not touch the trash")
	}
}

func TestUndoRevertsLastMutation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if err := svc.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}

	a := mustAdd(t, svc, "A")
	svc.Remove(a.ID)

	if err := svc.Undo(); err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if _, ok := svc.Get(a.ID); !ok {
		t.Fatalf("expected undo to bring the task back")
	}
	if len(svc.Trash()) != 0 {
		t.Fatalf("expected undo to empty the trash again")
	}

	if err := svc.Undo(); err != nil {
		t.Fatalf("second undo failed: %v", err)
	}
	if len(svc.Tasks()) != 0 {
		t.Fatalf("expected undo of add to empty the list")
	}
}

func TestUndoStackIsBounded(t *testing.T) {
	svc, _ := newTestService(t, nil)
	for i := 0; i < undoStackLimit+5; i++ {
		mustAdd(t, svc, "task")
	}
	n := 0
	for svc.CanUndo() {
		if err := svc.Undo(); err != nil {
			t.Fatalf("undo failed: %v", err)
		}
		n++
	}
	if n != undoStackLimit {
		t.Fatalf("expected %d undo steps, got %d", undoStackLimit, n)
	}
}

func TestResolveID(t *testing.T) {
	svc := NewService(nil, WithIDGenerator(func() func() string {
		ids := []string{"abc123", "abd456", "xyz789"}
		i := 0
		return func() string { i++; return ids[i-1] }
	}()))
	mustAdd(t, svc, "A")
	mustAdd(t, svc, "B")
	c := mustAdd(t, svc, "C")
	svc.Remove(c.ID)

	if id, err := svc.ResolveID("abc"); err != nil || id != "abc123" {
		t.Fatalf("expected abc123, got %q (%v)", id, err)
	}
	if id, err := svc.ResolveID("XYZ"); err != nil || id != "xyz789" {
		t.Fatalf("expected trashed task to resolve, got %q (%v)", id, err)
	}
	if _, err := svc.ResolveID("ab"); !errors.Is(err, ErrAmbiguousID) {
		t.Fatalf("expected ambiguous prefix error")
	}
	if _, err := svc.ResolveID("zzz"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected not found error")
	}
}
