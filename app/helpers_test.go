package app

import (
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"todo-tracker/model"
	"todo-tracker/store"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestService(t *testing.T, kv store.KV) (*Service, *testClock) {
	t.Helper()
	clock := &testClock{now: time.UnixMilli(1700000000000)}
	svc := NewService(kv,
		WithClock(clock.Now),
		WithIDGenerator(sequentialIDs()),
		WithLogger(log.New(io.Discard, "", 0)),
	)
	return svc, clock
}

func mustAdd(t *testing.T, svc *Service, title string) model.Task {
	t.Helper()
	task, ok := svc.Add(title, model.AddOptions{})
	if !ok {
		t.Fatalf("add %q failed", title)
	}
	return task
}

func titles(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

func orders(tasks []model.Task) []int {
	out := make([]int, len(tasks))
	for i, t := range tasks {
		out[i] = t.Order
	}
	return out
}

func assertContiguousOrders(t *testing.T, tasks []model.Task) {
	t.Helper()
	seen := make(map[int]bool, len(tasks))
	for _, task := range tasks {
		if task.Order < 1 || task.Order > len(tasks) || seen[task.Order] {
			t.Fatalf("orders are not exactly 1..%d: %v", len(tasks), orders(tasks))
		}
		seen[task.Order] = true
	}
}
