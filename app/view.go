package app

import (
	"fmt"
	"sort"

	"todo-tracker/model"
)

// Filter returns the current view selector.
func (s *Service) Filter() model.Filter {
	return s.filter
}

// SetFilter changes the view selector. It never touches the lists.
func (s *Service) SetFilter(filter model.Filter) error {
	switch filter {
	case model.FilterAll, model.FilterActive, model.FilterCompleted, model.FilterTrash:
		s.filter = filter
		return nil
	default:
		return fmt.Errorf("%w: %q", model.ErrInvalidFilter, filter)
	}
}

// Filtered returns the tasks selected by the current filter in display order.
func (s *Service) Filtered() []model.Task {
	return s.FilteredBy(s.filter)
}

// FilteredBy returns the tasks selected by filter in display order:
// active, completed and trash views sort by order; the all view puts open
// tasks before completed ones and sorts each group by order.
func (s *Service) FilteredBy(filter model.Filter) []model.Task {
	switch filter {
	case model.FilterActive:
		return sortedByOrder(selectTasks(s.tasks, false))
	case model.FilterCompleted:
		return sortedByOrder(selectTasks(s.tasks, true))
	case model.FilterTrash:
		return sortedByOrder(s.trash)
	default:
		out := model.CloneTasks(s.tasks)
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Completed != out[j].Completed {
				return !out[i].Completed
			}
			return out[i].Order < out[j].Order
		})
		return out
	}
}

// Stats counts the active list.
func (s *Service) Stats() model.Stats {
	completed := 0
	for _, t := range s.tasks {
		if t.Completed {
			completed++
		}
	}
	total := len(s.tasks)
	return model.Stats{Total: total, Completed: completed, Active: total - completed}
}

func selectTasks(tasks []model.Task, completed bool) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Completed == completed {
			out = append(out, t)
		}
	}
	return out
}

// Ordered returns the active list sorted by order alone; Reorder index pairs
// refer to positions in this slice.
func (s *Service) Ordered() []model.Task {
	return sortedByOrder(s.tasks)
}
