package records

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Task statuses
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusWaiting    = "waiting"
	StatusDeferred   = "deferred"
	StatusCompleted  = "completed"
)

var statuses = []string{StatusNotStarted, StatusInProgress, StatusWaiting, StatusDeferred, StatusCompleted}

var priorities = []string{"low", "normal", "high"}

// Task is a to-do item
type Task struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Due             *time.Time `json:"due,omitempty"`
	Reminder        *time.Time `json:"reminder,omitempty"`
	Priority        string     `json:"priority"`
	Status          string     `json:"status"`
	PercentComplete int        `json:"percentComplete"`
	Categories      []string   `json:"categories,omitempty"`
	Owner           string     `json:"owner,omitempty"`
	Created         time.Time  `json:"created"`
	Modified        time.Time  `json:"modified"`
	Completed       *time.Time `json:"completed,omitempty"`
}

// Key implements Item
func (t Task) Key() string { return t.ID }

// Overdue reports whether the task is open and past its due date
func (t Task) Overdue(now time.Time) bool {
	return t.Status != StatusCompleted && t.Due != nil && t.Due.Before(now)
}

func checkPriority(p string) (string, error) {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return "normal", nil
	}
	if !slices.Contains(priorities, p) {
		return "", fmt.Errorf("unknown priority %q (use %s)", p, strings.Join(priorities, ", "))
	}
	return p, nil
}

func checkStatus(s string) (string, error) {
	s = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "_"))
	if !slices.Contains(statuses, s) {
		return "", fmt.Errorf("unknown status %q (use %s)", s, strings.Join(statuses, ", "))
	}
	return s, nil
}

// AddTask appends a new task and returns it with its id
func (s *Store) AddTask(ctx context.Context, filename, outputPath string, t Task) (Task, string, error) {
	if strings.TrimSpace(t.Title) == "" {
		return Task{}, "", fmt.Errorf("a task needs a title")
	}
	var err error
	if t.Priority, err = checkPriority(t.Priority); err != nil {
		return Task{}, "", err
	}
	if t.Status == "" {
		t.Status = StatusNotStarted
	} else if t.Status, err = checkStatus(t.Status); err != nil {
		return Task{}, "", err
	}
	now := s.now().UTC()
	t.ID = s.newID()
	t.Created, t.Modified = now, now
	if t.Status == StatusCompleted {
		t.PercentComplete = 100
		t.Completed = &now
	}

	path, err := Modify(ctx, s, KindTasks, filename, outputPath, func(f *File[Task]) error {
		f.Items = append(f.Items, t)
		return nil
	})
	return t, path, err
}

// TaskPatch holds the fields of an update; nil fields are left unchanged
type TaskPatch struct {
	Title           *string
	Description     *string
	Due             *time.Time
	Reminder        *time.Time
	Priority        *string
	Status          *string
	PercentComplete *int
	Categories      []string
	Owner           *string
}

// UpdateTask applies patch to the task identified by ref
func (s *Store) UpdateTask(ctx context.Context, filename, outputPath, ref string, patch TaskPatch) (Task, string, error) {
	var updated Task
	path, err := Modify(ctx, s, KindTasks, filename, outputPath, func(f *File[Task]) error {
		i, err := Lookup(f.Items, ref)
		if err != nil {
			return err
		}
		t := f.Items[i]
		if patch.Title != nil {
			if strings.TrimSpace(*patch.Title) == "" {
				return fmt.Errorf("a task needs a title")
			}
			t.Title = *patch.Title
		}
		if patch.Description != nil {
			t.Description = *patch.Description
		}
		if patch.Due != nil {
			t.Due = patch.Due
		}
		if patch.Reminder != nil {
			t.Reminder = patch.Reminder
		}
		if patch.Priority != nil {
			if t.Priority, err = checkPriority(*patch.Priority); err != nil {
				return err
			}
		}
		if patch.PercentComplete != nil {
			pc := *patch.PercentComplete
			if pc < 0 || pc > 100 {
				return fmt.Errorf("percentComplete must be between 0 and 100, got %d", pc)
			}
			t.PercentComplete = pc
			if pc > 0 && pc < 100 && t.Status == StatusNotStarted {
				t.Status = StatusInProgress
			}
		}
		if patch.Status != nil {
			if t.Status, err = checkStatus(*patch.Status); err != nil {
				return err
			}
			if t.Status != StatusCompleted && t.PercentComplete == 100 {
				t.PercentComplete = 0
			}
		}
		if patch.Categories != nil {
			t.Categories = patch.Categories
		}
		if patch.Owner != nil {
			t.Owner = *patch.Owner
		}
		now := s.now().UTC()
		switch {
		case t.Status == StatusCompleted || t.PercentComplete == 100:
			t.Status, t.PercentComplete = StatusCompleted, 100
			if t.Completed == nil {
				t.Completed = &now
			}
		default:
			t.Completed = nil
		}
		t.Modified = now
		f.Items[i] = t
		updated = t
		return nil
	})
	return updated, path, err
}

// CompleteTask marks the task identified by ref as done
func (s *Store) CompleteTask(ctx context.Context, filename, outputPath, ref string) (Task, string, error) {
	status := StatusCompleted
	return s.UpdateTask(ctx, filename, outputPath, ref, TaskPatch{Status: &status})
}

// TaskFilter selects tasks for ListTasks. Zero fields match everything.
type TaskFilter struct {
	Status           string
	Priority         string
	Category         string
	DueBefore        time.Time
	OverdueOnly      bool
	IncludeCompleted bool
}

// ListTasks returns matching tasks ordered by due date (undated last), then priority
func (s *Store) ListTasks(filename string, filter TaskFilter) ([]Task, error) {
	f, _, err := Load[Task](s, KindTasks, filename)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var out []Task
	for _, t := range f.Items {
		switch {
		case filter.Status != "" && !strings.EqualFold(t.Status, filter.Status):
		case filter.Status == "" && !filter.IncludeCompleted && t.Status == StatusCompleted:
		case filter.Priority != "" && !strings.EqualFold(t.Priority, filter.Priority):
		case filter.Category != "" && !slices.ContainsFunc(t.Categories, func(c string) bool { return strings.EqualFold(c, filter.Category) }):
		case !filter.DueBefore.IsZero() && (t.Due == nil || !t.Due.Before(filter.DueBefore)):
		case filter.OverdueOnly && !t.Overdue(now):
		default:
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b Task) int {
		switch {
		case a.Due != nil && b.Due == nil:
			return -1
		case a.Due == nil && b.Due != nil:
			return 1
		case a.Due != nil && !a.Due.Equal(*b.Due):
			return a.Due.Compare(*b.Due)
		}
		return slices.Index(priorities, b.Priority) - slices.Index(priorities, a.Priority)
	})
	return out, nil
}
