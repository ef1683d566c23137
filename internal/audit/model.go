// Package audit holds the in-memory entity graph shared by all rule
// checkers: tasks, their comments, and the employees referenced by them.
//
// All entities are built fresh for each acquisition run. Employee records
// obtained through the cache are treated as immutable once constructed.
package audit

import "time"

// Task statuses reported by the project-management API.
const (
	StatusOpen       = "open"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusDone       = "done"
	StatusAccepted   = "accepted"
)

// Task is one task as seen by a single acquisition run.
//
// Owner and Responsible may carry only an id until enriched through the
// employee cache. SubtaskIDs reference tasks that are resolved lazily and
// may be absent from the graph entirely when their fetch failed.
type Task struct {
	ID           string
	Name         string
	Status       string
	Owner        *Employee
	Responsible  *Employee
	CreatedAt    time.Time
	LastActivity time.Time
	PlannedHours float64
	ActualHours  float64
	SubtaskIDs   []string
	Comments     []*TaskComment
}

// Closed reports whether the task is in a terminal state.
func (t *Task) Closed() bool {
	return t.Status == StatusCompleted || t.Status == StatusDone
}

// TaskComment is a single comment with optional logged work time.
// WorkDate is the day the logged hours apply to and may differ from the
// day the comment itself was written.
type TaskComment struct {
	ID        string
	Content   string
	Author    *Employee
	CreatedAt time.Time
	WorkDate  time.Time
	WorkHours float64
	TaskID    string
}

// HasWorkTime reports whether the comment carries a usable time entry.
func (c *TaskComment) HasWorkTime() bool {
	return c.WorkHours > 0 && !c.WorkDate.IsZero()
}

// Employee is a person referenced by tasks and comments. Partial records
// (id only) are produced by task/comment parsing; the full record comes
// from the employee endpoint via the cache.
type Employee struct {
	ID         string
	Name       string
	Email      string
	Position   string
	Department *Department
}

// Department groups employees; used by the overrun checker's allow-list.
type Department struct {
	ID   string
	Name string
}
