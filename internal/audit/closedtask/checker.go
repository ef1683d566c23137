// Package closedtask flags work hours logged against tasks that are
// already in a terminal state.
package closedtask

import (
	"time"

	"workguard/internal/audit"
)

// Violation is one time entry added to a closed task.
type Violation struct {
	Task       *audit.Task
	Comment    *audit.TaskComment
	HoursAdded float64
}

type Checker struct {
	Lookback time.Duration // comment window, default 24h
}

func (c Checker) lookback() time.Duration {
	if c.Lookback <= 0 {
		return 24 * time.Hour
	}
	return c.Lookback
}

// Check scans closed tasks for comments with positive logged hours
// written inside the lookback window ending at now.
func (c Checker) Check(tasks []*audit.Task, now time.Time) []Violation {
	start := now.Add(-c.lookback())

	var out []Violation
	for _, t := range tasks {
		if t == nil || !t.Closed() {
			continue
		}
		for _, cm := range t.Comments {
			if cm == nil || !cm.HasWorkTime() {
				continue
			}
			if !audit.InWindow(cm.CreatedAt, start, now) {
				continue
			}
			out = append(out, Violation{Task: t, Comment: cm, HoursAdded: cm.WorkHours})
		}
	}
	return out
}
