// Package worktime flags comments whose logged date and work-applies-to
// date fall on different calendar days.
package worktime

import (
	"time"

	"workguard/internal/audit"
)

// Violation is one mismatched time entry.
type Violation struct {
	Task           *audit.Task
	Comment        *audit.TaskComment
	DaysDifference int
}

type Checker struct {
	Lookback time.Duration // activity window, default 24h
}

func (c Checker) lookback() time.Duration {
	if c.Lookback <= 0 {
		return 24 * time.Hour
	}
	return c.Lookback
}

// Check scans every comment of every task. A comment violates when it has
// a work-time entry, its timestamp is inside the lookback window ending at
// now, and the comment day differs from the work day.
func (c Checker) Check(tasks []*audit.Task, now time.Time) []Violation {
	start := now.Add(-c.lookback())

	var out []Violation
	for _, t := range tasks {
		if t == nil {
			continue
		}
		for _, cm := range t.Comments {
			if !c.isViolation(cm, start, now) {
				continue
			}
			diff := audit.DaysBetween(cm.CreatedAt, cm.WorkDate)
			if diff < 0 {
				diff = -diff
			}
			out = append(out, Violation{Task: t, Comment: cm, DaysDifference: diff})
		}
	}
	return out
}

func (c Checker) isViolation(cm *audit.TaskComment, start, end time.Time) bool {
	if cm == nil || !cm.HasWorkTime() {
		return false
	}
	if cm.CreatedAt.IsZero() || cm.WorkDate.IsZero() {
		return false
	}
	if cm.CreatedAt.Before(start) || cm.CreatedAt.After(end) {
		return false
	}
	return !audit.SameDay(cm.CreatedAt, cm.WorkDate)
}
