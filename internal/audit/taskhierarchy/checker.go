// Package taskhierarchy flags subtasks that were created long before
// their parent task, which a normal workflow cannot produce.
package taskhierarchy

import (
	"time"

	"workguard/internal/audit"
)

// Violation is one (parent, subtask) pair with an impossible ordering.
type Violation struct {
	Parent          *audit.Task
	Subtask         *audit.Task
	HoursDifference int64
}

type Checker struct {
	Lookback    time.Duration // parent activity window, default 24h
	MaxHoursGap int64         // allowed creation gap in hours, default 12
}

func (c Checker) lookback() time.Duration {
	if c.Lookback <= 0 {
		return 24 * time.Hour
	}
	return c.Lookback
}

func (c Checker) maxGap() int64 {
	if c.MaxHoursGap <= 0 {
		return 12
	}
	return c.MaxHoursGap
}

// Check inspects every recently active task that owns subtasks. A pair
// violates when the subtask's creation time precedes the parent's by
// more than the allowed gap. Subtask ids missing from the given slice
// are skipped.
func (c Checker) Check(tasks []*audit.Task, now time.Time) []Violation {
	start := now.Add(-c.lookback())
	byID := make(map[string]*audit.Task, len(tasks))
	for _, t := range tasks {
		if t != nil && t.ID != "" {
			byID[t.ID] = t
		}
	}

	var out []Violation
	for _, parent := range tasks {
		if parent == nil || len(parent.SubtaskIDs) == 0 {
			continue
		}
		if parent.CreatedAt.IsZero() || !audit.InWindow(parent.LastActivity, start, now) {
			continue
		}
		for _, id := range parent.SubtaskIDs {
			sub, ok := byID[id]
			if !ok || sub.CreatedAt.IsZero() {
				continue
			}
			gap := int64(parent.CreatedAt.Sub(sub.CreatedAt).Hours())
			if gap > c.maxGap() {
				out = append(out, Violation{Parent: parent, Subtask: sub, HoursDifference: gap})
			}
		}
	}
	return out
}
