// Package tasktime flags recently active tasks whose actual work hours
// exceed the planned estimate.
package tasktime

import (
	"strings"
	"time"

	"workguard/internal/audit"
)

type Checker struct {
	Lookback         time.Duration // activity window, default 24h
	ExcludePatterns  []string      // case-insensitive name substrings to skip
	AllowDepartments []string      // responsible department ids to audit
}

func (c Checker) lookback() time.Duration {
	if c.Lookback <= 0 {
		return 24 * time.Hour
	}
	return c.Lookback
}

// Check returns every recently active task that overran its estimate.
// Tasks without a responsible party or department, tasks outside the
// department allow-list and tasks whose name matches an exclusion
// pattern are skipped.
func (c Checker) Check(tasks []*audit.Task, now time.Time) []*audit.Task {
	start := now.Add(-c.lookback())

	var out []*audit.Task
	for _, t := range tasks {
		if t == nil || !audit.InWindow(t.LastActivity, start, now) {
			continue
		}
		if t.ActualHours <= t.PlannedHours {
			continue
		}
		if c.excluded(t.Name) {
			continue
		}
		if t.Responsible == nil || t.Responsible.Department == nil {
			continue
		}
		if !c.departmentAllowed(t.Responsible.Department.ID) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (c Checker) excluded(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range c.ExcludePatterns {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func (c Checker) departmentAllowed(id string) bool {
	for _, d := range c.AllowDepartments {
		if d == id {
			return true
		}
	}
	return false
}
