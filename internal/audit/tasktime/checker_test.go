package tasktime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workguard/internal/audit"
)

var now = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

func overrun() *audit.Task {
	return &audit.Task{
		ID:           "t1",
		Name:         "Landing page redesign",
		LastActivity: now.Add(-time.Hour),
		PlannedHours: 2,
		ActualHours:  5,
		Responsible: &audit.Employee{
			ID:         "77",
			Name:       "Ivan Petrov",
			Department: &audit.Department{ID: "5", Name: "Design"},
		},
	}
}

func checker() Checker {
	return Checker{AllowDepartments: []string{"5"}}
}

func TestCheckFlagsOverrunInAllowedDepartment(t *testing.T) {
	got := checker().Check([]*audit.Task{overrun()}, now)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID)
}

func TestCheckSkipsDepartmentOutsideAllowList(t *testing.T) {
	task := overrun()
	task.Responsible.Department.ID = "9"
	assert.Empty(t, checker().Check([]*audit.Task{task}, now))
}

func TestCheckSkipsTasksWithinEstimate(t *testing.T) {
	task := overrun()
	task.ActualHours = 2
	assert.Empty(t, checker().Check([]*audit.Task{task}, now))
}

func TestCheckSkipsExcludedNames(t *testing.T) {
	c := checker()
	c.ExcludePatterns = []string{"retainer", "monthly period"}

	task := overrun()
	task.Name = "SEO Retainer for client X"
	assert.Empty(t, c.Check([]*audit.Task{task}, now))

	kept := overrun()
	assert.Len(t, c.Check([]*audit.Task{kept}, now), 1)
}

func TestCheckSkipsMissingResponsibleOrDepartment(t *testing.T) {
	noResp := overrun()
	noResp.Responsible = nil

	noDept := overrun()
	noDept.Responsible.Department = nil

	assert.Empty(t, checker().Check([]*audit.Task{noResp, noDept}, now))
}

func TestCheckSkipsInactiveTasks(t *testing.T) {
	task := overrun()
	task.LastActivity = now.Add(-25 * time.Hour)
	assert.Empty(t, checker().Check([]*audit.Task{task}, now))
}
