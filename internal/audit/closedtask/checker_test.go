package closedtask

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workguard/internal/audit"
)

var now = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

func closedTask(status string, comments ...*audit.TaskComment) *audit.Task {
	return &audit.Task{ID: "t1", Name: "Shipped feature", Status: status, Comments: comments}
}

func entry(age time.Duration, hours float64) *audit.TaskComment {
	return &audit.TaskComment{
		CreatedAt: now.Add(-age),
		WorkDate:  now.Add(-age),
		WorkHours: hours,
	}
}

func TestCheckFlagsRecentTimeOnDoneTask(t *testing.T) {
	got := Checker{}.Check([]*audit.Task{closedTask(audit.StatusDone, entry(2*time.Hour, 3))}, now)
	require.Len(t, got, 1)
	assert.InDelta(t, 3.0, got[0].HoursAdded, 1e-9)
	assert.Equal(t, "t1", got[0].Task.ID)
}

func TestCheckCoversBothTerminalStatuses(t *testing.T) {
	tasks := []*audit.Task{
		closedTask(audit.StatusDone, entry(time.Hour, 1)),
		closedTask(audit.StatusCompleted, entry(time.Hour, 2)),
	}
	assert.Len(t, Checker{}.Check(tasks, now), 2)
}

func TestCheckIgnoresOpenTasks(t *testing.T) {
	tasks := []*audit.Task{
		closedTask(audit.StatusOpen, entry(time.Hour, 3)),
		closedTask(audit.StatusInProgress, entry(time.Hour, 3)),
		closedTask(audit.StatusAccepted, entry(time.Hour, 3)),
	}
	assert.Empty(t, Checker{}.Check(tasks, now))
}

func TestCheckIgnoresOldEntries(t *testing.T) {
	task := closedTask(audit.StatusDone, entry(30*time.Hour, 3))
	assert.Empty(t, Checker{}.Check([]*audit.Task{task}, now))
}

func TestCheckIgnoresCommentsWithoutHours(t *testing.T) {
	task := closedTask(audit.StatusDone, entry(time.Hour, 0))
	assert.Empty(t, Checker{}.Check([]*audit.Task{task}, now))
}

func TestCheckEmitsOneViolationPerEntry(t *testing.T) {
	task := closedTask(audit.StatusDone, entry(time.Hour, 1), entry(2*time.Hour, 2))
	assert.Len(t, Checker{}.Check([]*audit.Task{task}, now), 2)
}
