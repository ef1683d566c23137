package worktime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workguard/internal/audit"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func task(comments ...*audit.TaskComment) *audit.Task {
	return &audit.Task{ID: "t1", Name: "Task", Comments: comments}
}

func TestCheckFlagsMismatchedDays(t *testing.T) {
	// Logged today, but the hours apply to three days ago.
	cm := &audit.TaskComment{
		CreatedAt: now.Add(-2 * time.Hour),
		WorkDate:  now.AddDate(0, 0, -3),
		WorkHours: 4,
	}

	got := Checker{}.Check([]*audit.Task{task(cm)}, now)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].DaysDifference)
	assert.Same(t, cm, got[0].Comment)
}

func TestCheckAcceptsSameDayEntry(t *testing.T) {
	cm := &audit.TaskComment{
		CreatedAt: now.Add(-2 * time.Hour),
		WorkDate:  now.Add(-5 * time.Hour),
		WorkHours: 4,
	}
	assert.Empty(t, Checker{}.Check([]*audit.Task{task(cm)}, now))
}

func TestCheckIgnoresOldComments(t *testing.T) {
	cm := &audit.TaskComment{
		CreatedAt: now.Add(-30 * time.Hour),
		WorkDate:  now.AddDate(0, 0, -5),
		WorkHours: 4,
	}
	assert.Empty(t, Checker{}.Check([]*audit.Task{task(cm)}, now))
}

func TestCheckHonorsCustomLookback(t *testing.T) {
	cm := &audit.TaskComment{
		CreatedAt: now.Add(-30 * time.Hour),
		WorkDate:  now.AddDate(0, 0, -5),
		WorkHours: 4,
	}
	got := Checker{Lookback: 48 * time.Hour}.Check([]*audit.Task{task(cm)}, now)
	assert.Len(t, got, 1)
}

func TestCheckIgnoresCommentsWithoutWorkTime(t *testing.T) {
	noHours := &audit.TaskComment{
		CreatedAt: now.Add(-time.Hour),
		WorkDate:  now.AddDate(0, 0, -1),
	}
	noDate := &audit.TaskComment{
		CreatedAt: now.Add(-time.Hour),
		WorkHours: 2,
	}
	assert.Empty(t, Checker{}.Check([]*audit.Task{task(noHours, noDate)}, now))
}

func TestCheckCountsAbsoluteDayDifference(t *testing.T) {
	// Work date in the future relative to the comment.
	cm := &audit.TaskComment{
		CreatedAt: now.Add(-time.Hour),
		WorkDate:  now.AddDate(0, 0, 2),
		WorkHours: 1,
	}
	got := Checker{}.Check([]*audit.Task{task(cm)}, now)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].DaysDifference)
}

func TestCheckSkipsNilEntries(t *testing.T) {
	assert.Empty(t, Checker{}.Check([]*audit.Task{nil, task(nil)}, now))
}
