package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSameDay(t *testing.T) {
	morning := time.Date(2025, 3, 10, 0, 5, 0, 0, time.UTC)
	evening := time.Date(2025, 3, 10, 23, 55, 0, 0, time.UTC)
	nextDay := time.Date(2025, 3, 11, 0, 5, 0, 0, time.UTC)

	assert.True(t, SameDay(morning, evening))
	assert.False(t, SameDay(evening, nextDay))
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
	b := time.Date(2025, 3, 8, 1, 0, 0, 0, time.UTC)

	assert.Equal(t, 2, DaysBetween(a, b))
	assert.Equal(t, -2, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))
	// Clock time never contributes, only the calendar day.
	assert.Equal(t, 1, DaysBetween(
		time.Date(2025, 3, 11, 0, 1, 0, 0, time.UTC),
		time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC),
	))
}

func TestInWindow(t *testing.T) {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	assert.False(t, InWindow(start, start, end), "start is exclusive")
	assert.True(t, InWindow(end, start, end), "end is inclusive")
	assert.True(t, InWindow(start.Add(time.Hour), start, end))
	assert.False(t, InWindow(end.Add(time.Second), start, end))
	assert.False(t, InWindow(time.Time{}, start, end))
}

func TestTaskClosed(t *testing.T) {
	assert.True(t, (&Task{Status: StatusCompleted}).Closed())
	assert.True(t, (&Task{Status: StatusDone}).Closed())
	assert.False(t, (&Task{Status: StatusOpen}).Closed())
	assert.False(t, (&Task{Status: StatusInProgress}).Closed())
	assert.False(t, (&Task{Status: StatusAccepted}).Closed())
}

func TestCommentHasWorkTime(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.True(t, (&TaskComment{WorkHours: 2, WorkDate: day}).HasWorkTime())
	assert.False(t, (&TaskComment{WorkHours: 0, WorkDate: day}).HasWorkTime())
	assert.False(t, (&TaskComment{WorkHours: 2}).HasWorkTime())
}
