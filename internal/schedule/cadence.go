package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cadence is a six-field cron-style schedule matched against wall-clock
// timestamps at second resolution:
//
//	seconds minutes hours day-of-month month day-of-week
//
// Each field is "*", a single value, or a comma-separated list. Ranges and
// steps ("1-5", "*/5") are deliberately not supported; a timestamp matches
// when every component is a member of the corresponding set. Weekdays use
// 0-6 with 0 = Sunday.
type Cadence struct {
	raw      string
	seconds  fieldSet
	minutes  fieldSet
	hours    fieldSet
	days     fieldSet
	months   fieldSet
	weekdays fieldSet
}

// fieldSet is a membership bitmap over 0..63, enough for every cadence field.
type fieldSet uint64

func (s fieldSet) has(v int) bool { return v >= 0 && v < 64 && s&(1<<uint(v)) != 0 }

// ParseCadence parses expr and rejects anything outside the supported
// wildcard/list/singleton grammar or the per-field value range.
func ParseCadence(expr string) (*Cadence, error) {
	parts := strings.Fields(expr)
	if len(parts) != 6 {
		return nil, fmt.Errorf("cadence %q: want 6 fields, got %d", expr, len(parts))
	}

	c := &Cadence{raw: expr}
	specs := []struct {
		dst      *fieldSet
		name     string
		min, max int
	}{
		{&c.seconds, "seconds", 0, 59},
		{&c.minutes, "minutes", 0, 59},
		{&c.hours, "hours", 0, 23},
		{&c.days, "day-of-month", 1, 31},
		{&c.months, "month", 1, 12},
		{&c.weekdays, "day-of-week", 0, 6},
	}
	for i, spec := range specs {
		set, err := parseField(parts[i], spec.min, spec.max)
		if err != nil {
			return nil, fmt.Errorf("cadence %q: %s field: %w", expr, spec.name, err)
		}
		*spec.dst = set
	}
	return c, nil
}

func parseField(field string, min, max int) (fieldSet, error) {
	if field == "*" {
		var s fieldSet
		for v := min; v <= max; v++ {
			s |= 1 << uint(v)
		}
		return s, nil
	}

	var s fieldSet
	for _, part := range strings.Split(field, ",") {
		v, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("invalid value %q", part)
		}
		if v < min || v > max {
			return 0, fmt.Errorf("value %d out of range [%d,%d]", v, min, max)
		}
		s |= 1 << uint(v)
	}
	return s, nil
}

// Matches reports whether t (truncated to seconds) satisfies every field.
func (c *Cadence) Matches(t time.Time) bool {
	return c.seconds.has(t.Second()) &&
		c.minutes.has(t.Minute()) &&
		c.hours.has(t.Hour()) &&
		c.days.has(t.Day()) &&
		c.months.has(int(t.Month())) &&
		c.weekdays.has(int(t.Weekday()))
}

func (c *Cadence) String() string { return c.raw }
