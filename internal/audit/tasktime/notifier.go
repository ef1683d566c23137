package tasktime

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"workguard/internal/audit"
	"workguard/internal/megaplan"
	"workguard/internal/notify"
)

// Notifier emails the responsible party of each overrunning task.
type Notifier struct {
	sender notify.Notifier
	svc    *megaplan.Service
	domain string
	log    zerolog.Logger
}

func (n *Notifier) SendAll(violations []*audit.Task, now time.Time) {
	sent, failed := 0, 0
	for _, t := range violations {
		if err := n.sendOne(t, now); err != nil {
			failed++
			n.log.Error().Err(err).Str("task", t.ID).Msg("notification failed")
			continue
		}
		sent++
	}
	n.log.Debug().Int("sent", sent).Int("failed", failed).Msg("tasktime notifications done")
}

func (n *Notifier) sendOne(t *audit.Task, now time.Time) error {
	// The checker already guarantees a responsible party with a department.
	resp := t.Responsible
	if resp == nil || resp.ID == "" {
		return nil
	}
	if !megaplan.IsValidCompanyEmail(resp.Email, n.domain) {
		return nil
	}

	diff := t.ActualHours - t.PlannedHours
	pct := 0.0
	if t.PlannedHours > 0 {
		pct = diff / t.PlannedHours * 100
	}

	data := map[string]string{
		"CHECK_DATE":       now.Format("02.01.2006 15:04"),
		"EMPLOYEE_NAME":    personName(resp),
		"TASK_NAME":        taskTitle(t.Name),
		"TASK_ID":          t.ID,
		"TASK_URL":         n.svc.TaskURL(t.ID),
		"PLANNED_HOURS":    fmt.Sprintf("%.1f", t.PlannedHours),
		"ACTUAL_HOURS":     fmt.Sprintf("%.1f", t.ActualHours),
		"HOURS_DIFF":       fmt.Sprintf("%.1f", diff),
		"PERCENT_DIFF":     fmt.Sprintf("%.0f", pct),
		"DEPARTMENT":       resp.Department.Name,
		"OWNER_NAME":       personName(t.Owner),
		"RESPONSIBLE_NAME": personName(resp),
		"LAST_ACTIVITY":    t.LastActivity.Format("02.01.2006 15:04"),
	}
	return n.sender.Send(resp.Email, "Work-hours estimate exceeded", "tasktime.html", data)
}

func personName(e *audit.Employee) string {
	if e == nil || e.Name == "" {
		return "(unknown)"
	}
	return e.Name
}

func taskTitle(name string) string {
	if name == "" {
		return "(untitled)"
	}
	return name
}
