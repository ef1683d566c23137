package worktime

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"workguard/internal/megaplan"
	"workguard/internal/notify"
)

// Notifier emails each violating comment's author. Recipients without a
// resolvable company address are silently skipped.
type Notifier struct {
	sender notify.Notifier
	svc    *megaplan.Service
	domain string
	log    zerolog.Logger
}

func (n *Notifier) SendAll(ctx context.Context, violations []Violation, now time.Time) {
	sent, failed := 0, 0
	for _, v := range violations {
		if err := n.sendOne(ctx, v, now); err != nil {
			failed++
			n.log.Error().Err(err).Str("task", v.Task.ID).Msg("notification failed")
			continue
		}
		sent++
	}
	n.log.Debug().Int("sent", sent).Int("failed", failed).Msg("worktime notifications done")
}

func (n *Notifier) sendOne(ctx context.Context, v Violation, now time.Time) error {
	author := v.Comment.Author
	if author == nil || author.ID == "" {
		return nil
	}
	emp, err := n.svc.FetchEmployeeByID(ctx, author.ID)
	if err != nil || emp == nil || emp.Email == "" {
		return nil
	}
	if !megaplan.IsValidCompanyEmail(emp.Email, n.domain) {
		return nil
	}

	data := map[string]string{
		"DATE":            now.Format("2006-01-02"),
		"EMPLOYEE_NAME":   displayName(emp.Name),
		"TASK_ID":         v.Task.ID,
		"TASK_URL":        n.svc.TaskURL(v.Task.ID),
		"COMMENT_DATE":    v.Comment.CreatedAt.Format("2006-01-02"),
		"WORK_DATE":       v.Comment.WorkDate.Format("2006-01-02"),
		"DAYS_DIFF":       fmt.Sprintf("%d", v.DaysDifference),
		"HOURS":           fmt.Sprintf("%.1f", v.Comment.WorkHours),
		"COMMENT_EXCERPT": excerpt(v.Comment.Content),
	}
	subject := "Time-tracking inconsistency: " + displayName(emp.Name)
	return n.sender.Send(emp.Email, subject, "worktime.html", data)
}

func displayName(name string) string {
	if name == "" {
		return "colleague"
	}
	return name
}

func excerpt(content string) string {
	if content == "" {
		return "(no description)"
	}
	return megaplan.Truncate(content, 200)
}
