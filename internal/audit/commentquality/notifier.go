package commentquality

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"workguard/internal/megaplan"
	"workguard/internal/notify"
)

// Notifier emails the author of each failed description individually.
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
	n.log.Debug().Int("sent", sent).Int("failed", failed).Msg("commentquality notifications done")
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

	name := emp.Name
	if name == "" {
		name = "colleague"
	}
	data := map[string]string{
		"CHECK_DATE":      now.Format("02.01.2006 15:04"),
		"EMPLOYEE_NAME":   name,
		"TASK_ID":         v.Task.ID,
		"TASK_NAME":       taskTitle(v.Task.Name),
		"TASK_URL":        n.svc.TaskURL(v.Task.ID),
		"COMMENT_DATE":    v.Comment.CreatedAt.Format("02.01.2006 15:04"),
		"WORK_HOURS":      fmt.Sprintf("%.1f", v.Comment.WorkHours),
		"COMMENT_EXCERPT": excerpt(v.Comment.Content),
		"TOTAL_SCORE":     fmt.Sprintf("%.1f", v.Result.TotalScore),
		"REALISM_SCORE":   fmt.Sprintf("%d", v.Result.RealismScore),
		"CONCRETE_SCORE":  fmt.Sprintf("%d", v.Result.ConcreteScore),
		"REASON":          v.Result.Reason,
	}
	subject := "Low-quality work description: " + name
	return n.sender.Send(emp.Email, subject, "commentquality.html", data)
}

func taskTitle(name string) string {
	if name == "" {
		return "(untitled)"
	}
	return name
}

func excerpt(content string) string {
	if content == "" {
		return "(no description)"
	}
	return megaplan.Truncate(content, 500)
}
