package closedtask

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"workguard/internal/audit"
	"workguard/internal/megaplan"
	"workguard/internal/notify"
)

// Notifier groups violations by comment author and sends each employee a
// single digest covering all of their entries.
type Notifier struct {
	sender notify.Notifier
	svc    *megaplan.Service
	domain string
	log    zerolog.Logger
}

func (n *Notifier) SendAll(ctx context.Context, violations []Violation, now time.Time) {
	byAuthor := make(map[string][]Violation)
	var order []string
	for _, v := range violations {
		id := ""
		if v.Comment.Author != nil {
			id = v.Comment.Author.ID
		}
		if _, seen := byAuthor[id]; !seen {
			order = append(order, id)
		}
		byAuthor[id] = append(byAuthor[id], v)
	}

	sent, skipped := 0, 0
	for _, id := range order {
		if n.sendDigest(ctx, id, byAuthor[id], now) {
			sent++
		} else {
			skipped++
		}
	}
	n.log.Debug().Int("sent", sent).Int("skipped", skipped).Msg("closedtask digests done")
}

func (n *Notifier) sendDigest(ctx context.Context, authorID string, violations []Violation, now time.Time) bool {
	if authorID == "" {
		n.log.Warn().Int("violations", len(violations)).Msg("closed-task entries without an author, digest dropped")
		return false
	}
	emp, err := n.svc.FetchEmployeeByID(ctx, authorID)
	if err != nil || emp == nil || emp.Email == "" {
		n.log.Warn().Str("employee", authorID).Msg("no address for closed-task digest")
		return false
	}
	if !megaplan.IsValidCompanyEmail(emp.Email, n.domain) {
		return false
	}

	data := map[string]string{
		"DATE":             now.Format("02.01.2006 15:04"),
		"EMPLOYEE_NAME":    employeeName(emp),
		"VIOLATIONS_COUNT": fmt.Sprintf("%d", len(violations)),
		"VIOLATIONS_LIST":  n.renderList(violations),
	}
	if err := n.sender.Send(emp.Email, "Time logged on a closed task", "closedtask.html", data); err != nil {
		n.log.Error().Err(err).Str("employee", authorID).Msg("closedtask digest failed")
		return false
	}
	return true
}

func (n *Notifier) renderList(violations []Violation) string {
	var b strings.Builder
	b.WriteString(`<table cellpadding="6" style="border-collapse: collapse; border: 1px solid #ccc;">`)
	b.WriteString("<tr><th>Task</th><th>Status</th><th>Hours</th><th>Logged at</th></tr>")
	for _, v := range violations {
		fmt.Fprintf(&b,
			`<tr><td><a href="%s">%s</a></td><td>%s</td><td>%.1f</td><td>%s</td></tr>`,
			n.svc.TaskURL(v.Task.ID),
			html.EscapeString(taskTitle(v.Task.Name)),
			v.Task.Status,
			v.HoursAdded,
			v.Comment.CreatedAt.Format("02.01.2006 15:04"),
		)
	}
	b.WriteString("</table>")
	return b.String()
}

func employeeName(e *audit.Employee) string {
	if e == nil || e.Name == "" {
		return "colleague"
	}
	return e.Name
}

func taskTitle(name string) string {
	if name == "" {
		return "(untitled)"
	}
	return megaplan.Truncate(name, 80)
}
