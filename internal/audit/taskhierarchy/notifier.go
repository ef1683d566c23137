package taskhierarchy

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"workguard/internal/megaplan"
	"workguard/internal/notify"
)

// Notifier sends a single digest of all anomalies to the configured
// admin address. Hierarchy violations point at data manipulation rather
// than a specific employee, so the whole batch goes to one reviewer.
type Notifier struct {
	sender notify.Notifier
	svc    *megaplan.Service
	admin  string
	log    zerolog.Logger
}

func (n *Notifier) SendDigest(violations []Violation, maxGap int64, now time.Time) {
	if n.admin == "" {
		n.log.Warn().Msg("no admin recipient configured, hierarchy digest dropped")
		return
	}

	data := map[string]string{
		"CHECK_DATE":       now.Format("2006-01-02"),
		"VIOLATIONS_COUNT": fmt.Sprintf("%d", len(violations)),
		"MAX_HOURS":        fmt.Sprintf("%d", maxGap),
		"VIOLATIONS_LIST":  n.renderList(violations),
	}
	subject := fmt.Sprintf("Task hierarchy audit: %d anomalies", len(violations))
	if err := n.sender.Send(n.admin, subject, "taskhierarchy.html", data); err != nil {
		n.log.Error().Err(err).Str("recipient", n.admin).Msg("hierarchy digest failed")
		return
	}
	n.log.Debug().Int("violations", len(violations)).Msg("hierarchy digest sent")
}

func (n *Notifier) renderList(violations []Violation) string {
	var b strings.Builder
	b.WriteString(`<table cellpadding="6" style="border-collapse: collapse; border: 1px solid #ccc;">`)
	b.WriteString("<tr><th>Parent</th><th>Created</th><th>Subtask</th><th>Created</th><th>Gap (h)</th></tr>")
	for _, v := range violations {
		fmt.Fprintf(&b,
			`<tr><td><a href="%s">%s</a></td><td>%s</td><td><a href="%s">%s</a></td><td>%s</td><td>%d</td></tr>`,
			n.svc.TaskURL(v.Parent.ID),
			html.EscapeString(taskName(v.Parent.Name)),
			v.Parent.CreatedAt.Format("2006-01-02 15:04"),
			n.svc.TaskURL(v.Subtask.ID),
			html.EscapeString(taskName(v.Subtask.Name)),
			v.Subtask.CreatedAt.Format("2006-01-02 15:04"),
			v.HoursDifference,
		)
	}
	b.WriteString("</table>")
	return b.String()
}

func taskName(name string) string {
	if name == "" {
		return "(untitled)"
	}
	return megaplan.Truncate(name, 80)
}
