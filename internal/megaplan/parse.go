package megaplan

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"workguard/internal/audit"
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

var htmlEntities = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
)

// CleanHTML strips tags, decodes the common entities and collapses
// whitespace. Comment content is stored already cleaned.
func CleanHTML(content string) string {
	s := htmlTagRe.ReplaceAllString(content, "")
	s = htmlEntities.Replace(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// parser converts wire payloads into audit entities, normalizing every
// timestamp into a single time zone at the boundary.
type parser struct {
	loc         *time.Location
	emailDomain string
}

func (p *parser) task(raw json.RawMessage) (*audit.Task, error) {
	var tp taskPayload
	if err := json.Unmarshal(raw, &tp); err != nil {
		return nil, fmt.Errorf("task payload: %w", err)
	}
	if tp.ID == "" {
		return nil, fmt.Errorf("task payload: missing id")
	}

	t := &audit.Task{
		ID:           tp.ID,
		Name:         tp.Name,
		Status:       tp.Status,
		Owner:        p.employee(tp.Owner),
		Responsible:  p.employee(tp.Responsible),
		CreatedAt:    p.date(tp.TimeCreated),
		LastActivity: p.date(tp.Activity),
		PlannedHours: hours(tp.PlannedWork),
		ActualHours:  hours(tp.ActualWork),
	}
	for _, ref := range tp.SubTasks {
		if ref.ID != "" {
			t.SubtaskIDs = append(t.SubtaskIDs, ref.ID)
		}
	}
	return t, nil
}

func (p *parser) comment(raw json.RawMessage, taskID string) (*audit.TaskComment, error) {
	var cp commentPayload
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, fmt.Errorf("comment payload: %w", err)
	}

	// Comment parsing only yields the author id; the full record is
	// resolved through the employee cache when a checker needs it.
	var author *audit.Employee
	if cp.Owner != nil && cp.Owner.ID != "" {
		author = &audit.Employee{ID: cp.Owner.ID}
	}

	return &audit.TaskComment{
		ID:        cp.ID,
		Content:   CleanHTML(cp.Content),
		Author:    author,
		CreatedAt: p.date(cp.TimeCreated),
		WorkDate:  p.date(cp.WorkDate),
		WorkHours: hours(cp.WorkTime),
		TaskID:    taskID,
	}, nil
}

func (p *parser) employee(ep *employeePayload) *audit.Employee {
	if ep == nil || ep.ID == "" {
		return nil
	}
	e := &audit.Employee{
		ID:       ep.ID,
		Name:     ep.Name,
		Position: ep.Position,
		Email:    p.findEmail(ep.ContactInfo),
	}
	if ep.Department != nil && ep.Department.ID != "" {
		e.Department = &audit.Department{ID: ep.Department.ID, Name: ep.Department.Name}
	}
	return e
}

// findEmail picks the first valid company email from the contact list.
func (p *parser) findEmail(contacts []contactInfo) string {
	for _, c := range contacts {
		if c.Type != "email" || c.Value == "" {
			continue
		}
		if IsValidCompanyEmail(c.Value, p.emailDomain) {
			return c.Value
		}
	}
	return ""
}

// date parses the wrapped ISO timestamp and converts it into the
// parser's time zone. A missing or malformed value degrades to zero.
func (p *parser) date(dp *datePayload) time.Time {
	if dp == nil || dp.Value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, dp.Value)
	if err != nil {
		return time.Time{}
	}
	return t.In(p.loc)
}

// hours converts the API's seconds-valued durations to fractional hours.
func hours(dp *durationPayload) float64 {
	if dp == nil {
		return 0
	}
	return dp.Value / 3600.0
}

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

// IsValidEmail applies the same shape checks the notifier uses before
// addressing a message.
func IsValidEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	if strings.Contains(email, "..") || strings.HasPrefix(email, ".") || strings.HasSuffix(email, ".") {
		return false
	}
	return emailRe.MatchString(email)
}

// IsValidCompanyEmail additionally requires the configured domain.
// An empty domain disables the restriction.
func IsValidCompanyEmail(email, domain string) bool {
	if !IsValidEmail(email) {
		return false
	}
	if domain == "" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(email), "@"+strings.ToLower(domain))
}

// Truncate shortens s to at most max runes, appending an ellipsis.
func Truncate(s string, max int) string {
	if max < 0 || len([]rune(s)) <= max {
		return s
	}
	r := []rune(s)
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
