// Package notify delivers violation notifications. Audit modules talk to
// the Notifier contract; the email implementation renders an embedded
// template and hands the result to SMTP with retry.
package notify

// Notifier turns violation context into a delivered message.
type Notifier interface {
	Send(recipient, subject, templateKey string, data map[string]string) error
}

// Discard is a no-op Notifier for dry runs and tests.
type Discard struct{}

func (Discard) Send(string, string, string, map[string]string) error { return nil }
