package notify

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"gopkg.in/gomail.v2"

	"workguard/internal/metrics"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	InsecureSkipVerify bool

	RetryCount     int           // additional attempts after the first
	RetryBase      time.Duration // doubled per attempt
	RatePerMinute  int           // submission pacing toward the relay
}

func (c SMTPConfig) withDefaults() SMTPConfig {
	if c.RetryCount <= 0 {
		c.RetryCount = 3
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 500 * time.Millisecond
	}
	if c.RatePerMinute <= 0 {
		c.RatePerMinute = 30
	}
	return c
}

// EmailNotifier renders templates and sends through SMTP. Port 465 uses
// implicit TLS; anything else negotiates STARTTLS.
type EmailNotifier struct {
	cfg      SMTPConfig
	dialer   *gomail.Dialer
	renderer Renderer
	limiter  *rate.Limiter
	log      zerolog.Logger
}

func NewEmailNotifier(cfg SMTPConfig, log zerolog.Logger) *EmailNotifier {
	cfg = cfg.withDefaults()
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.Port == 465
	if cfg.InsecureSkipVerify {
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &EmailNotifier{
		cfg:     cfg,
		dialer:  d,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60.0), 1),
		log:     log,
	}
}

// Send renders templateKey with data and delivers the result, retrying
// transient SMTP failures with exponential backoff.
func (n *EmailNotifier) Send(recipient, subject, templateKey string, data map[string]string) error {
	body, err := n.renderer.Render(templateKey, data)
	if err != nil {
		metrics.EmailsSent.WithLabelValues("error").Inc()
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", n.from())
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	_ = n.limiter.Wait(context.Background())

	var lastErr error
	delay := n.cfg.RetryBase
	for attempt := 0; attempt <= n.cfg.RetryCount; attempt++ {
		err := n.dialer.DialAndSend(msg)
		if err == nil {
			metrics.EmailsSent.WithLabelValues("ok").Inc()
			n.log.Debug().Str("to", recipient).Str("template", templateKey).Msg("email sent")
			return nil
		}
		lastErr = err
		if attempt < n.cfg.RetryCount {
			n.log.Warn().Err(lastErr).Int("attempt", attempt+1).Msg("smtp send failed, retrying")
			time.Sleep(delay)
			delay *= 2
		}
	}

	metrics.EmailsSent.WithLabelValues("error").Inc()
	n.log.Error().Err(lastErr).Str("to", recipient).Msg("smtp send failed, giving up")
	return lastErr
}

func (n *EmailNotifier) from() string {
	if n.cfg.From != "" {
		return n.cfg.From
	}
	return n.cfg.Username
}
