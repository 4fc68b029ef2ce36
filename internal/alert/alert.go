// Package alert sends e-mail when the humidity warning changes.
package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	mailgun "github.com/mailgun/mailgun-go/v3"

	"github.com/sweeney/filament-monitor/internal/logic"
)

// SendTimeout bounds a single send.
const SendTimeout = 10 * time.Second

// Notifier delivers an alert message.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// Config holds the mailgun account and addresses.
type Config struct {
	Domain     string
	APIKey     string
	Sender     string
	Recipients []string
}

// Enabled reports whether enough is configured to send mail.
func (c Config) Enabled() bool {
	return c.Domain != "" && c.APIKey != "" && c.Sender != "" && len(c.Recipients) > 0
}

// ErrNoMessageID is returned when mailgun accepts the request but assigns no ID.
var ErrNoMessageID = errors.New("mailgun returned no message id")

// Mailgun sends alerts through the mailgun API.
type Mailgun struct {
	mg         mailgun.Mailgun
	sender     string
	recipients []string
}

// NewMailgun creates a mailgun notifier.
func NewMailgun(cfg Config) *Mailgun {
	return &Mailgun{
		mg:         mailgun.NewMailgun(cfg.Domain, cfg.APIKey),
		sender:     cfg.Sender,
		recipients: cfg.Recipients,
	}
}

// Notify sends one message to every recipient.
func (m *Mailgun) Notify(ctx context.Context, subject, body string) error {
	message := m.mg.NewMessage(m.sender, subject, body, m.recipients...)

	ctx, cancel := context.WithTimeout(ctx, SendTimeout)
	defer cancel()

	resp, id, err := m.mg.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	if id == "" {
		return fmt.Errorf("%w: %s", ErrNoMessageID, resp)
	}
	return nil
}

// Message builds the subject and body for a warning transition.
// ok is false for transitions that do not warrant an e-mail.
func Message(t logic.Transition, r logic.Readings, limit float64) (subject, body string, ok bool) {
	switch t {
	case logic.TransitionRaised:
		subject = fmt.Sprintf("Filament enclosure humidity high: %.1f%%", r.AverageHumidity)
	case logic.TransitionCleared:
		subject = fmt.Sprintf("Filament enclosure humidity back to normal: %.1f%%", r.AverageHumidity)
	default:
		return "", "", false
	}

	body = fmt.Sprintf(
		"%s\n\nAverage humidity: %.1f%% (limit %.1f%%)\nAverage temperature: %.1f C\n"+
			"Sensor 1: %.1f C, %.1f%%\nSensor 2: %.1f C, %.1f%%\nTime: %s\n",
		t, r.AverageHumidity, limit, r.AverageTemperature,
		r.Temperature1, r.Humidity1, r.Temperature2, r.Humidity2,
		r.Time.UTC().Format(time.RFC3339),
	)
	return subject, body, true
}
