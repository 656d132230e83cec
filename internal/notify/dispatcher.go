// Package notify delivers invitation emails.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/teamseats/pkg/logger"
	"github.com/charlesng35/teamseats/pkg/mail"
	"github.com/charlesng35/teamseats/pkg/metrics"
)

// ErrDispatchFailed wraps every delivery failure.
var ErrDispatchFailed = errors.New("notify: dispatch failed")

const invitationSubject = "Team Invitation"

// Notification is the content of one invitation email.
type Notification struct {
	RecipientEmail string
	RecipientName  string
	Role           string
	AcceptURL      string
	DeclineURL     string
	ExpiresIn      time.Duration
}

// Dispatcher sends invitation notifications. Implementations do not retry.
type Dispatcher interface {
	Dispatch(ctx context.Context, notification Notification) error
}

// Links builds the accept and decline URLs for token under appURL.
func Links(appURL, token string) (accept, decline string) {
	base := strings.TrimRight(strings.TrimSpace(appURL), "/")
	escaped := url.QueryEscape(token)
	accept = fmt.Sprintf("%s/api/invitation/accept?token=%s", base, escaped)
	decline = fmt.Sprintf("%s/api/invitation/decline?token=%s", base, escaped)
	return accept, decline
}

// MailOption customises a MailDispatcher.
type MailOption func(*MailDispatcher)

// WithSender overrides the From address of outgoing messages.
func WithSender(from string) MailOption {
	return func(d *MailDispatcher) {
		d.from = strings.TrimSpace(from)
	}
}

// WithRequireDelivery makes a disabled mailer count as a failure instead of
// being logged and skipped.
func WithRequireDelivery(required bool) MailOption {
	return func(d *MailDispatcher) {
		d.requireDelivery = required
	}
}

// MailDispatcher renders invitations and hands them to a mail.Mailer.
type MailDispatcher struct {
	mailer          mail.Mailer
	from            string
	requireDelivery bool
	log             *zap.Logger
}

var _ Dispatcher = (*MailDispatcher)(nil)

// NewMailDispatcher constructs a MailDispatcher.
func NewMailDispatcher(mailer mail.Mailer, opts ...MailOption) (*MailDispatcher, error) {
	if mailer == nil {
		return nil, errors.New("notify: mailer is required")
	}
	d := &MailDispatcher{
		mailer: mailer,
		log:    logger.WithModule("notify"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch renders and sends the notification.
func (d *MailDispatcher) Dispatch(ctx context.Context, n Notification) error {
	if strings.TrimSpace(n.RecipientEmail) == "" {
		return fmt.Errorf("%w: recipient is required", ErrDispatchFailed)
	}
	if n.AcceptURL == "" || n.DeclineURL == "" {
		return fmt.Errorf("%w: accept and decline links are required", ErrDispatchFailed)
	}

	msg, err := Render(n)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	msg.From = d.from

	err = d.mailer.Send(ctx, msg)
	switch {
	case err == nil:
		d.log.Info("invitation email sent", zap.String("recipient", n.RecipientEmail))
		return nil
	case errors.Is(err, mail.ErrSMTPDisabled) && !d.requireDelivery:
		d.log.Warn("smtp disabled; invitation email not sent",
			zap.String("recipient", n.RecipientEmail),
			zap.String("accept_url", n.AcceptURL),
		)
		return nil
	default:
		metrics.DispatchFailures.Inc()
		d.log.Error("invitation email failed", zap.String("recipient", n.RecipientEmail), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}
}

// Render builds the email message for a notification.
func Render(n Notification) (mail.Message, error) {
	data := templateData{
		Name:       strings.TrimSpace(n.RecipientName),
		Role:       n.Role,
		AcceptURL:  n.AcceptURL,
		DeclineURL: n.DeclineURL,
		ExpiresIn:  humanDays(n.ExpiresIn),
	}
	if data.Name == "" {
		data.Name = "there"
	}

	var text bytes.Buffer
	if err := plainTemplate.Execute(&text, data); err != nil {
		return mail.Message{}, fmt.Errorf("render text body: %w", err)
	}
	var html bytes.Buffer
	if err := htmlTemplate.Execute(&html, data); err != nil {
		return mail.Message{}, fmt.Errorf("render html body: %w", err)
	}

	return mail.Message{
		To:       []string{strings.TrimSpace(n.RecipientEmail)},
		Subject:  invitationSubject,
		Body:     text.String(),
		HTMLBody: html.String(),
	}, nil
}

type templateData struct {
	Name       string
	Role       string
	AcceptURL  string
	DeclineURL string
	ExpiresIn  string
}

func humanDays(d time.Duration) string {
	if d <= 0 {
		d = 7 * 24 * time.Hour
	}
	days := int((d + 12*time.Hour) / (24 * time.Hour))
	if days <= 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

var plainTemplate = texttemplate.Must(texttemplate.New("invitation.txt").Parse(`Hello {{.Name}},

You have been invited to join a team with the role of {{.Role}}.

Accept the invitation: {{.AcceptURL}}
Decline the invitation: {{.DeclineURL}}

This invitation will expire in {{.ExpiresIn}}.
`))

var htmlTemplate = htmltemplate.Must(htmltemplate.New("invitation.html").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Team Invitation</h2>
  <p>Hello {{.Name}},</p>
  <p>You have been invited to join a team with the role of {{.Role}}.</p>
  <p>Please click one of the buttons below to accept or decline this invitation:</p>
  <div style="margin: 20px 0;">
    <a href="{{.AcceptURL}}" style="background-color: #4CAF50; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; margin-right: 10px;">Accept Invitation</a>
    <a href="{{.DeclineURL}}" style="background-color: #f44336; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">Decline Invitation</a>
  </div>
  <p>This invitation will expire in {{.ExpiresIn}}.</p>
</div>
`))
