package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/teamseats/pkg/mail"
)

type recordingMailer struct {
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestLinks(t *testing.T) {
	accept, decline := Links("https://app.example.com/", "a+b/c")
	require.Equal(t, "https://app.example.com/api/invitation/accept?token=a%2Bb%2Fc", accept)
	require.Equal(t, "https://app.example.com/api/invitation/decline?token=a%2Bb%2Fc", decline)
}

func TestNewMailDispatcherRequiresMailer(t *testing.T) {
	_, err := NewMailDispatcher(nil)
	require.Error(t, err)
}

func TestDispatchSendsInvitation(t *testing.T) {
	mailer := &recordingMailer{}
	dispatcher, err := NewMailDispatcher(mailer, WithSender("team@example.com"))
	require.NoError(t, err)

	accept, decline := Links("https://app.example.com", "tok")
	err = dispatcher.Dispatch(context.Background(), Notification{
		RecipientEmail: "alice@x.com",
		RecipientName:  "Alice",
		Role:           "editor",
		AcceptURL:      accept,
		DeclineURL:     decline,
		ExpiresIn:      7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)

	msg := mailer.sent[0]
	require.Equal(t, []string{"alice@x.com"}, msg.To)
	require.Equal(t, "team@example.com", msg.From)
	require.Equal(t, "Team Invitation", msg.Subject)
	require.Contains(t, msg.Body, "Hello Alice,")
	require.Contains(t, msg.Body, "role of editor")
	require.Contains(t, msg.Body, accept)
	require.Contains(t, msg.Body, decline)
	require.Contains(t, msg.Body, "expire in 7 days")
	require.Contains(t, msg.HTMLBody, `href="https://app.example.com/api/invitation/accept?token=tok"`)
	require.Contains(t, msg.HTMLBody, "Decline Invitation")
}

func TestDispatchEscapesHTML(t *testing.T) {
	msg, err := Render(Notification{
		RecipientEmail: "x@x.com",
		RecipientName:  "<script>alert(1)</script>",
		Role:           "viewer",
		AcceptURL:      "https://a",
		DeclineURL:     "https://d",
	})
	require.NoError(t, err)
	require.False(t, strings.Contains(msg.HTMLBody, "<script>"))
	require.Contains(t, msg.Body, "expire in 7 days")
}

func TestDispatchWrapsFailures(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("connection refused")}
	dispatcher, err := NewMailDispatcher(mailer)
	require.NoError(t, err)

	err = dispatcher.Dispatch(context.Background(), Notification{
		RecipientEmail: "alice@x.com",
		AcceptURL:      "https://a",
		DeclineURL:     "https://d",
	})
	require.ErrorIs(t, err, ErrDispatchFailed)
	require.Contains(t, err.Error(), "connection refused")

	err = dispatcher.Dispatch(context.Background(), Notification{AcceptURL: "https://a", DeclineURL: "https://d"})
	require.ErrorIs(t, err, ErrDispatchFailed)
}

func TestDispatchDisabledMailer(t *testing.T) {
	mailer := &recordingMailer{err: mail.ErrSMTPDisabled}
	n := Notification{RecipientEmail: "alice@x.com", AcceptURL: "https://a", DeclineURL: "https://d"}

	lenient, err := NewMailDispatcher(mailer)
	require.NoError(t, err)
	require.NoError(t, lenient.Dispatch(context.Background(), n))

	strict, err := NewMailDispatcher(mailer, WithRequireDelivery(true))
	require.NoError(t, err)
	require.ErrorIs(t, strict.Dispatch(context.Background(), n), ErrDispatchFailed)
}

func TestHumanDays(t *testing.T) {
	require.Equal(t, "7 days", humanDays(0))
	require.Equal(t, "1 day", humanDays(time.Hour))
	require.Equal(t, "3 days", humanDays(72*time.Hour))
}
