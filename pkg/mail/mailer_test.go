package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSendDisabled(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: false})
	require.NoError(t, err)

	err = mailer.Send(context.Background(), Message{To: "worker@example.org", Subject: "hi", HTML: "<p>hi</p>"})
	require.ErrorIs(t, err, ErrSMTPDisabled)
}

func TestNewSMTPMailerValidation(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{Enabled: true, Port: 587})
	require.Error(t, err)

	_, err = NewSMTPMailer(SMTPSettings{Enabled: true, Host: "mail.example.org"})
	require.Error(t, err)
}

func TestFormatMessage(t *testing.T) {
	raw := formatMessage("center@example.org", "worker@example.org", "Shift covered\r\nX-Evil: 1", "<p>done</p>")

	require.Contains(t, raw, "Subject: Shift covered X-Evil: 1")
	require.Contains(t, raw, "Content-Type: text/html; charset=UTF-8")
	require.Contains(t, raw, "\r\n\r\n<p>done</p>")
}
