package core

import (
	"errors"
	"net/mail"
)

// ErrMailNotSent is returned when a message could not be delivered.
// Callers that gate persistence on delivery must not persist when this is returned.
var ErrMailNotSent = errors.New("mail could not be sent")

type (
	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		TextContent string
		HTMLContent string
	}

	// EmailService is any service that can send emails.
	// SendMessage blocks until the message is accepted or rejected by the
	// transport; implementations bound the attempt with their own timeout.
	EmailService interface {
		SendMessage(msg *EmailMessage) error
	}
)

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }
