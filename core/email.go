package core

import "net/mail"

// EmailMessage is a plain-text message ready for an EmailService.
type EmailMessage struct {
	To          []mail.Address
	Subject     string
	TextContent string
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return m.TextContent != "" }

// EmailService dispatches messages. Implementations send asynchronously and
// report failures through their own logger.
type EmailService interface {
	SendMessages(messages ...*EmailMessage)
}
