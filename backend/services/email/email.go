package email

import "net/mail"

// Message is one outgoing mail.
type Message struct {
	To       []mail.Address
	Subject  string
	TextBody string
	HTMLBody string
}

// HasRecipients reports whether the message can be delivered at all.
func (m Message) HasRecipients() bool { return len(m.To) > 0 }

// HasContent reports whether there is anything to deliver.
func (m Message) HasContent() bool { return m.TextBody != "" || m.HTMLBody != "" }

// Service delivers messages asynchronously; failures are logged, never
// returned to the request path.
type Service interface {
	SendMessages(messages ...*Message)
}
