package email

import (
	"log"
	"strings"
	"sync"
)

// ConsoleService prints mails instead of sending them. Used in development
// and by tests, which read SentMessages back.
type ConsoleService struct {
	logger *log.Logger

	mu   sync.Mutex
	sent []Message
}

var _ Service = (*ConsoleService)(nil)

func NewConsoleService(logger *log.Logger) *ConsoleService {
	return &ConsoleService{logger: logger}
}

func (svc *ConsoleService) SendMessages(messages ...*Message) {
	for _, msg := range messages {
		if !msg.HasRecipients() || !msg.HasContent() {
			continue
		}
		var to []string
		for _, addr := range msg.To {
			to = append(to, addr.String())
		}
		svc.logger.Printf("mail to %s: %s\n%s", strings.Join(to, ", "), msg.Subject, msg.TextBody)

		svc.mu.Lock()
		svc.sent = append(svc.sent, *msg)
		svc.mu.Unlock()
	}
}

// SentMessages returns a copy of everything "sent" so far.
func (svc *ConsoleService) SentMessages() []Message {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]Message(nil), svc.sent...)
}
