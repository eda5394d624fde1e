package email

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Message is a single outbound plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Service delivers email to patients and staff.
type Service interface {
	Send(ctx context.Context, msg *Message) error
}

type noopService struct{}

// NewNoopService returns a sender that drops mail. Wired when SMTP is
// not configured so callers never have to nil-check.
func NewNoopService() Service {
	return noopService{}
}

func (noopService) Send(_ context.Context, msg *Message) error {
	log.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("email delivery disabled, dropping message")
	return nil
}
