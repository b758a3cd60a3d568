package worker

// email_worker.go
// Processes email jobs from QueueEmail: supplier order reports with the PDF
// rendered at request time.

import (
	"context"
	"encoding/json"
	"fmt"

	"catalogdesk/internal/infra"

	"github.com/rs/zerolog/log"
)

// Sender delivers a mail. *infra.Mailer satisfies it.
type Sender interface {
	Send(msg infra.Message) error
}

// EmailWorker processes email jobs from QueueEmail.
type EmailWorker struct {
	mailer Sender
}

// NewEmailWorker creates an EmailWorker with the provided SMTP mailer.
func NewEmailWorker(mailer Sender) *EmailWorker {
	return &EmailWorker{mailer: mailer}
}

// Process sends one queued message. A malformed payload or a message without
// recipients is not retried.
func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var msg infra.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("%w: invalid payload: %v", ErrPermanent, err)
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("%w: no recipients", ErrPermanent)
	}

	if err := w.mailer.Send(msg); err != nil {
		log.Warn().Err(err).Strs("to", msg.To).Msg("email_worker: send failed")
		return err
	}
	log.Info().Strs("to", msg.To).Str("subject", msg.Subject).
		Int("attachments", len(msg.Attachments)).Msg("email_worker: mail sent")
	return nil
}
