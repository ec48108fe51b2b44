package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tasktracker/internal/mail"
)

// Processor turns outbox entries into mail deliveries.
type Processor struct {
	sender mail.Sender
	log    zerolog.Logger
}

func NewProcessor(sender mail.Sender, log zerolog.Logger) *Processor {
	return &Processor{sender: sender, log: log}
}

// Handle delivers one outbox entry. Entries that can never be delivered are
// logged and dropped so they do not cycle through the pending list forever.
func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	job, err := mail.DecodeJob(msg.Values)
	if err != nil {
		if errors.Is(err, mail.ErrUnknownKind) || errors.Is(err, mail.ErrMissingField) {
			p.log.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping malformed mail job")
			return nil
		}
		return fmt.Errorf("decode job: %w", err)
	}

	if err := mail.Deliver(ctx, p.sender, job); err != nil {
		p.log.Error().
			Err(err).
			Str("message_id", msg.ID).
			Str("kind", string(job.Kind)).
			Str("to", job.Email).
			Msg("mail delivery failed")
		return err
	}

	p.log.Info().
		Str("message_id", msg.ID).
		Str("kind", string(job.Kind)).
		Str("to", job.Email).
		Msg("mail delivered")
	return nil
}
