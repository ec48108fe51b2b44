package mail

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender writes mail to the log instead of sending it. Links are logged
// at debug level only.
type LogSender struct {
	renderer *Renderer
	log      zerolog.Logger
}

func NewLogSender(renderer *Renderer, log zerolog.Logger) *LogSender {
	return &LogSender{renderer: renderer, log: log}
}

func (s *LogSender) SendActivation(_ context.Context, email, username, activationID string) error {
	s.log.Info().Str("kind", string(KindActivation)).Str("to", email).Str("username", username).Msg("mail suppressed")
	s.log.Debug().Str("link", s.renderer.ActivationLink(activationID)).Msg("activation link")
	return nil
}

func (s *LogSender) SendPasswordReset(_ context.Context, email, token string) error {
	s.log.Info().Str("kind", string(KindPasswordReset)).Str("to", email).Msg("mail suppressed")
	s.log.Debug().Str("link", s.renderer.ResetLink(token)).Msg("password reset link")
	return nil
}
