package mail

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"

	"tasktracker/internal/config"
)

// SMTPSender renders and delivers messages over SMTP.
type SMTPSender struct {
	from     string
	renderer *Renderer
	client   *gomail.Client
	deliver  func(ctx context.Context, msg *gomail.Msg) error
}

func NewSMTPSender(cfg config.MailConfig, renderer *Renderer) (*SMTPSender, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.SMTP.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(sendTimeout(cfg.SendTimeout)),
	}
	if cfg.SMTP.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.SMTP.Username),
			gomail.WithPassword(cfg.SMTP.Password),
		)
	}

	client, err := gomail.NewClient(cfg.SMTP.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	s := &SMTPSender{from: cfg.From, renderer: renderer, client: client}
	s.deliver = func(ctx context.Context, msg *gomail.Msg) error {
		return s.client.DialAndSendWithContext(ctx, msg)
	}
	return s, nil
}

func (s *SMTPSender) SendActivation(ctx context.Context, email, username, activationID string) error {
	msg, err := s.renderer.Activation(email, username, activationID)
	if err != nil {
		return err
	}
	return s.send(ctx, msg)
}

func (s *SMTPSender) SendPasswordReset(ctx context.Context, email, token string) error {
	msg, err := s.renderer.PasswordReset(email, token)
	if err != nil {
		return err
	}
	return s.send(ctx, msg)
}

func (s *SMTPSender) send(ctx context.Context, m Message) error {
	msg, err := s.build(m)
	if err != nil {
		return err
	}
	if err := s.deliver(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) build(m Message) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(gomail.TypeTextHTML, m.HTML)
	return msg, nil
}

func sendTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}
