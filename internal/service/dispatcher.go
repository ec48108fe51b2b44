package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tasktracker/internal/mail"
)

// Dispatcher runs mail sends in background goroutines. Callers never wait
// for delivery and never see its errors.
type Dispatcher struct {
	sender  mail.Sender
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(sender mail.Sender, timeout time.Duration, log zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{sender: sender, timeout: timeout, log: log}
}

func (d *Dispatcher) Activation(email, username, activationID string) {
	d.dispatch(mail.KindActivation, email, func(ctx context.Context) error {
		return d.sender.SendActivation(ctx, email, username, activationID)
	})
}

func (d *Dispatcher) PasswordReset(email, token string) {
	d.dispatch(mail.KindPasswordReset, email, func(ctx context.Context) error {
		return d.sender.SendPasswordReset(ctx, email, token)
	})
}

func (d *Dispatcher) dispatch(kind mail.Kind, to string, send func(ctx context.Context) error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.Warn().Str("kind", string(kind)).Str("to", to).Msg("mail dropped after shutdown")
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		// Detached from the request context so the response can finish first.
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := send(ctx); err != nil {
			d.log.Error().Err(err).Str("kind", string(kind)).Str("to", to).Msg("mail dispatch failed")
			return
		}
		d.log.Debug().Str("kind", string(kind)).Str("to", to).Msg("mail dispatched")
	}()
}

// Close stops accepting sends, then waits like Wait.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return d.Wait(ctx)
}

// Wait blocks until in-flight sends finish or ctx is done. Sends may still be
// started while it waits; use Close at shutdown.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
