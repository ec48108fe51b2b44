package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/mail"
)

type fakeSender struct {
	err         error
	activations []string
	resets      []string
}

func (f *fakeSender) SendActivation(_ context.Context, email, username, activationID string) error {
	f.activations = append(f.activations, email+"|"+username+"|"+activationID)
	return f.err
}

func (f *fakeSender) SendPasswordReset(_ context.Context, email, token string) error {
	f.resets = append(f.resets, email+"|"+token)
	return f.err
}

func TestProcessor_Delivers(t *testing.T) {
	sender := &fakeSender{}
	p := NewProcessor(sender, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, p.Handle(ctx, redis.XMessage{ID: "1-0", Values: mail.Job{
		Kind: mail.KindActivation, Email: "neo@example.com", Username: "neo", ActivationID: "h1",
	}.Values()}))
	require.NoError(t, p.Handle(ctx, redis.XMessage{ID: "2-0", Values: mail.Job{
		Kind: mail.KindPasswordReset, Email: "neo@example.com", Token: "tok",
	}.Values()}))

	assert.Equal(t, []string{"neo@example.com|neo|h1"}, sender.activations)
	assert.Equal(t, []string{"neo@example.com|tok"}, sender.resets)
}

func TestProcessor_DropsMalformed(t *testing.T) {
	sender := &fakeSender{}
	p := NewProcessor(sender, zerolog.Nop())

	err := p.Handle(context.Background(), redis.XMessage{ID: "1-0", Values: map[string]any{"kind": "bogus", "email": "a@b"}})
	assert.NoError(t, err)
	assert.Empty(t, sender.activations)
	assert.Empty(t, sender.resets)
}

func TestProcessor_DeliveryFailureKeepsEntryPending(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	p := NewProcessor(sender, zerolog.Nop())

	err := p.Handle(context.Background(), redis.XMessage{ID: "1-0", Values: mail.Job{
		Kind: mail.KindPasswordReset, Email: "neo@example.com", Token: "tok",
	}.Values()})
	assert.Error(t, err)
}
