package mail

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Outbox queues mail jobs on a redis stream for the mailer worker.
type Outbox struct {
	client *redis.Client
	stream string
}

func NewOutbox(client *redis.Client, stream string) *Outbox {
	return &Outbox{client: client, stream: stream}
}

func (o *Outbox) SendActivation(ctx context.Context, email, username, activationID string) error {
	return o.enqueue(ctx, Job{Kind: KindActivation, Email: email, Username: username, ActivationID: activationID})
}

func (o *Outbox) SendPasswordReset(ctx context.Context, email, token string) error {
	return o.enqueue(ctx, Job{Kind: KindPasswordReset, Email: email, Token: token})
}

func (o *Outbox) enqueue(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if _, err := o.client.XAdd(ctx, &redis.XAddArgs{
		Stream: o.stream,
		Values: job.Values(),
	}).Result(); err != nil {
		return fmt.Errorf("enqueue %s mail: %w", job.Kind, err)
	}
	return nil
}
