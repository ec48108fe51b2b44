// Package mail delivers account emails. Senders are called off the request
// path; their errors are for logging only.
package mail

import (
	"context"
	"errors"
	"fmt"
)

// Sender is the outbound email contract used by account flows.
type Sender interface {
	SendActivation(ctx context.Context, email, username, activationID string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

type Kind string

const (
	KindActivation    Kind = "activation"
	KindPasswordReset Kind = "password_reset"
)

var (
	ErrUnknownKind  = errors.New("unknown mail kind")
	ErrMissingField = errors.New("mail job field missing")
)

// Job is a queued mail request as stored in the outbox stream.
type Job struct {
	Kind         Kind
	Email        string
	Username     string
	ActivationID string
	Token        string
}

func (j Job) Values() map[string]any {
	values := map[string]any{
		"kind":  string(j.Kind),
		"email": j.Email,
	}
	if j.Username != "" {
		values["username"] = j.Username
	}
	if j.ActivationID != "" {
		values["activationId"] = j.ActivationID
	}
	if j.Token != "" {
		values["token"] = j.Token
	}
	return values
}

func (j Job) Validate() error {
	if j.Email == "" {
		return fmt.Errorf("%w: email", ErrMissingField)
	}
	switch j.Kind {
	case KindActivation:
		if j.ActivationID == "" {
			return fmt.Errorf("%w: activationId", ErrMissingField)
		}
	case KindPasswordReset:
		if j.Token == "" {
			return fmt.Errorf("%w: token", ErrMissingField)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, j.Kind)
	}
	return nil
}

// DecodeJob rebuilds a Job from stream entry values.
func DecodeJob(values map[string]any) (Job, error) {
	job := Job{
		Kind:         Kind(stringValue(values, "kind")),
		Email:        stringValue(values, "email"),
		Username:     stringValue(values, "username"),
		ActivationID: stringValue(values, "activationId"),
		Token:        stringValue(values, "token"),
	}
	if err := job.Validate(); err != nil {
		return Job{}, err
	}
	return job, nil
}

// Deliver hands a job to sender.
func Deliver(ctx context.Context, sender Sender, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	switch job.Kind {
	case KindActivation:
		return sender.SendActivation(ctx, job.Email, job.Username, job.ActivationID)
	default:
		return sender.SendPasswordReset(ctx, job.Email, job.Token)
	}
}

func stringValue(values map[string]any, key string) string {
	switch v := values[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
