package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tasktracker/internal/metrics"
	"tasktracker/internal/models"
	"tasktracker/internal/repository"
	"tasktracker/internal/security"
)

type sentMail struct {
	Kind         string
	Email        string
	Username     string
	ActivationID string
	Token        string
}

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []sentMail
}

func (f *fakeSender) SendActivation(_ context.Context, email, username, activationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{Kind: "activation", Email: email, Username: username, ActivationID: activationID})
	return f.err
}

func (f *fakeSender) SendPasswordReset(_ context.Context, email, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{Kind: "reset", Email: email, Token: token})
	return f.err
}

func (f *fakeSender) all() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMail, len(f.sent))
	copy(out, f.sent)
	return out
}

type fixture struct {
	store    *repository.MemoryStore
	sender   *fakeSender
	mailer   *Dispatcher
	codec    *security.TokenCodec
	accounts *AccountService
	auth     *AuthService
}

func newFixture(t *testing.T, roles ...string) *fixture {
	t.Helper()
	store := repository.NewMemoryStore(roles...)
	sender := &fakeSender{}
	log := zerolog.Nop()

	codec, err := security.NewTokenCodec(strings.Repeat("s", security.MinSecretLength), 24*time.Hour, 5*time.Minute, log)
	require.NoError(t, err)

	hasher := security.NewPasswordHasher(bcrypt.MinCost)
	mailer := NewDispatcher(sender, time.Second, log)
	m := metrics.New()

	return &fixture{
		store:  store,
		sender: sender,
		mailer: mailer,
		codec:  codec,
		accounts: NewAccountService(AccountDeps{
			Accounts:   store,
			Activities: store,
			Roles:      store,
			Hasher:     hasher,
			Codec:      codec,
			Mailer:     mailer,
			Metrics:    m,
			Log:        log,
		}),
		auth: NewAuthService(NewCredentialStore(store, hasher, log), store, codec, m, log),
	}
}

// flush waits for background mail sends and returns everything sent so far.
func (f *fixture) flush(t *testing.T) []sentMail {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.mailer.Wait(ctx))
	return f.sender.all()
}

func (f *fixture) register(t *testing.T, email, username, password string) string {
	t.Helper()
	acc, err := f.accounts.Register(context.Background(), RegisterInput{Email: email, Username: username, Password: password})
	require.NoError(t, err)
	return acc.ID
}

func (f *fixture) handleFor(t *testing.T, accountID string) string {
	t.Helper()
	act, err := f.store.FindByAccountID(context.Background(), accountID)
	require.NoError(t, err)
	return act.ActivationID
}

// resetPrincipal is what the auth middleware builds from a reset token for id.
func (f *fixture) resetPrincipal(t *testing.T, accountID string) models.Principal {
	t.Helper()
	acc, err := f.store.FindByID(context.Background(), accountID)
	require.NoError(t, err)
	tok, err := f.codec.Issue(acc, security.PurposePasswordReset)
	require.NoError(t, err)
	fp, err := f.codec.ResetFingerprint(tok)
	require.NoError(t, err)

	principal := acc.Principal()
	principal.ResetFingerprint = fp
	return principal
}
