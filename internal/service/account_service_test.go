package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/apperr"
	"tasktracker/internal/models"
	"tasktracker/internal/security"
)

func TestRegister_CreatesInactiveAccountAndMails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	acc, err := f.accounts.Register(ctx, RegisterInput{Email: "neo@example.com", Username: "neo", Password: "redpill"})
	require.NoError(t, err)
	assert.NotEmpty(t, acc.ID)
	assert.Empty(t, acc.PasswordHash)
	assert.Equal(t, []string{models.RoleUser}, acc.Roles)

	stored, err := f.store.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.NotEqual(t, []byte("redpill"), stored.PasswordHash)

	activity, err := f.store.FindByAccountID(ctx, acc.ID)
	require.NoError(t, err)
	assert.False(t, activity.Activated)
	assert.NotEmpty(t, activity.ActivationID)
	assert.NotEqual(t, acc.ID, activity.ActivationID)

	sent := f.flush(t)
	require.Len(t, sent, 1)
	assert.Equal(t, sentMail{Kind: "activation", Email: "neo@example.com", Username: "neo", ActivationID: activity.ActivationID}, sent[0])
}

func TestRegister_DuplicateIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "neo@example.com", "neo", "pw")

	_, err := f.accounts.Register(ctx, RegisterInput{Email: "NEO@Example.COM", Username: "someone", Password: "pw"})
	assert.ErrorIs(t, err, apperr.ErrDuplicateAccount)

	_, err = f.accounts.Register(ctx, RegisterInput{Email: "other@example.com", Username: "NeO", Password: "pw"})
	assert.ErrorIs(t, err, apperr.ErrDuplicateAccount)
}

func TestRegister_MissingDefaultRole(t *testing.T) {
	f := newFixture(t, models.RoleAdmin)

	_, err := f.accounts.Register(context.Background(), RegisterInput{Email: "neo@example.com", Username: "neo", Password: "pw"})
	assert.ErrorIs(t, err, apperr.ErrRoleNotConfigured)
	assert.Empty(t, f.flush(t))
}

func TestRegister_InvalidInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.accounts.Register(context.Background(), RegisterInput{Email: " ", Username: "neo", Password: "pw"})
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)
}

func TestRegister_MailFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	f.sender.err = errors.New("smtp down")

	id := f.register(t, "neo@example.com", "neo", "pw")
	f.flush(t)

	_, err := f.store.FindByID(context.Background(), id)
	assert.NoError(t, err)
}

func TestResendActivation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "neo@example.com", "neo", "pw")
	handle := f.handleFor(t, id)

	assert.ErrorIs(t, f.accounts.ResendActivation(ctx, "nobody"), apperr.ErrNotFound)

	require.NoError(t, f.accounts.ResendActivation(ctx, "NEO@example.com"))
	sent := f.flush(t)
	require.Len(t, sent, 2)
	assert.Equal(t, handle, sent[1].ActivationID)

	ok, err := f.accounts.Activate(ctx, handle)
	require.NoError(t, err)
	require.True(t, ok)

	assert.ErrorIs(t, f.accounts.ResendActivation(ctx, "neo"), apperr.ErrAlreadyActivated)
}

func TestActivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	handle := f.handleFor(t, f.register(t, "neo@example.com", "neo", "pw"))

	_, err := f.accounts.Activate(ctx, "no-such-handle")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	ok, err := f.accounts.Activate(ctx, handle)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.accounts.Activate(ctx, handle)
	assert.ErrorIs(t, err, apperr.ErrAlreadyActivated)
	assert.False(t, ok)
}

func TestActivate_ConcurrentSingleSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	handle := f.handleFor(t, f.register(t, "neo@example.com", "neo", "pw"))

	var mu sync.Mutex
	successes := 0
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := f.accounts.Activate(ctx, handle)
			if err != nil {
				assert.ErrorIs(t, err, apperr.ErrAlreadyActivated)
			}
			if ok {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
}

func TestRequestPasswordReset_UnknownEmailSucceedsSilently(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.accounts.RequestPasswordReset(context.Background(), "ghost@example.com"))
	assert.Empty(t, f.flush(t))
}

func TestRequestPasswordReset_MailsResetToken(t *testing.T) {
	f := newFixture(t)
	f.register(t, "neo@example.com", "neo", "pw")
	f.flush(t)

	require.NoError(t, f.accounts.RequestPasswordReset(context.Background(), "Neo@Example.com"))
	sent := f.flush(t)
	require.Len(t, sent, 2)

	reset := sent[1]
	assert.Equal(t, "reset", reset.Kind)
	assert.True(t, f.codec.ValidateFor(reset.Token, security.PurposePasswordReset))
	assert.False(t, f.codec.ValidateFor(reset.Token, security.PurposeAccess))
}

func TestUpdatePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "neo@example.com", "neo", "old")
	_, err := f.accounts.Activate(ctx, f.handleFor(t, id))
	require.NoError(t, err)

	ok, err := f.accounts.UpdatePassword(ctx, f.resetPrincipal(t, id), "new")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.auth.Login(ctx, "neo", "old")
	assert.ErrorIs(t, err, apperr.ErrBadCredentials)
	_, err = f.auth.Login(ctx, "neo", "new")
	assert.NoError(t, err)

	ok, err = f.accounts.UpdatePassword(ctx, models.Principal{AccountID: "vanished"}, "new")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.accounts.UpdatePassword(ctx, models.Principal{}, "new")
	assert.ErrorIs(t, err, apperr.ErrCredentialsNotFound)
}

func TestUpdatePassword_ResetTokenIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "neo@example.com", "neo", "old")
	principal := f.resetPrincipal(t, id)

	ok, err := f.accounts.UpdatePassword(ctx, principal, "first")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.accounts.UpdatePassword(ctx, principal, "second")
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
	assert.False(t, ok)

	_, err = f.auth.Login(ctx, "neo", "second")
	assert.ErrorIs(t, err, apperr.ErrBadCredentials)
}

func TestUpdatePassword_RequiresResetFingerprint(t *testing.T) {
	f := newFixture(t)
	id := f.register(t, "neo@example.com", "neo", "old")

	ok, err := f.accounts.UpdatePassword(context.Background(), models.Principal{AccountID: id}, "new")
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
	assert.False(t, ok)
}
