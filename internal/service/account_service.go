package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tasktracker/internal/apperr"
	"tasktracker/internal/ids"
	"tasktracker/internal/metrics"
	"tasktracker/internal/models"
	"tasktracker/internal/repository"
	"tasktracker/internal/security"
)

type AccountDeps struct {
	Accounts    AccountStore
	Activities  ActivityStore
	Roles       RoleStore
	Hasher      *security.PasswordHasher
	Codec       *security.TokenCodec
	Mailer      *Dispatcher
	Metrics     *metrics.Metrics
	DefaultRole string
	Log         zerolog.Logger
}

// AccountService drives the account state machine: registered, then
// activated. It also issues password reset tokens.
type AccountService struct {
	accounts    AccountStore
	activities  ActivityStore
	roles       RoleStore
	hasher      *security.PasswordHasher
	codec       *security.TokenCodec
	mailer      *Dispatcher
	metrics     *metrics.Metrics
	defaultRole string
	log         zerolog.Logger
}

func NewAccountService(deps AccountDeps) *AccountService {
	role := deps.DefaultRole
	if role == "" {
		role = models.RoleUser
	}
	return &AccountService{
		accounts:    deps.Accounts,
		activities:  deps.Activities,
		roles:       deps.Roles,
		hasher:      deps.Hasher,
		codec:       deps.Codec,
		mailer:      deps.Mailer,
		metrics:     deps.Metrics,
		defaultRole: role,
		log:         deps.Log,
	}
}

type RegisterInput struct {
	Email    string
	Username string
	Password string
}

func (s *AccountService) Register(ctx context.Context, input RegisterInput) (models.Account, error) {
	input.Email = strings.TrimSpace(input.Email)
	input.Username = strings.TrimSpace(input.Username)
	if input.Email == "" || input.Username == "" || !validPassword(input.Password) {
		return models.Account{}, apperr.ErrInvalidRequest
	}

	exists, err := s.accounts.Exists(ctx, input.Email, input.Username)
	if err != nil {
		return models.Account{}, apperr.Wrap(apperr.KindInternal, err, "check account exists")
	}
	if exists {
		s.metrics.AuthEvent(metrics.EventRegister, string(apperr.KindDuplicateAccount))
		return models.Account{}, apperr.ErrDuplicateAccount
	}

	role, err := s.roles.FindByName(ctx, s.defaultRole)
	if err != nil {
		return models.Account{}, s.roleError(err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return models.Account{}, apperr.Wrap(apperr.KindInternal, err, "hash password")
	}

	account := models.Account{
		ID:           ids.New(),
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: hash,
		Roles:        []string{role.Name},
	}
	activity := models.Activity{
		AccountID:    account.ID,
		ActivationID: uuid.NewString(),
	}

	if err := s.accounts.Create(ctx, account, activity); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateAccount):
			s.metrics.AuthEvent(metrics.EventRegister, string(apperr.KindDuplicateAccount))
			return models.Account{}, apperr.ErrDuplicateAccount
		case errors.Is(err, repository.ErrRoleNotFound):
			return models.Account{}, s.roleError(err)
		default:
			return models.Account{}, apperr.Wrap(apperr.KindInternal, err, "create account")
		}
	}

	s.log.Info().Str("account_id", account.ID).Str("username", account.Username).Msg("account registered")
	s.metrics.AuthEvent(metrics.EventRegister, "ok")
	s.mailer.Activation(account.Email, account.Username, activity.ActivationID)

	return account.Snapshot(), nil
}

func (s *AccountService) roleError(err error) error {
	if errors.Is(err, repository.ErrRoleNotFound) {
		s.log.Error().
			Err(err).
			Str("role", s.defaultRole).
			Msg("default role missing from role store; seed the roles table")
		s.metrics.AuthEvent(metrics.EventRegister, string(apperr.KindRoleNotConfigured))
		return apperr.Wrap(apperr.KindRoleNotConfigured, err, "default role "+s.defaultRole)
	}
	return apperr.Wrap(apperr.KindInternal, err, "find default role")
}

// ResendActivation mails the existing activation handle again.
func (s *AccountService) ResendActivation(ctx context.Context, login string) error {
	account, err := findByLogin(ctx, s.accounts, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return apperr.Wrap(apperr.KindNotFound, err, "resend activation")
		}
		return apperr.Wrap(apperr.KindInternal, err, "resend activation")
	}

	activity, err := s.activities.FindByAccountID(ctx, account.ID)
	if err != nil {
		if errors.Is(err, repository.ErrActivityNotFound) {
			return apperr.Wrap(apperr.KindNotFound, err, "resend activation")
		}
		return apperr.Wrap(apperr.KindInternal, err, "resend activation")
	}
	if activity.Activated {
		return apperr.ErrAlreadyActivated
	}

	s.mailer.Activation(account.Email, account.Username, activity.ActivationID)
	return nil
}

// Activate flips the activation flag for handle. It reports false without an
// error when the update did not touch exactly one record, which is what the
// loser of two concurrent activations sees.
func (s *AccountService) Activate(ctx context.Context, handle string) (bool, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return false, apperr.Wrap(apperr.KindNotFound, nil, "empty activation handle")
	}

	activity, err := s.activities.FindByActivationID(ctx, handle)
	if err != nil {
		if errors.Is(err, repository.ErrActivityNotFound) {
			s.metrics.AuthEvent(metrics.EventActivation, string(apperr.KindNotFound))
			return false, apperr.Wrap(apperr.KindNotFound, err, "activate")
		}
		return false, apperr.Wrap(apperr.KindInternal, err, "activate")
	}
	if activity.Activated {
		s.metrics.AuthEvent(metrics.EventActivation, string(apperr.KindAlreadyActivated))
		return false, apperr.ErrAlreadyActivated
	}

	affected, err := s.activities.Activate(ctx, handle)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, err, "activate")
	}
	if affected != 1 {
		s.log.Warn().Int64("affected", affected).Str("account_id", activity.AccountID).Msg("activation touched unexpected row count")
		s.metrics.AuthEvent(metrics.EventActivation, "noop")
		return false, nil
	}

	s.log.Info().Str("account_id", activity.AccountID).Msg("account activated")
	s.metrics.AuthEvent(metrics.EventActivation, "ok")
	return true, nil
}

// RequestPasswordReset mails a reset link. Unknown emails succeed silently.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	account, err := s.accounts.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			s.log.Debug().Msg("password reset requested for unknown email")
			s.metrics.AuthEvent(metrics.EventReset, "unknown")
			return nil
		}
		return apperr.Wrap(apperr.KindInternal, err, "password reset lookup")
	}

	token, err := s.codec.Issue(account, security.PurposePasswordReset)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "issue reset token")
	}

	s.metrics.AuthEvent(metrics.EventReset, "ok")
	s.mailer.PasswordReset(account.Email, token)
	return nil
}

// UpdatePassword rehashes the principal's password. The principal must come
// from a reset token whose fingerprint still matches the stored hash, so one
// reset token changes the password at most once. It reports true only if
// exactly one account row changed.
func (s *AccountService) UpdatePassword(ctx context.Context, principal models.Principal, password string) (bool, error) {
	if principal.AccountID == "" {
		return false, apperr.ErrCredentialsNotFound
	}
	if !validPassword(password) {
		return false, apperr.ErrInvalidRequest
	}

	account, err := s.accounts.FindByID(ctx, principal.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			s.log.Warn().Str("account_id", principal.AccountID).Msg("password update for missing account")
			return false, nil
		}
		return false, apperr.Wrap(apperr.KindInternal, err, "update password lookup")
	}
	if !s.codec.MatchesPassword(principal.ResetFingerprint, account.PasswordHash) {
		s.metrics.AuthEvent(metrics.EventReset, "stale")
		return false, apperr.New(apperr.KindInvalidToken, "reset token no longer matches password")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, err, "hash password")
	}

	// A concurrent update with the same token loses here and sees false.
	affected, err := s.accounts.UpdatePassword(ctx, account.ID, account.PasswordHash, hash)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, err, "update password")
	}
	if affected != 1 {
		s.log.Warn().Int64("affected", affected).Str("account_id", account.ID).Msg("password update touched unexpected row count")
		return false, nil
	}

	s.log.Info().Str("account_id", account.ID).Msg("password updated")
	s.metrics.AuthEvent(metrics.EventReset, "updated")
	return true, nil
}

func validPassword(password string) bool {
	return password != "" && len(password) <= security.MaxPasswordBytes
}
