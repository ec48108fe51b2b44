package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"tasktracker/internal/apperr"
	"tasktracker/internal/models"
	"tasktracker/internal/repository"
	"tasktracker/internal/security"
)

// CredentialStore checks a login and password against stored hashes. It does
// not look at activation state.
type CredentialStore struct {
	accounts AccountStore
	hasher   *security.PasswordHasher
	log      zerolog.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

func NewCredentialStore(accounts AccountStore, hasher *security.PasswordHasher, log zerolog.Logger) *CredentialStore {
	return &CredentialStore{accounts: accounts, hasher: hasher, log: log}
}

// Verify resolves login as a username first, then as an email. Unknown
// logins and wrong passwords both fail with BadCredentials.
func (s *CredentialStore) Verify(ctx context.Context, login, password string) (models.Account, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return models.Account{}, apperr.Wrap(apperr.KindBadCredentials, nil, "empty login or password")
	}

	account, err := findByLogin(ctx, s.accounts, login)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			// Burn the same hashing time as a real comparison.
			_, _ = s.hasher.Verify(password, s.dummy())
			return models.Account{}, apperr.Wrap(apperr.KindBadCredentials, err, "unknown login")
		}
		return models.Account{}, apperr.Wrap(apperr.KindInternal, err, "credential lookup")
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Str("account_id", account.ID).Msg("stored password hash unreadable")
		return models.Account{}, apperr.Wrap(apperr.KindBadCredentials, err, "hash compare")
	}
	if !ok {
		return models.Account{}, apperr.New(apperr.KindBadCredentials, "password mismatch")
	}
	return account, nil
}

func (s *CredentialStore) dummy() []byte {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("not-a-real-password")
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

func findByLogin(ctx context.Context, accounts AccountStore, login string) (models.Account, error) {
	account, err := accounts.FindByUsername(ctx, login)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, repository.ErrAccountNotFound) {
		return models.Account{}, err
	}
	return accounts.FindByEmail(ctx, login)
}
