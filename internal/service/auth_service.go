package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"tasktracker/internal/apperr"
	"tasktracker/internal/metrics"
	"tasktracker/internal/models"
	"tasktracker/internal/repository"
	"tasktracker/internal/security"
)

type AuthService struct {
	credentials *CredentialStore
	activities  ActivityStore
	codec       *security.TokenCodec
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

func NewAuthService(
	credentials *CredentialStore,
	activities ActivityStore,
	codec *security.TokenCodec,
	m *metrics.Metrics,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		credentials: credentials,
		activities:  activities,
		codec:       codec,
		metrics:     m,
		log:         log,
	}
}

type LoginResult struct {
	Account models.Account
	Token   string
}

// Login verifies credentials, then checks activation, then issues an access
// token. The two checks are separate so a wrong password never reads as
// Disabled.
func (s *AuthService) Login(ctx context.Context, login, password string) (LoginResult, error) {
	account, err := s.credentials.Verify(ctx, login, password)
	if err != nil {
		s.metrics.AuthEvent(metrics.EventLogin, string(apperr.KindOf(err)))
		s.log.Info().Err(err).Msg("login rejected")
		return LoginResult{}, err
	}

	activity, err := s.activities.FindByAccountID(ctx, account.ID)
	if err != nil {
		if errors.Is(err, repository.ErrActivityNotFound) {
			s.log.Error().Str("account_id", account.ID).Msg("account has no activity record")
		}
		return LoginResult{}, apperr.Wrap(apperr.KindInternal, err, "load activity")
	}
	if !activity.Activated {
		s.metrics.AuthEvent(metrics.EventLogin, string(apperr.KindDisabled))
		return LoginResult{}, apperr.ErrDisabled
	}

	token, err := s.codec.Issue(account, security.PurposeAccess)
	if err != nil {
		return LoginResult{}, apperr.Wrap(apperr.KindInternal, err, "issue access token")
	}

	s.metrics.AuthEvent(metrics.EventLogin, "ok")
	s.log.Info().Str("account_id", account.ID).Msg("login succeeded")
	return LoginResult{Account: account.Snapshot(), Token: token}, nil
}
