package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tasktracker/internal/models"
)

// MinSecretLength is the shortest accepted HS512 secret (512 bits).
const MinSecretLength = 64

var (
	ErrSecretTooShort = errors.New("signing secret must be at least 64 bytes")
	ErrUnknownPurpose = errors.New("unknown token purpose")
	ErrNoPasswordHash = errors.New("reset token needs the account password hash")
	ErrNoFingerprint  = errors.New("token carries no password fingerprint")
)

type Purpose string

const (
	PurposeAccess        Purpose = "access"
	PurposePasswordReset Purpose = "reset"
)

// Subject is the account snapshot carried inside a token. It has no
// credential field.
type Subject struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

type Claims struct {
	User    Subject `json:"user"`
	Purpose Purpose `json:"pur"`
	// PasswordFingerprint is set on reset tokens only. It goes stale as soon
	// as the password changes, which makes the token single use.
	PasswordFingerprint string `json:"pwf,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HS512-signed tokens. It holds no mutable
// state and is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	ttl    map[Purpose]time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

type CodecOption func(*TokenCodec)

// WithClock overrides the time source used for issuing and validating.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

func NewTokenCodec(secret string, accessTTL, resetTTL time.Duration, log zerolog.Logger, opts ...CodecOption) (*TokenCodec, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	c := &TokenCodec{
		secret: []byte(secret),
		ttl: map[Purpose]time.Duration{
			PurposeAccess:        accessTTL,
			PurposePasswordReset: resetTTL,
		},
		now: time.Now,
		log: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *TokenCodec) TTL(purpose Purpose) time.Duration {
	return c.ttl[purpose]
}

func (c *TokenCodec) Issue(account models.Account, purpose Purpose) (string, error) {
	ttl, ok := c.ttl[purpose]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPurpose, purpose)
	}

	var fingerprint string
	if purpose == PurposePasswordReset {
		if len(account.PasswordHash) == 0 {
			return "", ErrNoPasswordHash
		}
		fingerprint = c.fingerprint(account.PasswordHash)
	}

	snapshot := account.Snapshot()
	now := c.now()
	claims := Claims{
		User: Subject{
			ID:       snapshot.ID,
			Email:    snapshot.Email,
			Username: snapshot.Username,
			Roles:    snapshot.Roles,
		},
		Purpose:             purpose,
		PasswordFingerprint: fingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   snapshot.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// Validate reports whether the token is well-formed, correctly signed and
// unexpired. Failure reasons are logged, never returned.
func (c *TokenCodec) Validate(tokenStr string) bool {
	_, err := c.parse(tokenStr)
	if err != nil {
		c.logFailure(err)
		return false
	}
	return true
}

// ValidateFor is Validate plus a check that the token was issued for purpose.
func (c *TokenCodec) ValidateFor(tokenStr string, purpose Purpose) bool {
	claims, err := c.parse(tokenStr)
	if err != nil {
		c.logFailure(err)
		return false
	}
	if claims.Purpose != purpose {
		c.log.Warn().
			Str("want", string(purpose)).
			Str("got", string(claims.Purpose)).
			Msg("token purpose mismatch")
		return false
	}
	if purpose == PurposePasswordReset && claims.PasswordFingerprint == "" {
		c.log.Warn().Msg("reset token without password fingerprint")
		return false
	}
	return true
}

// ResetFingerprint returns the password fingerprint of a reset token.
func (c *TokenCodec) ResetFingerprint(tokenStr string) (string, error) {
	claims, err := c.parse(tokenStr)
	if err != nil {
		return "", err
	}
	if claims.Purpose != PurposePasswordReset || claims.PasswordFingerprint == "" {
		return "", ErrNoFingerprint
	}
	return claims.PasswordFingerprint, nil
}

// MatchesPassword reports whether fingerprint was taken from hash.
func (c *TokenCodec) MatchesPassword(fingerprint string, hash []byte) bool {
	if fingerprint == "" || len(hash) == 0 {
		return false
	}
	return hmac.Equal([]byte(fingerprint), []byte(c.fingerprint(hash)))
}

func (c *TokenCodec) fingerprint(hash []byte) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte("password-reset:"))
	mac.Write(hash)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// DecodeSubject rebuilds the embedded account snapshot. Call it only after
// Validate or ValidateFor returned true.
func (c *TokenCodec) DecodeSubject(tokenStr string) (models.Account, error) {
	claims, err := c.parse(tokenStr)
	if err != nil {
		return models.Account{}, err
	}
	roles := make([]string, len(claims.User.Roles))
	copy(roles, claims.User.Roles)
	return models.Account{
		ID:       claims.User.ID,
		Email:    claims.User.Email,
		Username: claims.User.Username,
		Roles:    roles,
	}, nil
}

func (c *TokenCodec) parse(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, jwt.ErrTokenMalformed
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.User.ID == "" || claims.User.Username == "" || claims.Subject != claims.User.ID {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.IssuedAt == nil {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func (c *TokenCodec) logFailure(err error) {
	reason := "malformed"
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		reason = "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		reason = "signature"
	case errors.Is(err, jwt.ErrTokenInvalidClaims):
		reason = "claims"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		reason = "unverifiable"
	}
	c.log.Warn().Err(err).Str("reason", reason).Msg("token rejected")
}
