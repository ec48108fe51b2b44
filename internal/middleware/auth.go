package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tasktracker/internal/apperr"
	"tasktracker/internal/metrics"
	"tasktracker/internal/security"
)

// RouteTable classifies request paths. Fragments match whole path segments,
// so "login" covers /api/auth/login but not /api/auth/login-history.
type RouteTable struct {
	public map[string]struct{}
	header map[string]struct{}
}

func NewRouteTable(public, headerToken []string) RouteTable {
	return RouteTable{public: toSet(public), header: toSet(headerToken)}
}

func (t RouteTable) IsPublic(r *http.Request) bool {
	return r.Method == http.MethodOptions || matchSegment(r.URL.Path, t.public)
}

func (t RouteTable) UsesHeaderToken(r *http.Request) bool {
	return matchSegment(r.URL.Path, t.header)
}

func matchSegment(path string, set map[string]struct{}) bool {
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		if _, ok := set[seg]; ok {
			return true
		}
	}
	return false
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.Trim(strings.TrimSpace(item), "/")
		if item != "" {
			set[item] = struct{}{}
		}
	}
	return set
}

// Auth authenticates protected requests from the token alone; it never
// reads the account store. Header-token routes accept only password reset
// tokens from the Authorization header. All other protected routes accept
// only access tokens from the cookie.
func Auth(codec *security.TokenCodec, transport *security.CookieTransport, routes RouteTable, m *metrics.Metrics, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if routes.IsPublic(c.Request) {
			c.Next()
			return
		}

		var (
			token   string
			found   bool
			purpose security.Purpose
		)
		if routes.UsesHeaderToken(c.Request) {
			token, found = transport.ReadFromHeader(c.Request)
			purpose = security.PurposePasswordReset
		} else {
			token, found = transport.ReadFromCookie(c.Request)
			purpose = security.PurposeAccess
		}

		if !found {
			m.AuthEvent(metrics.EventToken, string(apperr.KindCredentialsNotFound))
			fail(c, apperr.ErrCredentialsNotFound)
			return
		}

		if !codec.ValidateFor(token, purpose) {
			m.AuthEvent(metrics.EventToken, string(apperr.KindInvalidToken))
			fail(c, apperr.ErrInvalidToken)
			return
		}

		account, err := codec.DecodeSubject(token)
		if err != nil {
			log.Warn().Err(err).Msg("validated token failed to decode")
			m.AuthEvent(metrics.EventToken, string(apperr.KindInvalidToken))
			fail(c, apperr.ErrInvalidToken)
			return
		}

		principal := account.Principal()
		if purpose == security.PurposePasswordReset {
			fp, err := codec.ResetFingerprint(token)
			if err != nil {
				log.Warn().Err(err).Msg("reset token without fingerprint")
				m.AuthEvent(metrics.EventToken, string(apperr.KindInvalidToken))
				fail(c, apperr.ErrInvalidToken)
				return
			}
			principal.ResetFingerprint = fp
		}

		m.AuthEvent(metrics.EventToken, "ok")
		setPrincipal(c, principal)
		c.Next()
	}
}

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
