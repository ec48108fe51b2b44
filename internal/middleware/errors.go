package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tasktracker/internal/apperr"
)

func envelope(kind apperr.Kind) gin.H {
	return gin.H{"exception": string(kind)}
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch {
	case kind.IsAuthentication():
		return http.StatusUnauthorized
	case kind == apperr.KindAccessDenied:
		return http.StatusForbidden
	case kind == apperr.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// ErrorTranslator must wrap Auth and every handler. It turns the last error
// recorded with c.Error into {"exception": "<Kind>"}; messages and causes are
// only logged.
func ErrorTranslator(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		kind := apperr.KindOf(err)
		status := StatusFor(kind)

		event := log.Debug()
		if status >= 500 {
			event = log.Error()
		}
		event.Err(err).
			Str("kind", string(kind)).
			Str("request_id", RequestIDFrom(c)).
			Msg("request failed")

		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(status, envelope(kind))
	}
}
