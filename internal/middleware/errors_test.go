package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"tasktracker/internal/apperr"
)

func TestStatusFor(t *testing.T) {
	tests := map[apperr.Kind]int{
		apperr.KindCredentialsNotFound: http.StatusUnauthorized,
		apperr.KindInvalidToken:        http.StatusUnauthorized,
		apperr.KindAccessDenied:        http.StatusForbidden,
		apperr.KindInternal:            http.StatusInternalServerError,
		apperr.KindDuplicateAccount:    http.StatusBadRequest,
		apperr.KindRoleNotConfigured:   http.StatusBadRequest,
		apperr.KindNotFound:            http.StatusBadRequest,
		apperr.KindAlreadyActivated:    http.StatusBadRequest,
		apperr.KindDisabled:            http.StatusBadRequest,
		apperr.KindBadCredentials:      http.StatusBadRequest,
		apperr.KindInvalidRequest:      http.StatusBadRequest,
	}
	for kind, want := range tests {
		assert.Equal(t, want, StatusFor(kind), string(kind))
	}
}

func translatorEngine(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(ErrorTranslator(zerolog.Nop()))
	engine.GET("/x", handler)
	return engine
}

func serve(engine *gin.Engine) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	return rec
}

func TestErrorTranslator_DomainError(t *testing.T) {
	rec := serve(translatorEngine(func(c *gin.Context) {
		_ = c.Error(apperr.Wrap(apperr.KindDuplicateAccount, errors.New("pq: secret detail"), "register"))
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"exception":"DuplicateAccount"}`, rec.Body.String())
}

func TestErrorTranslator_UntypedErrorHidesMessage(t *testing.T) {
	rec := serve(translatorEngine(func(c *gin.Context) {
		_ = c.Error(errors.New("connection refused to 10.0.0.5"))
	}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"exception":"Internal"}`, rec.Body.String())
}

func TestErrorTranslator_DoesNotOverwriteResponse(t *testing.T) {
	rec := serve(translatorEngine(func(c *gin.Context) {
		c.JSON(http.StatusAccepted, gin.H{"ok": true})
		_ = c.Error(apperr.ErrNotFound)
	}))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestErrorTranslator_NoErrors(t *testing.T) {
	rec := serve(translatorEngine(func(c *gin.Context) { c.String(http.StatusOK, "fine") }))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fine", rec.Body.String())
}

func TestRecovery_ReturnsEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestID(), Recovery(zerolog.Nop()), ErrorTranslator(zerolog.Nop()))
	engine.GET("/x", func(c *gin.Context) { panic("boom") })

	rec := serve(engine)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"exception":"Internal"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}
