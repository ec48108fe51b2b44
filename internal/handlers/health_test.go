package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"tasktracker/internal/config"
)

func healthRecorder(db, cache PingFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	h := NewHandlerSet(Dependencies{
		Log:      zerolog.Nop(),
		Config:   &config.AppConfig{Environment: "test"},
		Database: db,
		Cache:    cache,
	})
	engine := gin.New()
	engine.GET("/healthz", h.Health)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	return rec
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("down") }

	rec := healthRecorder(ok, ok)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","database":"ok","cache":"ok","environment":"test"}`, rec.Body.String())

	rec = healthRecorder(ok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cache":"disabled"`)

	rec = healthRecorder(down, ok)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}
