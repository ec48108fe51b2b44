package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"tasktracker/internal/config"
	"tasktracker/internal/metrics"
	"tasktracker/internal/middleware"
	"tasktracker/internal/models"
	"tasktracker/internal/security"
	"tasktracker/internal/service"
)

// PingFunc reports whether a backing service is reachable.
type PingFunc func(ctx context.Context) error

type Dependencies struct {
	Log       zerolog.Logger
	Config    *config.AppConfig
	Accounts  *service.AccountService
	Auth      *service.AuthService
	Transport *security.CookieTransport
	Metrics   *metrics.Metrics
	// Database and Cache may be nil when the process runs without them.
	Database PingFunc
	Cache    PingFunc
}

type HandlerSet struct {
	log       zerolog.Logger
	cfg       *config.AppConfig
	accounts  *service.AccountService
	auth      *service.AuthService
	transport *security.CookieTransport
	metrics   *metrics.Metrics
	db        PingFunc
	cache     PingFunc
}

func NewHandlerSet(deps Dependencies) HandlerSet {
	return HandlerSet{
		log:       deps.Log,
		cfg:       deps.Config,
		accounts:  deps.Accounts,
		auth:      deps.Auth,
		transport: deps.Transport,
		metrics:   deps.Metrics,
		db:        deps.Database,
		cache:     deps.Cache,
	}
}

// Routes mounts the API. Which routes need a token is decided by the Auth
// middleware's route table, not by grouping here.
func (h HandlerSet) Routes(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	auth := router.Group("/auth")
	{
		auth.PUT("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.POST("/activate-account", h.ActivateAccount)
		auth.POST("/resend-activate-email", h.ResendActivation)
		auth.POST("/send-reset-password-email", h.SendResetPassword)
		auth.POST("/update-password", h.UpdatePassword)
		auth.GET("/me", h.Me)
		auth.POST("/test-no-auth", h.TestNoAuth)
		auth.POST("/test-with-auth", middleware.RequireRoles(models.RoleAdmin), h.TestWithAuth)
	}
}

// MetricsHandler serves the prometheus registry.
func (h HandlerSet) MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(h.metrics.Registry, promhttp.HandlerOpts{}))
}
