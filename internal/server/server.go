package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tasktracker/internal/config"
	"tasktracker/internal/handlers"
	"tasktracker/internal/metrics"
	"tasktracker/internal/middleware"
	"tasktracker/internal/security"
)

type EngineOptions struct {
	Config    *config.AppConfig
	Log       zerolog.Logger
	Metrics   *metrics.Metrics
	Codec     *security.TokenCodec
	Transport *security.CookieTransport
	Handlers  handlers.HandlerSet
}

// NewEngine assembles the middleware chain. Order matters:
// ErrorTranslator must be registered before Auth so that it wraps Auth and
// every handler and turns their errors into the JSON envelope. Recovery sits
// outside both and handles panics.
func NewEngine(opts EngineOptions) *gin.Engine {
	cfg := opts.Config
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.RedirectTrailingSlash = true
	engine.RedirectFixedPath = true

	routes := middleware.NewRouteTable(cfg.Auth.PublicRoutes, cfg.Auth.HeaderTokenRoutes)

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(opts.Log),
		middleware.Recovery(opts.Log),
		middleware.CORS(cfg.AllowCORSOrigins),
		middleware.Metrics(opts.Metrics),
		middleware.ErrorTranslator(opts.Log),
		middleware.Auth(opts.Codec, opts.Transport, routes, opts.Metrics, opts.Log),
	)

	engine.GET("/metrics", opts.Handlers.MetricsHandler())
	opts.Handlers.Routes(engine.Group("/api"))

	return engine
}

type HTTPServer struct {
	server *http.Server
	log    zerolog.Logger
}

func NewHTTPServer(cfg *config.AppConfig, log zerolog.Logger, engine *gin.Engine) *HTTPServer {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &HTTPServer{server: srv, log: log}
}

func (s *HTTPServer) Start() error {
	s.log.Info().
		Str("addr", s.server.Addr).
		Msg("http server starting")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.server.Shutdown(ctx)
}
