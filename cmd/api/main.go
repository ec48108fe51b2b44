package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tasktracker/internal/cache"
	"tasktracker/internal/config"
	"tasktracker/internal/database"
	"tasktracker/internal/handlers"
	"tasktracker/internal/jobs"
	"tasktracker/internal/log"
	"tasktracker/internal/mail"
	"tasktracker/internal/metrics"
	"tasktracker/internal/repository"
	"tasktracker/internal/security"
	"tasktracker/internal/server"
	"tasktracker/internal/service"
)

type stores struct {
	accounts   service.AccountStore
	activities service.ActivityStore
	roles      service.RoleStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	var (
		dbPool      *pgxpool.Pool
		redisClient *redis.Client
		st          stores
	)

	switch cfg.Storage.Driver {
	case "postgres":
		dbPool, err = database.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect postgres")
		}
		if err := database.Migrate(ctx, dbPool); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
		st = stores{
			accounts:   repository.NewAccountRepository(dbPool),
			activities: repository.NewActivityRepository(dbPool),
			roles:      repository.NewRoleRepository(dbPool),
		}
	default:
		logger.Warn().Msg("using in-memory storage; accounts are lost on restart")
		mem := repository.NewMemoryStore()
		st = stores{accounts: mem, activities: mem, roles: mem}
	}

	if cfg.Mail.Transport == "outbox" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
	}

	renderer := mail.NewRenderer(cfg.Mail.ClientURL)
	sender, err := newSender(cfg, renderer, redisClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init mail sender")
	}

	codec, err := security.NewTokenCodec(cfg.Security.JWTSecret, cfg.Security.AccessTTL, cfg.Security.ResetTTL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init token codec")
	}
	hasher := security.NewPasswordHasher(cfg.Security.BcryptCost)
	transport := security.NewCookieTransport(cfg.Cookie.Name, cfg.Cookie.Domain, codec.TTL(security.PurposeAccess))
	m := metrics.New()
	mailer := service.NewDispatcher(sender, cfg.Mail.SendTimeout, logger)

	accounts := service.NewAccountService(service.AccountDeps{
		Accounts:    st.accounts,
		Activities:  st.activities,
		Roles:       st.roles,
		Hasher:      hasher,
		Codec:       codec,
		Mailer:      mailer,
		Metrics:     m,
		DefaultRole: cfg.Auth.DefaultRole,
		Log:         logger,
	})
	auth := service.NewAuthService(service.NewCredentialStore(st.accounts, hasher, logger), st.activities, codec, m, logger)

	deps := handlers.Dependencies{
		Log:       logger,
		Config:    cfg,
		Accounts:  accounts,
		Auth:      auth,
		Transport: transport,
		Metrics:   m,
	}
	if dbPool != nil {
		deps.Database = dbPool.Ping
	}
	if redisClient != nil {
		deps.Cache = cache.Ping(redisClient)
	}

	engine := server.NewEngine(server.EngineOptions{
		Config:    cfg,
		Log:       logger,
		Metrics:   m,
		Codec:     codec,
		Transport: transport,
		Handlers:  handlers.NewHandlerSet(deps),
	})
	httpServer := server.NewHTTPServer(cfg, logger, engine)

	scheduler := jobs.NewScheduler(redisClient, cfg.Mail.Stream, cfg.Mail.OutboxMaxLen, cfg.Jobs.OutboxTrim, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, mailer, dbPool, redisClient)
}

func newSender(cfg *config.AppConfig, renderer *mail.Renderer, redisClient *redis.Client, logger zerolog.Logger) (mail.Sender, error) {
	switch cfg.Mail.Transport {
	case "outbox":
		return mail.NewOutbox(redisClient, cfg.Mail.Stream), nil
	case "smtp":
		return mail.NewSMTPSender(cfg.Mail, renderer)
	default:
		return mail.NewLogSender(renderer, logger), nil
	}
}

func waitForShutdown(
	logger zerolog.Logger,
	srv *server.HTTPServer,
	scheduler *jobs.Scheduler,
	mailer *service.Dispatcher,
	db *pgxpool.Pool,
	redisClient *redis.Client,
) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	if err := mailer.Close(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("pending mail abandoned")
	}

	scheduler.Stop()

	if db != nil {
		db.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
