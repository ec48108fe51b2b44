package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"tasktracker/internal/cache"
	"tasktracker/internal/config"
	"tasktracker/internal/log"
	"tasktracker/internal/mail"
	"tasktracker/internal/queue"
	"tasktracker/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment).With().Str("component", "mailer").Logger()

	client, err := cache.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	renderer := mail.NewRenderer(cfg.Mail.ClientURL)
	var sender mail.Sender
	if cfg.Mail.SMTP.Host != "" {
		smtp, err := mail.NewSMTPSender(cfg.Mail, renderer)
		if err != nil {
			logger.Fatal().Err(err).Msg("smtp client init failed")
		}
		sender = smtp
	} else {
		logger.Warn().Msg("mail.smtp.host empty; logging mail instead of sending")
		sender = mail.NewLogSender(renderer, logger)
	}

	processor := tasks.NewProcessor(sender, logger)
	consumer := queue.NewConsumer(client, queue.Options{
		Stream:        cfg.Mail.Stream,
		Group:         cfg.Mail.Group,
		Consumer:      cfg.Mail.Consumer,
		ClaimInterval: cfg.Mail.ClaimInterval,
	}, logger, processor)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("consumer stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("consumer did not stop in time")
	}
}
