package jobs

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs housekeeping for the mail outbox stream.
type Scheduler struct {
	cron   *cron.Cron
	queue  *redis.Client
	stream string
	maxLen int64
	spec   string
	log    zerolog.Logger
}

func NewScheduler(queue *redis.Client, stream string, maxLen int64, spec string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		queue:  queue,
		stream: stream,
		maxLen: maxLen,
		spec:   spec,
		log:    log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil || s.spec == "" || s.maxLen <= 0 {
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, s.trimOutbox); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits up to five seconds for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) trimOutbox() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	removed, err := s.TrimOutbox(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("stream", s.stream).Msg("outbox trim failed")
		return
	}
	s.log.Debug().Int64("removed", removed).Str("stream", s.stream).Msg("outbox trimmed")
}

// TrimOutbox caps the outbox stream near maxLen entries.
func (s *Scheduler) TrimOutbox(ctx context.Context) (int64, error) {
	return s.queue.XTrimMaxLenApprox(ctx, s.stream, s.maxLen, 0).Result()
}
