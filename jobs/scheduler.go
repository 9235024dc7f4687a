package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/anjiri1684/talent_booking/logging"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// runTimeout bounds a single job run.
const runTimeout = 5 * time.Minute

// Scheduler runs the background jobs on cron schedules. Overlapping runs of the same job are skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(logger *zerolog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Nop()
	}
	cl := cronLogger{logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		// Recover sits inside SkipIfStillRunning so a panicking run still releases its slot.
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl), cron.Recover(cl))),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers fn under name. An invalid spec is returned as an error.
func (s *Scheduler) Add(name, spec string, fn func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() { s.run(name, fn) })
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	s.logger.Info().Str("job", name).Str("schedule", spec).Msg("job scheduled")
	return nil
}

func (s *Scheduler) run(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(s.ctx, runTimeout)
	defer cancel()

	start := time.Now()
	if err := fn(ctx); err != nil {
		s.logger.Error().Err(err).Str("job", name).Dur("took", time.Since(start)).Msg("job failed")
		return
	}
	s.logger.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("job finished")
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop cancels in-flight runs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

type cronLogger struct{ l *zerolog.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.l.Debug().Fields(kv).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Error().Err(err).Fields(kv).Msg("cron: " + msg)
}
