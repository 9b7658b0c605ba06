package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diegoclair/flashevent-bot/internal/domain/contract"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler drives the chime tick from a cron schedule
type Scheduler struct {
	dispatcher contract.Dispatcher
	cron       *cron.Cron
	log        *zap.Logger
	timeout    time.Duration
}

// New validates spec (standard 5-field cron or a descriptor such as "@hourly")
// and registers the tick. A tick still running when the next one is due is skipped.
func New(dispatcher contract.Dispatcher, spec string, timeout time.Duration, log *zap.Logger) (*Scheduler, error) {
	if spec == "" {
		return nil, errors.New("chime schedule is empty")
	}

	cronLog := zapCronLogger{log: log.Sugar()}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	s := &Scheduler{
		dispatcher: dispatcher,
		cron:       c,
		log:        log,
		timeout:    timeout,
	}

	if _, err := c.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid chime schedule %q: %w", spec, err)
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop halts the schedule and waits for a running tick to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report, err := s.dispatcher.Chime(ctx)
	if err != nil {
		s.log.Error("scheduled chime failed", zap.Error(err))
		return
	}

	s.log.Debug("scheduled chime done",
		zap.Int("evaluated", report.Evaluated),
		zap.Int("notified", report.Notified),
		zap.Int("failed", report.Failed),
	)
}

type zapCronLogger struct {
	log *zap.SugaredLogger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
