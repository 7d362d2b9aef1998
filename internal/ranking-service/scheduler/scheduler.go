package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/internal/ranking-service/standings"
)

// Sweeper é quem recalcula todos os escopos
type Sweeper interface {
	RecalculateAll(ctx context.Context) (standings.Summary, error)
}

// Scheduler roda o sweep periódico de rankings (GLOBAL + grupos ativos)
type Scheduler struct {
	log      *zap.Logger
	cron     *cron.Cron
	sweeper  Sweeper
	interval time.Duration
	timeout  time.Duration
}

func New(log *zap.Logger, sweeper Sweeper, interval, timeout time.Duration) *Scheduler {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(zap.NewStdLog(log)))),
	)
	return &Scheduler{log: log, cron: c, sweeper: sweeper, interval: interval, timeout: timeout}
}

// Start agenda o sweep a cada intervalo; não bloqueia
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		return fmt.Errorf("invalid sweep interval %s", s.interval)
	}
	if _, err := s.cron.AddFunc("@every "+s.interval.String(), func() { s.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("schedule ranking sweep: %w", err)
	}
	s.cron.Start()
	s.log.Info("ranking sweep scheduled", zap.Duration("interval", s.interval), zap.Duration("timeout", s.timeout))
	return nil
}

// Stop para de agendar e espera o sweep em andamento (ou o ctx) terminar
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("ranking sweep still running at shutdown")
	}
}

// RunOnce executa um sweep com timeout próprio
func (s *Scheduler) RunOnce(ctx context.Context) standings.Summary {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	sum, err := s.sweeper.RecalculateAll(ctx)
	if err != nil {
		s.log.Error("scheduled ranking sweep failed", zap.Error(err))
	}
	s.log.Info("scheduled ranking sweep done",
		zap.String("run_id", sum.RunID),
		zap.Int("failed", len(sum.Failed)),
		zap.Duration("took", time.Since(start)),
	)
	return sum
}
