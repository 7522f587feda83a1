package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/matkabet/numbers-bet-platform/internal/markets"
)

// Scheduler drives the UPCOMING -> OPEN -> CLOSED lifecycle off the stored
// opening and closing times. Transitions are idempotent, so overlapping runs
// after a restart are harmless.
type Scheduler struct {
	log  *zap.Logger
	repo *markets.Postgres
	cron *cron.Cron
}

func New(log *zap.Logger, repo *markets.Postgres) *Scheduler {
	return &Scheduler{log: log, repo: repo, cron: cron.New()}
}

func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc("@every 30s", s.tick)
	if err != nil {
		return err
	}
	s.tick() // catch up on anything due while the service was down
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	opened, err := s.repo.OpenDue(ctx, now)
	if err != nil {
		s.log.Error("open due markets", zap.Error(err))
	}
	closed, err := s.repo.CloseDue(ctx, now)
	if err != nil {
		s.log.Error("close due markets", zap.Error(err))
	}
	if opened > 0 || closed > 0 {
		s.log.Info("market lifecycle tick", zap.Int64("opened", opened), zap.Int64("closed", closed))
	}
}
