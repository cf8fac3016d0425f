package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/arman-dn/fleetops-contracts/internal/config"
	"github.com/arman-dn/fleetops-contracts/internal/jobs"
)

type Scheduler struct {
	cron *cron.Cron
}

func New(cfg *config.Config, runner *jobs.Runner, log zerolog.Logger) (*Scheduler, error) {
	c := cron.New(cron.WithLocation(time.UTC))

	if _, err := c.AddFunc(cfg.Jobs.OverdueSweepSchedule, runner.SweepOverdue); err != nil {
		return nil, err
	}

	log.Info().Str("schedule", cfg.Jobs.OverdueSweepSchedule).Msg("overdue sweep registered")
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}
