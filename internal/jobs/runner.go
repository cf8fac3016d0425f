package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/arman-dn/fleetops-contracts/internal/service"
)

type Runner struct {
	contracts *service.ContractService
	log       zerolog.Logger
}

func NewRunner(contracts *service.ContractService, log zerolog.Logger) *Runner {
	return &Runner{contracts: contracts, log: log}
}

// SweepOverdue flags active contracts past their end date into the audit
// log. It never mutates contract status.
func (r *Runner) SweepOverdue() {
	r.runWithRecovery("sweep_overdue", func(ctx context.Context) error {
		count, err := r.contracts.SweepOverdue(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			r.log.Info().Int("count", count).Msg("flagged overdue contracts")
		}
		return nil
	})
}

func (r *Runner) runWithRecovery(name string, fn func(ctx context.Context) error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Interface("panic", rec).Str("job", name).Msg("job panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := fn(ctx); err != nil {
		r.log.Error().Err(err).Str("job", name).Msg("job failed")
	}
}
