package history

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tallyhq/tally/internal/logger"
)

// DefaultRetention is how long invocation rows are kept before the sweeper
// removes them.
const DefaultRetention = 30 * 24 * time.Hour

// defaultSweepSpec runs the sweep nightly, off peak.
const defaultSweepSpec = "0 3 * * *"

// Sweeper prunes expired invocation rows on a cron schedule.
type Sweeper struct {
	store     *Store
	retention time.Duration
	cron      *cron.Cron
	log       *logger.Logger
}

// NewSweeper creates a sweeper over store. A non-positive retention falls
// back to DefaultRetention.
func NewSweeper(store *Store, retention time.Duration, log *logger.Logger) *Sweeper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Sweeper{
		store:     store,
		retention: retention,
		cron:      cron.New(),
		log:       log,
	}
}

// Start schedules the nightly sweep and runs one sweep immediately so a
// long-stopped server catches up on restart.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(defaultSweepSpec, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	go s.sweep()
	return nil
}

// Stop halts scheduling. A sweep already in progress runs to completion.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) sweep() {
	cutoff := time.Now().UTC().Add(-s.retention)
	n, err := s.store.Prune(cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("history sweep failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("pruned", n).Time("cutoff", cutoff).Msg("history sweep complete")
	}
}
