package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/HammerMeetNail/rideparty/internal/logging"
	"github.com/HammerMeetNail/rideparty/internal/metrics"
)

type partyExpirer interface {
	DeactivateExpired(ctx context.Context) ([]uuid.UUID, error)
}

// ExpirySweeper periodically ends parties whose expiry has passed.
type ExpirySweeper struct {
	parties  partyExpirer
	interval time.Duration
	timeout  time.Duration
	cron     *cron.Cron
}

func NewExpirySweeper(parties partyExpirer, interval time.Duration) *ExpirySweeper {
	return &ExpirySweeper{
		parties:  parties,
		interval: interval,
		timeout:  30 * time.Second,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

func (s *ExpirySweeper) Start() error {
	schedule := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(schedule, s.runOnce); err != nil {
		return fmt.Errorf("scheduling expiry sweep: %w", err)
	}
	s.cron.Start()
	logging.Info("Expiry sweeper started", logging.Fields{"interval": s.interval.String()})
	return nil
}

// Stop halts scheduling; the returned context is done once a running sweep
// has finished.
func (s *ExpirySweeper) Stop() context.Context {
	return s.cron.Stop()
}

func (s *ExpirySweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, _ = s.Sweep(ctx)
}

// Sweep deactivates expired parties once and reports how many ended.
func (s *ExpirySweeper) Sweep(ctx context.Context) (int, error) {
	ended, err := s.parties.DeactivateExpired(ctx)
	if err != nil {
		logging.Error("Expiry sweep failed", logging.Fields{"error": err})
		return 0, err
	}
	if len(ended) > 0 {
		metrics.AddPartiesEnded(len(ended))
		logging.Info("Ended expired parties", logging.Fields{"count": len(ended)})
	}
	return len(ended), nil
}
