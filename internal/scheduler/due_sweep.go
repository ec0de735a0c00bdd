package scheduler

import (
	"context"
	"time"

	outreachrepo "estate_crm_backend/internal/outreach/repository"
	"estate_crm_backend/platform/db"
	"estate_crm_backend/platform/logger"
)

const (
	defaultSweepInterval  = 30 * time.Second
	defaultSweepBatchSize = 100
)

// DueSweep periodically picks up scheduled outreach attempts whose send time
// has arrived and enqueues their dispatch. It is the safety net behind the
// eager enqueue at scheduling time: the task id dedupe in the client collapses
// double enqueues, and the claim at dispatch time collapses double sends.
type DueSweep struct {
	attempts  *outreachrepo.Repository
	client    *Client
	log       *logger.Logger
	interval  time.Duration
	batchSize int
}

func NewDueSweep(pool db.Querier, client *Client, log *logger.Logger, interval time.Duration, batchSize int) *DueSweep {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}

	return &DueSweep{
		attempts:  outreachrepo.New(pool),
		client:    client,
		log:       log,
		interval:  interval,
		batchSize: batchSize,
	}
}

func (s *DueSweep) Run(ctx context.Context) {
	if s == nil || s.attempts == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *DueSweep) sweep(ctx context.Context) {
	now := time.Now().UTC()

	due, err := s.attempts.ListDueScheduled(ctx, now, s.batchSize)
	if err != nil {
		s.log.Warn("due outreach sweep failed", "error", err)
		return
	}

	enqueued := 0
	for _, attempt := range due {
		if err := s.client.EnqueueDispatch(ctx, attempt.ID, attempt.TenantID, now); err != nil {
			s.log.Warn("enqueue due attempt failed", "attempt_id", attempt.ID, "error", err)
			continue
		}
		enqueued++
	}

	if enqueued > 0 {
		s.log.Info("due outreach sweep enqueued attempts", "count", enqueued)
	}
}
