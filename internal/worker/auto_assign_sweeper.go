package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/assignment-engine/internal/domain"
	"github.com/spec-kit/assignment-engine/internal/observability"
)

// AutoAssignSweepName identifies the auto-assignment sweep.
const AutoAssignSweepName = "auto_assign"

// AutoAssigner assigns stale unassigned tickets.
type AutoAssigner interface {
	ListStaleUnassigned(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
	AutoAssign(ctx context.Context, ticketID string) (*domain.Ticket, error)
}

// AutoAssignSweeper retries auto-assignment for OPEN tickets nobody picked up
// within the grace period.
type AutoAssignSweeper struct {
	running   sync.Mutex
	assigner  AutoAssigner
	batchSize int
	grace     time.Duration
	now       func() time.Time
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewAutoAssignSweeper creates the sweeper.
func NewAutoAssignSweeper(assigner AutoAssigner, batchSize int, grace time.Duration, logger *zap.Logger, metrics *observability.Metrics) *AutoAssignSweeper {
	if batchSize <= 0 {
		batchSize = 10
	}
	if grace <= 0 {
		grace = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutoAssignSweeper{
		assigner:  assigner,
		batchSize: batchSize,
		grace:     grace,
		now:       time.Now,
		logger:    logger.Named("auto_assign_sweeper"),
		metrics:   metrics,
	}
}

func (s *AutoAssignSweeper) Name() string { return AutoAssignSweepName }

// RunOnce attempts one batch.
func (s *AutoAssignSweeper) RunOnce(ctx context.Context) error {
	if !s.running.TryLock() {
		s.metrics.RecordSweep(AutoAssignSweepName, "skipped", 0)
		return ErrSweepInProgress
	}
	defer s.running.Unlock()

	start := time.Now()
	ids, err := s.assigner.ListStaleUnassigned(ctx, s.now().Add(-s.grace), s.batchSize)
	if err != nil {
		s.metrics.RecordSweep(AutoAssignSweepName, "failed", time.Since(start))
		s.logger.Error("failed to list unassigned tickets", zap.Error(err))
		return err
	}

	var assigned, unmatched, failed int
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		ticket, err := s.assigner.AutoAssign(ctx, id)
		switch {
		case err != nil:
			failed++
			s.logger.Error("auto-assign failed", zap.String("ticket_id", id), zap.Error(err))
		case ticket == nil:
			unmatched++
			s.logger.Debug("no eligible agent", zap.String("ticket_id", id))
		default:
			assigned++
		}
	}

	s.metrics.RecordSweep(AutoAssignSweepName, "success", time.Since(start))
	s.logger.Info("auto-assign sweep complete",
		zap.Int("tickets", len(ids)),
		zap.Int("assigned", assigned),
		zap.Int("unmatched", unmatched),
		zap.Int("failed", failed))
	return ctx.Err()
}
