package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/assignment-engine/internal/domain"
	"github.com/spec-kit/assignment-engine/internal/observability"
)

// SLABreachSweepName identifies the breach sweep.
const SLABreachSweepName = "sla_breach"

// BreachFlagger lists and flags SLA breaches.
type BreachFlagger interface {
	ListBreachCandidates(ctx context.Context, limit int) ([]domain.Ticket, error)
	FlagBreach(ctx context.Context, ticketID string) (domain.BreachType, bool, error)
}

// SLABreachSweeper flags tickets whose SLA deadlines have passed.
type SLABreachSweeper struct {
	running   sync.Mutex
	sla       BreachFlagger
	batchSize int
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewSLABreachSweeper creates the sweeper.
func NewSLABreachSweeper(sla BreachFlagger, batchSize int, logger *zap.Logger, metrics *observability.Metrics) *SLABreachSweeper {
	if batchSize <= 0 {
		batchSize = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLABreachSweeper{
		sla:       sla,
		batchSize: batchSize,
		logger:    logger.Named("sla_sweeper"),
		metrics:   metrics,
	}
}

func (s *SLABreachSweeper) Name() string { return SLABreachSweepName }

// RunOnce flags one batch of breaches. A failure on one ticket is logged and
// the rest of the batch still runs.
func (s *SLABreachSweeper) RunOnce(ctx context.Context) error {
	if !s.running.TryLock() {
		s.metrics.RecordSweep(SLABreachSweepName, "skipped", 0)
		return ErrSweepInProgress
	}
	defer s.running.Unlock()

	start := time.Now()
	candidates, err := s.sla.ListBreachCandidates(ctx, s.batchSize)
	if err != nil {
		s.metrics.RecordSweep(SLABreachSweepName, "failed", time.Since(start))
		s.logger.Error("failed to list breach candidates", zap.Error(err))
		return err
	}

	var flagged, failed int
	for _, ticket := range candidates {
		if ctx.Err() != nil {
			break
		}
		_, ok, err := s.sla.FlagBreach(ctx, ticket.ID)
		if err != nil {
			failed++
			s.logger.Error("failed to flag breach", zap.String("ticket_id", ticket.ID), zap.Error(err))
			continue
		}
		if ok {
			flagged++
		}
	}

	s.metrics.RecordSweep(SLABreachSweepName, "success", time.Since(start))
	s.logger.Info("SLA sweep complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("flagged", flagged),
		zap.Int("failed", failed),
		zap.Duration("took", time.Since(start)))
	return ctx.Err()
}
