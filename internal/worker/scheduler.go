package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/assignment-engine/internal/observability"
)

var (
	// ErrSweepInProgress is returned when a run is requested while one is active.
	ErrSweepInProgress = errors.New("sweep already in progress")
	// ErrUnknownSweep is returned for names that were never registered.
	ErrUnknownSweep = errors.New("unknown sweep")
)

// Sweep is a periodic batch job.
type Sweep interface {
	Name() string
	RunOnce(ctx context.Context) error
}

// Scheduler runs registered sweeps on fixed intervals within this process.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	sweeps  map[string]Sweep
	entries map[string]cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger
}

// NewScheduler creates a stopped scheduler. Overlapping ticks of the same
// sweep are skipped.
func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cronLogger := observability.NewCronLogger(logger.Named("cron"))
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cronLogger), cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		sweeps:  make(map[string]Sweep),
		entries: make(map[string]cron.EntryID),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.Named("scheduler"),
	}
}

// Register adds sweep to run every interval. A non-positive interval
// registers the sweep for manual runs only.
func (s *Scheduler) Register(sweep Sweep, every time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := sweep.Name()
	s.sweeps[name] = sweep
	if every <= 0 {
		return
	}
	s.entries[name] = s.cron.Schedule(cron.Every(every), cron.FuncJob(func() {
		if err := sweep.RunOnce(s.ctx); err != nil && !errors.Is(err, ErrSweepInProgress) {
			s.logger.Error("scheduled sweep failed", zap.String("sweep", name), zap.Error(err))
		}
	}))
	s.logger.Info("sweep scheduled", zap.String("sweep", name), zap.Duration("every", every))
}

// Trigger runs the named sweep now on the caller's goroutine.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	sweep, ok := s.sweeps[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSweep, name)
	}
	return sweep.RunOnce(ctx)
}

// Names lists registered sweeps.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.sweeps))
	for name := range s.sweeps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start begins firing scheduled sweeps.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("sweeps", len(s.entries)))
}

// Stop cancels in-flight runs and waits for them, or for ctx, to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}
