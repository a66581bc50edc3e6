package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/assignment-engine/internal/domain"
	"github.com/spec-kit/assignment-engine/internal/mocks"
	"github.com/spec-kit/assignment-engine/internal/observability"
)

func TestSLABreachSweeperContinuesPastFailures(t *testing.T) {
	flagger := new(mocks.MockBreachFlagger)
	flagger.On("ListBreachCandidates", mock.Anything, 50).
		Return([]domain.Ticket{{ID: "t1"}, {ID: "t2"}, {ID: "t3"}}, nil)
	flagger.On("FlagBreach", mock.Anything, "t1").Return(domain.BreachTypeResponse, true, nil)
	flagger.On("FlagBreach", mock.Anything, "t2").Return(domain.BreachType(""), false, errors.New("deadlock detected"))
	flagger.On("FlagBreach", mock.Anything, "t3").Return(domain.BreachTypeResolution, true, nil)

	sweeper := NewSLABreachSweeper(flagger, 50, nil, observability.NewMetrics())
	require.NoError(t, sweeper.RunOnce(context.Background()))
	flagger.AssertNumberOfCalls(t, "FlagBreach", 3)
}

func TestSLABreachSweeperReportsListFailure(t *testing.T) {
	flagger := new(mocks.MockBreachFlagger)
	flagger.On("ListBreachCandidates", mock.Anything, 500).Return(nil, errors.New("connection refused"))

	sweeper := NewSLABreachSweeper(flagger, 0, nil, nil)
	assert.Error(t, sweeper.RunOnce(context.Background()))
	flagger.AssertNotCalled(t, "FlagBreach", mock.Anything, mock.Anything)
}

func TestSLABreachSweeperSkipsOverlappingRun(t *testing.T) {
	flagger := new(mocks.MockBreachFlagger)
	sweeper := NewSLABreachSweeper(flagger, 10, nil, nil)

	sweeper.running.Lock()
	err := sweeper.RunOnce(context.Background())
	sweeper.running.Unlock()

	assert.ErrorIs(t, err, ErrSweepInProgress)
	flagger.AssertNotCalled(t, "ListBreachCandidates", mock.Anything, mock.Anything)
}

func TestAutoAssignSweeperUsesGracePeriod(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assigner := new(mocks.MockAutoAssigner)
	assigner.On("ListStaleUnassigned", mock.Anything, now.Add(-5*time.Minute), 10).
		Return([]string{"t1", "t2", "t3"}, nil)
	assigner.On("AutoAssign", mock.Anything, "t1").Return(&domain.Ticket{ID: "t1"}, nil)
	assigner.On("AutoAssign", mock.Anything, "t2").Return(nil, nil)
	assigner.On("AutoAssign", mock.Anything, "t3").Return(nil, errors.New("boom"))

	sweeper := NewAutoAssignSweeper(assigner, 0, 0, nil, nil)
	sweeper.now = func() time.Time { return now }

	require.NoError(t, sweeper.RunOnce(context.Background()))
	assigner.AssertExpectations(t)
}

func TestAutoAssignSweeperStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assigner := new(mocks.MockAutoAssigner)
	assigner.On("ListStaleUnassigned", mock.Anything, mock.Anything, 10).Return([]string{"t1", "t2"}, nil)
	assigner.On("AutoAssign", mock.Anything, "t1").Run(func(mock.Arguments) { cancel() }).Return(nil, nil)

	sweeper := NewAutoAssignSweeper(assigner, 10, time.Minute, nil, nil)
	assert.ErrorIs(t, sweeper.RunOnce(ctx), context.Canceled)
	assigner.AssertNotCalled(t, "AutoAssign", mock.Anything, "t2")
}

type countingSweep struct {
	name string
	runs atomic.Int32
}

func (c *countingSweep) Name() string { return c.name }

func (c *countingSweep) RunOnce(context.Context) error {
	c.runs.Add(1)
	return nil
}

func TestSchedulerTrigger(t *testing.T) {
	scheduler := NewScheduler(nil)
	manual := &countingSweep{name: "manual"}
	scheduler.Register(manual, 0)

	require.NoError(t, scheduler.Trigger(context.Background(), "manual"))
	assert.EqualValues(t, 1, manual.runs.Load())
	assert.Equal(t, []string{"manual"}, scheduler.Names())

	err := scheduler.Trigger(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownSweep)
}

func TestSchedulerRunsOnInterval(t *testing.T) {
	scheduler := NewScheduler(nil)
	periodic := &countingSweep{name: "periodic"}
	scheduler.Register(periodic, time.Second)
	scheduler.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	defer scheduler.Stop(ctx)

	assert.Eventually(t, func() bool { return periodic.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}
