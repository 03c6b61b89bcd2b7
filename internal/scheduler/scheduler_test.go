package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type lifecycleStub struct {
	reconciles int32
	sweeps     int32
	err        error
}

func (l *lifecycleStub) ReconcileAllCounters(ctx context.Context) (int, error) {
	atomic.AddInt32(&l.reconciles, 1)
	return 3, l.err
}

func (l *lifecycleStub) SweepOverdue(ctx context.Context) (int, error) {
	atomic.AddInt32(&l.sweeps, 1)
	return 2, l.err
}

func TestSchedulerRejectsInvalidSpec(t *testing.T) {
	s := New(&lifecycleStub{}, Config{ReconcileSpec: "not a cron spec"}, nil)
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "counter reconciliation")
}

func TestSchedulerRunsReconcileOnStart(t *testing.T) {
	stub := &lifecycleStub{}
	s := New(stub, Config{ReconcileSpec: "@every 1h", OverdueSpec: "0 8 * * *", RunOnStart: true}, nil)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)

	require.Eventually(t, func() bool { return atomic.LoadInt32(&stub.reconciles) == 1 }, time.Second, 10*time.Millisecond)
	assert.Len(t, s.cron.Entries(), 2)
}

func TestSchedulerJobsLogOutcome(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	stub := &lifecycleStub{}
	s := New(stub, Config{}, zap.New(core))

	s.runOverdueSweep(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.sweeps))
	assert.Equal(t, 1, logs.FilterMessage("profiles breaching screening SLA").Len())

	stub.err = errors.New("db down")
	s.runReconcile(context.Background())
	assert.Equal(t, 1, logs.FilterMessage("counter reconciliation finished with errors").Len())
}
