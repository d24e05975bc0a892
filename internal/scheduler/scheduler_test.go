package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRegisterRejectsInvalidSpec(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.Register("broken", "every tuesday-ish", func(ctx context.Context) error { return nil })
	require.Error(t, err)
	require.Empty(t, s.jobs)
}

func TestOverlappingFiringSkipped(t *testing.T) {
	s := New(zerolog.Nop())

	release := make(chan struct{})
	var runs atomic.Int32
	err := s.Register("slow", "@every 1h", func(ctx context.Context) error {
		runs.Add(1)
		<-release
		return nil
	})
	require.NoError(t, err)
	j := s.jobs[0]

	go s.fire(j)
	require.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"slow"}, s.Running())

	// Second firing while the first is still in flight must be dropped.
	s.fire(j)
	require.Equal(t, int32(1), runs.Load())

	close(release)
	require.Eventually(t, func() bool { return len(s.Running()) == 0 }, 2*time.Second, 5*time.Millisecond)

	// The guard clears once the run finishes.
	s.fire(j)
	require.Equal(t, int32(2), runs.Load())
}

func TestTaskErrorIsSwallowed(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.Register("flaky", "@every 1h", func(ctx context.Context) error {
		return errors.New("boom")
	}))

	s.fire(s.jobs[0])
	require.Empty(t, s.Running())
}

func TestStartFiresRegisteredJobs(t *testing.T) {
	s := New(zerolog.Nop())

	var runs atomic.Int32
	require.NoError(t, s.Register("tick", "@every 1s", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 5*time.Second, 50*time.Millisecond)
}

func TestRunningEmptyWhenIdle(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.Register("idle", "@every 1h", func(ctx context.Context) error { return nil }))
	require.Empty(t, s.Running())
}
