// Package scheduler owns the bot's periodic work: a fixed set of named jobs
// on cron-style schedules. Firings never block the schedule loop, and a
// firing that overlaps the job's own previous run is skipped rather than run
// twice.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Task is one job body. It receives the scheduler's root context and should
// return instead of crashing; the error is logged, never fatal.
type Task func(ctx context.Context) error

type job struct {
	name    string
	spec    string
	task    Task
	running atomic.Bool
}

// Scheduler is constructed once at startup, after the Discord session is
// ready, and runs until process shutdown.
type Scheduler struct {
	log  zerolog.Logger
	cron *cron.Cron

	mu      sync.Mutex
	jobs    []*job
	ctx     context.Context
	started bool
}

func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		log:  log.With().Str("comp", "scheduler").Logger(),
		cron: cron.New(),
	}
}

// Register adds a job. The job set is fixed: everything is registered before
// Start and nothing is added or removed afterwards.
func (s *Scheduler) Register(name, spec string, task Task) error {
	j := &job{name: name, spec: spec, task: task}
	if _, err := s.cron.AddFunc(spec, func() { s.fire(j) }); err != nil {
		return fmt.Errorf("register job %q: %w", name, err)
	}

	s.mu.Lock()
	s.jobs = append(s.jobs, j)
	s.mu.Unlock()

	s.log.Info().Str("job", name).Str("schedule", spec).Msg("job registered")
	return nil
}

// Start begins firing schedules; they stop when ctx is cancelled. The cron
// runner launches every firing in its own goroutine, so a stuck task cannot
// delay other jobs' firings.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	go func() {
		<-ctx.Done()
		s.cron.Stop()
	}()
	s.log.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
}

// fire runs one firing of a job under its overlap guard.
func (s *Scheduler) fire(j *job) {
	if !j.running.CompareAndSwap(false, true) {
		s.log.Warn().Str("job", j.name).Msg("firing skipped, previous run still active")
		return
	}
	defer j.running.Store(false)

	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	s.log.Debug().Str("job", j.name).Msg("job started")
	if err := j.task(ctx); err != nil {
		s.log.Error().Err(err).Str("job", j.name).Msg("job failed")
		return
	}
	s.log.Debug().Str("job", j.name).Msg("job finished")
}

// Running returns the names of jobs currently executing.
func (s *Scheduler) Running() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for _, j := range s.jobs {
		if j.running.Load() {
			out = append(out, j.name)
		}
	}
	return out
}
