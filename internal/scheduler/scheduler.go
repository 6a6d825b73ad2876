// Package scheduler triggers scrape runs on a cron schedule and records each
// outcome in the run log. At most one run is in flight at any time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/albapepper/mercato-data/internal/runlog"
)

// DefaultSpec runs twice a day.
const DefaultSpec = "@every 12h"

// DefaultTimeout bounds a single run.
const DefaultTimeout = 5 * time.Minute

// ErrRunInProgress is returned by RunOnce when another run holds the lock.
var ErrRunInProgress = errors.New("a scrape run is already in progress")

// Job performs one run and returns a one-line summary. The summary is kept
// on failure too.
type Job func(ctx context.Context) (summary string, err error)

// Options configures a Scheduler. Zero values take defaults.
type Options struct {
	Spec    string
	Timeout time.Duration
	// RunImmediately triggers a run as soon as Start is called.
	RunImmediately bool
	Clock          func() time.Time
	Logger         *slog.Logger
}

// Status is a snapshot of scheduler activity.
type Status struct {
	Running  bool
	Runs     int
	Failures int
	Skipped  int
	LastRun  *runlog.Entry
}

// Scheduler owns the run lock.
type Scheduler struct {
	job  Job
	log  runlog.Log
	opts Options

	run      sync.Mutex     // held for the duration of a run or exclusive task
	inflight sync.WaitGroup // runs started outside cron

	mu     sync.Mutex // guards status
	status Status
}

// New creates a scheduler. log may be nil to skip recording outcomes.
func New(job Job, log runlog.Log, opts Options) *Scheduler {
	if opts.Spec == "" {
		opts.Spec = DefaultSpec
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scheduler{job: job, log: log, opts: opts}
}

// RunOnce performs a run unless one is already in flight.
func (s *Scheduler) RunOnce(ctx context.Context) (runlog.Entry, error) {
	if !s.run.TryLock() {
		s.mu.Lock()
		s.status.Skipped++
		s.mu.Unlock()
		s.opts.Logger.Warn("Skipping scrape run, previous run still in progress")
		return runlog.Entry{}, ErrRunInProgress
	}
	defer s.run.Unlock()

	s.setRunning(true)
	defer s.setRunning(false)

	runCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	entry := runlog.Entry{StartedAt: s.opts.Clock()}
	summary, err := s.job(runCtx)
	entry.FinishedAt = s.opts.Clock()
	entry.Success = err == nil
	entry.Summary = summary
	if err != nil {
		if summary != "" {
			entry.Summary = fmt.Sprintf("%v (%s)", err, summary)
		} else {
			entry.Summary = err.Error()
		}
	}
	entry.Summary = runlog.Truncate(entry.Summary, runlog.MaxSummary)

	if s.log != nil {
		// The run context may have expired; recording must still happen.
		logCtx, cancelLog := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		if lerr := s.log.Append(logCtx, entry); lerr != nil {
			s.opts.Logger.Error("Recording run outcome failed", "error", lerr)
		}
		cancelLog()
	}

	s.mu.Lock()
	s.status.Runs++
	if err != nil {
		s.status.Failures++
	}
	last := entry
	s.status.LastRun = &last
	s.mu.Unlock()

	elapsed := entry.FinishedAt.Sub(entry.StartedAt).Round(time.Millisecond)
	if err != nil {
		s.opts.Logger.Error("Scrape run failed", "duration", elapsed, "error", err, "summary", summary)
	} else {
		s.opts.Logger.Info("Scrape run finished", "duration", elapsed, "summary", summary)
	}
	return entry, err
}

// Exclusive runs fn under the run lock so it never overlaps a scrape. It
// returns ErrRunInProgress without calling fn when the lock is taken.
func (s *Scheduler) Exclusive(ctx context.Context, fn func(context.Context) error) error {
	if !s.run.TryLock() {
		return ErrRunInProgress
	}
	defer s.run.Unlock()
	return fn(ctx)
}

// Start runs the schedule until ctx is cancelled, then waits for an
// in-flight run to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	cl := cronLogger{logger: s.opts.Logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(s.opts.Spec, func() { _, _ = s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.opts.Spec, err)
	}

	s.opts.Logger.Info("Scheduler started", "spec", s.opts.Spec, "timeout", s.opts.Timeout)
	c.Start()

	if s.opts.RunImmediately {
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			if ctx.Err() == nil {
				_, _ = s.RunOnce(ctx)
			}
		}()
	}

	<-ctx.Done()
	s.opts.Logger.Info("Scheduler stopping")
	<-c.Stop().Done()

	// Wait for an immediate run that cron does not know about.
	s.inflight.Wait()
	return nil
}

// Status returns a snapshot of scheduler activity.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	if st.LastRun != nil {
		last := *st.LastRun
		st.LastRun = &last
	}
	return st
}

func (s *Scheduler) setRunning(v bool) {
	s.mu.Lock()
	s.status.Running = v
	s.mu.Unlock()
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
