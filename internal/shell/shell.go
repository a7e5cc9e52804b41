// Package shell decides when the background jobs run. It owns no tracking
// logic: every job delegates to an engine and every state change is a
// store transaction, so the same code runs under a ticker or synchronously
// from a test.
package shell

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/dayledger/internal/clock"
	"github.com/julianstephens/dayledger/internal/constants"
	apperrors "github.com/julianstephens/dayledger/internal/errors"
	"github.com/julianstephens/dayledger/internal/logger"
	"github.com/julianstephens/dayledger/internal/models"
	"github.com/julianstephens/dayledger/internal/storage"
	"github.com/julianstephens/dayledger/internal/utils"
)

// Tick is the instant a job is evaluated at. Today is Now's calendar day in
// the clock's location.
type Tick struct {
	Now   time.Time
	Today string
}

// Job is one scheduled unit of work.
type Job interface {
	Name() string
	// Due reports whether the job's boundary has passed since its last
	// successful run.
	Due(tick Tick, state models.JobState) bool
	Run(ctx context.Context, tick Tick) error
}

type Config struct {
	TickInterval  time.Duration
	ReviewWeekday time.Weekday
	ReviewHour    int
	SummaryHour   int
	RetryBase     time.Duration
	RetryMax      time.Duration
}

func DefaultConfig() Config {
	return Config{
		TickInterval:  constants.DefaultTickInterval,
		ReviewWeekday: constants.DefaultReviewWeekday,
		ReviewHour:    constants.DefaultReviewHour,
		SummaryHour:   constants.DefaultSummaryHour,
		RetryBase:     constants.DefaultRetryBase,
		RetryMax:      constants.DefaultRetryMax,
	}
}

// Outcome is the result of evaluating one job.
type Outcome struct {
	Job    string
	Status models.JobStatus
	Ran    bool
	Err    error
}

type Shell struct {
	store    storage.Provider
	clock    clock.Clock
	cfg      Config
	jobs     []Job
	triggers chan string
}

func New(store storage.Provider, clk clock.Clock, cfg Config, jobs ...Job) *Shell {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = constants.DefaultTickInterval
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = constants.DefaultRetryBase
	}
	if cfg.RetryMax < cfg.RetryBase {
		cfg.RetryMax = cfg.RetryBase
	}
	return &Shell{
		store:    store,
		clock:    clk,
		cfg:      cfg,
		jobs:     jobs,
		triggers: make(chan string, 8),
	}
}

func (s *Shell) tick() Tick {
	now := s.clock.Now()
	return Tick{Now: now, Today: utils.DayOf(now, s.clock.Location())}
}

func (s *Shell) job(name string) (Job, error) {
	for _, j := range s.jobs {
		if j.Name() == name {
			return j, nil
		}
	}
	return nil, apperrors.NotFound("job", name)
}

// Backoff is the wait before retry number attempts (1-based): RetryBase
// doubled per earlier failure, capped at RetryMax.
func (s *Shell) Backoff(attempts int) time.Duration {
	d := s.cfg.RetryBase
	for i := 1; i < attempts && d < s.cfg.RetryMax; i++ {
		d *= 2
	}
	return min(d, s.cfg.RetryMax)
}

func (s *Shell) loadState(ctx context.Context, name string) (models.JobState, error) {
	var state models.JobState
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		state, err = tx.GetJobState(name)
		return err
	})
	if apperrors.IsNotFound(err) {
		return models.JobState{Name: name, Status: models.JobIdle}, nil
	}
	return state, err
}

func (s *Shell) saveState(ctx context.Context, state models.JobState) error {
	state.UpdatedAt = clock.Stamp(s.clock)
	return s.store.Update(ctx, func(tx storage.Tx) error {
		return tx.PutJobState(state)
	})
}

// States returns the persisted state of every registered job.
func (s *Shell) States(ctx context.Context) ([]models.JobState, error) {
	states := make([]models.JobState, 0, len(s.jobs))
	for _, j := range s.jobs {
		state, err := s.loadState(ctx, j.Name())
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, nil
}

// ready reports whether a job should run now. A job left Running by a
// crashed process is treated like a failure whose backoff has expired.
func (s *Shell) ready(j Job, tick Tick, state models.JobState) bool {
	if state.Status == models.JobFailed && state.NextAttemptAt != nil && tick.Now.Before(*state.NextAttemptAt) {
		return false
	}
	return j.Due(tick, state)
}

// RunDue evaluates every job once and runs the ones that are due, in
// registration order. Cancellation is checked between jobs.
func (s *Shell) RunDue(ctx context.Context) ([]Outcome, error) {
	var outcomes []Outcome
	for _, j := range s.jobs {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcome, err := s.evaluate(ctx, j, false)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// RunJob runs the named job now, ignoring its boundary and any backoff.
func (s *Shell) RunJob(ctx context.Context, name string) (Outcome, error) {
	j, err := s.job(name)
	if err != nil {
		return Outcome{}, err
	}
	return s.evaluate(ctx, j, true)
}

// evaluate drives one job through Idle -> Due -> Running -> Idle, or to
// Failed with a retry time. The returned error is a state-store failure;
// job failures are reported in the Outcome.
func (s *Shell) evaluate(ctx context.Context, j Job, force bool) (Outcome, error) {
	tick := s.tick()
	state, err := s.loadState(ctx, j.Name())
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to load state for job %s: %w", j.Name(), err)
	}
	if !force && !s.ready(j, tick, state) {
		return Outcome{Job: j.Name(), Status: state.Status}, nil
	}

	for _, status := range []models.JobStatus{models.JobDue, models.JobRunning} {
		state.Status = status
		if err := s.saveState(ctx, state); err != nil {
			return Outcome{}, fmt.Errorf("failed to mark job %s %s: %w", j.Name(), status, err)
		}
	}

	logger.Debug("Running job", "job", j.Name(), "today", tick.Today, "forced", force)
	runErr := j.Run(ctx, tick)
	if runErr != nil {
		state.Status = models.JobFailed
		state.Attempts++
		state.LastError = runErr.Error()
		next := tick.Now.Add(s.Backoff(state.Attempts))
		state.NextAttemptAt = &next
		logger.Warn("Job failed", "job", j.Name(), "attempts", state.Attempts, "retry_at", next, "error", runErr)
	} else {
		now := tick.Now
		state.Status = models.JobIdle
		state.Attempts = 0
		state.LastError = ""
		state.NextAttemptAt = nil
		state.LastRunDay = tick.Today
		state.LastRunAt = &now
		logger.Info("Job completed", "job", j.Name(), "day", tick.Today)
	}

	// The job's own transaction is already settled; record the outcome even
	// if the caller's context was cancelled meanwhile.
	if err := s.saveState(context.WithoutCancel(ctx), state); err != nil {
		return Outcome{}, fmt.Errorf("failed to record outcome of job %s: %w", j.Name(), err)
	}
	return Outcome{Job: j.Name(), Status: state.Status, Ran: true, Err: runErr}, nil
}

// Trigger asks a running shell to evaluate the named job (forced) or, with
// an empty name, every job. It reports false when the queue is full.
func (s *Shell) Trigger(name string) bool {
	select {
	case s.triggers <- name:
		return true
	default:
		logger.Warn("Dropped job trigger, queue full", "job", name)
		return false
	}
}

// Run evaluates jobs on every tick and on every Trigger until ctx is
// cancelled. The ticker only emits triggers; a single worker runs the jobs.
func (s *Shell) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(s.cfg.TickInterval)
		defer ticker.Stop()

		s.Trigger("")
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				s.Trigger("")
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case name := <-s.triggers:
				if err := s.handle(ctx, name); err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					// The next tick re-evaluates from persisted state.
					logger.Error("Job evaluation failed", "job", name, "error", err)
				}
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Shell) handle(ctx context.Context, name string) error {
	if name == "" {
		_, err := s.RunDue(ctx)
		return err
	}
	_, err := s.RunJob(ctx, name)
	return err
}
