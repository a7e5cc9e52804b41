// Package notifier delivers the value objects the scheduling shell computes.
// Sinks decide how to render them; the engines only produce data.
package notifier

import (
	"context"
	"errors"
	"sync"

	"github.com/julianstephens/dayledger/internal/logger"
	"github.com/julianstephens/dayledger/internal/models"
)

type Sink interface {
	NotifyDailySummary(ctx context.Context, summary models.DailySummary) error
	NotifyHabitReminder(ctx context.Context, reminder models.HabitReminder) error
	NotifyWeeklyReview(ctx context.Context, review models.WeeklyReview) error
}

// Fanout delivers to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) NotifyDailySummary(ctx context.Context, s models.DailySummary) error {
	var errs []error
	for _, sink := range f {
		errs = append(errs, sink.NotifyDailySummary(ctx, s))
	}
	return errors.Join(errs...)
}

func (f Fanout) NotifyHabitReminder(ctx context.Context, r models.HabitReminder) error {
	var errs []error
	for _, sink := range f {
		errs = append(errs, sink.NotifyHabitReminder(ctx, r))
	}
	return errors.Join(errs...)
}

func (f Fanout) NotifyWeeklyReview(ctx context.Context, r models.WeeklyReview) error {
	var errs []error
	for _, sink := range f {
		errs = append(errs, sink.NotifyWeeklyReview(ctx, r))
	}
	return errors.Join(errs...)
}

// BestEffort wraps a sink whose failures should be logged, not retried. The
// tray app being closed is not a reason to rerun a job.
func BestEffort(s Sink) Sink {
	return bestEffort{s}
}

type bestEffort struct{ s Sink }

func (b bestEffort) NotifyDailySummary(ctx context.Context, s models.DailySummary) error {
	if err := b.s.NotifyDailySummary(ctx, s); err != nil {
		logger.Warn("Failed to deliver daily summary", "error", err)
	}
	return nil
}

func (b bestEffort) NotifyHabitReminder(ctx context.Context, r models.HabitReminder) error {
	if err := b.s.NotifyHabitReminder(ctx, r); err != nil {
		logger.Warn("Failed to deliver habit reminder", "habit", r.HabitID, "error", err)
	}
	return nil
}

func (b bestEffort) NotifyWeeklyReview(ctx context.Context, r models.WeeklyReview) error {
	if err := b.s.NotifyWeeklyReview(ctx, r); err != nil {
		logger.Warn("Failed to deliver weekly review", "week", r.WeekStart, "error", err)
	}
	return nil
}

// LogSink writes every notification to the application log.
type LogSink struct{}

func (LogSink) NotifyDailySummary(_ context.Context, s models.DailySummary) error {
	logger.Info("Daily summary", "day", s.Day, "habits_completed", s.HabitsCompleted,
		"total_habits", s.TotalHabits, "tasks_completed", s.TasksCompleted)
	return nil
}

func (LogSink) NotifyHabitReminder(_ context.Context, r models.HabitReminder) error {
	logger.Info("Habit reminder", "habit", r.HabitID, "name", r.HabitName)
	return nil
}

func (LogSink) NotifyWeeklyReview(_ context.Context, r models.WeeklyReview) error {
	logger.Info("Weekly review", "week", r.WeekStart, "habits", len(r.Habits),
		"pending_goals", len(r.PendingGoals), "average_score", r.AverageScore)
	return nil
}

// Recorder keeps everything it receives. It is safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	Summaries []models.DailySummary
	Reminders []models.HabitReminder
	Reviews   []models.WeeklyReview
	// Err, when set, is returned from every call after recording.
	Err error
}

func (r *Recorder) NotifyDailySummary(_ context.Context, s models.DailySummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Summaries = append(r.Summaries, s)
	return r.Err
}

func (r *Recorder) NotifyHabitReminder(_ context.Context, h models.HabitReminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Reminders = append(r.Reminders, h)
	return r.Err
}

func (r *Recorder) NotifyWeeklyReview(_ context.Context, w models.WeeklyReview) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Reviews = append(r.Reviews, w)
	return r.Err
}

// SetErr changes the error returned by later calls.
func (r *Recorder) SetErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Err = err
}

// Counts returns how many summaries, reminders and reviews were recorded.
func (r *Recorder) Counts() (summaries, reminders, reviews int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Summaries), len(r.Reminders), len(r.Reviews)
}
