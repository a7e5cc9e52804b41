package shell

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/dayledger/internal/clock"
	"github.com/julianstephens/dayledger/internal/constants"
	"github.com/julianstephens/dayledger/internal/goals"
	"github.com/julianstephens/dayledger/internal/habits"
	"github.com/julianstephens/dayledger/internal/journal"
	"github.com/julianstephens/dayledger/internal/models"
	"github.com/julianstephens/dayledger/internal/notifier"
	"github.com/julianstephens/dayledger/internal/storage"
	"github.com/julianstephens/dayledger/internal/tasks"
	"github.com/julianstephens/dayledger/internal/utils"
)

// NewDefault wires the rollover, review and summary jobs.
func NewDefault(store storage.Provider, clk clock.Clock, sink notifier.Sink, cfg Config) *Shell {
	return New(store, clk, cfg,
		&RolloverJob{Tasks: tasks.NewEngine(store, clk)},
		&ReviewJob{Store: store, Sink: sink, Weekday: cfg.ReviewWeekday, Hour: cfg.ReviewHour},
		&SummaryJob{Store: store, Sink: sink, Hour: cfg.SummaryHour},
	)
}

// RolloverJob carries stale tasks onto the current day. It is due once per
// calendar day, and because it catches up every stale day at once, a
// process that slept through several midnights needs only one run.
type RolloverJob struct {
	Tasks *tasks.Engine
}

func (j *RolloverJob) Name() string { return constants.JobRollover }

func (j *RolloverJob) Due(tick Tick, state models.JobState) bool {
	return state.LastRunDay < tick.Today
}

func (j *RolloverJob) Run(ctx context.Context, tick Tick) error {
	_, err := j.Tasks.CatchUp(ctx, tick.Today)
	return err
}

// ReviewJob sends the weekly review once the configured weekday and hour
// have passed.
type ReviewJob struct {
	Store   storage.Provider
	Sink    notifier.Sink
	Weekday time.Weekday
	Hour    int
}

func (j *ReviewJob) Name() string { return constants.JobReview }

// boundary returns the most recent review instant at or before now. The
// walk covers one week; a weekday outside Sunday..Saturday never matches and
// falls back to the instant a week before today.
func (j *ReviewJob) boundary(now time.Time) time.Time {
	b := time.Date(now.Year(), now.Month(), now.Day(), j.Hour, 0, 0, 0, now.Location())
	for range 7 {
		if b.Weekday() == j.Weekday && !b.After(now) {
			return b
		}
		b = b.AddDate(0, 0, -1)
	}
	return b
}

func (j *ReviewJob) Due(tick Tick, state models.JobState) bool {
	return state.LastRunAt == nil || state.LastRunAt.Before(j.boundary(tick.Now))
}

func (j *ReviewJob) Run(ctx context.Context, tick Tick) error {
	review, err := BuildWeeklyReview(ctx, j.Store, tick.Today)
	if err != nil {
		return err
	}
	return j.Sink.NotifyWeeklyReview(ctx, review)
}

// SummaryJob sends the daily summary and a reminder per unfinished habit
// once the configured hour has passed.
type SummaryJob struct {
	Store storage.Provider
	Sink  notifier.Sink
	Hour  int
}

func (j *SummaryJob) Name() string { return constants.JobSummary }

func (j *SummaryJob) Due(tick Tick, state models.JobState) bool {
	if state.LastRunDay >= tick.Today {
		return false
	}
	at, err := utils.DayAt(tick.Today, j.Hour, tick.Now.Location())
	return err == nil && !tick.Now.Before(at)
}

func (j *SummaryJob) Run(ctx context.Context, tick Tick) error {
	summary, reminders, err := BuildDailySummary(ctx, j.Store, tick.Today)
	if err != nil {
		return err
	}
	if err := j.Sink.NotifyDailySummary(ctx, summary); err != nil {
		return err
	}
	for _, r := range reminders {
		if err := j.Sink.NotifyHabitReminder(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// BuildDailySummary counts the day's completed active habits and finished
// tasks, and lists a reminder for every active habit not yet done.
func BuildDailySummary(ctx context.Context, store storage.Provider, day string) (models.DailySummary, []models.HabitReminder, error) {
	summary := models.DailySummary{Day: day}
	reminders := []models.HabitReminder{}

	err := store.View(ctx, func(tx storage.Tx) error {
		active, err := tx.ListHabits(false)
		if err != nil {
			return err
		}
		completions, err := tx.CompletionsForDay(day)
		if err != nil {
			return err
		}
		done := make(map[string]bool, len(completions))
		for _, c := range completions {
			done[c.HabitID] = c.Completed
		}

		summary.TotalHabits = len(active)
		for _, h := range active {
			if done[h.ID] {
				summary.HabitsCompleted++
				continue
			}
			reminders = append(reminders, models.HabitReminder{HabitID: h.ID, HabitName: h.Name})
		}

		dayTasks, err := tx.TasksInRange(day, day)
		if err != nil {
			return err
		}
		for _, t := range dayTasks {
			if t.Done() {
				summary.TasksCompleted++
			}
		}
		return nil
	})
	if err != nil {
		return models.DailySummary{}, nil, fmt.Errorf("failed to build daily summary: %w", err)
	}
	return summary, reminders, nil
}

// BuildWeeklyReview reports per-habit completion rates and the average
// discipline score for the ISO week before today, plus the open goals still
// missing an update for the current week.
func BuildWeeklyReview(ctx context.Context, store storage.Provider, today string) (models.WeeklyReview, error) {
	thisWeek, err := utils.WeekStart(today)
	if err != nil {
		return models.WeeklyReview{}, err
	}
	lastWeek := utils.MustAddDays(thisWeek, -7)
	lastDay := utils.MustAddDays(thisWeek, -1)

	review := models.WeeklyReview{WeekStart: lastWeek, Habits: []models.HabitWeek{}, PendingGoals: []string{}}
	err = store.View(ctx, func(tx storage.Tx) error {
		active, err := tx.ListHabits(false)
		if err != nil {
			return err
		}
		for _, h := range active {
			rate, err := habits.RateTx(tx, h.ID, lastWeek, lastDay)
			if err != nil {
				return err
			}
			review.Habits = append(review.Habits, models.HabitWeek{HabitID: h.ID, HabitName: h.Name, Rate: rate})
		}

		pending, err := goals.PendingTx(tx, thisWeek)
		if err != nil {
			return err
		}
		for _, g := range pending {
			review.PendingGoals = append(review.PendingGoals, g.ID)
		}

		review.AverageScore, err = journal.AverageScoreTx(tx, lastWeek, lastDay)
		return err
	})
	if err != nil {
		return models.WeeklyReview{}, fmt.Errorf("failed to build weekly review: %w", err)
	}
	return review, nil
}
