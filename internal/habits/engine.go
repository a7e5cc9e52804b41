// Package habits owns Habit and HabitCompletion records and computes
// streaks and completion rates from them.
package habits

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/julianstephens/dayledger/internal/clock"
	apperrors "github.com/julianstephens/dayledger/internal/errors"
	"github.com/julianstephens/dayledger/internal/logger"
	"github.com/julianstephens/dayledger/internal/models"
	"github.com/julianstephens/dayledger/internal/storage"
	"github.com/julianstephens/dayledger/internal/utils"
)

// Engine runs every habit operation as one store transaction.
type Engine struct {
	store storage.Provider
	clock clock.Clock
}

func NewEngine(store storage.Provider, clk clock.Clock) *Engine {
	return &Engine{store: store, clock: clk}
}

func (e *Engine) day(day string) (string, error) {
	if day == "" {
		return e.clock.Today(), nil
	}
	if !utils.ValidateDay(day) {
		return "", apperrors.Invariant("habit_completion", "day", fmt.Sprintf("%q must be YYYY-MM-DD", day))
	}
	return day, nil
}

// exists reports whether habitID names a habit. Queries use it to turn an
// unknown habit into a zero result.
func exists(tx storage.Tx, habitID string) (bool, error) {
	_, err := tx.GetHabit(habitID)
	if err == nil {
		return true, nil
	}
	if apperrors.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// CurrentStreak returns the streak ending at asOf (today when empty). An
// unknown habit has a streak of 0.
func (e *Engine) CurrentStreak(ctx context.Context, habitID, asOf string) (int, error) {
	asOf, err := e.day(asOf)
	if err != nil {
		return 0, err
	}

	var streak int
	err = e.store.View(ctx, func(tx storage.Tx) error {
		ok, err := exists(tx, habitID)
		if err != nil || !ok {
			return err
		}
		streak, err = currentStreak(tx, habitID, asOf)
		return err
	})
	return streak, err
}

// CompletionRate returns completed days divided by the inclusive length of
// [start, end], in [0, 1]. It is 0 for an unknown habit or when end < start.
func (e *Engine) CompletionRate(ctx context.Context, habitID, start, end string) (float64, error) {
	if !utils.ValidateDay(start) || !utils.ValidateDay(end) {
		return 0, apperrors.Invariant("habit_completion", "day", "range bounds must be YYYY-MM-DD")
	}

	var rate float64
	err := e.store.View(ctx, func(tx storage.Tx) error {
		ok, err := exists(tx, habitID)
		if err != nil || !ok {
			return err
		}
		rate, err = completionRate(tx, habitID, start, end)
		return err
	})
	return rate, err
}

// LongestStreak returns the longest run of completed days within [start, end].
func (e *Engine) LongestStreak(ctx context.Context, habitID, start, end string) (int, error) {
	if !utils.ValidateDay(start) || !utils.ValidateDay(end) {
		return 0, apperrors.Invariant("habit_completion", "day", "range bounds must be YYYY-MM-DD")
	}

	var longest int
	err := e.store.View(ctx, func(tx storage.Tx) error {
		ok, err := exists(tx, habitID)
		if err != nil || !ok {
			return err
		}
		longest, err = longestStreak(tx, habitID, start, end)
		return err
	})
	return longest, err
}

// Stats computes the current streak at asOf plus the longest streak and
// completion rate over the trailing window of days ending at asOf.
func (e *Engine) Stats(ctx context.Context, habitID, asOf string, days int) (models.HabitStats, error) {
	if days < 1 {
		return models.HabitStats{}, apperrors.Invariant("habit_stats", "days", "must be at least 1")
	}
	asOf, err := e.day(asOf)
	if err != nil {
		return models.HabitStats{}, err
	}
	start := utils.MustAddDays(asOf, -(days - 1))

	stats := models.HabitStats{HabitID: habitID}
	err = e.store.View(ctx, func(tx storage.Tx) error {
		ok, err := exists(tx, habitID)
		if err != nil || !ok {
			return err
		}
		if stats.CurrentStreak, err = currentStreak(tx, habitID, asOf); err != nil {
			return err
		}
		if stats.LongestStreak, err = longestStreak(tx, habitID, start, asOf); err != nil {
			return err
		}
		stats.Rate, err = completionRate(tx, habitID, start, asOf)
		return err
	})
	return stats, err
}

// Create adds a new active habit. Names are unique.
func (e *Engine) Create(ctx context.Context, name, color string) (models.Habit, error) {
	habit := models.Habit{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Color:     color,
		CreatedAt: clock.Stamp(e.clock),
	}
	if err := habit.Validate(); err != nil {
		return models.Habit{}, err
	}

	err := e.store.Update(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetHabitByName(habit.Name); err == nil {
			return apperrors.Invariant("habit", "name", fmt.Sprintf("%q already exists", habit.Name))
		} else if !apperrors.IsNotFound(err) {
			return err
		}
		return tx.PutHabit(habit)
	})
	if err != nil {
		return models.Habit{}, err
	}
	logger.Info("Created habit", "id", habit.ID, "name", habit.Name)
	return habit, nil
}

// Get returns a habit by id.
func (e *Engine) Get(ctx context.Context, id string) (models.Habit, error) {
	var habit models.Habit
	err := e.store.View(ctx, func(tx storage.Tx) error {
		var err error
		habit, err = tx.GetHabit(id)
		return err
	})
	return habit, err
}

// Resolve finds a habit by id, falling back to an exact name match.
func (e *Engine) Resolve(ctx context.Context, ref string) (models.Habit, error) {
	var habit models.Habit
	err := e.store.View(ctx, func(tx storage.Tx) error {
		var err error
		habit, err = tx.GetHabit(ref)
		if apperrors.IsNotFound(err) {
			habit, err = tx.GetHabitByName(ref)
		}
		return err
	})
	return habit, err
}

func (e *Engine) List(ctx context.Context, includeArchived bool) ([]models.Habit, error) {
	var habits []models.Habit
	err := e.store.View(ctx, func(tx storage.Tx) error {
		var err error
		habits, err = tx.ListHabits(includeArchived)
		return err
	})
	return habits, err
}

// Archive hides a habit from active views. Its completions are kept.
func (e *Engine) Archive(ctx context.Context, id string) (models.Habit, error) {
	return e.setArchived(ctx, id, true)
}

func (e *Engine) Unarchive(ctx context.Context, id string) (models.Habit, error) {
	return e.setArchived(ctx, id, false)
}

func (e *Engine) setArchived(ctx context.Context, id string, archived bool) (models.Habit, error) {
	var habit models.Habit
	err := e.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		if habit, err = tx.GetHabit(id); err != nil {
			return err
		}
		if habit.Archived() == archived {
			return nil
		}
		if archived {
			now := clock.Stamp(e.clock)
			habit.ArchivedAt = &now
		} else {
			habit.ArchivedAt = nil
		}
		return tx.PutHabit(habit)
	})
	if err != nil {
		return models.Habit{}, err
	}
	logger.Info("Updated habit archive state", "id", id, "archived", archived)
	return habit, nil
}

// Mark records day (today when empty) as completed and returns the streak
// ending at that day. Marking twice is a no-op apart from the timestamp.
func (e *Engine) Mark(ctx context.Context, habitID, day string) (int, error) {
	day, err := e.day(day)
	if err != nil {
		return 0, err
	}

	var streak int
	err = e.store.Update(ctx, func(tx storage.Tx) error {
		if err := e.markable(tx, habitID); err != nil {
			return err
		}
		completion := models.HabitCompletion{
			HabitID:     habitID,
			Day:         day,
			Completed:   true,
			CompletedAt: clock.Stamp(e.clock),
		}
		if err := completion.Validate(); err != nil {
			return err
		}
		if err := tx.PutCompletion(completion); err != nil {
			return err
		}
		streak, err = currentStreak(tx, habitID, day)
		return err
	})
	if err != nil {
		return 0, err
	}
	logger.Debug("Marked habit", "id", habitID, "day", day, "streak", streak)
	return streak, nil
}

// Unmark deletes the completion for day. Absence means not completed, so
// unmarking a day that was never marked is a no-op.
func (e *Engine) Unmark(ctx context.Context, habitID, day string) error {
	day, err := e.day(day)
	if err != nil {
		return err
	}

	return e.store.Update(ctx, func(tx storage.Tx) error {
		if err := e.markable(tx, habitID); err != nil {
			return err
		}
		if err := tx.DeleteCompletion(habitID, day); err != nil && !apperrors.IsNotFound(err) {
			return err
		}
		return nil
	})
}

// Toggle flips the completion state of day and reports the new state.
func (e *Engine) Toggle(ctx context.Context, habitID, day string) (bool, error) {
	day, err := e.day(day)
	if err != nil {
		return false, err
	}

	var completed bool
	err = e.store.Update(ctx, func(tx storage.Tx) error {
		if err := e.markable(tx, habitID); err != nil {
			return err
		}
		existing, err := tx.GetCompletion(habitID, day)
		switch {
		case err == nil && existing.Completed:
			completed = false
			return tx.DeleteCompletion(habitID, day)
		case err == nil || apperrors.IsNotFound(err):
			completed = true
			return tx.PutCompletion(models.HabitCompletion{
				HabitID:     habitID,
				Day:         day,
				Completed:   true,
				CompletedAt: clock.Stamp(e.clock),
			})
		default:
			return err
		}
	})
	return completed, err
}

// CompletedOn returns the ids of habits completed on day.
func (e *Engine) CompletedOn(ctx context.Context, day string) (map[string]bool, error) {
	day, err := e.day(day)
	if err != nil {
		return nil, err
	}
	done := map[string]bool{}
	err = e.store.View(ctx, func(tx storage.Tx) error {
		completions, err := tx.CompletionsForDay(day)
		if err != nil {
			return err
		}
		for _, c := range completions {
			if c.Completed {
				done[c.HabitID] = true
			}
		}
		return nil
	})
	return done, err
}

func (e *Engine) markable(tx storage.Tx, habitID string) error {
	habit, err := tx.GetHabit(habitID)
	if err != nil {
		return err
	}
	if habit.Archived() {
		return apperrors.Invariant("habit", "archived_at", fmt.Sprintf("habit %q is archived", habit.Name))
	}
	return nil
}
