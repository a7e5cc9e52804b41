// Package goals owns Goal and GoalUpdate records and folds weekly deltas
// into each goal's progress.
package goals

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/dayledger/internal/clock"
	apperrors "github.com/julianstephens/dayledger/internal/errors"
	"github.com/julianstephens/dayledger/internal/logger"
	"github.com/julianstephens/dayledger/internal/models"
	"github.com/julianstephens/dayledger/internal/storage"
	"github.com/julianstephens/dayledger/internal/utils"
)

type Engine struct {
	store storage.Provider
	clock clock.Clock
}

func NewEngine(store storage.Provider, clk clock.Clock) *Engine {
	return &Engine{store: store, clock: clk}
}

// Fold replays updates, in week order, on top of initial. Each step is
// clamped to [0, 100].
func Fold(initial int, updates []models.GoalUpdate) int {
	p := initial
	for _, u := range updates {
		p = min(max(p+u.Delta, 0), 100)
	}
	return p
}

// Recompute rebuilds goal.ProgressPercent from its stored updates and sets
// the completion stamp the first time progress reaches 100. It never clears
// completion.
func Recompute(tx storage.Tx, goal models.Goal, now time.Time) (models.Goal, error) {
	updates, err := tx.GoalUpdates(goal.ID)
	if err != nil {
		return models.Goal{}, fmt.Errorf("failed to load updates for goal %s: %w", goal.ID, err)
	}
	goal.ProgressPercent = Fold(goal.InitialPercent, updates)
	if goal.ProgressPercent >= 100 && !goal.Completed {
		goal.Completed = true
		goal.CompletedAt = &now
	}
	return goal, nil
}

// canonicalWeek maps any day to the Monday that starts its ISO week.
func (e *Engine) canonicalWeek(day string) (string, error) {
	if day == "" {
		day = e.clock.Today()
	}
	week, err := utils.WeekStart(day)
	if err != nil {
		return "", apperrors.Invariant("goal_update", "week_start", fmt.Sprintf("%q must be YYYY-MM-DD", day))
	}
	return week, nil
}

// ApplyWeeklyUpdate records delta for the week containing weekStart (this
// week when empty), replacing any earlier update for that week, and returns
// the goal with its progress refolded. Retrying with the same week is safe.
func (e *Engine) ApplyWeeklyUpdate(ctx context.Context, goalID, weekStart string, delta int, notes string) (models.Goal, error) {
	week, err := e.canonicalWeek(weekStart)
	if err != nil {
		return models.Goal{}, err
	}
	now := clock.Stamp(e.clock)
	update := models.GoalUpdate{
		GoalID:    goalID,
		WeekStart: week,
		Delta:     delta,
		Notes:     strings.TrimSpace(notes),
		CreatedAt: now,
	}
	if err := update.Validate(); err != nil {
		return models.Goal{}, err
	}

	var goal models.Goal
	err = e.store.Update(ctx, func(tx storage.Tx) error {
		current, err := tx.GetGoal(goalID)
		if err != nil {
			return err
		}
		if err := tx.PutGoalUpdate(update); err != nil {
			return err
		}
		if goal, err = Recompute(tx, current, now); err != nil {
			return err
		}
		return tx.PutGoal(goal)
	})
	if err != nil {
		return models.Goal{}, err
	}
	logger.Info("Applied weekly goal update", "goal", goalID, "week", week, "delta", delta, "progress", goal.ProgressPercent)
	return goal, nil
}

// Add creates a goal starting at initial percent.
func (e *Engine) Add(ctx context.Context, title string, initial int) (models.Goal, error) {
	now := clock.Stamp(e.clock)
	goal := models.Goal{
		ID:              uuid.NewString(),
		Title:           strings.TrimSpace(title),
		InitialPercent:  initial,
		ProgressPercent: initial,
		CreatedAt:       now,
	}
	if initial >= 100 {
		goal.Completed = true
		goal.CompletedAt = &now
	}
	if err := goal.Validate(); err != nil {
		return models.Goal{}, err
	}
	if err := e.store.Update(ctx, func(tx storage.Tx) error {
		return tx.PutGoal(goal)
	}); err != nil {
		return models.Goal{}, err
	}
	logger.Info("Created goal", "id", goal.ID, "title", goal.Title)
	return goal, nil
}

func (e *Engine) Get(ctx context.Context, id string) (models.Goal, error) {
	var goal models.Goal
	err := e.store.View(ctx, func(tx storage.Tx) error {
		var err error
		goal, err = tx.GetGoal(id)
		return err
	})
	return goal, err
}

func (e *Engine) List(ctx context.Context) ([]models.Goal, error) {
	var goals []models.Goal
	err := e.store.View(ctx, func(tx storage.Tx) error {
		var err error
		goals, err = tx.ListGoals()
		return err
	})
	return goals, err
}

// Updates returns the goal's weekly updates in week order.
func (e *Engine) Updates(ctx context.Context, goalID string) ([]models.GoalUpdate, error) {
	var updates []models.GoalUpdate
	err := e.store.View(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetGoal(goalID); err != nil {
			return err
		}
		var err error
		updates, err = tx.GoalUpdates(goalID)
		return err
	})
	return updates, err
}

// Reopen clears completion. It is the only operation that does.
func (e *Engine) Reopen(ctx context.Context, goalID string) (models.Goal, error) {
	var goal models.Goal
	err := e.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		if goal, err = tx.GetGoal(goalID); err != nil {
			return err
		}
		if !goal.Completed {
			return nil
		}
		goal.Completed = false
		goal.CompletedAt = nil
		return tx.PutGoal(goal)
	})
	if err != nil {
		return models.Goal{}, err
	}
	logger.Info("Reopened goal", "id", goalID)
	return goal, nil
}

// PendingTx lists the open goals that have no update for week.
func PendingTx(tx storage.Tx, week string) ([]models.Goal, error) {
	goals, err := tx.ListGoals()
	if err != nil {
		return nil, err
	}
	pending := []models.Goal{}
	for _, g := range goals {
		if g.Completed {
			continue
		}
		_, err := tx.GetGoalUpdate(g.ID, week)
		if err == nil {
			continue
		}
		if !apperrors.IsNotFound(err) {
			return nil, err
		}
		pending = append(pending, g)
	}
	return pending, nil
}
