// Package tasks owns Task records and carries incomplete tasks forward
// across day boundaries.
package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/dayledger/internal/clock"
	"github.com/julianstephens/dayledger/internal/constants"
	apperrors "github.com/julianstephens/dayledger/internal/errors"
	"github.com/julianstephens/dayledger/internal/logger"
	"github.com/julianstephens/dayledger/internal/models"
	"github.com/julianstephens/dayledger/internal/storage"
	"github.com/julianstephens/dayledger/internal/utils"
)

// Result reports which tasks a rollover re-dated.
type Result struct {
	From  string   `json:"from"`
	To    string   `json:"to"`
	Moved []string `json:"moved"`
}

type Engine struct {
	store storage.Provider
	clock clock.Clock
}

func NewEngine(store storage.Provider, clk clock.Clock) *Engine {
	return &Engine{store: store, clock: clk}
}

func validDay(field, day string) error {
	if !utils.ValidateDay(day) {
		return apperrors.Invariant("task", field, fmt.Sprintf("%q must be YYYY-MM-DD", day))
	}
	return nil
}

// carry re-dates task to to. OriginalDay keeps the first day the task ever
// slipped from.
func carry(task models.Task, to string, now time.Time) models.Task {
	if task.OriginalDay == nil {
		from := task.Day
		task.OriginalDay = &from
	}
	task.Day = to
	task.CarriedForward = true
	task.UpdatedAt = now
	return task
}

// RollForward moves every incomplete task dated from to to. Running it again
// with the same arguments finds nothing left at from and changes nothing.
func (e *Engine) RollForward(ctx context.Context, from, to string) (Result, error) {
	if err := validDay("day", from); err != nil {
		return Result{}, err
	}
	if err := validDay("day", to); err != nil {
		return Result{}, err
	}
	if to <= from {
		return Result{}, apperrors.Invariant("task", "day", fmt.Sprintf("rollover target %s must be after %s", to, from))
	}

	result := Result{From: from, To: to, Moved: []string{}}
	now := clock.Stamp(e.clock)
	err := e.store.Update(ctx, func(tx storage.Tx) error {
		tasks, err := tx.TasksInRange(from, from)
		if err != nil {
			return err
		}
		for _, task := range tasks {
			if task.Done() {
				continue
			}
			if err := tx.PutTask(carry(task, to, now)); err != nil {
				return fmt.Errorf("failed to carry task %s: %w", task.ID, err)
			}
			result.Moved = append(result.Moved, task.ID)
		}
		return nil
	})
	if err != nil {
		return Result{From: from, To: to, Moved: []string{}}, err
	}
	if len(result.Moved) > 0 {
		logger.Info("Rolled tasks forward", "from", from, "to", to, "count", len(result.Moved))
	}
	return result, nil
}

// CatchUp moves every incomplete task dated before today onto today in a
// single transaction, however many day boundaries were missed.
func (e *Engine) CatchUp(ctx context.Context, today string) (Result, error) {
	if today == "" {
		today = e.clock.Today()
	}
	if err := validDay("day", today); err != nil {
		return Result{}, err
	}

	result := Result{To: today, Moved: []string{}}
	now := clock.Stamp(e.clock)
	err := e.store.Update(ctx, func(tx storage.Tx) error {
		stale, err := tx.TasksBefore(today)
		if err != nil {
			return err
		}
		for _, task := range stale {
			if task.Done() {
				continue
			}
			if result.From == "" || task.Day < result.From {
				result.From = task.Day
			}
			if err := tx.PutTask(carry(task, today, now)); err != nil {
				return fmt.Errorf("failed to carry task %s: %w", task.ID, err)
			}
			result.Moved = append(result.Moved, task.ID)
		}
		return nil
	})
	if err != nil {
		return Result{To: today, Moved: []string{}}, err
	}
	if len(result.Moved) > 0 {
		logger.Info("Caught up stale tasks", "earliest", result.From, "to", today, "count", len(result.Moved))
	}
	return result, nil
}

// IncompleteTasksBefore lists the tasks a catch-up to day would move. It
// never writes.
func (e *Engine) IncompleteTasksBefore(ctx context.Context, day string) ([]models.Task, error) {
	if err := validDay("day", day); err != nil {
		return nil, err
	}
	out := []models.Task{}
	err := e.store.View(ctx, func(tx storage.Tx) error {
		tasks, err := tx.TasksBefore(day)
		if err != nil {
			return err
		}
		for _, task := range tasks {
			if !task.Done() {
				out = append(out, task)
			}
		}
		return nil
	})
	return out, err
}

// Add creates a task for day (today when empty). priority 0 means the default.
func (e *Engine) Add(ctx context.Context, title, day string, priority int) (models.Task, error) {
	if day == "" {
		day = e.clock.Today()
	}
	if priority == 0 {
		priority = constants.DefaultPrio
	}
	now := clock.Stamp(e.clock)
	task := models.Task{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		Day:       day,
		Priority:  priority,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := task.Validate(); err != nil {
		return models.Task{}, err
	}

	if err := e.store.Update(ctx, func(tx storage.Tx) error {
		return tx.PutTask(task)
	}); err != nil {
		return models.Task{}, err
	}
	logger.Debug("Added task", "id", task.ID, "day", day)
	return task, nil
}

func (e *Engine) Get(ctx context.Context, id string) (models.Task, error) {
	var task models.Task
	err := e.store.View(ctx, func(tx storage.Tx) error {
		var err error
		task, err = tx.GetTask(id)
		return err
	})
	return task, err
}

// SetProgress is the only way a task's progress changes.
func (e *Engine) SetProgress(ctx context.Context, id string, progress int) (models.Task, error) {
	if err := models.ValidateProgress(progress); err != nil {
		return models.Task{}, err
	}

	var task models.Task
	err := e.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		if task, err = tx.GetTask(id); err != nil {
			return err
		}
		task.Progress = progress
		task.UpdatedAt = clock.Stamp(e.clock)
		return tx.PutTask(task)
	})
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// ForDay lists the tasks dated day (today when empty).
func (e *Engine) ForDay(ctx context.Context, day string) ([]models.Task, error) {
	if day == "" {
		day = e.clock.Today()
	}
	if err := validDay("day", day); err != nil {
		return nil, err
	}
	var tasks []models.Task
	err := e.store.View(ctx, func(tx storage.Tx) error {
		var err error
		tasks, err = tx.TasksInRange(day, day)
		return err
	})
	return tasks, err
}

func (e *Engine) Delete(ctx context.Context, id string) error {
	err := e.store.Update(ctx, func(tx storage.Tx) error {
		return tx.DeleteTask(id)
	})
	if err == nil {
		logger.Debug("Deleted task", "id", id)
	}
	return err
}
