package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/dayledger/internal/constants"
	apperrors "github.com/julianstephens/dayledger/internal/errors"
	"github.com/julianstephens/dayledger/internal/utils"
)

// Goal tracks aggregate progress. ProgressPercent is rebuilt from
// InitialPercent and the goal's updates; Completed is sticky once set.
type Goal struct {
	ID              string     `json:"id" yaml:"id"`
	Title           string     `json:"title" yaml:"title"`
	InitialPercent  int        `json:"initial_percent" yaml:"initial_percent"`
	ProgressPercent int        `json:"progress_percent" yaml:"-"`
	Completed       bool       `json:"completed" yaml:"completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at" yaml:"created_at"`
}

func (g Goal) Validate() error {
	if g.ID == "" {
		return apperrors.Invariant("goal", "id", "must not be empty")
	}
	if strings.TrimSpace(g.Title) == "" {
		return apperrors.Invariant("goal", "title", "must not be empty")
	}
	if g.InitialPercent < 0 || g.InitialPercent > 100 {
		return apperrors.Invariant("goal", "initial_percent", "must be within [0, 100]")
	}
	if g.ProgressPercent < 0 || g.ProgressPercent > 100 {
		return apperrors.Invariant("goal", "progress_percent", "must be within [0, 100]")
	}
	if g.Completed != (g.CompletedAt != nil) {
		return apperrors.Invariant("goal", "completed_at", "must be set exactly when completed")
	}
	return nil
}

// GoalUpdate is one weekly review entry, keyed by (GoalID, WeekStart).
type GoalUpdate struct {
	GoalID    string    `json:"goal_id" yaml:"goal_id"`
	WeekStart string    `json:"week_start" yaml:"week_start"` // Monday, YYYY-MM-DD
	Delta     int       `json:"progress_delta" yaml:"progress_delta"`
	Notes     string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

func (u GoalUpdate) Validate() error {
	if u.GoalID == "" {
		return apperrors.Invariant("goal_update", "goal_id", "must not be empty")
	}
	if !utils.IsWeekStart(u.WeekStart) {
		return apperrors.Invariant("goal_update", "week_start", "must be a Monday (YYYY-MM-DD)")
	}
	if u.Delta < -constants.MaxGoalDelta || u.Delta > constants.MaxGoalDelta {
		return apperrors.Invariant("goal_update", "progress_delta",
			fmt.Sprintf("must be within [%d, %d]", -constants.MaxGoalDelta, constants.MaxGoalDelta))
	}
	return nil
}
