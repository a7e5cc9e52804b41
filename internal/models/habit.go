package models

import (
	"regexp"
	"strings"
	"time"

	apperrors "github.com/julianstephens/dayledger/internal/errors"
	"github.com/julianstephens/dayledger/internal/utils"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Habit represents a recurring practice to track
type Habit struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	Color      string     `json:"color,omitempty" yaml:"color,omitempty"` // #RRGGBB
	CreatedAt  time.Time  `json:"created_at" yaml:"created_at"`
	ArchivedAt *time.Time `json:"archived_at,omitempty" yaml:"archived_at,omitempty"`
}

func (h Habit) Archived() bool {
	return h.ArchivedAt != nil
}

func (h Habit) Validate() error {
	if h.ID == "" {
		return apperrors.Invariant("habit", "id", "must not be empty")
	}
	if strings.TrimSpace(h.Name) == "" {
		return apperrors.Invariant("habit", "name", "must not be empty")
	}
	if h.Color != "" && !colorPattern.MatchString(h.Color) {
		return apperrors.Invariant("habit", "color", "must be #RRGGBB")
	}
	return nil
}

// HabitCompletion is the single source of truth for whether a habit was done
// on a day. Absence of a record means not completed.
type HabitCompletion struct {
	HabitID     string    `json:"habit_id" yaml:"habit_id"`
	Day         string    `json:"day" yaml:"day"` // YYYY-MM-DD format
	Completed   bool      `json:"completed" yaml:"completed"`
	CompletedAt time.Time `json:"completed_at" yaml:"completed_at"`
}

func (c HabitCompletion) Validate() error {
	if c.HabitID == "" {
		return apperrors.Invariant("habit_completion", "habit_id", "must not be empty")
	}
	if !utils.ValidateDay(c.Day) {
		return apperrors.Invariant("habit_completion", "day", "must be YYYY-MM-DD")
	}
	return nil
}

// HabitStats is the derived view of a habit's history. It is never persisted.
type HabitStats struct {
	HabitID       string  `json:"habit_id"`
	CurrentStreak int     `json:"current_streak"`
	LongestStreak int     `json:"longest_streak"`
	Rate          float64 `json:"completion_rate"`
}
