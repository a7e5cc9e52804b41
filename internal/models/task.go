package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/dayledger/internal/constants"
	apperrors "github.com/julianstephens/dayledger/internal/errors"
	"github.com/julianstephens/dayledger/internal/utils"
)

type Task struct {
	ID             string    `json:"id" yaml:"id"`
	Title          string    `json:"title" yaml:"title"`
	Day            string    `json:"day" yaml:"day"` // YYYY-MM-DD format
	Progress       int       `json:"progress" yaml:"progress"`
	Priority       int       `json:"priority" yaml:"priority"`
	CarriedForward bool      `json:"carried_forward" yaml:"carried_forward"`
	OriginalDay    *string   `json:"original_day,omitempty" yaml:"original_day,omitempty"` // first day the task slipped from
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" yaml:"updated_at"`
}

func (t Task) Done() bool {
	return t.Progress >= constants.MaxProgress
}

func (t Task) Validate() error {
	if t.ID == "" {
		return apperrors.Invariant("task", "id", "must not be empty")
	}
	if strings.TrimSpace(t.Title) == "" {
		return apperrors.Invariant("task", "title", "must not be empty")
	}
	if !utils.ValidateDay(t.Day) {
		return apperrors.Invariant("task", "day", "must be YYYY-MM-DD")
	}
	if err := ValidateProgress(t.Progress); err != nil {
		return err
	}
	if t.Priority < constants.MinPriority || t.Priority > constants.MaxPriority {
		return apperrors.Invariant("task", "priority",
			fmt.Sprintf("must be within [%d, %d]", constants.MinPriority, constants.MaxPriority))
	}
	if t.OriginalDay != nil && !utils.ValidateDay(*t.OriginalDay) {
		return apperrors.Invariant("task", "original_day", "must be YYYY-MM-DD")
	}
	return nil
}

func ValidateProgress(progress int) error {
	if progress < constants.MinProgress || progress > constants.MaxProgress {
		return apperrors.Invariant("task", "progress",
			fmt.Sprintf("must be within [%d, %d]", constants.MinProgress, constants.MaxProgress))
	}
	return nil
}
