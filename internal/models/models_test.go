package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/julianstephens/dayledger/internal/errors"
)

func TestHabitValidate(t *testing.T) {
	tests := []struct {
		name    string
		habit   Habit
		wantErr bool
	}{
		{name: "valid", habit: Habit{ID: "h1", Name: "Read"}},
		{name: "valid color", habit: Habit{ID: "h1", Name: "Read", Color: "#1a2B3c"}},
		{name: "missing id", habit: Habit{Name: "Read"}, wantErr: true},
		{name: "blank name", habit: Habit{ID: "h1", Name: "  "}, wantErr: true},
		{name: "bad color", habit: Habit{ID: "h1", Name: "Read", Color: "red"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.habit.Validate()
			if tt.wantErr {
				assert.True(t, apperrors.IsInvariant(err), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHabitArchived(t *testing.T) {
	now := time.Now()
	assert.False(t, Habit{}.Archived())
	assert.True(t, Habit{ArchivedAt: &now}.Archived())
}

func TestTaskValidate(t *testing.T) {
	base := Task{ID: "t1", Title: "Write report", Day: "2024-01-01", Progress: 40, Priority: 3}
	assert.NoError(t, base.Validate())

	bad := []func(*Task){
		func(t *Task) { t.ID = "" },
		func(t *Task) { t.Title = "" },
		func(t *Task) { t.Day = "01/01/2024" },
		func(t *Task) { t.Progress = 101 },
		func(t *Task) { t.Progress = -1 },
		func(t *Task) { t.Priority = 0 },
		func(t *Task) { t.Priority = 6 },
		func(t *Task) { d := "yesterday"; t.OriginalDay = &d },
	}
	for i, mutate := range bad {
		task := base
		mutate(&task)
		assert.True(t, apperrors.IsInvariant(task.Validate()), "case %d", i)
	}
}

func TestTaskDone(t *testing.T) {
	assert.False(t, Task{Progress: 99}.Done())
	assert.True(t, Task{Progress: 100}.Done())
}

func TestTrackerValidate(t *testing.T) {
	base := DailyTracker{Day: "2024-01-01", SleepHours: 8, ScreenTimeHours: 2, WaterLiters: 2.5, StudyHours: 3, SocialMediaMinutes: 20, Mood: 7}
	assert.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*DailyTracker)
		field  string
	}{
		{"sleep above bound", func(d *DailyTracker) { d.SleepHours = 25 }, "sleep_hours"},
		{"negative screen time", func(d *DailyTracker) { d.ScreenTimeHours = -1 }, "screen_time_hours"},
		{"water above bound", func(d *DailyTracker) { d.WaterLiters = 11 }, "water_liters"},
		{"study NaN", func(d *DailyTracker) { d.StudyHours = math.NaN() }, "study_hours"},
		{"social minutes above a day", func(d *DailyTracker) { d.SocialMediaMinutes = 1441 }, "social_media_minutes"},
		{"mood out of range", func(d *DailyTracker) { d.Mood = 11 }, "mood"},
		{"bad day", func(d *DailyTracker) { d.Day = "" }, "day"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := base
			tt.mutate(&tr)
			err := tr.Validate()
			var ie *apperrors.InvariantError
			if assert.ErrorAs(t, err, &ie) {
				assert.Equal(t, tt.field, ie.Field)
			}
		})
	}
}

func TestTrackerValidateKeepsRawInput(t *testing.T) {
	tr := DailyTracker{Day: "2024-01-01", SleepHours: 30}
	assert.Error(t, tr.Validate())
	assert.Equal(t, 30.0, tr.SleepHours, "validation must not clamp inputs")
}

func TestGoalValidate(t *testing.T) {
	now := time.Now()
	assert.NoError(t, Goal{ID: "g", Title: "Run a marathon"}.Validate())
	assert.NoError(t, Goal{ID: "g", Title: "x", ProgressPercent: 100, Completed: true, CompletedAt: &now}.Validate())
	assert.Error(t, Goal{ID: "g", Title: "x", Completed: true}.Validate())
	assert.Error(t, Goal{ID: "g", Title: "x", InitialPercent: 120}.Validate())
	assert.Error(t, Goal{ID: "g", Title: ""}.Validate())
}

func TestGoalUpdateValidate(t *testing.T) {
	assert.NoError(t, GoalUpdate{GoalID: "g", WeekStart: "2024-01-01", Delta: 10}.Validate())
	assert.Error(t, GoalUpdate{GoalID: "g", WeekStart: "2024-01-03", Delta: 10}.Validate())
	assert.Error(t, GoalUpdate{GoalID: "g", WeekStart: "2024-01-01", Delta: 101}.Validate())
	assert.Error(t, GoalUpdate{WeekStart: "2024-01-01"}.Validate())
}
