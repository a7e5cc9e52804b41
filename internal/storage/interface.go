package storage

import (
	"context"

	"github.com/julianstephens/dayledger/internal/models"
)

// Provider is the durable record store. Every engine operation runs inside
// exactly one Update or View call, so no other operation observes a
// half-applied batch.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Update runs fn in a read-write transaction. The transaction commits
	// only if fn returns nil.
	Update(ctx context.Context, fn func(Tx) error) error
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(Tx) error) error

	// Utils
	Backend() string
	GetConfigPath() string
}

// Tx exposes get/put/delete/range/all per entity. Lookups of absent keys
// return an error wrapping errors.ErrNotFound. Range bounds are inclusive
// YYYY-MM-DD days and results are ordered by day.
type Tx interface {
	// Habits
	GetHabit(id string) (models.Habit, error)
	GetHabitByName(name string) (models.Habit, error)
	PutHabit(models.Habit) error
	ListHabits(includeArchived bool) ([]models.Habit, error)

	// Habit completions
	GetCompletion(habitID, day string) (models.HabitCompletion, error)
	PutCompletion(models.HabitCompletion) error
	DeleteCompletion(habitID, day string) error
	CompletionsInRange(habitID, start, end string) ([]models.HabitCompletion, error)
	CompletionsForDay(day string) ([]models.HabitCompletion, error)
	AllCompletions() ([]models.HabitCompletion, error)

	// Tasks
	GetTask(id string) (models.Task, error)
	PutTask(models.Task) error
	DeleteTask(id string) error
	TasksInRange(start, end string) ([]models.Task, error)
	// TasksBefore returns every task dated strictly before day.
	TasksBefore(day string) ([]models.Task, error)
	AllTasks() ([]models.Task, error)

	// Daily trackers
	GetTracker(day string) (models.DailyTracker, error)
	PutTracker(models.DailyTracker) error
	TrackersInRange(start, end string) ([]models.DailyTracker, error)

	// Goals
	GetGoal(id string) (models.Goal, error)
	PutGoal(models.Goal) error
	ListGoals() ([]models.Goal, error)
	GetGoalUpdate(goalID, weekStart string) (models.GoalUpdate, error)
	PutGoalUpdate(models.GoalUpdate) error
	// GoalUpdates returns a goal's updates ordered by week start.
	GoalUpdates(goalID string) ([]models.GoalUpdate, error)
	AllGoalUpdates() ([]models.GoalUpdate, error)

	// ClearRecords deletes every habit, completion, task, tracker, goal and
	// goal update. Job state is kept.
	ClearRecords() error

	// Scheduler job state
	GetJobState(name string) (models.JobState, error)
	PutJobState(models.JobState) error
	ListJobStates() ([]models.JobState, error)
}
