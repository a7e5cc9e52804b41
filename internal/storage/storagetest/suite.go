// Package storagetest holds the behaviour every storage.Provider must share.
// Backend packages run it from their own tests.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/julianstephens/dayledger/internal/errors"
	"github.com/julianstephens/dayledger/internal/models"
	"github.com/julianstephens/dayledger/internal/storage"
)

// Factory returns an initialized, empty provider. Cleanup is the caller's job.
type Factory func(t *testing.T) storage.Provider

var base = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

// Run exercises the storage.Tx contract against the provider newStore returns.
func Run(t *testing.T, newStore Factory) {
	t.Run("Habits", func(t *testing.T) { testHabits(t, newStore(t)) })
	t.Run("Completions", func(t *testing.T) { testCompletions(t, newStore(t)) })
	t.Run("Tasks", func(t *testing.T) { testTasks(t, newStore(t)) })
	t.Run("Trackers", func(t *testing.T) { testTrackers(t, newStore(t)) })
	t.Run("Goals", func(t *testing.T) { testGoals(t, newStore(t)) })
	t.Run("JobStates", func(t *testing.T) { testJobStates(t, newStore(t)) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("ClearRecords", func(t *testing.T) { testClearRecords(t, newStore(t)) })
}

func update(t *testing.T, s storage.Provider, fn func(storage.Tx) error) {
	t.Helper()
	require.NoError(t, s.Update(context.Background(), fn))
}

func view(t *testing.T, s storage.Provider, fn func(storage.Tx) error) {
	t.Helper()
	require.NoError(t, s.View(context.Background(), fn))
}

func testHabits(t *testing.T, s storage.Provider) {
	archived := base.Add(time.Hour)
	update(t, s, func(tx storage.Tx) error {
		if err := tx.PutHabit(models.Habit{ID: "h1", Name: "Read", Color: "#112233", CreatedAt: base}); err != nil {
			return err
		}
		return tx.PutHabit(models.Habit{ID: "h2", Name: "Run", CreatedAt: base.Add(time.Minute), ArchivedAt: &archived})
	})

	view(t, s, func(tx storage.Tx) error {
		h, err := tx.GetHabit("h1")
		require.NoError(t, err)
		assert.Equal(t, "Read", h.Name)
		assert.Equal(t, "#112233", h.Color)
		assert.True(t, h.CreatedAt.Equal(base))
		assert.Nil(t, h.ArchivedAt)

		h, err = tx.GetHabitByName("Run")
		require.NoError(t, err)
		assert.Equal(t, "h2", h.ID)
		require.NotNil(t, h.ArchivedAt)
		assert.True(t, h.ArchivedAt.Equal(archived))

		active, err := tx.ListHabits(false)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "h1", active[0].ID)

		all, err := tx.ListHabits(true)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		_, err = tx.GetHabit("missing")
		assert.True(t, apperrors.IsNotFound(err))
		_, err = tx.GetHabitByName("missing")
		assert.True(t, apperrors.IsNotFound(err))
		return nil
	})

	// Upsert keeps the id and updates mutable fields.
	update(t, s, func(tx storage.Tx) error {
		return tx.PutHabit(models.Habit{ID: "h2", Name: "Run", CreatedAt: base.Add(time.Minute)})
	})
	view(t, s, func(tx storage.Tx) error {
		active, err := tx.ListHabits(false)
		require.NoError(t, err)
		assert.Len(t, active, 2)
		return nil
	})

	// Names are unique across habits, on every backend alike.
	err := s.Update(context.Background(), func(tx storage.Tx) error {
		return tx.PutHabit(models.Habit{ID: "h3", Name: "Read", CreatedAt: base})
	})
	assert.True(t, apperrors.IsInvariant(err), "duplicate name: %v", err)
	view(t, s, func(tx storage.Tx) error {
		_, err := tx.GetHabit("h3")
		assert.True(t, apperrors.IsNotFound(err))
		return nil
	})
}

func testCompletions(t *testing.T, s storage.Provider) {
	update(t, s, func(tx storage.Tx) error {
		if err := tx.PutHabit(models.Habit{ID: "h1", Name: "Read", CreatedAt: base}); err != nil {
			return err
		}
		if err := tx.PutHabit(models.Habit{ID: "h2", Name: "Run", CreatedAt: base}); err != nil {
			return err
		}
		for _, day := range []string{"2024-03-05", "2024-03-01", "2024-03-03"} {
			if err := tx.PutCompletion(models.HabitCompletion{HabitID: "h1", Day: day, Completed: true, CompletedAt: base}); err != nil {
				return err
			}
		}
		return tx.PutCompletion(models.HabitCompletion{HabitID: "h2", Day: "2024-03-03", Completed: true, CompletedAt: base})
	})

	view(t, s, func(tx storage.Tx) error {
		c, err := tx.GetCompletion("h1", "2024-03-03")
		require.NoError(t, err)
		assert.True(t, c.Completed)

		_, err = tx.GetCompletion("h1", "2024-03-02")
		assert.True(t, apperrors.IsNotFound(err))

		in, err := tx.CompletionsInRange("h1", "2024-03-01", "2024-03-03")
		require.NoError(t, err)
		require.Len(t, in, 2)
		assert.Equal(t, "2024-03-01", in[0].Day)
		assert.Equal(t, "2024-03-03", in[1].Day)

		day, err := tx.CompletionsForDay("2024-03-03")
		require.NoError(t, err)
		assert.Len(t, day, 2)

		all, err := tx.AllCompletions()
		require.NoError(t, err)
		assert.Len(t, all, 4)
		return nil
	})

	update(t, s, func(tx storage.Tx) error {
		return tx.DeleteCompletion("h1", "2024-03-03")
	})
	err := s.Update(context.Background(), func(tx storage.Tx) error {
		return tx.DeleteCompletion("h1", "2024-03-03")
	})
	assert.True(t, apperrors.IsNotFound(err))
}

func testTasks(t *testing.T, s storage.Provider) {
	orig := "2024-03-01"
	update(t, s, func(tx storage.Tx) error {
		tasks := []models.Task{
			{ID: "t1", Title: "first", Day: "2024-03-02", Priority: 3, CreatedAt: base, UpdatedAt: base},
			{ID: "t2", Title: "second", Day: "2024-03-04", Progress: 40, Priority: 1, CarriedForward: true, OriginalDay: &orig, CreatedAt: base, UpdatedAt: base},
			{ID: "t3", Title: "third", Day: "2024-03-05", Progress: 100, Priority: 5, CreatedAt: base, UpdatedAt: base},
		}
		for _, task := range tasks {
			if err := tx.PutTask(task); err != nil {
				return err
			}
		}
		return nil
	})

	view(t, s, func(tx storage.Tx) error {
		task, err := tx.GetTask("t2")
		require.NoError(t, err)
		assert.Equal(t, 40, task.Progress)
		assert.True(t, task.CarriedForward)
		require.NotNil(t, task.OriginalDay)
		assert.Equal(t, orig, *task.OriginalDay)

		task, err = tx.GetTask("t1")
		require.NoError(t, err)
		assert.Nil(t, task.OriginalDay)

		before, err := tx.TasksBefore("2024-03-04")
		require.NoError(t, err)
		require.Len(t, before, 1)
		assert.Equal(t, "t1", before[0].ID)

		in, err := tx.TasksInRange("2024-03-04", "2024-03-05")
		require.NoError(t, err)
		require.Len(t, in, 2)
		assert.Equal(t, "t2", in[0].ID)

		all, err := tx.AllTasks()
		require.NoError(t, err)
		assert.Len(t, all, 3)

		_, err = tx.GetTask("nope")
		assert.True(t, apperrors.IsNotFound(err))
		return nil
	})

	update(t, s, func(tx storage.Tx) error {
		task, err := tx.GetTask("t1")
		if err != nil {
			return err
		}
		task.Day = "2024-03-06"
		if err := tx.PutTask(task); err != nil {
			return err
		}
		return tx.DeleteTask("t3")
	})
	view(t, s, func(tx storage.Tx) error {
		before, err := tx.TasksBefore("2024-03-04")
		require.NoError(t, err)
		assert.Empty(t, before)

		in, err := tx.TasksInRange("2024-03-06", "2024-03-06")
		require.NoError(t, err)
		require.Len(t, in, 1)
		assert.Equal(t, "t1", in[0].ID)

		_, err = tx.GetTask("t3")
		assert.True(t, apperrors.IsNotFound(err))
		return nil
	})
}

func testTrackers(t *testing.T, s storage.Provider) {
	tracker := models.DailyTracker{
		ID: "d1", Day: "2024-03-02",
		WokeEarly: true, Read: true,
		SleepHours: 7.5, ScreenTimeHours: 2.25, WaterLiters: 2, StudyHours: 1.5,
		SocialMediaMinutes: 20, Mood: 8, Notes: "good day", Score: 7,
		CreatedAt: base, UpdatedAt: base,
	}
	update(t, s, func(tx storage.Tx) error {
		if err := tx.PutTracker(tracker); err != nil {
			return err
		}
		return tx.PutTracker(models.DailyTracker{ID: "d2", Day: "2024-03-05", CreatedAt: base, UpdatedAt: base})
	})

	view(t, s, func(tx storage.Tx) error {
		got, err := tx.GetTracker("2024-03-02")
		require.NoError(t, err)
		assert.Equal(t, tracker.SleepHours, got.SleepHours)
		assert.Equal(t, tracker.ScreenTimeHours, got.ScreenTimeHours)
		assert.Equal(t, tracker.SocialMediaMinutes, got.SocialMediaMinutes)
		assert.Equal(t, tracker.Habits(), got.Habits())
		assert.Equal(t, 8, got.Mood)
		assert.Equal(t, "good day", got.Notes)
		assert.Equal(t, 7, got.Score)

		in, err := tx.TrackersInRange("2024-03-01", "2024-03-31")
		require.NoError(t, err)
		require.Len(t, in, 2)
		assert.Equal(t, "2024-03-02", in[0].Day)

		_, err = tx.GetTracker("2024-03-03")
		assert.True(t, apperrors.IsNotFound(err))
		return nil
	})

	// Same day overwrites.
	tracker.Score = 3
	tracker.WokeEarly = false
	update(t, s, func(tx storage.Tx) error { return tx.PutTracker(tracker) })
	view(t, s, func(tx storage.Tx) error {
		got, err := tx.GetTracker("2024-03-02")
		require.NoError(t, err)
		assert.Equal(t, 3, got.Score)
		assert.False(t, got.WokeEarly)
		return nil
	})
}

func testGoals(t *testing.T, s storage.Provider) {
	done := base.Add(48 * time.Hour)
	update(t, s, func(tx storage.Tx) error {
		if err := tx.PutGoal(models.Goal{ID: "g1", Title: "Ship", InitialPercent: 10, ProgressPercent: 10, CreatedAt: base}); err != nil {
			return err
		}
		if err := tx.PutGoal(models.Goal{ID: "g2", Title: "Learn", ProgressPercent: 100, Completed: true, CompletedAt: &done, CreatedAt: base.Add(time.Second)}); err != nil {
			return err
		}
		for _, u := range []models.GoalUpdate{
			{GoalID: "g1", WeekStart: "2024-03-11", Delta: -5, CreatedAt: base},
			{GoalID: "g1", WeekStart: "2024-03-04", Delta: 20, Notes: "kickoff", CreatedAt: base},
			{GoalID: "g2", WeekStart: "2024-03-04", Delta: 100, CreatedAt: base},
		} {
			if err := tx.PutGoalUpdate(u); err != nil {
				return err
			}
		}
		return nil
	})

	view(t, s, func(tx storage.Tx) error {
		g, err := tx.GetGoal("g2")
		require.NoError(t, err)
		assert.True(t, g.Completed)
		require.NotNil(t, g.CompletedAt)
		assert.True(t, g.CompletedAt.Equal(done))

		goals, err := tx.ListGoals()
		require.NoError(t, err)
		require.Len(t, goals, 2)
		assert.Equal(t, "g1", goals[0].ID)

		updates, err := tx.GoalUpdates("g1")
		require.NoError(t, err)
		require.Len(t, updates, 2)
		assert.Equal(t, "2024-03-04", updates[0].WeekStart)
		assert.Equal(t, "kickoff", updates[0].Notes)
		assert.Equal(t, -5, updates[1].Delta)

		u, err := tx.GetGoalUpdate("g2", "2024-03-04")
		require.NoError(t, err)
		assert.Equal(t, 100, u.Delta)

		_, err = tx.GetGoalUpdate("g2", "2024-03-11")
		assert.True(t, apperrors.IsNotFound(err))
		_, err = tx.GetGoal("g3")
		assert.True(t, apperrors.IsNotFound(err))

		all, err := tx.AllGoalUpdates()
		require.NoError(t, err)
		assert.Len(t, all, 3)
		return nil
	})

	// Re-putting the same week replaces the delta.
	update(t, s, func(tx storage.Tx) error {
		return tx.PutGoalUpdate(models.GoalUpdate{GoalID: "g1", WeekStart: "2024-03-04", Delta: 30, CreatedAt: base})
	})
	view(t, s, func(tx storage.Tx) error {
		updates, err := tx.GoalUpdates("g1")
		require.NoError(t, err)
		require.Len(t, updates, 2)
		assert.Equal(t, 30, updates[0].Delta)
		return nil
	})
}

func testJobStates(t *testing.T, s storage.Provider) {
	next := base.Add(30 * time.Second)
	update(t, s, func(tx storage.Tx) error {
		if err := tx.PutJobState(models.JobState{Name: "summary", Status: models.JobIdle, LastRunDay: "2024-03-03", LastRunAt: &base, UpdatedAt: base}); err != nil {
			return err
		}
		return tx.PutJobState(models.JobState{Name: "rollover", Status: models.JobFailed, Attempts: 2, LastError: "boom", NextAttemptAt: &next, UpdatedAt: base})
	})

	view(t, s, func(tx storage.Tx) error {
		js, err := tx.GetJobState("rollover")
		require.NoError(t, err)
		assert.Equal(t, models.JobFailed, js.Status)
		assert.Equal(t, 2, js.Attempts)
		assert.Equal(t, "boom", js.LastError)
		require.NotNil(t, js.NextAttemptAt)
		assert.True(t, js.NextAttemptAt.Equal(next))
		assert.Nil(t, js.LastRunAt)

		states, err := tx.ListJobStates()
		require.NoError(t, err)
		require.Len(t, states, 2)
		assert.Equal(t, "rollover", states[0].Name)
		assert.Equal(t, "summary", states[1].Name)

		_, err = tx.GetJobState("review")
		assert.True(t, apperrors.IsNotFound(err))
		return nil
	})
}

func testRollback(t *testing.T, s storage.Provider) {
	boom := errors.New("boom")
	err := s.Update(context.Background(), func(tx storage.Tx) error {
		if err := tx.PutHabit(models.Habit{ID: "h1", Name: "Read", CreatedAt: base}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	view(t, s, func(tx storage.Tx) error {
		_, err := tx.GetHabit("h1")
		assert.True(t, apperrors.IsNotFound(err), "failed update must leave no trace")
		return nil
	})
}

func testClearRecords(t *testing.T, s storage.Provider) {
	update(t, s, func(tx storage.Tx) error {
		if err := tx.PutHabit(models.Habit{ID: "h1", Name: "Read", CreatedAt: base}); err != nil {
			return err
		}
		if err := tx.PutCompletion(models.HabitCompletion{HabitID: "h1", Day: "2024-03-01", Completed: true, CompletedAt: base}); err != nil {
			return err
		}
		if err := tx.PutTask(models.Task{ID: "t1", Title: "Write", Day: "2024-03-01", Priority: 3, CreatedAt: base, UpdatedAt: base}); err != nil {
			return err
		}
		if err := tx.PutTracker(models.DailyTracker{ID: "d1", Day: "2024-03-01", CreatedAt: base, UpdatedAt: base}); err != nil {
			return err
		}
		if err := tx.PutGoal(models.Goal{ID: "g1", Title: "Ship", CreatedAt: base}); err != nil {
			return err
		}
		if err := tx.PutGoalUpdate(models.GoalUpdate{GoalID: "g1", WeekStart: "2024-02-26", Delta: 10, CreatedAt: base}); err != nil {
			return err
		}
		return tx.PutJobState(models.JobState{Name: "rollover", Status: models.JobIdle, LastRunDay: "2024-03-01", UpdatedAt: base})
	})

	update(t, s, func(tx storage.Tx) error { return tx.ClearRecords() })

	view(t, s, func(tx storage.Tx) error {
		habits, err := tx.ListHabits(true)
		require.NoError(t, err)
		assert.Empty(t, habits)
		_, err = tx.GetHabitByName("Read")
		assert.True(t, apperrors.IsNotFound(err))

		completions, err := tx.AllCompletions()
		require.NoError(t, err)
		assert.Empty(t, completions)
		day, err := tx.CompletionsForDay("2024-03-01")
		require.NoError(t, err)
		assert.Empty(t, day)

		tasks, err := tx.AllTasks()
		require.NoError(t, err)
		assert.Empty(t, tasks)
		inRange, err := tx.TasksInRange("2024-03-01", "2024-03-01")
		require.NoError(t, err)
		assert.Empty(t, inRange)

		trackers, err := tx.TrackersInRange("2024-01-01", "2024-12-31")
		require.NoError(t, err)
		assert.Empty(t, trackers)

		goals, err := tx.ListGoals()
		require.NoError(t, err)
		assert.Empty(t, goals)
		updates, err := tx.AllGoalUpdates()
		require.NoError(t, err)
		assert.Empty(t, updates)

		_, err = tx.GetJobState("rollover")
		assert.NoError(t, err, "job state survives")
		return nil
	})

	// The cleared name is free again.
	update(t, s, func(tx storage.Tx) error {
		return tx.PutHabit(models.Habit{ID: "h2", Name: "Read", CreatedAt: base})
	})
}
