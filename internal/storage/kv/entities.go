package kv

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/julianstephens/dayledger/internal/errors"
	"github.com/julianstephens/dayledger/internal/models"
)

// Habits

func (t *tx) GetHabit(id string) (models.Habit, error) {
	var h models.Habit
	err := t.get(habitPrefix+id, &h, "habit", id)
	return h, err
}

func (t *tx) GetHabitByName(name string) (models.Habit, error) {
	var id string
	if err := t.get(habitNamePrefix+name, &id, "habit", name); err != nil {
		return models.Habit{}, err
	}
	return t.GetHabit(id)
}

func (t *tx) PutHabit(h models.Habit) error {
	var owner string
	err := t.get(habitNamePrefix+h.Name, &owner, "habit", h.Name)
	switch {
	case err == nil && owner != h.ID:
		return apperrors.Invariant("habit", "name", "already in use: "+h.Name)
	case err != nil && !apperrors.IsNotFound(err):
		return err
	}

	var existing models.Habit
	err = t.get(habitPrefix+h.ID, &existing, "habit", h.ID)
	switch {
	case err == nil:
		h.CreatedAt = existing.CreatedAt
		if existing.Name != h.Name {
			if err := t.txn.Delete([]byte(habitNamePrefix + existing.Name)); err != nil {
				return err
			}
		}
	case !apperrors.IsNotFound(err):
		return err
	}

	if err := t.put(habitNamePrefix+h.Name, h.ID); err != nil {
		return err
	}
	return t.put(habitPrefix+h.ID, h)
}

func (t *tx) ListHabits(includeArchived bool) ([]models.Habit, error) {
	all, err := scanValues[models.Habit](t, habitPrefix, "", nil)
	if err != nil {
		return nil, err
	}
	habits := []models.Habit{}
	for _, h := range all {
		if includeArchived || !h.Archived() {
			habits = append(habits, h)
		}
	}
	sort.SliceStable(habits, func(i, j int) bool {
		if !habits[i].CreatedAt.Equal(habits[j].CreatedAt) {
			return habits[i].CreatedAt.Before(habits[j].CreatedAt)
		}
		return habits[i].ID < habits[j].ID
	})
	return habits, nil
}

// Habit completions

func completionKey(habitID, day string) string {
	return completionPrefix + habitID + ":" + day
}

func completionDayKey(day, habitID string) string {
	return completionDayPrefix + day + ":" + habitID
}

func (t *tx) GetCompletion(habitID, day string) (models.HabitCompletion, error) {
	var c models.HabitCompletion
	err := t.get(completionKey(habitID, day), &c, "habit completion", habitID+"@"+day)
	return c, err
}

func (t *tx) PutCompletion(c models.HabitCompletion) error {
	ok, err := t.has(habitPrefix + c.HabitID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound("habit", c.HabitID)
	}
	if err := t.txn.Set([]byte(completionDayKey(c.Day, c.HabitID)), nil); err != nil {
		return err
	}
	return t.put(completionKey(c.HabitID, c.Day), c)
}

func (t *tx) DeleteCompletion(habitID, day string) error {
	if err := t.delete(completionKey(habitID, day), "habit completion", habitID+"@"+day); err != nil {
		return err
	}
	return t.txn.Delete([]byte(completionDayKey(day, habitID)))
}

func (t *tx) CompletionsInRange(habitID, start, end string) ([]models.HabitCompletion, error) {
	return scanValues(t, completionPrefix+habitID+":", completionKey(habitID, start), func(c models.HabitCompletion) bool {
		return c.Day <= end
	})
}

func (t *tx) CompletionsForDay(day string) ([]models.HabitCompletion, error) {
	prefix := completionDayPrefix + day + ":"
	var habitIDs []string
	err := t.scan(prefix, "", false, func(key string, _ []byte) (bool, error) {
		habitIDs = append(habitIDs, strings.TrimPrefix(key, prefix))
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.HabitCompletion, 0, len(habitIDs))
	for _, id := range habitIDs {
		c, err := t.GetCompletion(id, day)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (t *tx) AllCompletions() ([]models.HabitCompletion, error) {
	return scanValues[models.HabitCompletion](t, completionPrefix, "", nil)
}

// Tasks

func taskDayKey(day, id string) string {
	return taskDayPrefix + day + ":" + id
}

func (t *tx) GetTask(id string) (models.Task, error) {
	var task models.Task
	err := t.get(taskPrefix+id, &task, "task", id)
	return task, err
}

func (t *tx) PutTask(task models.Task) error {
	existing, err := t.GetTask(task.ID)
	switch {
	case err == nil:
		task.CreatedAt = existing.CreatedAt
		if existing.Day != task.Day {
			if err := t.txn.Delete([]byte(taskDayKey(existing.Day, task.ID))); err != nil {
				return err
			}
		}
	case !apperrors.IsNotFound(err):
		return err
	}

	if err := t.txn.Set([]byte(taskDayKey(task.Day, task.ID)), nil); err != nil {
		return err
	}
	return t.put(taskPrefix+task.ID, task)
}

func (t *tx) DeleteTask(id string) error {
	task, err := t.GetTask(id)
	if err != nil {
		return err
	}
	if err := t.txn.Delete([]byte(taskDayKey(task.Day, id))); err != nil {
		return err
	}
	return t.txn.Delete([]byte(taskPrefix + id))
}

// tasksByDay walks the day index from start and loads every task whose day
// satisfies within.
func (t *tx) tasksByDay(start string, within func(day string) bool) ([]models.Task, error) {
	var ids []string
	err := t.scan(taskDayPrefix, start, false, func(key string, _ []byte) (bool, error) {
		rest := strings.TrimPrefix(key, taskDayPrefix)
		day, id, ok := strings.Cut(rest, ":")
		if !ok {
			return true, nil
		}
		if !within(day) {
			return false, nil
		}
		ids = append(ids, id)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	tasks := make([]models.Task, 0, len(ids))
	for _, id := range ids {
		task, err := t.GetTask(id)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	sortTasks(tasks)
	return tasks, nil
}

func (t *tx) TasksInRange(start, end string) ([]models.Task, error) {
	return t.tasksByDay(taskDayPrefix+start, func(day string) bool { return day <= end })
}

func (t *tx) TasksBefore(day string) ([]models.Task, error) {
	return t.tasksByDay("", func(d string) bool { return d < day })
}

func (t *tx) AllTasks() ([]models.Task, error) {
	tasks, err := scanValues[models.Task](t, taskPrefix, "", nil)
	if err != nil {
		return nil, err
	}
	sortTasks(tasks)
	return tasks, nil
}

func sortTasks(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// Daily trackers

func (t *tx) GetTracker(day string) (models.DailyTracker, error) {
	var d models.DailyTracker
	err := t.get(trackerPrefix+day, &d, "tracker", day)
	return d, err
}

func (t *tx) PutTracker(d models.DailyTracker) error {
	existing, err := t.GetTracker(d.Day)
	switch {
	case err == nil:
		d.ID = existing.ID
		d.CreatedAt = existing.CreatedAt
	case !apperrors.IsNotFound(err):
		return err
	}
	return t.put(trackerPrefix+d.Day, d)
}

func (t *tx) TrackersInRange(start, end string) ([]models.DailyTracker, error) {
	return scanValues(t, trackerPrefix, trackerPrefix+start, func(d models.DailyTracker) bool {
		return d.Day <= end
	})
}

// Goals

func (t *tx) GetGoal(id string) (models.Goal, error) {
	var g models.Goal
	err := t.get(goalPrefix+id, &g, "goal", id)
	return g, err
}

func (t *tx) PutGoal(g models.Goal) error {
	return t.put(goalPrefix+g.ID, g)
}

func (t *tx) ListGoals() ([]models.Goal, error) {
	goals, err := scanValues[models.Goal](t, goalPrefix, "", nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(goals, func(i, j int) bool {
		if !goals[i].CreatedAt.Equal(goals[j].CreatedAt) {
			return goals[i].CreatedAt.Before(goals[j].CreatedAt)
		}
		return goals[i].ID < goals[j].ID
	})
	return goals, nil
}

func goalUpdateKey(goalID, weekStart string) string {
	return goalUpdatePrefix + goalID + ":" + weekStart
}

func (t *tx) GetGoalUpdate(goalID, weekStart string) (models.GoalUpdate, error) {
	var u models.GoalUpdate
	err := t.get(goalUpdateKey(goalID, weekStart), &u, "goal update", goalID+"@"+weekStart)
	return u, err
}

func (t *tx) PutGoalUpdate(u models.GoalUpdate) error {
	ok, err := t.has(goalPrefix + u.GoalID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound("goal", u.GoalID)
	}
	return t.put(goalUpdateKey(u.GoalID, u.WeekStart), u)
}

func (t *tx) GoalUpdates(goalID string) ([]models.GoalUpdate, error) {
	return scanValues[models.GoalUpdate](t, goalUpdatePrefix+goalID+":", "", nil)
}

func (t *tx) AllGoalUpdates() ([]models.GoalUpdate, error) {
	return scanValues[models.GoalUpdate](t, goalUpdatePrefix, "", nil)
}

// recordPrefixes are every key family ClearRecords removes. Job state and
// the layout version are not among them.
var recordPrefixes = []string{
	habitPrefix, habitNamePrefix,
	completionPrefix, completionDayPrefix,
	taskPrefix, taskDayPrefix,
	trackerPrefix,
	goalPrefix, goalUpdatePrefix,
}

func (t *tx) ClearRecords() error {
	for _, prefix := range recordPrefixes {
		var keys []string
		err := t.scan(prefix, "", false, func(key string, _ []byte) (bool, error) {
			keys = append(keys, key)
			return true, nil
		})
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := t.txn.Delete([]byte(key)); err != nil {
				return fmt.Errorf("failed to clear %s: %w", key, err)
			}
		}
	}
	return nil
}

// Scheduler job state

func (t *tx) GetJobState(name string) (models.JobState, error) {
	var js models.JobState
	err := t.get(jobPrefix+name, &js, "job", name)
	return js, err
}

func (t *tx) PutJobState(js models.JobState) error {
	return t.put(jobPrefix+js.Name, js)
}

func (t *tx) ListJobStates() ([]models.JobState, error) {
	return scanValues[models.JobState](t, jobPrefix, "", nil)
}
