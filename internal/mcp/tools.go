package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/julianstephens/dayledger/internal/models"
	"github.com/julianstephens/dayledger/internal/tasks"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "mark_habit",
		Description: "Mark a habit as done for a day and return its current streak",
	}, s.handleMarkHabit)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "habit_streak",
		Description: "Get the current streak, longest streak and 30-day completion rate of a habit",
	}, s.handleHabitStreak)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_task",
		Description: "Add a task for a day",
	}, s.handleAddTask)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "roll_forward",
		Description: "Carry unfinished tasks from one day to a later day, or onto today when no days are given",
	}, s.handleRollForward)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "incomplete_tasks",
		Description: "List unfinished tasks dated before a day",
	}, s.handleIncompleteTasks)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "save_tracker",
		Description: "Save the daily journal tracker for a day and return its discipline score",
	}, s.handleSaveTracker)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "apply_weekly_update",
		Description: "Record a goal's progress change for a week, replacing any earlier update for that week",
	}, s.handleApplyWeeklyUpdate)
}

// Tool input/output types

type habitInput struct {
	Habit string `json:"habit" jsonschema:"Habit ID or name"`
	Day   string `json:"day,omitempty" jsonschema:"Day as YYYY-MM-DD, defaults to today"`
}

type markHabitOutput struct {
	HabitID string `json:"habit_id"`
	Day     string `json:"day"`
	Streak  int    `json:"streak"`
	Message string `json:"message"`
}

type habitStreakOutput struct {
	HabitID string            `json:"habit_id"`
	Name    string            `json:"name"`
	Stats   models.HabitStats `json:"stats"`
}

type addTaskInput struct {
	Title    string `json:"title" jsonschema:"Task title"`
	Day      string `json:"day,omitempty" jsonschema:"Day as YYYY-MM-DD, defaults to today"`
	Priority int    `json:"priority,omitempty" jsonschema:"Priority 1-5, defaults to 3"`
}

// taskView is the tool-facing shape of a task.
type taskView struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Day            string `json:"day"`
	Progress       int    `json:"progress"`
	Priority       int    `json:"priority"`
	CarriedForward bool   `json:"carried_forward"`
	OriginalDay    string `json:"original_day,omitempty"`
}

func viewTask(t models.Task) taskView {
	v := taskView{
		ID:             t.ID,
		Title:          t.Title,
		Day:            t.Day,
		Progress:       t.Progress,
		Priority:       t.Priority,
		CarriedForward: t.CarriedForward,
	}
	if t.OriginalDay != nil {
		v.OriginalDay = *t.OriginalDay
	}
	return v
}

type taskOutput struct {
	Task    taskView `json:"task"`
	Message string   `json:"message"`
}

type rollForwardInput struct {
	From string `json:"from,omitempty" jsonschema:"Day to carry tasks from; omit with to to catch up onto today"`
	To   string `json:"to,omitempty" jsonschema:"Day to carry tasks to"`
}

type rollForwardOutput struct {
	To      string   `json:"to"`
	Moved   []string `json:"moved"`
	Message string   `json:"message"`
}

type incompleteTasksInput struct {
	Before string `json:"before,omitempty" jsonschema:"Exclusive upper bound day, defaults to today"`
}

type tasksOutput struct {
	Tasks []taskView `json:"tasks"`
}

type saveTrackerInput struct {
	Day                string  `json:"day,omitempty" jsonschema:"Day as YYYY-MM-DD, defaults to today"`
	WokeEarly          bool    `json:"woke_early,omitempty"`
	Exercised          bool    `json:"exercised,omitempty"`
	Meditated          bool    `json:"meditated,omitempty"`
	Read               bool    `json:"read,omitempty"`
	Journaled          bool    `json:"journaled,omitempty"`
	SleepHours         float64 `json:"sleep_hours,omitempty" jsonschema:"Hours slept, 0-24"`
	ScreenTimeHours    float64 `json:"screen_time_hours,omitempty" jsonschema:"Hours of screen time, 0-24"`
	WaterLiters        float64 `json:"water_liters,omitempty" jsonschema:"Liters of water, 0-10"`
	StudyHours         float64 `json:"study_hours,omitempty" jsonschema:"Hours of study, 0-24"`
	SocialMediaMinutes int     `json:"social_media_minutes,omitempty" jsonschema:"Minutes of social media, 0-1440"`
	Mood               int     `json:"mood,omitempty" jsonschema:"Mood 1-10"`
	Notes              string  `json:"notes,omitempty"`
}

type trackerOutput struct {
	Day   string `json:"day"`
	Score int    `json:"score"`
}

type weeklyUpdateInput struct {
	GoalID    string `json:"goal_id" jsonschema:"Goal ID"`
	WeekStart string `json:"week_start,omitempty" jsonschema:"Any day of the week, defaults to the current week"`
	Delta     int    `json:"delta" jsonschema:"Progress change in percentage points, -100 to 100"`
	Notes     string `json:"notes,omitempty"`
}

type goalOutput struct {
	GoalID    string `json:"goal_id"`
	Title     string `json:"title"`
	Progress  int    `json:"progress_percent"`
	Completed bool   `json:"completed"`
	Message   string `json:"message"`
}

// Tool handlers

func (s *Server) handleMarkHabit(ctx context.Context, req *mcp.CallToolRequest, input habitInput) (*mcp.CallToolResult, markHabitOutput, error) {
	habit, err := s.habits.Resolve(ctx, input.Habit)
	if err != nil {
		return nil, markHabitOutput{}, err
	}
	day := input.Day
	if day == "" {
		day = s.clock.Today()
	}
	streak, err := s.habits.Mark(ctx, habit.ID, day)
	if err != nil {
		return nil, markHabitOutput{}, fmt.Errorf("failed to mark habit: %w", err)
	}
	return nil, markHabitOutput{
		HabitID: habit.ID,
		Day:     day,
		Streak:  streak,
		Message: fmt.Sprintf("Marked %s on %s (streak: %d)", habit.Name, day, streak),
	}, nil
}

func (s *Server) handleHabitStreak(ctx context.Context, req *mcp.CallToolRequest, input habitInput) (*mcp.CallToolResult, habitStreakOutput, error) {
	habit, err := s.habits.Resolve(ctx, input.Habit)
	if err != nil {
		return nil, habitStreakOutput{}, err
	}
	stats, err := s.habits.Stats(ctx, habit.ID, input.Day, 30)
	if err != nil {
		return nil, habitStreakOutput{}, fmt.Errorf("failed to compute habit stats: %w", err)
	}
	return nil, habitStreakOutput{HabitID: habit.ID, Name: habit.Name, Stats: stats}, nil
}

func (s *Server) handleAddTask(ctx context.Context, req *mcp.CallToolRequest, input addTaskInput) (*mcp.CallToolResult, taskOutput, error) {
	task, err := s.tasks.Add(ctx, input.Title, input.Day, input.Priority)
	if err != nil {
		return nil, taskOutput{}, fmt.Errorf("failed to add task: %w", err)
	}
	return nil, taskOutput{
		Task:    viewTask(task),
		Message: fmt.Sprintf("Added task %q for %s (ID: %s)", task.Title, task.Day, task.ID),
	}, nil
}

func (s *Server) handleRollForward(ctx context.Context, req *mcp.CallToolRequest, input rollForwardInput) (*mcp.CallToolResult, rollForwardOutput, error) {
	var res tasks.Result
	var err error
	if input.From == "" && input.To == "" {
		res, err = s.tasks.CatchUp(ctx, "")
	} else {
		res, err = s.tasks.RollForward(ctx, input.From, input.To)
	}
	if err != nil {
		return nil, rollForwardOutput{}, fmt.Errorf("failed to roll tasks forward: %w", err)
	}
	return nil, rollForwardOutput{
		To:      res.To,
		Moved:   res.Moved,
		Message: fmt.Sprintf("Carried %d task(s) to %s", len(res.Moved), res.To),
	}, nil
}

func (s *Server) handleIncompleteTasks(ctx context.Context, req *mcp.CallToolRequest, input incompleteTasksInput) (*mcp.CallToolResult, tasksOutput, error) {
	before := input.Before
	if before == "" {
		before = s.clock.Today()
	}
	list, err := s.tasks.IncompleteTasksBefore(ctx, before)
	if err != nil {
		return nil, tasksOutput{}, fmt.Errorf("failed to list tasks: %w", err)
	}
	out := tasksOutput{Tasks: make([]taskView, 0, len(list))}
	for _, t := range list {
		out.Tasks = append(out.Tasks, viewTask(t))
	}
	return nil, out, nil
}

func (s *Server) handleSaveTracker(ctx context.Context, req *mcp.CallToolRequest, input saveTrackerInput) (*mcp.CallToolResult, trackerOutput, error) {
	saved, err := s.journal.Save(ctx, models.DailyTracker{
		Day:                input.Day,
		WokeEarly:          input.WokeEarly,
		Exercised:          input.Exercised,
		Meditated:          input.Meditated,
		Read:               input.Read,
		Journaled:          input.Journaled,
		SleepHours:         input.SleepHours,
		ScreenTimeHours:    input.ScreenTimeHours,
		WaterLiters:        input.WaterLiters,
		StudyHours:         input.StudyHours,
		SocialMediaMinutes: input.SocialMediaMinutes,
		Mood:               input.Mood,
		Notes:              input.Notes,
	})
	if err != nil {
		return nil, trackerOutput{}, fmt.Errorf("failed to save tracker: %w", err)
	}
	return nil, trackerOutput{Day: saved.Day, Score: saved.Score}, nil
}

func (s *Server) handleApplyWeeklyUpdate(ctx context.Context, req *mcp.CallToolRequest, input weeklyUpdateInput) (*mcp.CallToolResult, goalOutput, error) {
	goal, err := s.goals.ApplyWeeklyUpdate(ctx, input.GoalID, input.WeekStart, input.Delta, input.Notes)
	if err != nil {
		return nil, goalOutput{}, fmt.Errorf("failed to apply weekly update: %w", err)
	}
	msg := fmt.Sprintf("%s is at %d%%", goal.Title, goal.ProgressPercent)
	if goal.Completed {
		msg += " (completed)"
	}
	return nil, goalOutput{
		GoalID:    goal.ID,
		Title:     goal.Title,
		Progress:  goal.ProgressPercent,
		Completed: goal.Completed,
		Message:   msg,
	}, nil
}
