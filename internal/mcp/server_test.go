package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/dayledger/internal/clock"
	apperrors "github.com/julianstephens/dayledger/internal/errors"
	"github.com/julianstephens/dayledger/internal/storage/kv"
)

func setupServer(t *testing.T, today string) *Server {
	t.Helper()
	store := kv.NewInMemory()
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })
	return NewServer(store, clock.ManualAt(today, 9))
}

func TestMarkHabitAndStreak(t *testing.T) {
	ctx := context.Background()
	s := setupServer(t, "2024-01-03")
	habit, err := s.habits.Create(ctx, "Run", "")
	require.NoError(t, err)

	for _, day := range []string{"2024-01-01", "2024-01-02"} {
		_, _, err := s.handleMarkHabit(ctx, &mcp.CallToolRequest{}, habitInput{Habit: "Run", Day: day})
		require.NoError(t, err)
	}
	_, out, err := s.handleMarkHabit(ctx, &mcp.CallToolRequest{}, habitInput{Habit: habit.ID})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-03", out.Day)
	assert.Equal(t, 3, out.Streak)
	assert.NotEmpty(t, out.Message)

	_, stats, err := s.handleHabitStreak(ctx, &mcp.CallToolRequest{}, habitInput{Habit: "Run"})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Stats.CurrentStreak)
	assert.Equal(t, 3, stats.Stats.LongestStreak)
	assert.InDelta(t, 3.0/30.0, stats.Stats.Rate, 1e-9)

	_, _, err = s.handleMarkHabit(ctx, &mcp.CallToolRequest{}, habitInput{Habit: "Swim"})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestTaskTools(t *testing.T) {
	ctx := context.Background()
	s := setupServer(t, "2024-01-03")

	_, added, err := s.handleAddTask(ctx, &mcp.CallToolRequest{}, addTaskInput{Title: "Write report", Day: "2024-01-01"})
	require.NoError(t, err)
	assert.Equal(t, 3, added.Task.Priority)

	_, stale, err := s.handleIncompleteTasks(ctx, &mcp.CallToolRequest{}, incompleteTasksInput{})
	require.NoError(t, err)
	require.Len(t, stale.Tasks, 1)
	assert.Equal(t, added.Task.ID, stale.Tasks[0].ID)

	_, _, err = s.handleRollForward(ctx, &mcp.CallToolRequest{}, rollForwardInput{From: "2024-01-03", To: "2024-01-01"})
	assert.True(t, apperrors.IsInvariant(err))

	_, rolled, err := s.handleRollForward(ctx, &mcp.CallToolRequest{}, rollForwardInput{})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-03", rolled.To)
	assert.Equal(t, []string{added.Task.ID}, rolled.Moved)

	_, stale, err = s.handleIncompleteTasks(ctx, &mcp.CallToolRequest{}, incompleteTasksInput{})
	require.NoError(t, err)
	assert.Empty(t, stale.Tasks)

	task, err := s.tasks.Get(ctx, added.Task.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", *task.OriginalDay)
}

func TestSaveTracker(t *testing.T) {
	ctx := context.Background()
	s := setupServer(t, "2024-01-03")

	_, out, err := s.handleSaveTracker(ctx, &mcp.CallToolRequest{}, saveTrackerInput{
		WokeEarly:          true,
		Exercised:          true,
		SleepHours:         8,
		SocialMediaMinutes: 90,
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-03", out.Day)
	assert.Equal(t, 3, out.Score)

	_, _, err = s.handleSaveTracker(ctx, &mcp.CallToolRequest{}, saveTrackerInput{SleepHours: 30})
	assert.True(t, apperrors.IsInvariant(err))
}

func TestApplyWeeklyUpdate(t *testing.T) {
	ctx := context.Background()
	s := setupServer(t, "2024-01-03")
	goal, err := s.goals.Add(ctx, "Ship v1", 50)
	require.NoError(t, err)

	_, out, err := s.handleApplyWeeklyUpdate(ctx, &mcp.CallToolRequest{}, weeklyUpdateInput{GoalID: goal.ID, Delta: 30})
	require.NoError(t, err)
	assert.Equal(t, 80, out.Progress)

	// Same week: replaces the earlier update.
	_, out, err = s.handleApplyWeeklyUpdate(ctx, &mcp.CallToolRequest{}, weeklyUpdateInput{GoalID: goal.ID, WeekStart: "2024-01-05", Delta: 60})
	require.NoError(t, err)
	assert.Equal(t, 100, out.Progress)
	assert.True(t, out.Completed)

	_, _, err = s.handleApplyWeeklyUpdate(ctx, &mcp.CallToolRequest{}, weeklyUpdateInput{GoalID: "missing", Delta: 10})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestServerOverTransport(t *testing.T) {
	ctx := context.Background()
	s := setupServer(t, "2024-01-03")

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := s.Connect(ctx, serverTransport)
	require.NoError(t, err)
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	tools, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	require.NoError(t, err)
	names := []string{}
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"mark_habit", "habit_streak", "add_task", "roll_forward",
		"incomplete_tasks", "save_tracker", "apply_weekly_update",
	}, names)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "add_task",
		Arguments: map[string]any{"title": "Write report"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	read, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: todayURI})
	require.NoError(t, err)
	require.Len(t, read.Contents, 1)

	var today struct {
		Summary struct {
			Day string `json:"day"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(read.Contents[0].Text), &today))
	assert.Equal(t, "2024-01-03", today.Summary.Day)
}
