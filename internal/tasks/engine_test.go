package tasks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/dayledger/internal/clock"
	apperrors "github.com/julianstephens/dayledger/internal/errors"
	"github.com/julianstephens/dayledger/internal/models"
	"github.com/julianstephens/dayledger/internal/storage"
	"github.com/julianstephens/dayledger/internal/storage/kv"
)

func setupTestEngine(t *testing.T, today string) (*Engine, *clock.Manual, storage.Provider) {
	t.Helper()
	store := kv.NewInMemory()
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })
	clk := clock.ManualAt(today, 9)
	return NewEngine(store, clk), clk, store
}

func allTasks(t *testing.T, store storage.Provider) []models.Task {
	t.Helper()
	var tasks []models.Task
	require.NoError(t, store.View(context.Background(), func(tx storage.Tx) error {
		var err error
		tasks, err = tx.AllTasks()
		return err
	}))
	return tasks
}

func TestMissedBoundaryRollover(t *testing.T) {
	ctx := context.Background()
	e, _, _ := setupTestEngine(t, "2024-01-01")

	task, err := e.Add(ctx, "Write report", "2024-01-01", 0)
	require.NoError(t, err)
	_, err = e.SetProgress(ctx, task.ID, 40)
	require.NoError(t, err)

	result, err := e.RollForward(ctx, "2024-01-01", "2024-01-03")
	require.NoError(t, err)
	assert.Equal(t, []string{task.ID}, result.Moved)

	got, err := e.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-03", got.Day)
	assert.True(t, got.CarriedForward)
	require.NotNil(t, got.OriginalDay)
	assert.Equal(t, "2024-01-01", *got.OriginalDay)
	assert.Equal(t, 40, got.Progress)
}

func TestRollForwardIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e, clk, store := setupTestEngine(t, "2024-01-01")

	for _, title := range []string{"a", "b", "c"} {
		_, err := e.Add(ctx, title, "2024-01-01", 0)
		require.NoError(t, err)
	}

	first, err := e.RollForward(ctx, "2024-01-01", "2024-01-02")
	require.NoError(t, err)
	assert.Len(t, first.Moved, 3)
	after := allTasks(t, store)

	clk.Advance(1)
	second, err := e.RollForward(ctx, "2024-01-01", "2024-01-02")
	require.NoError(t, err)
	assert.Empty(t, second.Moved)
	assert.Equal(t, after, allTasks(t, store))
}

func TestCarriedTwiceKeepsOriginalDay(t *testing.T) {
	ctx := context.Background()
	e, _, _ := setupTestEngine(t, "2024-01-01")

	task, err := e.Add(ctx, "Taxes", "2024-01-01", 5)
	require.NoError(t, err)

	_, err = e.RollForward(ctx, "2024-01-01", "2024-01-02")
	require.NoError(t, err)
	_, err = e.RollForward(ctx, "2024-01-02", "2024-01-03")
	require.NoError(t, err)

	got, err := e.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-03", got.Day)
	require.NotNil(t, got.OriginalDay)
	assert.Equal(t, "2024-01-01", *got.OriginalDay)
}

func TestCompletedTasksStay(t *testing.T) {
	ctx := context.Background()
	e, _, _ := setupTestEngine(t, "2024-01-01")

	done, err := e.Add(ctx, "Done", "2024-01-01", 0)
	require.NoError(t, err)
	_, err = e.SetProgress(ctx, done.ID, 100)
	require.NoError(t, err)
	open, err := e.Add(ctx, "Open", "2024-01-01", 0)
	require.NoError(t, err)

	result, err := e.RollForward(ctx, "2024-01-01", "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, []string{open.ID}, result.Moved)

	got, err := e.Get(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", got.Day)
	assert.False(t, got.CarriedForward)
	assert.Nil(t, got.OriginalDay)
}

func TestRollForwardRejectsBackwards(t *testing.T) {
	ctx := context.Background()
	e, _, _ := setupTestEngine(t, "2024-01-01")

	_, err := e.RollForward(ctx, "2024-01-02", "2024-01-02")
	assert.True(t, apperrors.IsInvariant(err))
	_, err = e.RollForward(ctx, "2024-01-03", "2024-01-02")
	assert.True(t, apperrors.IsInvariant(err))
	_, err = e.RollForward(ctx, "yesterday", "2024-01-02")
	assert.True(t, apperrors.IsInvariant(err))
}

func TestCatchUpMovesEveryStaleDay(t *testing.T) {
	ctx := context.Background()
	e, _, store := setupTestEngine(t, "2024-01-05")

	for _, day := range []string{"2024-01-01", "2024-01-02", "2024-01-04"} {
		_, err := e.Add(ctx, "task on "+day, day, 0)
		require.NoError(t, err)
	}
	today, err := e.Add(ctx, "today", "2024-01-05", 0)
	require.NoError(t, err)

	stale, err := e.IncompleteTasksBefore(ctx, "2024-01-05")
	require.NoError(t, err)
	assert.Len(t, stale, 3)
	assert.Len(t, allTasks(t, store), 4, "dry run must not write")

	result, err := e.CatchUp(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", result.From)
	assert.Equal(t, "2024-01-05", result.To)
	assert.Len(t, result.Moved, 3)

	for _, task := range allTasks(t, store) {
		assert.Equal(t, "2024-01-05", task.Day)
		if task.ID == today.ID {
			assert.False(t, task.CarriedForward)
			continue
		}
		assert.True(t, task.CarriedForward)
		require.NotNil(t, task.OriginalDay)
		assert.Equal(t, task.Title, "task on "+*task.OriginalDay)
	}

	again, err := e.CatchUp(ctx, "2024-01-05")
	require.NoError(t, err)
	assert.Empty(t, again.Moved)
}

func TestTaskEntityOperations(t *testing.T) {
	ctx := context.Background()
	e, _, _ := setupTestEngine(t, "2024-01-01")

	_, err := e.Add(ctx, "", "", 0)
	assert.True(t, apperrors.IsInvariant(err))
	_, err = e.Add(ctx, "x", "", 9)
	assert.True(t, apperrors.IsInvariant(err))

	task, err := e.Add(ctx, "Plan week", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", task.Day)
	assert.Equal(t, 3, task.Priority)

	_, err = e.SetProgress(ctx, task.ID, 101)
	assert.True(t, apperrors.IsInvariant(err))
	_, err = e.SetProgress(ctx, task.ID, -1)
	assert.True(t, apperrors.IsInvariant(err))
	_, err = e.SetProgress(ctx, "missing", 50)
	assert.True(t, apperrors.IsNotFound(err))

	today, err := e.ForDay(ctx, "")
	require.NoError(t, err)
	require.Len(t, today, 1)

	require.NoError(t, e.Delete(ctx, task.ID))
	assert.True(t, apperrors.IsNotFound(e.Delete(ctx, task.ID)))

	today, err = e.ForDay(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, today)
}
