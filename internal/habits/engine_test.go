package habits

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/dayledger/internal/clock"
	apperrors "github.com/julianstephens/dayledger/internal/errors"
	"github.com/julianstephens/dayledger/internal/models"
	"github.com/julianstephens/dayledger/internal/storage"
	"github.com/julianstephens/dayledger/internal/storage/sqlstore"
	"github.com/julianstephens/dayledger/internal/utils"
)

func setupTestEngine(t *testing.T, today string) (*Engine, storage.Provider) {
	t.Helper()
	store := sqlstore.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })
	return NewEngine(store, clock.ManualAt(today, 12)), store
}

// seed writes completions for every day in [start, end] directly, bypassing
// the engine so long histories stay cheap to build.
func seed(t *testing.T, store storage.Provider, habitID, start, end string) {
	t.Helper()
	require.NoError(t, store.Update(context.Background(), func(tx storage.Tx) error {
		for day := start; day <= end; day = utils.MustAddDays(day, 1) {
			c := models.HabitCompletion{HabitID: habitID, Day: day, Completed: true}
			if err := tx.PutCompletion(c); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestCurrentStreakNoHistory(t *testing.T) {
	ctx := context.Background()
	e, _ := setupTestEngine(t, "2024-01-10")

	streak, err := e.CurrentStreak(ctx, "unknown", "2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, 0, streak)

	habit, err := e.Create(ctx, "Read", "")
	require.NoError(t, err)
	streak, err = e.CurrentStreak(ctx, habit.ID, "2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, 0, streak)
}

func TestCurrentStreakConsecutiveDays(t *testing.T) {
	ctx := context.Background()
	const asOf = "2024-06-30"

	// Lengths straddle the window size so the walk has to reload.
	for _, n := range []int{1, 5, 63, 64, 65, 200} {
		t.Run(utils.MustAddDays(asOf, -n), func(t *testing.T) {
			e, store := setupTestEngine(t, asOf)
			habit, err := e.Create(ctx, "Run", "")
			require.NoError(t, err)

			seed(t, store, habit.ID, utils.MustAddDays(asOf, -(n-1)), asOf)
			// A completion before the gap must not leak into the streak.
			gapBefore := utils.MustAddDays(asOf, -(n + 1))
			seed(t, store, habit.ID, gapBefore, gapBefore)

			streak, err := e.CurrentStreak(ctx, habit.ID, asOf)
			require.NoError(t, err)
			assert.Equal(t, n, streak)
		})
	}
}

func TestSevenDayWindowExample(t *testing.T) {
	ctx := context.Background()
	e, store := setupTestEngine(t, "2024-01-07")
	habit, err := e.Create(ctx, "Meditate", "#00ff88")
	require.NoError(t, err)
	seed(t, store, habit.ID, "2024-01-01", "2024-01-05")

	rate, err := e.CompletionRate(ctx, habit.ID, "2024-01-01", "2024-01-07")
	require.NoError(t, err)
	assert.InDelta(t, 5.0/7.0, rate, 1e-9)

	streak, err := e.CurrentStreak(ctx, habit.ID, "2024-01-07")
	require.NoError(t, err)
	assert.Equal(t, 0, streak)

	streak, err = e.CurrentStreak(ctx, habit.ID, "2024-01-05")
	require.NoError(t, err)
	assert.Equal(t, 5, streak)

	// Today not yet done does not break yesterday's streak.
	streak, err = e.CurrentStreak(ctx, habit.ID, "2024-01-06")
	require.NoError(t, err)
	assert.Equal(t, 5, streak)
}

func TestCompletionRateEdges(t *testing.T) {
	ctx := context.Background()
	e, store := setupTestEngine(t, "2024-01-07")
	habit, err := e.Create(ctx, "Stretch", "")
	require.NoError(t, err)
	seed(t, store, habit.ID, "2024-01-01", "2024-01-03")

	rate, err := e.CompletionRate(ctx, habit.ID, "2024-01-05", "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, 0.0, rate)

	rate, err = e.CompletionRate(ctx, habit.ID, "2024-01-02", "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)

	rate, err = e.CompletionRate(ctx, "unknown", "2024-01-01", "2024-01-07")
	require.NoError(t, err)
	assert.Equal(t, 0.0, rate)

	_, err = e.CompletionRate(ctx, habit.ID, "Jan 1", "2024-01-07")
	assert.True(t, apperrors.IsInvariant(err))
}

func TestLongestStreakAndStats(t *testing.T) {
	ctx := context.Background()
	e, store := setupTestEngine(t, "2024-03-31")
	habit, err := e.Create(ctx, "Write", "")
	require.NoError(t, err)
	seed(t, store, habit.ID, "2024-03-01", "2024-03-10")
	seed(t, store, habit.ID, "2024-03-20", "2024-03-22")
	seed(t, store, habit.ID, "2024-03-30", "2024-03-30")

	longest, err := e.LongestStreak(ctx, habit.ID, "2024-03-01", "2024-03-31")
	require.NoError(t, err)
	assert.Equal(t, 10, longest)

	longest, err = e.LongestStreak(ctx, habit.ID, "2024-03-05", "2024-03-25")
	require.NoError(t, err)
	assert.Equal(t, 6, longest)

	stats, err := e.Stats(ctx, habit.ID, "", 31)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 10, stats.LongestStreak)
	assert.InDelta(t, 14.0/31.0, stats.Rate, 1e-9)

	_, err = e.Stats(ctx, habit.ID, "", 0)
	assert.True(t, apperrors.IsInvariant(err))
}

func TestMark(t *testing.T) {
	ctx := context.Background()
	e, _ := setupTestEngine(t, "2024-02-03")
	habit, err := e.Create(ctx, "Read", "")
	require.NoError(t, err)

	streak, err := e.Mark(ctx, habit.ID, "2024-02-01")
	require.NoError(t, err)
	assert.Equal(t, 1, streak)

	streak, err = e.Mark(ctx, habit.ID, "2024-02-02")
	require.NoError(t, err)
	assert.Equal(t, 2, streak)

	// Empty day means today.
	streak, err = e.Mark(ctx, habit.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 3, streak)

	// Marking again overwrites rather than adding a record.
	streak, err = e.Mark(ctx, habit.ID, "2024-02-03")
	require.NoError(t, err)
	assert.Equal(t, 3, streak)

	done, err := e.CompletedOn(ctx, "2024-02-03")
	require.NoError(t, err)
	assert.True(t, done[habit.ID])
}

func TestMarkRejectsUnknownAndArchived(t *testing.T) {
	ctx := context.Background()
	e, _ := setupTestEngine(t, "2024-02-03")

	_, err := e.Mark(ctx, "unknown", "")
	assert.True(t, apperrors.IsNotFound(err))

	habit, err := e.Create(ctx, "Read", "")
	require.NoError(t, err)
	archived, err := e.Archive(ctx, habit.ID)
	require.NoError(t, err)
	assert.True(t, archived.Archived())

	_, err = e.Mark(ctx, habit.ID, "")
	assert.True(t, apperrors.IsInvariant(err))

	_, err = e.Mark(ctx, habit.ID, "2024/02/03")
	assert.True(t, apperrors.IsInvariant(err))
}

func TestUnmarkAndToggle(t *testing.T) {
	ctx := context.Background()
	e, _ := setupTestEngine(t, "2024-02-03")
	habit, err := e.Create(ctx, "Read", "")
	require.NoError(t, err)

	_, err = e.Mark(ctx, habit.ID, "2024-02-03")
	require.NoError(t, err)
	require.NoError(t, e.Unmark(ctx, habit.ID, "2024-02-03"))
	require.NoError(t, e.Unmark(ctx, habit.ID, "2024-02-03"), "unmarking twice is a no-op")

	streak, err := e.CurrentStreak(ctx, habit.ID, "2024-02-03")
	require.NoError(t, err)
	assert.Equal(t, 0, streak)

	completed, err := e.Toggle(ctx, habit.ID, "")
	require.NoError(t, err)
	assert.True(t, completed)

	completed, err = e.Toggle(ctx, habit.ID, "")
	require.NoError(t, err)
	assert.False(t, completed)

	done, err := e.CompletedOn(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestCreateAndArchive(t *testing.T) {
	ctx := context.Background()
	e, _ := setupTestEngine(t, "2024-02-03")

	first, err := e.Create(ctx, "  Read  ", "#123abc")
	require.NoError(t, err)
	assert.Equal(t, "Read", first.Name)

	_, err = e.Create(ctx, "Read", "")
	assert.True(t, apperrors.IsInvariant(err))
	_, err = e.Create(ctx, "Bad color", "red")
	assert.True(t, apperrors.IsInvariant(err))
	_, err = e.Create(ctx, "   ", "")
	assert.True(t, apperrors.IsInvariant(err))

	second, err := e.Create(ctx, "Run", "")
	require.NoError(t, err)

	_, err = e.Archive(ctx, second.ID)
	require.NoError(t, err)

	active, err := e.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, first.ID, active[0].ID)

	all, err := e.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	restored, err := e.Unarchive(ctx, second.ID)
	require.NoError(t, err)
	assert.False(t, restored.Archived())

	byName, err := e.Resolve(ctx, "Run")
	require.NoError(t, err)
	assert.Equal(t, second.ID, byName.ID)

	byID, err := e.Resolve(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Read", byID.Name)

	_, err = e.Archive(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}
