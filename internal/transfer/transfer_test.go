package transfer

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/julianstephens/dayledger/internal/errors"
	"github.com/julianstephens/dayledger/internal/journal"
	"github.com/julianstephens/dayledger/internal/models"
	"github.com/julianstephens/dayledger/internal/storage"
	"github.com/julianstephens/dayledger/internal/storage/kv"
	"github.com/julianstephens/dayledger/internal/storage/sqlstore"
)

func at(day string, hour int) time.Time {
	d, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return d.Add(time.Duration(hour) * time.Hour)
}

func newSQLiteStore(t *testing.T) storage.Provider {
	t.Helper()
	store := sqlstore.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })
	return store
}

func newKVStore(t *testing.T) storage.Provider {
	t.Helper()
	store := kv.NewInMemory()
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })
	return store
}

// seed writes one record of every kind with stored derived values that
// disagree with the raw fields.
func seed(t *testing.T, store storage.Provider) {
	t.Helper()
	original := "2024-01-01"
	require.NoError(t, store.Update(context.Background(), func(tx storage.Tx) error {
		if err := tx.PutHabit(models.Habit{ID: "h1", Name: "Run", Color: "#ff0000", CreatedAt: at("2024-01-01", 9)}); err != nil {
			return err
		}
		if err := tx.PutCompletion(models.HabitCompletion{HabitID: "h1", Day: "2024-01-01", Completed: true, CompletedAt: at("2024-01-01", 20)}); err != nil {
			return err
		}
		if err := tx.PutTask(models.Task{
			ID: "t1", Title: "Write report", Day: "2024-01-03", Progress: 40, Priority: 3,
			CarriedForward: true, OriginalDay: &original,
			CreatedAt: at("2024-01-01", 9), UpdatedAt: at("2024-01-03", 0),
		}); err != nil {
			return err
		}
		if err := tx.PutTracker(models.DailyTracker{
			ID: "d1", Day: "2024-01-02", WokeEarly: true, SleepHours: 7.5, SocialMediaMinutes: 20,
			Mood: 7, Notes: "good", Score: 9,
			CreatedAt: at("2024-01-02", 21), UpdatedAt: at("2024-01-02", 21),
		}); err != nil {
			return err
		}
		if err := tx.PutGoal(models.Goal{ID: "g1", Title: "Ship v1", InitialPercent: 10, ProgressPercent: 99, CreatedAt: at("2024-01-01", 9)}); err != nil {
			return err
		}
		return tx.PutGoalUpdate(models.GoalUpdate{GoalID: "g1", WeekStart: "2024-01-01", Delta: 20, Notes: "kickoff", CreatedAt: at("2024-01-07", 18)})
	}))
}

func TestExportGolden(t *testing.T) {
	store := newSQLiteStore(t)
	seed(t, store)

	var buf bytes.Buffer
	counts, err := Export(context.Background(), store, &buf, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, Counts{Habits: 1, Completions: 1, Tasks: 1, Trackers: 1, Goals: 1, GoalUpdates: 1}, counts)

	g := goldie.New(t, goldie.WithFixtureDir("testdata"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "export", buf.Bytes())
}

func TestRoundTripRecomputesDerivedFields(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			ctx := context.Background()
			src := newSQLiteStore(t)
			seed(t, src)

			var buf bytes.Buffer
			_, err := Export(ctx, src, &buf, format)
			require.NoError(t, err)
			assert.NotContains(t, buf.String(), "score")
			assert.NotContains(t, buf.String(), "progress_percent")

			dst := newKVStore(t)
			counts, err := Import(ctx, dst, &buf, format)
			require.NoError(t, err)
			assert.Equal(t, 1, counts.Trackers)

			before, err := Snapshot(ctx, src)
			require.NoError(t, err)
			after, err := Snapshot(ctx, dst)
			require.NoError(t, err)
			assert.Equal(t, before, after)

			require.NoError(t, dst.View(ctx, func(tx storage.Tx) error {
				tracker, err := tx.GetTracker("2024-01-02")
				require.NoError(t, err)
				assert.Equal(t, journal.Score(tracker), tracker.Score)
				assert.NotEqual(t, 9, tracker.Score)

				goal, err := tx.GetGoal("g1")
				require.NoError(t, err)
				assert.Equal(t, 30, goal.ProgressPercent)
				assert.False(t, goal.Completed)
				return nil
			}))
		})
	}
}

func TestImportIgnoresTransportedDerivedValues(t *testing.T) {
	ctx := context.Background()
	store := newKVStore(t)
	doc := `{
  "version": 1,
  "habits": [],
  "completions": [],
  "tasks": [],
  "trackers": [{"id": "d1", "day": "2024-01-02", "woke_early": true, "score": 10,
    "sleep_hours": 0, "screen_time_hours": 0, "water_liters": 0, "study_hours": 0,
    "social_media_minutes": 60, "exercised": false, "meditated": false, "read": false, "journaled": false,
    "created_at": "2024-01-02T21:00:00Z", "updated_at": "2024-01-02T21:00:00Z"}],
  "goals": [{"id": "g1", "title": "Ship", "initial_percent": 95, "progress_percent": 0, "completed": false, "created_at": "2024-01-01T09:00:00Z"}],
  "goal_updates": []
}`
	_, err := Import(ctx, store, strings.NewReader(doc), FormatJSON)
	require.NoError(t, err)

	require.NoError(t, store.View(ctx, func(tx storage.Tx) error {
		tracker, err := tx.GetTracker("2024-01-02")
		require.NoError(t, err)
		assert.Equal(t, 1, tracker.Score)

		goal, err := tx.GetGoal("g1")
		require.NoError(t, err)
		assert.Equal(t, 95, goal.ProgressPercent)
		return nil
	}))
}

func TestImportIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	doc := `{
  "version": 1,
  "habits": [{"id": "h1", "name": "Run", "created_at": "2024-01-01T09:00:00Z"}],
  "completions": [],
  "tasks": [{"id": "t1", "title": "Bad", "day": "2024-01-01", "progress": 150, "priority": 3,
    "carried_forward": false, "created_at": "2024-01-01T09:00:00Z", "updated_at": "2024-01-01T09:00:00Z"}],
  "trackers": [],
  "goals": [],
  "goal_updates": []
}`
	_, err := Import(ctx, store, strings.NewReader(doc), FormatJSON)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvariant(err))

	require.NoError(t, store.View(ctx, func(tx storage.Tx) error {
		_, err := tx.GetHabit("h1")
		assert.True(t, apperrors.IsNotFound(err))
		return nil
	}))
}

func TestDecodeRejectsBadDocuments(t *testing.T) {
	tests := map[string]struct {
		input  string
		format Format
	}{
		"wrong version":      {`{"version": 2}`, FormatJSON},
		"missing version":    {`{"habits": []}`, FormatJSON},
		"unknown field":      {`{"version": 1, "extra": true}`, FormatJSON},
		"yaml unknown field": {"version: 1\nextra: true\n", FormatYAML},
		"not json":           {`version: 1`, FormatJSON},
		"bad format":         {`{}`, Format("toml")},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input), tt.format)
			assert.Error(t, err)
		})
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"json": FormatJSON, "JSON": FormatJSON, "yaml": FormatYAML, "yml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("csv")
	assert.Error(t, err)

	assert.Equal(t, FormatYAML, FormatForPath("/tmp/export.yaml"))
	assert.Equal(t, FormatJSON, FormatForPath("/tmp/export.json"))
	assert.Equal(t, FormatJSON, FormatForPath("/tmp/export"))
}
