package shell

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/dayledger/internal/clock"
	"github.com/julianstephens/dayledger/internal/constants"
	apperrors "github.com/julianstephens/dayledger/internal/errors"
	"github.com/julianstephens/dayledger/internal/goals"
	"github.com/julianstephens/dayledger/internal/habits"
	"github.com/julianstephens/dayledger/internal/journal"
	"github.com/julianstephens/dayledger/internal/models"
	"github.com/julianstephens/dayledger/internal/notifier"
	"github.com/julianstephens/dayledger/internal/storage"
	"github.com/julianstephens/dayledger/internal/storage/kv"
	"github.com/julianstephens/dayledger/internal/tasks"
)

type fixture struct {
	store storage.Provider
	clock *clock.Manual
	sink  *notifier.Recorder
	shell *Shell
}

func setup(t *testing.T, day string, hour int) *fixture {
	t.Helper()
	store := kv.NewInMemory()
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })

	f := &fixture{store: store, clock: clock.ManualAt(day, hour), sink: &notifier.Recorder{}}
	f.shell = NewDefault(store, f.clock, f.sink, DefaultConfig())
	return f
}

func (f *fixture) state(t *testing.T, name string) models.JobState {
	t.Helper()
	states, err := f.shell.States(context.Background())
	require.NoError(t, err)
	for _, s := range states {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("no state for job %s", name)
	return models.JobState{}
}

func ran(outcomes []Outcome) []string {
	names := []string{}
	for _, o := range outcomes {
		if o.Ran {
			names = append(names, o.Job)
		}
	}
	return names
}

func TestRunDueRunsEachJobOncePerBoundary(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "2024-01-03", 22)

	task, err := tasks.NewEngine(f.store, f.clock).Add(ctx, "Write report", "2024-01-01", 0)
	require.NoError(t, err)
	h := habits.NewEngine(f.store, f.clock)
	run, err := h.Create(ctx, "Run", "")
	require.NoError(t, err)
	read, err := h.Create(ctx, "Read", "")
	require.NoError(t, err)
	_, err = h.Mark(ctx, run.ID, "2024-01-03")
	require.NoError(t, err)

	outcomes, err := f.shell.RunDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{constants.JobRollover, constants.JobReview, constants.JobSummary}, ran(outcomes))
	for _, o := range outcomes {
		assert.NoError(t, o.Err)
		assert.Equal(t, models.JobIdle, o.Status)
	}

	moved, err := tasks.NewEngine(f.store, f.clock).Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-03", moved.Day)

	require.Len(t, f.sink.Summaries, 1)
	assert.Equal(t, models.DailySummary{Day: "2024-01-03", HabitsCompleted: 1, TotalHabits: 2}, f.sink.Summaries[0])
	assert.Equal(t, []models.HabitReminder{{HabitID: read.ID, HabitName: "Read"}}, f.sink.Reminders)
	require.Len(t, f.sink.Reviews, 1)

	outcomes, err = f.shell.RunDue(ctx)
	require.NoError(t, err)
	assert.Empty(t, ran(outcomes))

	state := f.state(t, constants.JobRollover)
	assert.Equal(t, "2024-01-03", state.LastRunDay)
	assert.Equal(t, 0, state.Attempts)
}

func TestMissedBoundariesCatchUpInOneRun(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "2024-01-01", 9)
	te := tasks.NewEngine(f.store, f.clock)

	task, err := te.Add(ctx, "Write report", "2024-01-01", 0)
	require.NoError(t, err)
	_, err = f.shell.RunDue(ctx)
	require.NoError(t, err)

	// The process sleeps through two midnights.
	f.clock.Advance(48 * time.Hour)
	outcomes, err := f.shell.RunDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{constants.JobRollover}, ran(outcomes))

	got, err := te.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-03", got.Day)
	require.NotNil(t, got.OriginalDay)
	assert.Equal(t, "2024-01-01", *got.OriginalDay)
	assert.Equal(t, "2024-01-03", f.state(t, constants.JobRollover).LastRunDay)
}

func TestFailedJobBacksOffThenRetries(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "2024-01-01", 22)
	f.sink.SetErr(errors.New("tray unreachable"))
	sh := New(f.store, f.clock, DefaultConfig(), &SummaryJob{Store: f.store, Sink: f.sink, Hour: 21})

	outcomes, err := sh.RunDue(ctx)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Ran)
	assert.Error(t, outcomes[0].Err)
	assert.Equal(t, models.JobFailed, outcomes[0].Status)

	states, err := sh.States(ctx)
	require.NoError(t, err)
	state := states[0]
	assert.Equal(t, models.JobFailed, state.Status)
	assert.Equal(t, 1, state.Attempts)
	assert.Equal(t, "tray unreachable", state.LastError)
	assert.Empty(t, state.LastRunDay)
	require.NotNil(t, state.NextAttemptAt)
	assert.True(t, f.clock.Now().Add(constants.DefaultRetryBase).Equal(*state.NextAttemptAt))

	// Still inside the backoff window.
	f.clock.Advance(10 * time.Second)
	outcomes, err = sh.RunDue(ctx)
	require.NoError(t, err)
	assert.False(t, outcomes[0].Ran)
	assert.Equal(t, models.JobFailed, outcomes[0].Status)

	f.sink.SetErr(nil)
	f.clock.Advance(constants.DefaultRetryBase)
	outcomes, err = sh.RunDue(ctx)
	require.NoError(t, err)
	assert.True(t, outcomes[0].Ran)
	assert.NoError(t, outcomes[0].Err)

	states, err = sh.States(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.JobIdle, states[0].Status)
	assert.Equal(t, 0, states[0].Attempts)
	assert.Nil(t, states[0].NextAttemptAt)
	assert.Equal(t, "2024-01-01", states[0].LastRunDay)
}

func TestBestEffortSinkNeverFailsJob(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "2024-01-01", 22)
	f.sink.SetErr(errors.New("tray unreachable"))
	sh := New(f.store, f.clock, DefaultConfig(),
		&SummaryJob{Store: f.store, Sink: notifier.BestEffort(f.sink), Hour: 21})

	outcomes, err := sh.RunDue(ctx)
	require.NoError(t, err)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, models.JobIdle, outcomes[0].Status)
}

func TestRunDueRecoversInterruptedJob(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "2024-01-02", 9)
	require.NoError(t, f.store.Update(ctx, func(tx storage.Tx) error {
		return tx.PutJobState(models.JobState{
			Name:       constants.JobRollover,
			Status:     models.JobRunning,
			LastRunDay: "2024-01-01",
			UpdatedAt:  f.clock.Now(),
		})
	}))

	outcomes, err := f.shell.RunDue(ctx)
	require.NoError(t, err)
	assert.Contains(t, ran(outcomes), constants.JobRollover)
	assert.Equal(t, "2024-01-02", f.state(t, constants.JobRollover).LastRunDay)
}

func TestRunJob(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "2024-01-01", 9)

	_, err := f.shell.RunJob(ctx, "nope")
	assert.True(t, apperrors.IsNotFound(err))

	// Forced runs ignore the boundary.
	for range 2 {
		outcome, err := f.shell.RunJob(ctx, constants.JobSummary)
		require.NoError(t, err)
		assert.True(t, outcome.Ran)
	}
	summaries, _, _ := f.sink.Counts()
	assert.Equal(t, 2, summaries)
}

func TestRunDueStopsWhenCancelled(t *testing.T) {
	f := setup(t, "2024-01-01", 22)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := f.shell.RunDue(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, outcomes)
}

func TestRunProcessesTriggersUntilCancelled(t *testing.T) {
	f := setup(t, "2024-01-01", 22)
	cfg := DefaultConfig()
	cfg.TickInterval = time.Hour
	sh := NewDefault(f.store, f.clock, f.sink, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sh.Run(ctx) }()

	// Run evaluates once at start without waiting for a tick.
	require.Eventually(t, func() bool {
		summaries, _, reviews := f.sink.Counts()
		return summaries == 1 && reviews == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.True(t, sh.Trigger(constants.JobSummary))
	require.Eventually(t, func() bool {
		summaries, _, _ := f.sink.Counts()
		return summaries == 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestBackoff(t *testing.T) {
	sh := New(nil, clock.ManualAt("2024-01-01", 0), Config{RetryBase: time.Second, RetryMax: 10 * time.Second})
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{40, 10 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sh.Backoff(tt.attempts), "attempts=%d", tt.attempts)
	}
}

func TestReviewBoundary(t *testing.T) {
	job := &ReviewJob{Weekday: time.Sunday, Hour: 18}
	// 2024-01-07 is a Sunday.
	tests := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2024, 1, 7, 17, 0, 0, 0, time.UTC), time.Date(2023, 12, 31, 18, 0, 0, 0, time.UTC)},
		{time.Date(2024, 1, 7, 18, 0, 0, 0, time.UTC), time.Date(2024, 1, 7, 18, 0, 0, 0, time.UTC)},
		{time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), time.Date(2024, 1, 7, 18, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, job.boundary(tt.now))
	}

	last := time.Date(2024, 1, 7, 18, 30, 0, 0, time.UTC)
	tick := Tick{Now: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), Today: "2024-01-10"}
	assert.True(t, job.Due(tick, models.JobState{}))
	assert.False(t, job.Due(tick, models.JobState{LastRunAt: &last}))

	invalid := &ReviewJob{Weekday: time.Weekday(9), Hour: 18}
	assert.Equal(t, time.Date(2024, 1, 3, 18, 0, 0, 0, time.UTC), invalid.boundary(tick.Now))
}

func TestSummaryDueAfterHour(t *testing.T) {
	job := &SummaryJob{Hour: 21}
	before := Tick{Now: time.Date(2024, 1, 1, 20, 59, 0, 0, time.UTC), Today: "2024-01-01"}
	after := Tick{Now: time.Date(2024, 1, 1, 21, 0, 0, 0, time.UTC), Today: "2024-01-01"}

	assert.False(t, job.Due(before, models.JobState{}))
	assert.True(t, job.Due(after, models.JobState{}))
	assert.False(t, job.Due(after, models.JobState{LastRunDay: "2024-01-01"}))
}

func TestBuildWeeklyReview(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "2024-01-10", 9)
	h := habits.NewEngine(f.store, f.clock)
	g := goals.NewEngine(f.store, f.clock)

	habit, err := h.Create(ctx, "Run", "")
	require.NoError(t, err)
	for _, day := range []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-09"} {
		_, err := h.Mark(ctx, habit.ID, day)
		require.NoError(t, err)
	}

	updated, err := g.Add(ctx, "Ship v1", 10)
	require.NoError(t, err)
	_, err = g.ApplyWeeklyUpdate(ctx, updated.ID, "2024-01-10", 20, "")
	require.NoError(t, err)
	pending, err := g.Add(ctx, "Learn Go", 0)
	require.NoError(t, err)

	tracker, err := journal.New(f.store, f.clock).Save(ctx, models.DailyTracker{Day: "2024-01-02", WokeEarly: true, Exercised: true})
	require.NoError(t, err)

	review, err := BuildWeeklyReview(ctx, f.store, "2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", review.WeekStart)
	require.Len(t, review.Habits, 1)
	assert.InDelta(t, 5.0/7.0, review.Habits[0].Rate, 1e-9)
	assert.Equal(t, []string{pending.ID}, review.PendingGoals)
	assert.InDelta(t, float64(tracker.Score), review.AverageScore, 1e-9)
}

func TestBuildDailySummaryIgnoresArchivedHabits(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "2024-01-01", 9)
	h := habits.NewEngine(f.store, f.clock)
	te := tasks.NewEngine(f.store, f.clock)

	kept, err := h.Create(ctx, "Run", "")
	require.NoError(t, err)
	gone, err := h.Create(ctx, "Read", "")
	require.NoError(t, err)
	_, err = h.Archive(ctx, gone.ID)
	require.NoError(t, err)

	done, err := te.Add(ctx, "Done", "2024-01-01", 0)
	require.NoError(t, err)
	_, err = te.SetProgress(ctx, done.ID, 100)
	require.NoError(t, err)
	_, err = te.Add(ctx, "Open", "2024-01-01", 0)
	require.NoError(t, err)

	summary, reminders, err := BuildDailySummary(ctx, f.store, "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, models.DailySummary{Day: "2024-01-01", TotalHabits: 1, TasksCompleted: 1}, summary)
	assert.Equal(t, []models.HabitReminder{{HabitID: kept.ID, HabitName: "Run"}}, reminders)
}
