package journal

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/julianstephens/dayledger/internal/clock"
	apperrors "github.com/julianstephens/dayledger/internal/errors"
	"github.com/julianstephens/dayledger/internal/logger"
	"github.com/julianstephens/dayledger/internal/models"
	"github.com/julianstephens/dayledger/internal/storage"
	"github.com/julianstephens/dayledger/internal/utils"
)

// Journal stores one DailyTracker per day.
type Journal struct {
	store storage.Provider
	clock clock.Clock
}

func New(store storage.Provider, clk clock.Clock) *Journal {
	return &Journal{store: store, clock: clk}
}

// Save validates the tracker, recomputes its score and upserts it by day.
// Any score on the input is ignored. The first save of a day fixes its id
// and creation time.
func (j *Journal) Save(ctx context.Context, tracker models.DailyTracker) (models.DailyTracker, error) {
	if tracker.Day == "" {
		tracker.Day = j.clock.Today()
	}
	tracker.Notes = strings.TrimSpace(tracker.Notes)
	if err := tracker.Validate(); err != nil {
		return models.DailyTracker{}, err
	}
	tracker.Score = Score(tracker)

	now := clock.Stamp(j.clock)
	err := j.store.Update(ctx, func(tx storage.Tx) error {
		existing, err := tx.GetTracker(tracker.Day)
		switch {
		case err == nil:
			tracker.ID = existing.ID
			tracker.CreatedAt = existing.CreatedAt
		case apperrors.IsNotFound(err):
			tracker.ID = uuid.NewString()
			tracker.CreatedAt = now
		default:
			return err
		}
		tracker.UpdatedAt = now
		return tx.PutTracker(tracker)
	})
	if err != nil {
		return models.DailyTracker{}, err
	}
	logger.Debug("Saved tracker", "day", tracker.Day, "score", tracker.Score)
	return tracker, nil
}

// Get returns the tracker for day (today when empty).
func (j *Journal) Get(ctx context.Context, day string) (models.DailyTracker, error) {
	if day == "" {
		day = j.clock.Today()
	}
	var tracker models.DailyTracker
	err := j.store.View(ctx, func(tx storage.Tx) error {
		var err error
		tracker, err = tx.GetTracker(day)
		return err
	})
	return tracker, err
}

// Range returns the trackers in [start, end] ordered by day.
func (j *Journal) Range(ctx context.Context, start, end string) ([]models.DailyTracker, error) {
	if !utils.ValidateDay(start) || !utils.ValidateDay(end) {
		return nil, apperrors.Invariant("tracker", "day", "range bounds must be YYYY-MM-DD")
	}
	trackers := []models.DailyTracker{}
	if end < start {
		return trackers, nil
	}
	err := j.store.View(ctx, func(tx storage.Tx) error {
		var err error
		trackers, err = tx.TrackersInRange(start, end)
		return err
	})
	return trackers, err
}

// AverageScore is the mean score of the days in [start, end] that have a
// tracker. Days without one are skipped; no trackers yields 0.
func (j *Journal) AverageScore(ctx context.Context, start, end string) (float64, error) {
	trackers, err := j.Range(ctx, start, end)
	if err != nil {
		return 0, err
	}
	return averageScore(trackers), nil
}

func averageScore(trackers []models.DailyTracker) float64 {
	if len(trackers) == 0 {
		return 0
	}
	total := 0
	for _, t := range trackers {
		total += Score(t)
	}
	return float64(total) / float64(len(trackers))
}

// AverageScoreTx is AverageScore inside an existing transaction.
func AverageScoreTx(tx storage.Tx, start, end string) (float64, error) {
	trackers, err := tx.TrackersInRange(start, end)
	if err != nil {
		return 0, fmt.Errorf("failed to load trackers: %w", err)
	}
	return averageScore(trackers), nil
}
