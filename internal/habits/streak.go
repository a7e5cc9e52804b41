package habits

import (
	"github.com/julianstephens/dayledger/internal/constants"
	"github.com/julianstephens/dayledger/internal/storage"
	"github.com/julianstephens/dayledger/internal/utils"
)

// window caches one bounded slice of a habit's completion history. Walks
// reload it as they leave the loaded range, so memory stays bounded by
// constants.StreakWindowDays regardless of how long the history is.
type window struct {
	tx       storage.Tx
	habitID  string
	backward bool
	lo, hi   string
	done     map[string]bool
}

func newWindow(tx storage.Tx, habitID string, backward bool) *window {
	return &window{tx: tx, habitID: habitID, backward: backward}
}

func (w *window) completed(day string) (bool, error) {
	if w.done == nil || day < w.lo || day > w.hi {
		if err := w.load(day); err != nil {
			return false, err
		}
	}
	return w.done[day], nil
}

func (w *window) load(day string) error {
	span := constants.StreakWindowDays - 1
	lo, hi := day, utils.MustAddDays(day, span)
	if w.backward {
		lo, hi = utils.MustAddDays(day, -span), day
	}

	completions, err := w.tx.CompletionsInRange(w.habitID, lo, hi)
	if err != nil {
		return err
	}
	w.lo, w.hi = lo, hi
	w.done = make(map[string]bool, len(completions))
	for _, c := range completions {
		if c.Completed {
			w.done[c.Day] = true
		}
	}
	return nil
}

// currentStreak counts consecutive completed days ending at asOf, or at the
// day before when asOf itself is not yet completed.
func currentStreak(tx storage.Tx, habitID, asOf string) (int, error) {
	w := newWindow(tx, habitID, true)

	cursor := asOf
	ok, err := w.completed(cursor)
	if err != nil {
		return 0, err
	}
	if !ok {
		cursor = utils.MustAddDays(asOf, -1)
	}

	streak := 0
	for {
		ok, err := w.completed(cursor)
		if err != nil {
			return 0, err
		}
		if !ok {
			return streak, nil
		}
		streak++
		cursor = utils.MustAddDays(cursor, -1)
	}
}

// longestStreak returns the longest run of completed days inside [start, end].
func longestStreak(tx storage.Tx, habitID, start, end string) (int, error) {
	w := newWindow(tx, habitID, false)

	longest, run := 0, 0
	for day := start; day <= end; day = utils.MustAddDays(day, 1) {
		ok, err := w.completed(day)
		if err != nil {
			return 0, err
		}
		if !ok {
			run = 0
			continue
		}
		run++
		if run > longest {
			longest = run
		}
	}
	return longest, nil
}

// completionRate is completed days over the inclusive day count of [start, end].
func completionRate(tx storage.Tx, habitID, start, end string) (float64, error) {
	if end < start {
		return 0, nil
	}
	days, err := utils.DaysBetween(start, end)
	if err != nil {
		return 0, err
	}

	completions, err := tx.CompletionsInRange(habitID, start, end)
	if err != nil {
		return 0, err
	}
	completed := 0
	for _, c := range completions {
		if c.Completed {
			completed++
		}
	}
	return float64(completed) / float64(days+1), nil
}

// RateTx is CompletionRate inside an existing transaction. The caller is
// responsible for checking that the habit exists.
func RateTx(tx storage.Tx, habitID, start, end string) (float64, error) {
	return completionRate(tx, habitID, start, end)
}
