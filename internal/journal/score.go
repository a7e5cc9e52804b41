// Package journal owns DailyTracker records and derives the discipline
// score from them.
package journal

import (
	"github.com/julianstephens/dayledger/internal/constants"
	"github.com/julianstephens/dayledger/internal/models"
)

// Score is the discipline score of a tracker: one point per positive habit
// and one per slider inside its target, clamped to [MinScore, MaxScore].
// It never fails and never reads the tracker's stored score.
func Score(t models.DailyTracker) int {
	score := 0
	for _, done := range t.Habits() {
		if done {
			score++
		}
	}
	if t.SleepHours >= constants.SleepHoursTarget {
		score++
	}
	// Zero screen time means unrecorded, not abstinence.
	if t.ScreenTimeHours > 0 && t.ScreenTimeHours <= constants.ScreenTimeHoursLimit {
		score++
	}
	if t.WaterLiters >= constants.WaterLitersTarget {
		score++
	}
	if t.StudyHours >= constants.StudyHoursTarget {
		score++
	}
	if t.SocialMediaMinutes >= 0 && t.SocialMediaMinutes <= constants.SocialMediaMinutesLimit {
		score++
	}
	return min(max(score, constants.MinScore), constants.MaxScore)
}
