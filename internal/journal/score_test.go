package journal

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/julianstephens/dayledger/internal/models"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name    string
		tracker models.DailyTracker
		want    int
	}{
		{"empty day still earns social media", models.DailyTracker{}, 1},
		{
			"perfect day",
			models.DailyTracker{
				WokeEarly: true, Exercised: true, Meditated: true, Read: true, Journaled: true,
				SleepHours: 8, ScreenTimeHours: 2, WaterLiters: 2.5, StudyHours: 3, SocialMediaMinutes: 10,
			},
			10,
		},
		{"zero screen time is unrecorded", models.DailyTracker{ScreenTimeHours: 0, SocialMediaMinutes: 31}, 0},
		{"screen time at the limit", models.DailyTracker{ScreenTimeHours: 3, SocialMediaMinutes: 31}, 1},
		{"screen time over the limit", models.DailyTracker{ScreenTimeHours: 3.01, SocialMediaMinutes: 31}, 0},
		{"thresholds are inclusive", models.DailyTracker{SleepHours: 7, WaterLiters: 2, StudyHours: 2, SocialMediaMinutes: 30}, 4},
		{"just below thresholds", models.DailyTracker{SleepHours: 6.99, WaterLiters: 1.99, StudyHours: 1.99, SocialMediaMinutes: 31}, 0},
		{"booleans only", models.DailyTracker{Exercised: true, Read: true, SocialMediaMinutes: 60}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.tracker))
		})
	}
}

func TestScoreIgnoresStoredScore(t *testing.T) {
	tracker := models.DailyTracker{Read: true, SocialMediaMinutes: 100, Score: 9}
	assert.Equal(t, 1, Score(tracker))
}

func TestScoreIsPureAndBounded(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 2000; i++ {
		tracker := models.DailyTracker{
			WokeEarly:          r.IntN(2) == 0,
			Exercised:          r.IntN(2) == 0,
			Meditated:          r.IntN(2) == 0,
			Read:               r.IntN(2) == 0,
			Journaled:          r.IntN(2) == 0,
			SleepHours:         r.Float64() * 24,
			ScreenTimeHours:    r.Float64() * 24,
			WaterLiters:        r.Float64() * 10,
			StudyHours:         r.Float64() * 24,
			SocialMediaMinutes: r.IntN(1441),
		}
		first := Score(tracker)
		assert.Equal(t, first, Score(tracker))
		assert.GreaterOrEqual(t, first, 0)
		assert.LessOrEqual(t, first, 10)
	}
}
