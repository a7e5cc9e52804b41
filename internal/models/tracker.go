package models

import (
	"fmt"
	"time"

	apperrors "github.com/julianstephens/dayledger/internal/errors"
	"github.com/julianstephens/dayledger/internal/utils"
)

// DailyTracker is the journal record for one day. Score is derived from the
// other fields on every save and is never taken from input.
type DailyTracker struct {
	ID  string `json:"id" yaml:"id"`
	Day string `json:"day" yaml:"day"` // YYYY-MM-DD format

	WokeEarly bool `json:"woke_early" yaml:"woke_early"`
	Exercised bool `json:"exercised" yaml:"exercised"`
	Meditated bool `json:"meditated" yaml:"meditated"`
	Read      bool `json:"read" yaml:"read"`
	Journaled bool `json:"journaled" yaml:"journaled"`

	SleepHours         float64 `json:"sleep_hours" yaml:"sleep_hours"`
	ScreenTimeHours    float64 `json:"screen_time_hours" yaml:"screen_time_hours"`
	WaterLiters        float64 `json:"water_liters" yaml:"water_liters"`
	StudyHours         float64 `json:"study_hours" yaml:"study_hours"`
	SocialMediaMinutes int     `json:"social_media_minutes" yaml:"social_media_minutes"`
	Mood               int     `json:"mood,omitempty" yaml:"mood,omitempty"` // 1-10, 0 when unset

	Notes     string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	Score     int       `json:"score" yaml:"-"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// SliderBound is the declared range of a numeric tracker field.
type SliderBound struct {
	Field string
	Min   float64
	Max   float64
	value func(DailyTracker) float64
}

// TrackerBounds lists every slider field with its inclusive range.
var TrackerBounds = []SliderBound{
	{Field: "sleep_hours", Min: 0, Max: 24, value: func(t DailyTracker) float64 { return t.SleepHours }},
	{Field: "screen_time_hours", Min: 0, Max: 24, value: func(t DailyTracker) float64 { return t.ScreenTimeHours }},
	{Field: "water_liters", Min: 0, Max: 10, value: func(t DailyTracker) float64 { return t.WaterLiters }},
	{Field: "study_hours", Min: 0, Max: 24, value: func(t DailyTracker) float64 { return t.StudyHours }},
	{Field: "social_media_minutes", Min: 0, Max: 1440, value: func(t DailyTracker) float64 { return float64(t.SocialMediaMinutes) }},
}

// Validate rejects out-of-range inputs. Raw fields are never clamped.
func (t DailyTracker) Validate() error {
	if !utils.ValidateDay(t.Day) {
		return apperrors.Invariant("tracker", "day", "must be YYYY-MM-DD")
	}
	for _, b := range TrackerBounds {
		v := b.value(t)
		if v != v || v < b.Min || v > b.Max { // v != v catches NaN
			return apperrors.Invariant("tracker", b.Field, fmt.Sprintf("must be within [%g, %g], got %g", b.Min, b.Max, v))
		}
	}
	if t.Mood < 0 || t.Mood > 10 {
		return apperrors.Invariant("tracker", "mood", fmt.Sprintf("must be within [1, 10] or 0 when unset, got %d", t.Mood))
	}
	return nil
}

// Habits returns the five positive-habit booleans in a fixed order.
func (t DailyTracker) Habits() []bool {
	return []bool{t.WokeEarly, t.Exercised, t.Meditated, t.Read, t.Journaled}
}
