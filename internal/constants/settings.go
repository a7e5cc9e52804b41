package constants

import "time"

const (
	// Scheduler defaults
	DefaultTickInterval  = time.Minute
	DefaultReviewWeekday = time.Sunday
	DefaultReviewHour    = 18
	DefaultSummaryHour   = 21
	DefaultRetryBase     = 30 * time.Second
	DefaultRetryMax      = 30 * time.Minute

	DefaultTimezone             = "Local" // Use system local timezone by default
	DefaultNotificationsEnabled = true
	DefaultBackend              = BackendSQLite

	// Tracker thresholds
	SleepHoursTarget        = 7.0
	ScreenTimeHoursLimit    = 3.0
	WaterLitersTarget       = 2.0
	StudyHoursTarget        = 2.0
	SocialMediaMinutesLimit = 30
)
