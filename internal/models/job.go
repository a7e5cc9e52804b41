package models

import "time"

type JobStatus string

const (
	JobIdle    JobStatus = "idle"
	JobDue     JobStatus = "due"
	JobRunning JobStatus = "running"
	JobFailed  JobStatus = "failed"
)

// JobState is the scheduling shell's persisted view of one job. LastRunDay
// and LastRunAt only move forward when a run commits successfully.
type JobState struct {
	Name          string     `json:"name"`
	Status        JobStatus  `json:"status"`
	LastRunDay    string     `json:"last_run_day,omitempty"` // YYYY-MM-DD of the last successful run
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	Attempts      int        `json:"attempts"`
	LastError     string     `json:"last_error,omitempty"`
	NextAttemptAt *time.Time `json:"next_attempt_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
