package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/julianstephens/dayledger/internal/models"
)

const jobColumns = `name, status, last_run_day, last_run_at, attempts, last_error, next_attempt_at, updated_at`

func scanJobState(row scanner) (models.JobState, error) {
	var js models.JobState
	var status, updatedAt string
	var lastRunAt, nextAttemptAt sql.NullString

	if err := row.Scan(&js.Name, &status, &js.LastRunDay, &lastRunAt, &js.Attempts,
		&js.LastError, &nextAttemptAt, &updatedAt); err != nil {
		return models.JobState{}, err
	}
	js.Status = models.JobStatus(status)

	var err error
	if js.LastRunAt, err = parseNullTime(lastRunAt, "last_run_at"); err != nil {
		return models.JobState{}, err
	}
	if js.NextAttemptAt, err = parseNullTime(nextAttemptAt, "next_attempt_at"); err != nil {
		return models.JobState{}, err
	}
	if js.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.JobState{}, fmt.Errorf("failed to parse updated_at for job %s: %w", js.Name, err)
	}
	return js, nil
}

func (t *tx) GetJobState(name string) (models.JobState, error) {
	js, err := scanJobState(t.queryRow(`SELECT `+jobColumns+` FROM job_states WHERE name = ?`, name))
	if err != nil {
		return models.JobState{}, notFoundOr(err, "job", name)
	}
	return js, nil
}

func (t *tx) PutJobState(js models.JobState) error {
	_, err := t.exec(`
		INSERT INTO job_states (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			status = excluded.status,
			last_run_day = excluded.last_run_day,
			last_run_at = excluded.last_run_at,
			attempts = excluded.attempts,
			last_error = excluded.last_error,
			next_attempt_at = excluded.next_attempt_at,
			updated_at = excluded.updated_at`,
		js.Name, string(js.Status), js.LastRunDay, nullTime(js.LastRunAt), js.Attempts,
		js.LastError, nullTime(js.NextAttemptAt), formatTime(js.UpdatedAt))
	return err
}

func (t *tx) ListJobStates() ([]models.JobState, error) {
	rows, err := t.query(`SELECT ` + jobColumns + ` FROM job_states ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := []models.JobState{}
	for rows.Next() {
		js, err := scanJobState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, js)
	}
	return states, rows.Err()
}
