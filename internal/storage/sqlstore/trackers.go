package sqlstore

import (
	"fmt"

	"github.com/julianstephens/dayledger/internal/models"
)

const trackerColumns = `id, day, woke_early, exercised, meditated, read, journaled,
	sleep_hours, screen_time_hours, water_liters, study_hours, social_media_minutes,
	mood, notes, score, created_at, updated_at`

func scanTracker(row scanner) (models.DailyTracker, error) {
	var d models.DailyTracker
	var createdAt, updatedAt string

	if err := row.Scan(&d.ID, &d.Day, &d.WokeEarly, &d.Exercised, &d.Meditated, &d.Read, &d.Journaled,
		&d.SleepHours, &d.ScreenTimeHours, &d.WaterLiters, &d.StudyHours, &d.SocialMediaMinutes,
		&d.Mood, &d.Notes, &d.Score, &createdAt, &updatedAt); err != nil {
		return models.DailyTracker{}, err
	}

	var err error
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.DailyTracker{}, fmt.Errorf("failed to parse created_at for tracker %s: %w", d.Day, err)
	}
	if d.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.DailyTracker{}, fmt.Errorf("failed to parse updated_at for tracker %s: %w", d.Day, err)
	}
	return d, nil
}

func (t *tx) GetTracker(day string) (models.DailyTracker, error) {
	d, err := scanTracker(t.queryRow(`SELECT `+trackerColumns+` FROM daily_trackers WHERE day = ?`, day))
	if err != nil {
		return models.DailyTracker{}, notFoundOr(err, "tracker", day)
	}
	return d, nil
}

func (t *tx) PutTracker(d models.DailyTracker) error {
	_, err := t.exec(`
		INSERT INTO daily_trackers (`+trackerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			woke_early = excluded.woke_early,
			exercised = excluded.exercised,
			meditated = excluded.meditated,
			read = excluded.read,
			journaled = excluded.journaled,
			sleep_hours = excluded.sleep_hours,
			screen_time_hours = excluded.screen_time_hours,
			water_liters = excluded.water_liters,
			study_hours = excluded.study_hours,
			social_media_minutes = excluded.social_media_minutes,
			mood = excluded.mood,
			notes = excluded.notes,
			score = excluded.score,
			updated_at = excluded.updated_at`,
		d.ID, d.Day, d.WokeEarly, d.Exercised, d.Meditated, d.Read, d.Journaled,
		d.SleepHours, d.ScreenTimeHours, d.WaterLiters, d.StudyHours, d.SocialMediaMinutes,
		d.Mood, d.Notes, d.Score, formatTime(d.CreatedAt), formatTime(d.UpdatedAt))
	return err
}

func (t *tx) TrackersInRange(start, end string) ([]models.DailyTracker, error) {
	rows, err := t.query(`
		SELECT `+trackerColumns+` FROM daily_trackers
		WHERE day >= ? AND day <= ?
		ORDER BY day`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trackers := []models.DailyTracker{}
	for rows.Next() {
		d, err := scanTracker(rows)
		if err != nil {
			return nil, err
		}
		trackers = append(trackers, d)
	}
	return trackers, rows.Err()
}
