package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/julianstephens/dayledger/internal/models"
)

const taskColumns = `id, title, day, progress, priority, carried_forward, original_day, created_at, updated_at`

func scanTask(row scanner) (models.Task, error) {
	var task models.Task
	var originalDay sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&task.ID, &task.Title, &task.Day, &task.Progress, &task.Priority,
		&task.CarriedForward, &originalDay, &createdAt, &updatedAt); err != nil {
		return models.Task{}, err
	}

	if originalDay.Valid {
		day := originalDay.String
		task.OriginalDay = &day
	}

	var err error
	if task.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Task{}, fmt.Errorf("failed to parse created_at for task %s: %w", task.ID, err)
	}
	if task.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Task{}, fmt.Errorf("failed to parse updated_at for task %s: %w", task.ID, err)
	}
	return task, nil
}

func (t *tx) collectTasks(query string, args ...any) ([]models.Task, error) {
	rows, err := t.query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (t *tx) GetTask(id string) (models.Task, error) {
	task, err := scanTask(t.queryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		return models.Task{}, notFoundOr(err, "task", id)
	}
	return task, nil
}

func (t *tx) PutTask(task models.Task) error {
	_, err := t.exec(`
		INSERT INTO tasks (id, title, day, progress, priority, carried_forward, original_day, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			day = excluded.day,
			progress = excluded.progress,
			priority = excluded.priority,
			carried_forward = excluded.carried_forward,
			original_day = excluded.original_day,
			updated_at = excluded.updated_at`,
		task.ID, task.Title, task.Day, task.Progress, task.Priority, task.CarriedForward,
		nullString(task.OriginalDay), formatTime(task.CreatedAt), formatTime(task.UpdatedAt))
	return err
}

func (t *tx) DeleteTask(id string) error {
	res, err := t.exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return mustAffect(res, "task", id)
}

func (t *tx) TasksInRange(start, end string) ([]models.Task, error) {
	return t.collectTasks(`
		SELECT `+taskColumns+` FROM tasks
		WHERE day >= ? AND day <= ?
		ORDER BY day, created_at, id`, start, end)
}

func (t *tx) TasksBefore(day string) ([]models.Task, error) {
	return t.collectTasks(`
		SELECT `+taskColumns+` FROM tasks
		WHERE day < ?
		ORDER BY day, created_at, id`, day)
}

func (t *tx) AllTasks() ([]models.Task, error) {
	return t.collectTasks(`SELECT ` + taskColumns + ` FROM tasks ORDER BY day, created_at, id`)
}
