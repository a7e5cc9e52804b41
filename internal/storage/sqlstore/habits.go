package sqlstore

import (
	"database/sql"
	"fmt"

	apperrors "github.com/julianstephens/dayledger/internal/errors"
	"github.com/julianstephens/dayledger/internal/models"
)

const habitColumns = `id, name, color, created_at, archived_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanHabit(row scanner) (models.Habit, error) {
	var h models.Habit
	var createdAt string
	var archivedAt sql.NullString

	if err := row.Scan(&h.ID, &h.Name, &h.Color, &createdAt, &archivedAt); err != nil {
		return models.Habit{}, err
	}

	var err error
	if h.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Habit{}, fmt.Errorf("failed to parse created_at for habit %s: %w", h.ID, err)
	}
	if h.ArchivedAt, err = parseNullTime(archivedAt, "archived_at"); err != nil {
		return models.Habit{}, err
	}
	return h, nil
}

func (t *tx) GetHabit(id string) (models.Habit, error) {
	h, err := scanHabit(t.queryRow(`SELECT `+habitColumns+` FROM habits WHERE id = ?`, id))
	if err != nil {
		return models.Habit{}, notFoundOr(err, "habit", id)
	}
	return h, nil
}

func (t *tx) GetHabitByName(name string) (models.Habit, error) {
	h, err := scanHabit(t.queryRow(`SELECT `+habitColumns+` FROM habits WHERE name = ?`, name))
	if err != nil {
		return models.Habit{}, notFoundOr(err, "habit", name)
	}
	return h, nil
}

func (t *tx) PutHabit(habit models.Habit) error {
	_, err := t.exec(`
		INSERT INTO habits (id, name, color, created_at, archived_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			color = excluded.color,
			archived_at = excluded.archived_at`,
		habit.ID, habit.Name, habit.Color, formatTime(habit.CreatedAt), nullTime(habit.ArchivedAt))
	if isUniqueViolation(err) {
		return apperrors.Invariant("habit", "name", "already in use: "+habit.Name)
	}
	return err
}

func (t *tx) ListHabits(includeArchived bool) ([]models.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits`
	if !includeArchived {
		query += ` WHERE archived_at IS NULL`
	}
	query += ` ORDER BY created_at, id`

	rows, err := t.query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	habits := []models.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

// Habit completions

const completionColumns = `habit_id, day, completed, completed_at`

func scanCompletion(row scanner) (models.HabitCompletion, error) {
	var c models.HabitCompletion
	var completedAt string
	if err := row.Scan(&c.HabitID, &c.Day, &c.Completed, &completedAt); err != nil {
		return models.HabitCompletion{}, err
	}
	var err error
	if c.CompletedAt, err = parseTime(completedAt); err != nil {
		return models.HabitCompletion{}, fmt.Errorf("failed to parse completed_at: %w", err)
	}
	return c, nil
}

func (t *tx) collectCompletions(query string, args ...any) ([]models.HabitCompletion, error) {
	rows, err := t.query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.HabitCompletion{}
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (t *tx) GetCompletion(habitID, day string) (models.HabitCompletion, error) {
	c, err := scanCompletion(t.queryRow(
		`SELECT `+completionColumns+` FROM habit_completions WHERE habit_id = ? AND day = ?`, habitID, day))
	if err != nil {
		return models.HabitCompletion{}, notFoundOr(err, "habit completion", habitID+"@"+day)
	}
	return c, nil
}

func (t *tx) PutCompletion(c models.HabitCompletion) error {
	_, err := t.exec(`
		INSERT INTO habit_completions (habit_id, day, completed, completed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(habit_id, day) DO UPDATE SET
			completed = excluded.completed,
			completed_at = excluded.completed_at`,
		c.HabitID, c.Day, c.Completed, formatTime(c.CompletedAt))
	return err
}

func (t *tx) DeleteCompletion(habitID, day string) error {
	res, err := t.exec(`DELETE FROM habit_completions WHERE habit_id = ? AND day = ?`, habitID, day)
	if err != nil {
		return err
	}
	return mustAffect(res, "habit completion", habitID+"@"+day)
}

func (t *tx) CompletionsInRange(habitID, start, end string) ([]models.HabitCompletion, error) {
	return t.collectCompletions(`
		SELECT `+completionColumns+` FROM habit_completions
		WHERE habit_id = ? AND day >= ? AND day <= ?
		ORDER BY day`, habitID, start, end)
}

func (t *tx) CompletionsForDay(day string) ([]models.HabitCompletion, error) {
	return t.collectCompletions(`
		SELECT `+completionColumns+` FROM habit_completions
		WHERE day = ? ORDER BY habit_id`, day)
}

func (t *tx) AllCompletions() ([]models.HabitCompletion, error) {
	return t.collectCompletions(`SELECT ` + completionColumns + ` FROM habit_completions ORDER BY habit_id, day`)
}
