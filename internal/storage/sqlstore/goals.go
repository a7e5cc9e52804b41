package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/julianstephens/dayledger/internal/models"
)

const goalColumns = `id, title, initial_percent, progress_percent, completed, completed_at, created_at`

func scanGoal(row scanner) (models.Goal, error) {
	var g models.Goal
	var completedAt sql.NullString
	var createdAt string

	if err := row.Scan(&g.ID, &g.Title, &g.InitialPercent, &g.ProgressPercent,
		&g.Completed, &completedAt, &createdAt); err != nil {
		return models.Goal{}, err
	}

	var err error
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Goal{}, fmt.Errorf("failed to parse created_at for goal %s: %w", g.ID, err)
	}
	if g.CompletedAt, err = parseNullTime(completedAt, "completed_at"); err != nil {
		return models.Goal{}, err
	}
	return g, nil
}

func (t *tx) GetGoal(id string) (models.Goal, error) {
	g, err := scanGoal(t.queryRow(`SELECT `+goalColumns+` FROM goals WHERE id = ?`, id))
	if err != nil {
		return models.Goal{}, notFoundOr(err, "goal", id)
	}
	return g, nil
}

func (t *tx) PutGoal(g models.Goal) error {
	_, err := t.exec(`
		INSERT INTO goals (id, title, initial_percent, progress_percent, completed, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			initial_percent = excluded.initial_percent,
			progress_percent = excluded.progress_percent,
			completed = excluded.completed,
			completed_at = excluded.completed_at`,
		g.ID, g.Title, g.InitialPercent, g.ProgressPercent, g.Completed,
		nullTime(g.CompletedAt), formatTime(g.CreatedAt))
	return err
}

func (t *tx) ListGoals() ([]models.Goal, error) {
	rows, err := t.query(`SELECT ` + goalColumns + ` FROM goals ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	goals := []models.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// Goal updates

const goalUpdateColumns = `goal_id, week_start, progress_delta, notes, created_at`

func scanGoalUpdate(row scanner) (models.GoalUpdate, error) {
	var u models.GoalUpdate
	var createdAt string
	if err := row.Scan(&u.GoalID, &u.WeekStart, &u.Delta, &u.Notes, &createdAt); err != nil {
		return models.GoalUpdate{}, err
	}
	var err error
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.GoalUpdate{}, fmt.Errorf("failed to parse created_at for goal update: %w", err)
	}
	return u, nil
}

func (t *tx) collectGoalUpdates(query string, args ...any) ([]models.GoalUpdate, error) {
	rows, err := t.query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	updates := []models.GoalUpdate{}
	for rows.Next() {
		u, err := scanGoalUpdate(rows)
		if err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}
	return updates, rows.Err()
}

func (t *tx) GetGoalUpdate(goalID, weekStart string) (models.GoalUpdate, error) {
	u, err := scanGoalUpdate(t.queryRow(
		`SELECT `+goalUpdateColumns+` FROM goal_updates WHERE goal_id = ? AND week_start = ?`, goalID, weekStart))
	if err != nil {
		return models.GoalUpdate{}, notFoundOr(err, "goal update", goalID+"@"+weekStart)
	}
	return u, nil
}

func (t *tx) PutGoalUpdate(u models.GoalUpdate) error {
	_, err := t.exec(`
		INSERT INTO goal_updates (goal_id, week_start, progress_delta, notes, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(goal_id, week_start) DO UPDATE SET
			progress_delta = excluded.progress_delta,
			notes = excluded.notes,
			created_at = excluded.created_at`,
		u.GoalID, u.WeekStart, u.Delta, u.Notes, formatTime(u.CreatedAt))
	return err
}

func (t *tx) GoalUpdates(goalID string) ([]models.GoalUpdate, error) {
	return t.collectGoalUpdates(`
		SELECT `+goalUpdateColumns+` FROM goal_updates
		WHERE goal_id = ? ORDER BY week_start`, goalID)
}

func (t *tx) AllGoalUpdates() ([]models.GoalUpdate, error) {
	return t.collectGoalUpdates(`SELECT ` + goalUpdateColumns + ` FROM goal_updates ORDER BY goal_id, week_start`)
}
