package models

// Value objects handed to the notification sink. They carry structured data
// only; rendering is the sink's job.

type DailySummary struct {
	Day             string `json:"day"`
	HabitsCompleted int    `json:"habits_completed"`
	TotalHabits     int    `json:"total_habits"`
	TasksCompleted  int    `json:"tasks_completed"`
}

type HabitReminder struct {
	HabitID   string `json:"habit_id"`
	HabitName string `json:"habit_name"`
}

type HabitWeek struct {
	HabitID   string  `json:"habit_id"`
	HabitName string  `json:"habit_name"`
	Rate      float64 `json:"completion_rate"`
}

type WeeklyReview struct {
	WeekStart    string      `json:"week_start"`
	Habits       []HabitWeek `json:"habits"`
	PendingGoals []string    `json:"pending_goals"` // ids of open goals with no update for the current week
	AverageScore float64     `json:"average_score"`
}
