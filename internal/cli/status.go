package cli

import (
	"fmt"

	apperrors "github.com/julianstephens/dayledger/internal/errors"
	"github.com/julianstephens/dayledger/internal/shell"
)

// StatusCmd prints today's habits, tasks and discipline score.
type StatusCmd struct {
	Date string `help:"Day in YYYY-MM-DD format (default: today)."`
}

func (c *StatusCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	day := c.Date
	if day == "" {
		day = ctx.Clock.Today()
	}

	summary, open, err := shell.BuildDailySummary(ctx.context(), ctx.Store, day)
	if err != nil {
		return err
	}
	dayTasks, err := ctx.Tasks().ForDay(ctx.context(), day)
	if err != nil {
		return err
	}

	ctx.println(titleStyle.Render(day))

	ctx.println(headerStyle.Render(fmt.Sprintf("Habits %d/%d", summary.HabitsCompleted, summary.TotalHabits)))
	pending := make(map[string]bool, len(open))
	for _, r := range open {
		pending[r.HabitID] = true
	}
	habits, err := ctx.Habits().List(ctx.context(), false)
	if err != nil {
		return err
	}
	for _, h := range habits {
		ctx.printf("%s %s\n", checkbox(!pending[h.ID]), h.Name)
	}

	ctx.println()
	ctx.println(headerStyle.Render(fmt.Sprintf("Tasks %d/%d", summary.TasksCompleted, len(dayTasks))))
	for _, t := range dayTasks {
		ctx.println(formatTask(t))
	}

	ctx.println()
	tracker, err := ctx.Journal().Get(ctx.context(), day)
	switch {
	case err == nil:
		ctx.println(headerStyle.Render("Score") + " " + scoreStyle.Render(fmt.Sprintf("%d/10", tracker.Score)))
	case apperrors.IsNotFound(err):
		ctx.println(headerStyle.Render("Score") + " " + warnStyle.Render("not logged yet"))
	default:
		return err
	}
	return nil
}
