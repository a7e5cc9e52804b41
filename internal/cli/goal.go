package cli

import (
	"fmt"

	"github.com/julianstephens/dayledger/internal/models"
)

type GoalCmd struct {
	Add     GoalAddCmd     `cmd:"" help:"Add a goal."`
	List    GoalListCmd    `cmd:"" help:"List goals and their progress."`
	Update  GoalUpdateCmd  `cmd:"" help:"Record a goal's progress change for a week."`
	Reopen  GoalReopenCmd  `cmd:"" help:"Clear a goal's completion."`
	History GoalHistoryCmd `cmd:"" help:"Show a goal's weekly updates."`
}

type GoalAddCmd struct {
	Title   string `arg:"" help:"Goal title."`
	Initial int    `help:"Starting progress percentage (0-100)." default:"0"`
}

func (c *GoalAddCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	goal, err := ctx.Goals().Add(ctx.context(), c.Title, c.Initial)
	if err != nil {
		return err
	}
	ctx.printf("Added goal: %s (%s)\n", goal.Title, goal.ID)
	return nil
}

type GoalListCmd struct{}

func (c *GoalListCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	list, err := ctx.Goals().List(ctx.context())
	if err != nil {
		return err
	}
	if len(list) == 0 {
		ctx.println("No goals found.")
		return nil
	}
	for _, g := range list {
		ctx.println(formatGoal(g))
	}
	return nil
}

type GoalUpdateCmd struct {
	ID    string `arg:"" help:"Goal id."`
	Delta int    `arg:"" help:"Progress change in percentage points (-100 to 100)."`
	Week  string `help:"Any day of the week to record against (default: this week)."`
	Notes string `help:"Notes for the week."`
}

func (c *GoalUpdateCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	goal, err := ctx.Goals().ApplyWeeklyUpdate(ctx.context(), c.ID, c.Week, c.Delta, c.Notes)
	if err != nil {
		return err
	}
	ctx.println(formatGoal(goal))
	return nil
}

type GoalReopenCmd struct {
	ID string `arg:"" help:"Goal id."`
}

func (c *GoalReopenCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	goal, err := ctx.Goals().Reopen(ctx.context(), c.ID)
	if err != nil {
		return err
	}
	ctx.printf("Reopened goal: %s\n", goal.Title)
	return nil
}

type GoalHistoryCmd struct {
	ID string `arg:"" help:"Goal id."`
}

func (c *GoalHistoryCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	engine := ctx.Goals()
	goal, err := engine.Get(ctx.context(), c.ID)
	if err != nil {
		return err
	}
	updates, err := engine.Updates(ctx.context(), c.ID)
	if err != nil {
		return err
	}

	ctx.println(formatGoal(goal))
	ctx.printf("  started at %s\n", percent(goal.InitialPercent))
	for _, u := range updates {
		line := fmt.Sprintf("  week of %s: %+d", u.WeekStart, u.Delta)
		if u.Notes != "" {
			line += "  " + pendingStyle.Render(u.Notes)
		}
		ctx.println(line)
	}
	return nil
}

func formatGoal(g models.Goal) string {
	line := fmt.Sprintf("%s %s %s", checkbox(g.Completed), g.Title, scoreStyle.Render(percent(g.ProgressPercent)))
	return line + "  " + pendingStyle.Render(g.ID)
}
