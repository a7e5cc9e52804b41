package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/dayledger/internal/models"
	"github.com/julianstephens/dayledger/internal/tasks"
)

type TaskCmd struct {
	Add      TaskAddCmd      `cmd:"" help:"Add a task for a day."`
	List     TaskListCmd     `cmd:"" help:"List the tasks of a day."`
	Progress TaskProgressCmd `cmd:"" help:"Set a task's progress percentage."`
	Delete   TaskDeleteCmd   `cmd:"" help:"Delete a task."`
	Rollover TaskRolloverCmd `cmd:"" help:"Carry unfinished tasks forward."`
	Stale    TaskStaleCmd    `cmd:"" help:"List unfinished tasks from earlier days."`
}

type TaskAddCmd struct {
	Title    string `arg:"" help:"Task title."`
	Date     string `help:"Day in YYYY-MM-DD format (default: today)."`
	Priority int    `short:"p" help:"Priority (1-5, lower is higher priority)." default:"3"`
}

func (c *TaskAddCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	task, err := ctx.Tasks().Add(ctx.context(), c.Title, c.Date, c.Priority)
	if err != nil {
		return err
	}
	ctx.printf("Added task: %s (%s) for %s\n", task.Title, task.ID, task.Day)
	return nil
}

type TaskListCmd struct {
	Date string `help:"Day in YYYY-MM-DD format (default: today)."`
}

func (c *TaskListCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	day := c.Date
	if day == "" {
		day = ctx.Clock.Today()
	}
	list, err := ctx.Tasks().ForDay(ctx.context(), day)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		ctx.printf("No tasks for %s.\n", day)
		return nil
	}
	ctx.println(headerStyle.Render("Tasks for " + day))
	for _, t := range list {
		ctx.println(formatTask(t))
	}
	return nil
}

type TaskProgressCmd struct {
	ID       string `arg:"" help:"Task id."`
	Progress int    `arg:"" help:"Progress percentage (0-100)."`
}

func (c *TaskProgressCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	task, err := ctx.Tasks().SetProgress(ctx.context(), c.ID, c.Progress)
	if err != nil {
		return err
	}
	ctx.printf("%s: %s\n", task.Title, percent(task.Progress))
	return nil
}

type TaskDeleteCmd struct {
	ID string `arg:"" help:"Task id."`
}

func (c *TaskDeleteCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	if err := ctx.Tasks().Delete(ctx.context(), c.ID); err != nil {
		return err
	}
	ctx.printf("Deleted task: %s\n", c.ID)
	return nil
}

type TaskRolloverCmd struct {
	From string `help:"Day to carry from (default: every stale day)."`
	To   string `help:"Day to carry to (default: today)."`
}

func (c *TaskRolloverCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	engine := ctx.Tasks()
	var (
		res tasks.Result
		err error
	)
	switch {
	case c.From == "" && c.To == "":
		res, err = engine.CatchUp(ctx.context(), ctx.Clock.Today())
	case c.From == "":
		return errors.New("--from is required with --to")
	default:
		to := c.To
		if to == "" {
			to = ctx.Clock.Today()
		}
		res, err = engine.RollForward(ctx.context(), c.From, to)
	}
	if err != nil {
		return err
	}

	if len(res.Moved) == 0 {
		ctx.println("Nothing to roll over.")
		return nil
	}
	ctx.printf("✓ Carried %d %s forward to %s\n", len(res.Moved), plural(len(res.Moved), "task", "tasks"), res.To)
	return nil
}

type TaskStaleCmd struct {
	Date string `help:"List tasks dated before this day (default: today)."`
}

func (c *TaskStaleCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	day := c.Date
	if day == "" {
		day = ctx.Clock.Today()
	}
	list, err := ctx.Tasks().IncompleteTasksBefore(ctx.context(), day)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		ctx.printf("No unfinished tasks before %s.\n", day)
		return nil
	}
	for _, t := range list {
		ctx.printf("%s  %s\n", t.Day, formatTask(t))
	}
	return nil
}

func formatTask(t models.Task) string {
	var b strings.Builder
	b.WriteString(checkbox(t.Done()))
	b.WriteString(" ")
	b.WriteString(t.Title)
	b.WriteString(" ")
	b.WriteString(pendingStyle.Render(fmt.Sprintf("(%s, p%d)", percent(t.Progress), t.Priority)))
	if t.OriginalDay != nil {
		b.WriteString(" ")
		b.WriteString(warnStyle.Render("carried from " + *t.OriginalDay))
	}
	b.WriteString("  ")
	b.WriteString(pendingStyle.Render(t.ID))
	return b.String()
}
