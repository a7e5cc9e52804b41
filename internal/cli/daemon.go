package cli

import (
	"fmt"

	"github.com/julianstephens/dayledger/internal/logger"
	"github.com/julianstephens/dayledger/internal/models"
	"github.com/julianstephens/dayledger/internal/notifier"
	"github.com/julianstephens/dayledger/internal/shell"
)

func (c *Context) Shell() *shell.Shell {
	return shell.NewDefault(c.Store, c.Clock, c.Sink(), c.Config.Shell())
}

// DaemonCmd runs the scheduling loop in the foreground until interrupted.
type DaemonCmd struct{}

func (c *DaemonCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	if err := ctx.shareStore(); err != nil {
		return err
	}
	logger.Info("Starting scheduler", "tick", ctx.Config.Scheduler.TickInterval, "backend", ctx.Store.Backend())
	ctx.printf("Scheduler running (tick every %s). Press Ctrl+C to stop.\n", ctx.Config.Scheduler.TickInterval)
	if err := ctx.Shell().Run(ctx.context()); err != nil {
		return err
	}
	logger.Info("Scheduler stopped")
	return nil
}

type JobsCmd struct {
	Run  JobsRunCmd  `cmd:"" help:"Run due jobs once, or one job by name regardless of schedule."`
	List JobsListCmd `cmd:"" help:"Show the persisted state of every job."`
}

type JobsRunCmd struct {
	Name string `arg:"" optional:"" help:"Job to force (rollover, review or summary)."`
}

func (c *JobsRunCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	sh := ctx.Shell()

	if c.Name != "" {
		out, err := sh.RunJob(ctx.context(), c.Name)
		if err != nil {
			return err
		}
		ctx.println(formatOutcome(out))
		return out.Err
	}

	outcomes, err := sh.RunDue(ctx.context())
	if err != nil {
		return err
	}
	for _, out := range outcomes {
		ctx.println(formatOutcome(out))
	}
	return nil
}

func formatOutcome(out shell.Outcome) string {
	switch {
	case out.Err != nil:
		return warnStyle.Render(fmt.Sprintf("✗ %s: %v", out.Job, out.Err))
	case out.Ran:
		return doneStyle.Render("✓ " + out.Job)
	default:
		return pendingStyle.Render(fmt.Sprintf("- %s: %s", out.Job, out.Status))
	}
}

type JobsListCmd struct{}

func (c *JobsListCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	states, err := ctx.Shell().States(ctx.context())
	if err != nil {
		return err
	}
	for _, s := range states {
		last := "never"
		if s.LastRunAt != nil {
			last = s.LastRunAt.In(ctx.Clock.Now().Location()).Format("2006-01-02 15:04")
		}
		line := fmt.Sprintf("%-9s %-8s last run: %s", s.Name, s.Status, last)
		if s.Status == models.JobFailed {
			line += warnStyle.Render(fmt.Sprintf("  attempts: %d, error: %s", s.Attempts, s.LastError))
			if s.NextAttemptAt != nil {
				line += warnStyle.Render(", retry at " + s.NextAttemptAt.In(ctx.Clock.Now().Location()).Format("15:04:05"))
			}
		}
		ctx.println(line)
	}
	return nil
}

// NotifyCmd sends a message through the configured notification sinks.
type NotifyCmd struct {
	Message string `arg:"" optional:"" help:"Text to send (default: today's summary)."`
	DryRun  bool   `help:"Print the notification instead of sending it."`
}

func (c *NotifyCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	if !ctx.Config.Notifications.Enabled && !c.DryRun {
		ctx.println("Notifications are disabled in the config.")
		return nil
	}

	if c.Message != "" {
		if c.DryRun {
			ctx.println(c.Message)
			return nil
		}
		return notifier.NewTray().Notify(ctx.context(), c.Message)
	}

	summary, _, err := shell.BuildDailySummary(ctx.context(), ctx.Store, ctx.Clock.Today())
	if err != nil {
		return err
	}
	if c.DryRun {
		ctx.printf("%s: %d/%d habits done, %d tasks completed\n",
			summary.Day, summary.HabitsCompleted, summary.TotalHabits, summary.TasksCompleted)
		return nil
	}
	return notifier.NewTray().NotifyDailySummary(ctx.context(), summary)
}
