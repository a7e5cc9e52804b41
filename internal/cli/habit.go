package cli

import (
	"fmt"
)

type HabitCmd struct {
	Add       HabitAddCmd       `cmd:"" help:"Add a new habit."`
	List      HabitListCmd      `cmd:"" help:"List habits."`
	Archive   HabitArchiveCmd   `cmd:"" help:"Archive a habit."`
	Unarchive HabitUnarchiveCmd `cmd:"" help:"Restore an archived habit."`
	Mark      HabitMarkCmd      `cmd:"" help:"Mark a habit as done for a day."`
	Unmark    HabitUnmarkCmd    `cmd:"" help:"Clear a habit's completion for a day."`
	Toggle    HabitToggleCmd    `cmd:"" help:"Flip a habit's completion for a day."`
	Streak    HabitStreakCmd    `cmd:"" help:"Show the current streak of a habit."`
	Stats     HabitStatsCmd     `cmd:"" help:"Show streaks and completion rate of a habit."`
}

type HabitAddCmd struct {
	Name  string `arg:"" help:"Habit name."`
	Color string `help:"Display color as #RRGGBB."`
}

func (c *HabitAddCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	habit, err := ctx.Habits().Create(ctx.context(), c.Name, c.Color)
	if err != nil {
		return err
	}
	ctx.printf("Added habit: %s (%s)\n", habit.Name, habit.ID)
	return nil
}

type HabitListCmd struct {
	Archived bool `help:"Include archived habits."`
}

func (c *HabitListCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	list, err := ctx.Habits().List(ctx.context(), c.Archived)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		ctx.println("No habits found.")
		return nil
	}

	for _, habit := range list {
		status := ""
		if habit.Archived() {
			status = " [ARCHIVED]"
		}
		ctx.printf("%s  %s%s\n", habit.ID, habit.Name, status)
	}
	return nil
}

type HabitArchiveCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
}

func (c *HabitArchiveCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	engine := ctx.Habits()
	habit, err := engine.Resolve(ctx.context(), c.Habit)
	if err != nil {
		return err
	}
	if _, err := engine.Archive(ctx.context(), habit.ID); err != nil {
		return err
	}
	ctx.printf("Archived habit: %s\n", habit.Name)
	return nil
}

type HabitUnarchiveCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
}

func (c *HabitUnarchiveCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	engine := ctx.Habits()
	habit, err := engine.Resolve(ctx.context(), c.Habit)
	if err != nil {
		return err
	}
	if _, err := engine.Unarchive(ctx.context(), habit.ID); err != nil {
		return err
	}
	ctx.printf("Unarchived habit: %s\n", habit.Name)
	return nil
}

type HabitMarkCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Date  string `help:"Date in YYYY-MM-DD format (default: today)."`
}

func (c *HabitMarkCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	engine := ctx.Habits()
	habit, err := engine.Resolve(ctx.context(), c.Habit)
	if err != nil {
		return err
	}
	streak, err := engine.Mark(ctx.context(), habit.ID, c.Date)
	if err != nil {
		return err
	}
	ctx.printf("✓ Marked %s (streak: %d %s)\n", habit.Name, streak, plural(streak, "day", "days"))
	return nil
}

type HabitUnmarkCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Date  string `help:"Date in YYYY-MM-DD format (default: today)."`
}

func (c *HabitUnmarkCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	engine := ctx.Habits()
	habit, err := engine.Resolve(ctx.context(), c.Habit)
	if err != nil {
		return err
	}
	if err := engine.Unmark(ctx.context(), habit.ID, c.Date); err != nil {
		return err
	}
	ctx.printf("Unmarked %s\n", habit.Name)
	return nil
}

type HabitToggleCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Date  string `help:"Date in YYYY-MM-DD format (default: today)."`
}

func (c *HabitToggleCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	engine := ctx.Habits()
	habit, err := engine.Resolve(ctx.context(), c.Habit)
	if err != nil {
		return err
	}
	completed, err := engine.Toggle(ctx.context(), habit.ID, c.Date)
	if err != nil {
		return err
	}
	if completed {
		ctx.printf("✓ Marked %s\n", habit.Name)
	} else {
		ctx.printf("Unmarked %s\n", habit.Name)
	}
	return nil
}

type HabitStreakCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Date  string `help:"Streak ending at this date (default: today)."`
}

func (c *HabitStreakCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	engine := ctx.Habits()
	habit, err := engine.Resolve(ctx.context(), c.Habit)
	if err != nil {
		return err
	}
	streak, err := engine.CurrentStreak(ctx.context(), habit.ID, c.Date)
	if err != nil {
		return err
	}
	ctx.printf("%s: %d %s\n", habit.Name, streak, plural(streak, "day", "days"))
	return nil
}

type HabitStatsCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Date  string `help:"Last day of the window (default: today)."`
	Days  int    `help:"Window length in days." default:"30"`
}

func (c *HabitStatsCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	engine := ctx.Habits()
	habit, err := engine.Resolve(ctx.context(), c.Habit)
	if err != nil {
		return err
	}
	stats, err := engine.Stats(ctx.context(), habit.ID, c.Date, c.Days)
	if err != nil {
		return err
	}

	ctx.println(headerStyle.Render(habit.Name))
	ctx.printf("  Current streak:  %d\n", stats.CurrentStreak)
	ctx.printf("  Longest streak:  %d (last %d days)\n", stats.LongestStreak, c.Days)
	ctx.printf("  Completion rate: %.0f%%\n", stats.Rate*100)
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func percent(p int) string {
	return fmt.Sprintf("%d%%", p)
}
