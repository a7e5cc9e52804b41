package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	apperrors "github.com/julianstephens/dayledger/internal/errors"
	"github.com/julianstephens/dayledger/internal/models"
	"github.com/julianstephens/dayledger/internal/utils"
)

type JournalCmd struct {
	Log   JournalLogCmd   `cmd:"" help:"Record the daily tracker for a day."`
	Show  JournalShowCmd  `cmd:"" help:"Show the daily tracker for a day."`
	Score JournalScoreCmd `cmd:"" help:"Show the average discipline score over a range."`
}

// JournalLogCmd replaces the day's tracker with the given values.
type JournalLogCmd struct {
	Date        string `help:"Day in YYYY-MM-DD format (default: today)."`
	Interactive bool   `short:"i" help:"Fill the tracker in a form, starting from the saved entry."`

	WokeEarly bool `help:"Woke up early."`
	Exercised bool `help:"Exercised."`
	Meditated bool `help:"Meditated."`
	Read      bool `help:"Read."`
	Journaled bool `help:"Journaled."`

	Sleep       float64 `help:"Hours slept (0-24)."`
	ScreenTime  float64 `help:"Screen time in hours (0-24)."`
	Water       float64 `help:"Water in liters (0-10)."`
	Study       float64 `help:"Study time in hours (0-24)."`
	SocialMedia int     `help:"Social media in minutes (0-1440)."`
	Mood        int     `help:"Mood from 1 to 10 (0 leaves it unset)."`
	Notes       string  `help:"Free-form notes."`
}

func (c *JournalLogCmd) tracker(day string) models.DailyTracker {
	return models.DailyTracker{
		Day:                day,
		WokeEarly:          c.WokeEarly,
		Exercised:          c.Exercised,
		Meditated:          c.Meditated,
		Read:               c.Read,
		Journaled:          c.Journaled,
		SleepHours:         c.Sleep,
		ScreenTimeHours:    c.ScreenTime,
		WaterLiters:        c.Water,
		StudyHours:         c.Study,
		SocialMediaMinutes: c.SocialMedia,
		Mood:               c.Mood,
		Notes:              c.Notes,
	}
}

func (c *JournalLogCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	day := c.Date
	if day == "" {
		day = ctx.Clock.Today()
	}

	j := ctx.Journal()
	tracker := c.tracker(day)
	if c.Interactive {
		existing, err := j.Get(ctx.context(), day)
		switch {
		case err == nil:
			tracker = existing
		case !apperrors.IsNotFound(err):
			return err
		}
		if err := runTrackerForm(&tracker); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				ctx.println("Cancelled.")
				return nil
			}
			return err
		}
	}

	saved, err := j.Save(ctx.context(), tracker)
	if err != nil {
		return err
	}
	ctx.printf("✓ Logged %s %s\n", saved.Day, scoreStyle.Render(fmt.Sprintf("score %d/10", saved.Score)))
	return nil
}

// trackerInput holds the form's string-typed fields.
type trackerInput struct {
	sleep, screen, water, study, social, mood string
}

func floatField(lo, hi float64) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return errors.New("enter a number")
		}
		if v < lo || v > hi {
			return fmt.Errorf("must be between %g and %g", lo, hi)
		}
		return nil
	}
}

func intField(lo, hi int) func(string) error {
	return func(s string) error {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return errors.New("enter a whole number")
		}
		if v < lo || v > hi {
			return fmt.Errorf("must be between %d and %d", lo, hi)
		}
		return nil
	}
}

func runTrackerForm(t *models.DailyTracker) error {
	in := trackerInput{
		sleep:  strconv.FormatFloat(t.SleepHours, 'f', -1, 64),
		screen: strconv.FormatFloat(t.ScreenTimeHours, 'f', -1, 64),
		water:  strconv.FormatFloat(t.WaterLiters, 'f', -1, 64),
		study:  strconv.FormatFloat(t.StudyHours, 'f', -1, 64),
		social: strconv.Itoa(t.SocialMediaMinutes),
		mood:   strconv.Itoa(t.Mood),
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().Title("Woke up early?").Value(&t.WokeEarly),
			huh.NewConfirm().Title("Exercised?").Value(&t.Exercised),
			huh.NewConfirm().Title("Meditated?").Value(&t.Meditated),
			huh.NewConfirm().Title("Read?").Value(&t.Read),
			huh.NewConfirm().Title("Journaled?").Value(&t.Journaled),
		).Title("Habits for " + t.Day),
		huh.NewGroup(
			huh.NewInput().Title("Sleep (hours)").Value(&in.sleep).Validate(floatField(0, 24)),
			huh.NewInput().Title("Screen time (hours)").Value(&in.screen).Validate(floatField(0, 24)),
			huh.NewInput().Title("Water (liters)").Value(&in.water).Validate(floatField(0, 10)),
			huh.NewInput().Title("Study (hours)").Value(&in.study).Validate(floatField(0, 24)),
			huh.NewInput().Title("Social media (minutes)").Value(&in.social).Validate(intField(0, 1440)),
			huh.NewInput().Title("Mood (1-10, 0 to skip)").Value(&in.mood).Validate(intField(0, 10)),
		).Title("Numbers"),
		huh.NewGroup(
			huh.NewText().Title("Notes").Value(&t.Notes),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		return err
	}

	t.SleepHours, _ = strconv.ParseFloat(strings.TrimSpace(in.sleep), 64)
	t.ScreenTimeHours, _ = strconv.ParseFloat(strings.TrimSpace(in.screen), 64)
	t.WaterLiters, _ = strconv.ParseFloat(strings.TrimSpace(in.water), 64)
	t.StudyHours, _ = strconv.ParseFloat(strings.TrimSpace(in.study), 64)
	t.SocialMediaMinutes, _ = strconv.Atoi(strings.TrimSpace(in.social))
	t.Mood, _ = strconv.Atoi(strings.TrimSpace(in.mood))
	return nil
}

type JournalShowCmd struct {
	Date string `help:"Day in YYYY-MM-DD format (default: today)."`
}

func (c *JournalShowCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	t, err := ctx.Journal().Get(ctx.context(), c.Date)
	if apperrors.IsNotFound(err) {
		ctx.println("No tracker logged for that day.")
		return nil
	}
	if err != nil {
		return err
	}

	ctx.println(titleStyle.Render("Tracker for "+t.Day) + " " + scoreStyle.Render(fmt.Sprintf("%d/10", t.Score)))
	for _, h := range []struct {
		name string
		done bool
	}{
		{"Woke early", t.WokeEarly},
		{"Exercised", t.Exercised},
		{"Meditated", t.Meditated},
		{"Read", t.Read},
		{"Journaled", t.Journaled},
	} {
		ctx.printf("%s %s\n", checkbox(h.done), h.name)
	}
	ctx.printf("Sleep: %gh  Screen: %gh  Water: %gL  Study: %gh  Social: %dm\n",
		t.SleepHours, t.ScreenTimeHours, t.WaterLiters, t.StudyHours, t.SocialMediaMinutes)
	if t.Mood > 0 {
		ctx.printf("Mood: %d/10\n", t.Mood)
	}
	if t.Notes != "" {
		ctx.printf("Notes: %s\n", t.Notes)
	}
	return nil
}

type JournalScoreCmd struct {
	From string `help:"First day (default: six days before --to)."`
	To   string `help:"Last day (default: today)."`
}

func (c *JournalScoreCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	to := c.To
	if to == "" {
		to = ctx.Clock.Today()
	}
	from := c.From
	if from == "" {
		var err error
		if from, err = utils.AddDays(to, -6); err != nil {
			return err
		}
	}

	j := ctx.Journal()
	trackers, err := j.Range(ctx.context(), from, to)
	if err != nil {
		return err
	}
	avg, err := j.AverageScore(ctx.context(), from, to)
	if err != nil {
		return err
	}
	ctx.printf("%s to %s: average %.1f over %d logged %s\n", from, to, avg, len(trackers), plural(len(trackers), "day", "days"))
	return nil
}
