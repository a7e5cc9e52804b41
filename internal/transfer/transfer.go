// Package transfer moves entities in and out of a store as a versioned
// JSON or YAML document. Derived values are left out and rebuilt on import.
package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/dayledger/internal/constants"
	apperrors "github.com/julianstephens/dayledger/internal/errors"
	"github.com/julianstephens/dayledger/internal/goals"
	"github.com/julianstephens/dayledger/internal/journal"
	"github.com/julianstephens/dayledger/internal/logger"
	"github.com/julianstephens/dayledger/internal/models"
	"github.com/julianstephens/dayledger/internal/storage"
)

// Version is the document layout written by Export.
const Version = constants.ExportVersion

const (
	firstDay = "0001-01-01"
	lastDay  = "9999-12-31"
)

type Format string

const (
	FormatJSON Format = constants.FormatJSON
	FormatYAML Format = constants.FormatYAML
)

// ParseFormat accepts json, yaml or yml, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format %q (expected json or yaml)", s)
	}
}

// FormatForPath picks the format from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	if f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), ".")); err == nil {
		return f
	}
	return FormatJSON
}

// Tracker is a DailyTracker without its score. The outer field hides the
// embedded one when encoding and swallows any score found when decoding.
type Tracker struct {
	models.DailyTracker `yaml:",inline"`
	Score               *int `json:"score,omitempty" yaml:"-"`
}

// Goal is a Goal without its folded progress.
type Goal struct {
	models.Goal     `yaml:",inline"`
	ProgressPercent *int `json:"progress_percent,omitempty" yaml:"-"`
}

type Document struct {
	Version     int                      `json:"version" yaml:"version"`
	Habits      []models.Habit           `json:"habits" yaml:"habits"`
	Completions []models.HabitCompletion `json:"completions" yaml:"completions"`
	Tasks       []models.Task            `json:"tasks" yaml:"tasks"`
	Trackers    []Tracker                `json:"trackers" yaml:"trackers"`
	Goals       []Goal                   `json:"goals" yaml:"goals"`
	GoalUpdates []models.GoalUpdate      `json:"goal_updates" yaml:"goal_updates"`
}

// Counts reports how many records of each kind a document carried.
type Counts struct {
	Habits      int
	Completions int
	Tasks       int
	Trackers    int
	Goals       int
	GoalUpdates int
}

func (c Counts) String() string {
	return fmt.Sprintf("%d habits, %d completions, %d tasks, %d trackers, %d goals, %d goal updates",
		c.Habits, c.Completions, c.Tasks, c.Trackers, c.Goals, c.GoalUpdates)
}

func (d Document) Counts() Counts {
	return Counts{
		Habits:      len(d.Habits),
		Completions: len(d.Completions),
		Tasks:       len(d.Tasks),
		Trackers:    len(d.Trackers),
		Goals:       len(d.Goals),
		GoalUpdates: len(d.GoalUpdates),
	}
}

// Snapshot reads every exportable record in one read transaction.
func Snapshot(ctx context.Context, store storage.Provider) (Document, error) {
	doc := Document{Version: Version}
	err := store.View(ctx, func(tx storage.Tx) error {
		var err error
		if doc.Habits, err = tx.ListHabits(true); err != nil {
			return err
		}
		if doc.Completions, err = tx.AllCompletions(); err != nil {
			return err
		}
		if doc.Tasks, err = tx.AllTasks(); err != nil {
			return err
		}
		trackers, err := tx.TrackersInRange(firstDay, lastDay)
		if err != nil {
			return err
		}
		doc.Trackers = make([]Tracker, 0, len(trackers))
		for _, t := range trackers {
			t.Score = 0
			doc.Trackers = append(doc.Trackers, Tracker{DailyTracker: t})
		}
		list, err := tx.ListGoals()
		if err != nil {
			return err
		}
		doc.Goals = make([]Goal, 0, len(list))
		for _, g := range list {
			g.ProgressPercent = 0
			doc.Goals = append(doc.Goals, Goal{Goal: g})
		}
		doc.GoalUpdates, err = tx.AllGoalUpdates()
		return err
	})
	if err != nil {
		return Document{}, fmt.Errorf("failed to read store for export: %w", err)
	}
	return doc, nil
}

// Export writes the store's contents to w.
func Export(ctx context.Context, store storage.Provider, w io.Writer, format Format) (Counts, error) {
	doc, err := Snapshot(ctx, store)
	if err != nil {
		return Counts{}, err
	}
	if err := Encode(w, doc, format); err != nil {
		return Counts{}, err
	}
	return doc.Counts(), nil
}

func Encode(w io.Writer, doc Document, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
	return nil
}

func Decode(r io.Reader, format Format) (Document, error) {
	var doc Document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return Document{}, fmt.Errorf("failed to decode JSON: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return Document{}, fmt.Errorf("failed to decode YAML: %w", err)
		}
	default:
		return Document{}, fmt.Errorf("unsupported format %q", format)
	}
	if doc.Version != Version {
		return Document{}, apperrors.Invariant("document", "version", fmt.Sprintf("unsupported version %d (expected %d)", doc.Version, Version))
	}
	return doc, nil
}

// Import reads a document from r and upserts every record in a single
// transaction. Tracker scores and goal progress are recomputed; nothing is
// written if any record is rejected.
func Import(ctx context.Context, store storage.Provider, r io.Reader, format Format) (Counts, error) {
	doc, err := Decode(r, format)
	if err != nil {
		return Counts{}, err
	}
	if err := Apply(ctx, store, doc); err != nil {
		return Counts{}, err
	}
	counts := doc.Counts()
	logger.Info("Imported document", "habits", counts.Habits, "tasks", counts.Tasks,
		"trackers", counts.Trackers, "goals", counts.Goals)
	return counts, nil
}

// Apply upserts doc into the store in one transaction. Records the
// document does not mention are left alone.
func Apply(ctx context.Context, store storage.Provider, doc Document) error {
	return store.Update(ctx, func(tx storage.Tx) error {
		return applyTx(tx, doc)
	})
}

// Replace makes the store hold exactly the records in doc: everything else
// is deleted in the same transaction that writes the document. Job state
// survives.
func Replace(ctx context.Context, store storage.Provider, doc Document) error {
	return store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.ClearRecords(); err != nil {
			return err
		}
		return applyTx(tx, doc)
	})
}

// applyTx writes parents before children so every backend's referential
// checks hold mid-transaction.
func applyTx(tx storage.Tx, doc Document) error {
	for _, h := range doc.Habits {
		if err := h.Validate(); err != nil {
			return err
		}
		if err := tx.PutHabit(h); err != nil {
			return fmt.Errorf("failed to import habit %s: %w", h.ID, err)
		}
	}
	for _, c := range doc.Completions {
		if err := c.Validate(); err != nil {
			return err
		}
		if err := tx.PutCompletion(c); err != nil {
			return fmt.Errorf("failed to import completion %s@%s: %w", c.HabitID, c.Day, err)
		}
	}
	for _, t := range doc.Tasks {
		if err := t.Validate(); err != nil {
			return err
		}
		if err := tx.PutTask(t); err != nil {
			return fmt.Errorf("failed to import task %s: %w", t.ID, err)
		}
	}
	for _, rec := range doc.Trackers {
		t := rec.DailyTracker
		if err := t.Validate(); err != nil {
			return err
		}
		t.Score = journal.Score(t)
		if err := tx.PutTracker(t); err != nil {
			return fmt.Errorf("failed to import tracker %s: %w", t.Day, err)
		}
	}

	// Goals go in at their initial percent, then get refolded once all
	// their updates are present.
	for _, rec := range doc.Goals {
		g := rec.Goal
		g.ProgressPercent = g.InitialPercent
		if err := g.Validate(); err != nil {
			return err
		}
		if err := tx.PutGoal(g); err != nil {
			return fmt.Errorf("failed to import goal %s: %w", g.ID, err)
		}
	}
	for _, u := range doc.GoalUpdates {
		if err := u.Validate(); err != nil {
			return err
		}
		if err := tx.PutGoalUpdate(u); err != nil {
			return fmt.Errorf("failed to import update for goal %s: %w", u.GoalID, err)
		}
	}
	for _, rec := range doc.Goals {
		g, err := tx.GetGoal(rec.ID)
		if err != nil {
			return err
		}
		updates, err := tx.GoalUpdates(g.ID)
		if err != nil {
			return err
		}
		// Completion is transported as-is: it is sticky and a reopened
		// goal may legitimately sit at 100 without being complete.
		g.ProgressPercent = goals.Fold(g.InitialPercent, updates)
		if err := tx.PutGoal(g); err != nil {
			return err
		}
	}
	return nil
}
