package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/dayledger/internal/constants"
	"github.com/julianstephens/dayledger/internal/keyring"
	"github.com/julianstephens/dayledger/internal/models"
	"github.com/julianstephens/dayledger/internal/storage/sqlstore"
	"github.com/julianstephens/dayledger/internal/transfer"
)

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *Context) error {
	ctx.println("Running diagnostics...")
	ctx.println()

	hasError := false
	fail := func(name string, err error) {
		ctx.printf("❌ %s: FAIL\n", name)
		ctx.printf("   Error: %v\n", err)
		hasError = true
	}

	dbReachable := false
	if err := ctx.Store.Load(); err != nil {
		fail("Storage reachable", err)
	} else {
		ctx.printf("✓ Storage reachable: OK (%s)\n", ctx.Store.Backend())
		dbReachable = true
	}

	if dbReachable {
		if err := checkSchemaVersion(ctx); err != nil {
			fail("Schema version", err)
		} else {
			ctx.printf("✓ Schema version: OK\n")
		}

		if err := checkValidation(ctx); err != nil {
			fail("Data validation", err)
		} else {
			ctx.printf("✓ Data validation: OK\n")
		}

		if err := checkJobs(ctx); err != nil {
			ctx.printf("⚠ Scheduled jobs: WARNING\n")
			ctx.printf("   %v\n", err)
		} else {
			ctx.printf("✓ Scheduled jobs: OK\n")
		}
	} else {
		ctx.printf("⊘ Schema version: SKIPPED (storage not reachable)\n")
		ctx.printf("⊘ Data validation: SKIPPED (storage not reachable)\n")
		ctx.printf("⊘ Scheduled jobs: SKIPPED (storage not reachable)\n")
	}

	if err := checkBackupsPresent(ctx); err != nil {
		ctx.printf("⚠ Backups present: WARNING\n")
		ctx.printf("   %v\n", err)
	} else {
		ctx.printf("✓ Backups present: OK\n")
	}

	if err := checkClockTimezone(ctx); err != nil {
		fail("Clock/timezone", err)
	} else {
		ctx.printf("✓ Clock/timezone: OK (%s)\n", ctx.Config.Timezone)
	}

	if ctx.Config.Backend == constants.BackendPostgres {
		if keyring.IsAvailable() {
			ctx.printf("✓ OS keyring: OK\n")
		} else {
			ctx.printf("⚠ OS keyring: WARNING\n")
			ctx.printf("   keyring unavailable; use %s for the connection string\n", constants.EnvDBConnection)
		}
	}

	ctx.println()
	if hasError {
		ctx.println("Diagnostics completed with errors.")
		return errors.New("one or more health checks failed")
	}

	ctx.println("All diagnostics passed!")
	return nil
}

func checkSchemaVersion(ctx *Context) error {
	sqlStore, ok := ctx.Store.(*sqlstore.Store)
	if !ok {
		// The key-value store checks its layout version in Load.
		return nil
	}
	current, latest, err := sqlStore.SchemaVersion(ctx.context())
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d", current, latest)
	}
	return nil
}

// checkValidation re-validates every stored record and looks for
// completions whose habit is gone.
func checkValidation(ctx *Context) error {
	doc, err := transfer.Snapshot(ctx.context(), ctx.Store)
	if err != nil {
		return fmt.Errorf("failed to read records: %w", err)
	}

	habitIDs := make(map[string]bool, len(doc.Habits))
	for _, h := range doc.Habits {
		if err := h.Validate(); err != nil {
			return err
		}
		habitIDs[h.ID] = true
	}
	for _, c := range doc.Completions {
		if !habitIDs[c.HabitID] {
			return fmt.Errorf("completion on %s references missing habit %s", c.Day, c.HabitID)
		}
	}
	for _, t := range doc.Tasks {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	for _, t := range doc.Trackers {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	for _, g := range doc.Goals {
		if err := g.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func checkJobs(ctx *Context) error {
	states, err := ctx.Shell().States(ctx.context())
	if err != nil {
		return fmt.Errorf("failed to read job states: %w", err)
	}
	for _, s := range states {
		if s.Status == models.JobFailed {
			return fmt.Errorf("job %s is failing after %d attempt(s): %s", s.Name, s.Attempts, s.LastError)
		}
	}
	return nil
}

func checkBackupsPresent(ctx *Context) error {
	backups, err := ctx.BackupManager().ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return errors.New("no backups found - consider creating one with 'dayledger backup create'")
	}
	return nil
}

func checkClockTimezone(ctx *Context) error {
	if _, err := ctx.Config.Location(); err != nil {
		return err
	}

	now := ctx.Clock.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	return nil
}
