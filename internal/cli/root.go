package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/julianstephens/dayledger/internal/clock"
	"github.com/julianstephens/dayledger/internal/config"
	"github.com/julianstephens/dayledger/internal/constants"
	"github.com/julianstephens/dayledger/internal/goals"
	"github.com/julianstephens/dayledger/internal/habits"
	"github.com/julianstephens/dayledger/internal/journal"
	"github.com/julianstephens/dayledger/internal/logger"
	"github.com/julianstephens/dayledger/internal/notifier"
	"github.com/julianstephens/dayledger/internal/storage"
	"github.com/julianstephens/dayledger/internal/storage/kv"
	"github.com/julianstephens/dayledger/internal/storage/sqlstore"
	"github.com/julianstephens/dayledger/internal/tasks"
	"github.com/julianstephens/dayledger/internal/transfer"
)

type Context struct {
	Ctx    context.Context
	Config config.Config
	Store  storage.Provider
	Clock  clock.Clock
	Out    io.Writer
}

// OpenStore builds the configured backend. The store is not opened; call
// Init or Load on it.
func OpenStore(cfg config.Config) (storage.Provider, error) {
	switch cfg.Backend {
	case constants.BackendPostgres:
		connStr, err := cfg.ConnectionString()
		if err != nil {
			return nil, err
		}
		return sqlstore.NewPostgres(connStr), nil
	case constants.BackendBadger:
		dir, err := cfg.DatabasePath()
		if err != nil {
			return nil, err
		}
		return kv.New(dir), nil
	case constants.BackendSQLite:
		path, err := cfg.DatabasePath()
		if err != nil {
			return nil, err
		}
		return sqlstore.NewSQLite(path), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func (c *Context) context() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

func (c *Context) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) printf(format string, args ...any) {
	fmt.Fprintf(c.out(), format, args...)
}

func (c *Context) println(args ...any) {
	fmt.Fprintln(c.out(), args...)
}

func (c *Context) Habits() *habits.Engine { return habits.NewEngine(c.Store, c.Clock) }

func (c *Context) Tasks() *tasks.Engine { return tasks.NewEngine(c.Store, c.Clock) }

func (c *Context) Journal() *journal.Journal { return journal.New(c.Store, c.Clock) }

func (c *Context) Goals() *goals.Engine { return goals.NewEngine(c.Store, c.Clock) }

func (c *Context) BackupManager() *transfer.Manager {
	return transfer.NewManager(c.Store, c.Clock, transfer.DefaultBackupDir(c.Store, c.Config.Dir()))
}

// Sink returns the notification sink configured for scheduled jobs. The
// tray is best-effort so a closed tray app never fails a job.
func (c *Context) Sink() notifier.Sink {
	sinks := notifier.Fanout{notifier.LogSink{}}
	if c.Config.Notifications.Enabled && c.Config.Notifications.Tray {
		sinks = append(sinks, notifier.BestEffort(notifier.NewTray()))
	}
	return sinks
}

// shareStore releases a badger store between transactions so other
// commands can open it while a long-running command is up. SQL stores
// already allow that.
func (c *Context) shareStore() error {
	if kvStore, ok := c.Store.(*kv.Store); ok {
		return kvStore.Detach()
	}
	return nil
}

// PerformAutomaticBackup creates a backup and only logs failures.
func (c *Context) PerformAutomaticBackup() {
	if _, err := c.BackupManager().CreateBackup(c.context()); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}
