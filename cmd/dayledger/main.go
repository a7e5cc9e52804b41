package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/dayledger/internal/cli"
	"github.com/julianstephens/dayledger/internal/clock"
	"github.com/julianstephens/dayledger/internal/config"
	"github.com/julianstephens/dayledger/internal/constants"
	apperrors "github.com/julianstephens/dayledger/internal/errors"
	"github.com/julianstephens/dayledger/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path (default: ~/.config/dayledger/config.yaml)." type:"path"`
	DB      string `name:"db" help:"Database file, badger directory or postgres connection string without a password."`
	Backend string `help:"Storage backend (sqlite, postgres or badger)."`
	Debug   bool   `help:"Enable debug logging to stderr."`

	Init    cli.InitCmd    `cmd:"" help:"Initialize dayledger storage."`
	Migrate cli.MigrateCmd `cmd:"" help:"Apply pending schema migrations."`
	Status  cli.StatusCmd  `cmd:"" help:"Show today's habits, tasks and score." default:"1"`
	Habit   cli.HabitCmd   `cmd:"" help:"Manage habits and their completions."`
	Task    cli.TaskCmd    `cmd:"" help:"Manage daily tasks."`
	Journal cli.JournalCmd `cmd:"" help:"Log and review the daily tracker."`
	Goal    cli.GoalCmd    `cmd:"" help:"Manage goals and weekly progress."`
	Daemon  cli.DaemonCmd  `cmd:"" help:"Run the scheduler in the foreground."`
	Jobs    cli.JobsCmd    `cmd:"" help:"Inspect and run scheduled jobs."`
	Notify  cli.NotifyCmd  `cmd:"" help:"Send a notification to the tray app."`
	Export  cli.ExportCmd  `cmd:"" help:"Export all records as JSON or YAML."`
	Import  cli.ImportCmd  `cmd:"" help:"Import records from an export document."`
	Backup  cli.BackupCmd  `cmd:"" help:"Manage backups."`
	Mcp     cli.McpCmd     `cmd:"" help:"Serve the MCP tools over stdio."`
	Keyring cli.KeyringCmd `cmd:"" help:"Manage the database connection string in the OS keyring."`
	Doctor  cli.DoctorCmd  `cmd:"" help:"Run health checks."`
}

func loadConfig() (config.Config, error) {
	path := CLI.Config
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return config.Config{}, err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	if CLI.Backend != "" {
		cfg.Backend = CLI.Backend
	}
	if CLI.DB != "" {
		cfg.Database = CLI.DB
	}
	if CLI.Debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Habit, task, journal and goal tracking"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	cfg, err := loadConfig()
	if err != nil {
		apperrors.Fatal(err)
	}
	if err := logger.Init(logger.Config{Debug: cfg.Debug, ConfigDir: cfg.Dir()}); err != nil {
		apperrors.Fatal(err)
	}

	loc, err := cfg.Location()
	if err != nil {
		apperrors.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx := &cli.Context{
		Ctx:    ctx,
		Config: cfg,
		Clock:  clock.New(loc),
		Out:    os.Stdout,
	}

	// Keyring commands must work before a postgres connection string exists.
	if !strings.HasPrefix(kctx.Command(), "keyring") {
		store, err := cli.OpenStore(cfg)
		if err != nil {
			apperrors.Fatal(err)
		}
		appCtx.Store = store
	}

	err = kctx.Run(appCtx)
	if appCtx.Store != nil {
		if cerr := appCtx.Store.Close(); cerr != nil {
			logger.Warn("Failed to close storage", "error", cerr)
		}
	}
	apperrors.Fatal(err)
}
