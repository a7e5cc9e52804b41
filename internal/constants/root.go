package constants

import "time"

const (
	AppName            = "dayledger"
	DefaultKeyringUser = "database-connection"
	DefaultConfigDir   = "~/.config/dayledger"
	DefaultConfigFile  = "config.yaml"
	DefaultDBFile      = "dayledger.db"
	DefaultKVDir       = "kv"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// Environment overrides
	EnvDBConnection   = "DAYLEDGER_DB_CONNECTION"
	EnvConfigPath     = "DAYLEDGER_CONFIG"
	EnvTestPostgres   = "DAYLEDGER_TEST_POSTGRES"
	EnvDebug          = "DAYLEDGER_DEBUG"
	EnvTrayConfigPath = "DAYLEDGER_TRAY_DIR"

	// Backends
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendBadger   = "badger"

	// StreakWindowDays is how many days of completions the streak engine
	// loads per range query while walking a history.
	StreakWindowDays = 64

	// Task bounds
	MinProgress  = 0
	MaxProgress  = 100
	MinPriority  = 1
	MaxPriority  = 5
	DefaultPrio  = 3
	MaxGoalDelta = 100

	// Discipline score bounds
	MinScore = 0
	MaxScore = 10

	// Job names
	JobRollover = "rollover"
	JobReview   = "review"
	JobSummary  = "summary"

	// Notify constants
	NotifyMaxRetries       = 3
	NotifyRetryDelay       = 100 * time.Millisecond
	NotifierLockfileName   = "dayledger-notifier.lock"
	NotificationDurationMs = 5000
	TrayAppIdentifier      = "com.julianstephens.dayledger"
	TraySecretHeader       = "X-Dayledger-Secret"
	TrayExecutablePrefix   = "dayledger-tray"

	// Export document
	ExportVersion = 1
	FormatJSON    = "json"
	FormatYAML    = "yaml"
)
