// Package kv implements storage.Provider on an embedded badger database.
// Records are stored as JSON under prefixed keys; secondary keys keep the
// name and day lookups cheap.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"

	"github.com/julianstephens/dayledger/internal/constants"
	apperrors "github.com/julianstephens/dayledger/internal/errors"
	"github.com/julianstephens/dayledger/internal/logger"
	"github.com/julianstephens/dayledger/internal/storage"
)

const (
	habitPrefix      = "habit:"
	habitNamePrefix  = "habitname:"
	completionPrefix = "completion:"
	taskPrefix       = "task:"
	taskDayPrefix    = "taskday:"
	trackerPrefix    = "tracker:"
	goalPrefix       = "goal:"
	goalUpdatePrefix = "goalupdate:"
	jobPrefix        = "job:"

	// completionDayPrefix indexes completions by day: completionday:<day>:<habit id>.
	completionDayPrefix = "completionday:"

	versionKey = "meta:version"
	// layoutVersion is bumped whenever the key layout changes incompatibly.
	layoutVersion = 2
)

// Store is a badger-backed storage.Provider.
type Store struct {
	dir      string
	inMemory bool
	detached bool

	mu sync.Mutex // guards db while detached
	db *badger.DB
}

var _ storage.Provider = (*Store)(nil)

// New returns a store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// NewInMemory returns a store that keeps everything in memory.
func NewInMemory() *Store {
	return &Store{inMemory: true}
}

func (s *Store) options() badger.Options {
	opts := badger.DefaultOptions(s.dir)
	if s.inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	return opts.WithLogger(badgerLogger{})
}

func (s *Store) Init() error {
	if !s.inMemory {
		if err := os.MkdirAll(s.dir, 0700); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	if err := s.open(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(versionKey)); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		logger.Info("Initializing key-value store", "dir", s.dir, "version", layoutVersion)
		return txn.Set([]byte(versionKey), []byte(strconv.Itoa(layoutVersion)))
	})
	if err != nil {
		return err
	}
	return s.checkVersion()
}

func (s *Store) Load() error {
	if s.db != nil {
		return nil
	}
	if !s.inMemory {
		if _, err := os.Stat(s.dir); os.IsNotExist(err) {
			return fmt.Errorf("storage not initialized, run 'dayledger init' first")
		}
	}
	if err := s.open(); err != nil {
		return err
	}
	err := s.checkVersion()
	if s.detached {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *Store) checkVersion() error {
	var version int
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(versionKey))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("storage not initialized, run 'dayledger init' first")
			}
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if version, err = strconv.Atoi(string(raw)); err != nil {
			return fmt.Errorf("invalid store version %q: %w", raw, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if version > layoutVersion {
		return fmt.Errorf("store version (%d) is newer than supported version (%d) - please upgrade the application", version, layoutVersion)
	}
	if version < layoutVersion {
		return s.upgrade(version)
	}
	return nil
}

// upgrade rebuilds the secondary indexes added since version and stamps
// the current layout version.
func (s *Store) upgrade(version int) error {
	logger.Info("Upgrading key-value store layout", "from", version, "to", layoutVersion)
	return s.db.Update(func(txn *badger.Txn) error {
		t := &tx{ctx: context.Background(), txn: txn}
		if version < 2 {
			completions, err := t.AllCompletions()
			if err != nil {
				return err
			}
			for _, c := range completions {
				if err := txn.Set([]byte(completionDayKey(c.Day, c.HabitID)), nil); err != nil {
					return err
				}
			}
		}
		return txn.Set([]byte(versionKey), []byte(strconv.Itoa(layoutVersion)))
	})
}

func (s *Store) open() error {
	if s.db != nil {
		return nil
	}
	db, err := badger.Open(s.options())
	if err != nil {
		err = fmt.Errorf("failed to open key-value store: %w", err)
		if isDirLocked(err) {
			return apperrors.Transient(err)
		}
		return err
	}
	s.db = db
	return nil
}

// isDirLocked reports whether badger refused to open because another
// process holds the directory lock. Badger has no sentinel for this.
func isDirLocked(err error) bool {
	return strings.Contains(err.Error(), "Cannot acquire directory lock")
}

// Detach closes the database and makes every later Update and View open it
// for one transaction only. Badger locks its directory while open, so a
// long-running process detaches to let other commands use the store
// between its transactions. Opening while another process holds the lock
// fails with a transient error.
func (s *Store) Detach() error {
	if s.inMemory {
		return errors.New("an in-memory store cannot be detached")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Close(); err != nil {
		return err
	}
	s.detached = true
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) Backend() string { return constants.BackendBadger }

func (s *Store) GetConfigPath() string {
	if s.inMemory {
		return ":memory:"
	}
	return s.dir
}

func (s *Store) Update(ctx context.Context, fn func(storage.Tx) error) error {
	return s.with(ctx, func(db *badger.DB) error {
		return db.Update(func(txn *badger.Txn) error {
			return fn(&tx{ctx: ctx, txn: txn})
		})
	})
}

func (s *Store) View(ctx context.Context, fn func(storage.Tx) error) error {
	return s.with(ctx, func(db *badger.DB) error {
		return db.View(func(txn *badger.Txn) error {
			return fn(&tx{ctx: ctx, txn: txn})
		})
	})
}

func (s *Store) with(ctx context.Context, fn func(*badger.DB) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.detached {
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.open(); err != nil {
			return err
		}
		defer func() {
			if err := s.Close(); err != nil {
				logger.Warn("Failed to close key-value store", "error", err)
			}
		}()
	} else if s.db == nil {
		return fmt.Errorf("storage not loaded")
	}
	return classify(fn(s.db))
}

// classify marks optimistic-concurrency conflicts as transient.
func classify(err error) error {
	if err == nil || apperrors.IsTransient(err) {
		return err
	}
	if errors.Is(err, badger.ErrConflict) {
		return apperrors.Transient(err)
	}
	return err
}

type tx struct {
	ctx context.Context
	txn *badger.Txn
}

func (t *tx) get(key string, v any, entity, id string) error {
	if err := t.ctx.Err(); err != nil {
		return err
	}
	item, err := t.txn.Get([]byte(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.NotFound(entity, id)
		}
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func (t *tx) has(key string) (bool, error) {
	_, err := t.txn.Get([]byte(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return false, err
}

func (t *tx) put(key string, v any) error {
	if err := t.ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return t.txn.Set([]byte(key), data)
}

func (t *tx) delete(key, entity, id string) error {
	ok, err := t.has(key)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound(entity, id)
	}
	return t.txn.Delete([]byte(key))
}

// scan calls fn for each key under prefix, starting at start (which must
// itself carry the prefix). fn returns false to stop early.
func (t *tx) scan(prefix, start string, values bool, fn func(key string, val []byte) (bool, error)) error {
	if err := t.ctx.Err(); err != nil {
		return err
	}
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = values
	it := t.txn.NewIterator(opts)
	defer it.Close()

	if start == "" {
		start = prefix
	}
	for it.Seek([]byte(start)); it.ValidForPrefix([]byte(prefix)); it.Next() {
		item := it.Item()
		var val []byte
		if values {
			var err error
			if val, err = item.ValueCopy(nil); err != nil {
				return err
			}
		}
		more, err := fn(string(item.KeyCopy(nil)), val)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

// scanValues decodes every value under prefix, starting at start, into a
// fresh T and passes it to keep. keep returns false to stop early.
func scanValues[T any](t *tx, prefix, start string, keep func(T) bool) ([]T, error) {
	out := []T{}
	err := t.scan(prefix, start, true, func(key string, val []byte) (bool, error) {
		var v T
		if err := json.Unmarshal(val, &v); err != nil {
			return false, fmt.Errorf("failed to decode %s: %w", key, err)
		}
		if keep != nil && !keep(v) {
			return false, nil
		}
		out = append(out, v)
		return true, nil
	})
	return out, err
}

// badgerLogger routes badger's internal logging through the application
// logger. Info chatter is demoted to debug.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logger.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logger.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}
