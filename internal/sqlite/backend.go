// Package sqlite implements the SQLite storage backend for the librarian
// catalog. A Backend is attached to one database file for the duration of a
// single user action and detached afterwards.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"github.com/jmoiron/sqlx"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

const driverName = "sqlite"

func init() {
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// Compile-time interface check: Backend must implement Library.
var _ types.Library = (*Backend)(nil)

// Backend implements the Library interface on top of a single SQLite file.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sqlx.DB
	now      func() time.Time
	retry    *repeater.Repeater
	busyWait time.Duration

	books   *booksTable
	members *membersTable
	loans   *loansTable
}

// Option configures a Backend.
type Option func(*Backend)

// WithClock replaces the clock used to stamp loan and return dates.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		if now != nil {
			b.now = now
		}
	}
}

// WithBusyRetry sets how often a transaction that failed with SQLITE_BUSY
// is retried and the initial pause between attempts.
func WithBusyRetry(repeats int, pause time.Duration) Option {
	return func(b *Backend) {
		b.retry = repeater.New(&strategy.Backoff{Repeats: repeats, Duration: pause, Factor: 2})
	}
}

// WithBusyTimeout sets how long SQLite itself waits on a locked database
// before reporting SQLITE_BUSY.
func WithBusyTimeout(d time.Duration) Option {
	return func(b *Backend) {
		if d >= 0 {
			b.busyWait = d
		}
	}
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		now:      time.Now,
		retry:    repeater.New(&strategy.Backoff{Repeats: 3, Duration: 50 * time.Millisecond, Factor: 2}),
		busyWait: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.books = &booksTable{backend: b}
	b.members = &membersTable{backend: b}
	b.loans = &loansTable{backend: b}
	return b
}

// Attach opens the database file named by config, creating DataDir and the
// schema if they do not exist. Existing data is kept.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dbPath := config.DBPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sqlx.Open(driverName, dsn(dbPath, b.busyWait))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	// One writer, one connection: statements of a call see each other.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return fmt.Errorf("%w (also failed to close db: %v)", err, closeErr)
		}
		return err
	}

	b.db = db
	b.config = config
	b.attached = true
	log.Printf("[DEBUG] attached %s", dbPath)
	return nil
}

// dsn carries per-connection pragmas so every pooled connection gets them.
func dsn(path string, busyWait time.Duration) string {
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)", path, busyWait.Milliseconds())
}

// Detach closes the database. After Detach, all table operations return
// ErrLibraryDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	b.attached = false
	db := b.db
	b.db = nil
	if err := db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	log.Printf("[DEBUG] detached %s", b.config.DBPath())
	return nil
}

// Books returns the book catalog.
func (b *Backend) Books() types.BookTable { return b.books }

// Members returns the member catalog.
func (b *Backend) Members() types.MemberTable { return b.members }

// Loans returns the loan records.
func (b *Backend) Loans() types.LoanTable { return b.loans }

// Path returns the database file of the current or last configuration.
func (b *Backend) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config.DBPath()
}

// handle returns the open database or ErrLibraryDetached.
func (b *Backend) handle() (*sqlx.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrLibraryDetached
	}
	return b.db, nil
}

// today returns the current calendar date.
func (b *Backend) today() string {
	return types.FormatDate(b.now())
}

// withTx runs fn inside a transaction, committing when fn returns nil.
// A transaction that fails because another process holds the database
// lock is retried from the start; any other error is returned as is.
func (b *Backend) withTx(fn func(tx *sqlx.Tx) error) error {
	db, err := b.handle()
	if err != nil {
		return err
	}

	var txErr error
	err = b.retry.Do(context.Background(), func() error {
		txErr = runTx(db, fn)
		if isBusy(txErr) {
			log.Printf("[DEBUG] database busy, retrying: %v", txErr)
			return txErr
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("database busy: %w", err)
	}
	return txErr
}

func runTx(db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// isBusy reports whether err is SQLITE_BUSY or SQLITE_LOCKED.
func isBusy(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code() & 0xff
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}
