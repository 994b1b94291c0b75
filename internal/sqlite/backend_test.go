package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// testClock is a settable clock for date assertions.
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

// setupBackend attaches a Backend to a fresh database in a temp dir and
// detaches it when the test ends.
func setupBackend(t *testing.T, opts ...Option) *Backend {
	t.Helper()
	b := NewBackend(opts...)
	config := types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}
	require.NoError(t, b.Attach(config))
	t.Cleanup(func() { _ = b.Detach() })
	return b
}

func TestAttachCreatesSchema(t *testing.T) {
	b := setupBackend(t)

	db, err := b.handle()
	require.NoError(t, err)
	for _, table := range []string{"books", "members", "loans"} {
		var n int
		require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table))
		assert.Equal(t, 1, n, "table %s should exist", table)
	}
}

func TestAttachKeepsExistingData(t *testing.T) {
	dir := t.TempDir()
	config := types.Config{Backend: types.BackendSQLite, DataDir: dir, DBFile: "branch.db"}

	first := NewBackend()
	require.NoError(t, first.Attach(config))
	_, err := first.Books().Add(types.NewBook{Title: "Dune", Author: "Herbert", Year: "1965"})
	require.NoError(t, err)
	require.NoError(t, first.Detach())
	assert.FileExists(t, filepath.Join(dir, "branch.db"))

	second := NewBackend()
	require.NoError(t, second.Attach(config))
	defer second.Detach()

	books, err := second.Books().List()
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)
}

func TestAttachLifecycle(t *testing.T) {
	t.Run("double attach fails", func(t *testing.T) {
		b := setupBackend(t)
		err := b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()})
		assert.ErrorIs(t, err, types.ErrAlreadyAttached)
	})

	t.Run("invalid config rejected", func(t *testing.T) {
		b := NewBackend()
		err := b.Attach(types.Config{Backend: "", DataDir: t.TempDir()})
		assert.ErrorIs(t, err, types.ErrBackendEmpty)
	})

	t.Run("detach is idempotent", func(t *testing.T) {
		b := NewBackend()
		require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
		require.NoError(t, b.Detach())
		require.NoError(t, b.Detach())
	})

	t.Run("operations after detach fail", func(t *testing.T) {
		b := NewBackend()
		require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
		require.NoError(t, b.Detach())

		_, err := b.Books().List()
		assert.ErrorIs(t, err, types.ErrLibraryDetached)
		_, err = b.Members().Add(types.NewMember{Name: "Ada"})
		assert.ErrorIs(t, err, types.ErrLibraryDetached)
		_, err = b.Loans().Create(1, 1)
		assert.ErrorIs(t, err, types.ErrLibraryDetached)
	})
}

func TestWithTxDoesNotRetryDomainErrors(t *testing.T) {
	b := setupBackend(t, WithBusyRetry(5, time.Millisecond))

	calls := 0
	err := b.withTx(func(tx *sqlx.Tx) error {
		calls++
		return types.ErrNotFound
	})
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, 1, calls)
	assert.False(t, isBusy(err))
	assert.False(t, isBusy(nil))
}

// lockDatabase holds an exclusive lock on the backend's file from a second
// connection until the returned release func runs.
func lockDatabase(t *testing.T, b *Backend) (release func()) {
	t.Helper()
	other, err := sqlx.Open(driverName, b.Path())
	require.NoError(t, err)
	other.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = other.Close() })

	_, err = other.Exec("BEGIN EXCLUSIVE")
	require.NoError(t, err)

	released := false
	return func() {
		if released {
			return
		}
		released = true
		_, err := other.Exec("COMMIT")
		require.NoError(t, err)
	}
}

func TestWithTxRetriesWhileBusy(t *testing.T) {
	b := setupBackend(t, WithBusyTimeout(0), WithBusyRetry(3, time.Millisecond))
	release := lockDatabase(t, b)
	defer release()

	calls := 0
	err := b.withTx(func(tx *sqlx.Tx) error {
		calls++
		_, err := tx.Exec("INSERT INTO members (name) VALUES (?)", "Ada")
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database busy")
	assert.True(t, isBusy(err))
	assert.Greater(t, calls, 1, "busy transaction must be retried")
}

func TestWithTxSucceedsAfterLockReleased(t *testing.T) {
	b := setupBackend(t, WithBusyTimeout(0), WithBusyRetry(3, time.Millisecond))
	release := lockDatabase(t, b)

	calls := 0
	err := b.withTx(func(tx *sqlx.Tx) error {
		calls++
		_, err := tx.Exec("INSERT INTO members (name) VALUES (?)", "Ada")
		if err != nil && calls == 1 {
			release()
		}
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	members, err := b.Members().List()
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "Ada", members[0].Name)
}

func TestDSNCarriesBusyTimeout(t *testing.T) {
	assert.Equal(t, "/tmp/x/library.db?_pragma=busy_timeout(5000)", dsn("/tmp/x/library.db", 5*time.Second))
	assert.Equal(t, "a.db?_pragma=busy_timeout(0)", dsn("a.db", 0))
}
