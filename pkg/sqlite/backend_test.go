package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

func TestNewBackendLifecycle(t *testing.T) {
	lib := NewBackend()
	require.NoError(t, lib.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))

	book, err := lib.Books().Add(types.NewBook{Title: "Dune", Author: "Frank Herbert", Year: "1965"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), book.ID)

	require.NoError(t, lib.Detach())
	_, err = lib.Books().List()
	assert.ErrorIs(t, err, types.ErrLibraryDetached)
}

func TestNewBackendWithClock(t *testing.T) {
	fixed := time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)
	lib := NewBackendWithClock(func() time.Time { return fixed })
	require.NoError(t, lib.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { _ = lib.Detach() })

	book, err := lib.Books().Add(types.NewBook{Title: "Emma", Author: "Jane Austen"})
	require.NoError(t, err)
	member, err := lib.Members().Add(types.NewMember{Name: "Ada"})
	require.NoError(t, err)

	loan, err := lib.Loans().Create(book.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09", loan.LoanDate)
}
