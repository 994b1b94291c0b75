package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

func TestLoansLifecycle(t *testing.T) {
	clock := &testClock{t: time.Date(2026, 5, 4, 10, 0, 0, 0, time.Local)}
	b := setupBackend(t, WithClock(clock.now))

	book, err := b.Books().Add(types.NewBook{Title: "Dune", Author: "Herbert", Quantity: 2})
	require.NoError(t, err)
	member, err := b.Members().Add(types.NewMember{Name: "Ada"})
	require.NoError(t, err)

	loan, err := b.Loans().Create(book.ID, member.ID)
	require.NoError(t, err)
	assert.Positive(t, loan.ID)
	assert.False(t, loan.Returned)
	assert.Nil(t, loan.ReturnDate)
	assert.Equal(t, "2026-05-04", loan.LoanDate)

	stored, err := b.Loans().Get(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, loan, stored)

	// Quantity and availability are informational and untouched by loans.
	got, err := b.Books().Get(book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Quantity)
	assert.True(t, got.Available)

	clock.t = time.Date(2026, 5, 18, 9, 30, 0, 0, time.Local)
	returned, err := b.Loans().Return(loan.ID)
	require.NoError(t, err)
	assert.True(t, returned.Returned)
	require.NotNil(t, returned.ReturnDate)
	assert.Equal(t, "2026-05-18", *returned.ReturnDate)

	stored, err = b.Loans().Get(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, returned, stored)
	assert.Equal(t, "2026-05-04", stored.LoanDate, "loan date never changes")
}

func TestLoansReturnAgainMovesDate(t *testing.T) {
	clock := &testClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.Local)}
	b := setupBackend(t, WithClock(clock.now))

	book, err := b.Books().Add(types.NewBook{Title: "Dune", Author: "Herbert"})
	require.NoError(t, err)
	member, err := b.Members().Add(types.NewMember{Name: "Ada"})
	require.NoError(t, err)
	loan, err := b.Loans().Create(book.ID, member.ID)
	require.NoError(t, err)

	_, err = b.Loans().Return(loan.ID)
	require.NoError(t, err)

	clock.t = clock.t.AddDate(0, 0, 3)
	again, err := b.Loans().Return(loan.ID)
	require.NoError(t, err, "second return is not an error")
	assert.True(t, again.Returned)
	assert.Equal(t, "2026-01-04", *again.ReturnDate)
}

func TestLoansCreateRejectsDanglingReferences(t *testing.T) {
	b := setupBackend(t)
	book, err := b.Books().Add(types.NewBook{Title: "Dune", Author: "Herbert"})
	require.NoError(t, err)
	member, err := b.Members().Add(types.NewMember{Name: "Ada"})
	require.NoError(t, err)

	_, err = b.Loans().Create(book.ID+100, member.ID)
	assert.ErrorIs(t, err, types.ErrBookNotFound)

	_, err = b.Loans().Create(book.ID, member.ID+100)
	assert.ErrorIs(t, err, types.ErrMemberNotFound)

	_, err = b.Loans().Create(0, member.ID)
	assert.ErrorIs(t, err, types.ErrInvalidID)

	views, err := b.Loans().List()
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestLoansReturnUnknown(t *testing.T) {
	b := setupBackend(t)
	_, err := b.Loans().Return(42)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestLoansList(t *testing.T) {
	b := setupBackend(t)
	dune, err := b.Books().Add(types.NewBook{Title: "Dune", Author: "Herbert"})
	require.NoError(t, err)
	emma, err := b.Books().Add(types.NewBook{Title: "Emma", Author: "Austen"})
	require.NoError(t, err)
	ada, err := b.Members().Add(types.NewMember{Name: "Ada"})
	require.NoError(t, err)

	first, err := b.Loans().Create(dune.ID, ada.ID)
	require.NoError(t, err)
	_, err = b.Loans().Create(emma.ID, ada.ID)
	require.NoError(t, err)
	_, err = b.Loans().Return(first.ID)
	require.NoError(t, err)

	// A book whose loans are all returned can go; its loans stay listed.
	require.NoError(t, b.Books().Delete(dune.ID))

	views, err := b.Loans().List()
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, first.ID, views[0].ID)
	assert.Equal(t, "", views[0].BookTitle)
	assert.Equal(t, "Ada", views[0].MemberName)
	assert.Equal(t, types.LoanStatusReturned, views[0].StatusText)

	assert.Equal(t, "Emma", views[1].BookTitle)
	assert.Equal(t, types.LoanStatusActive, views[1].StatusText)
	assert.Nil(t, views[1].ReturnDate)
}
