package types

import "errors"

// BookTable provides the catalog operations for books.
type BookTable interface {
	// Add validates the input and inserts a new available book.
	Add(nb NewBook) (*Book, error)

	// Get returns the book with the given ID or ErrNotFound.
	Get(id int64) (*Book, error)

	// List returns every book in natural table order.
	List() ([]Book, error)

	// Search returns books whose title, author or year contains query,
	// ignoring case. The first match is reported as selected.
	Search(query string) (*SearchResult, error)

	// ActiveLoans counts unreturned loans of the book. Returns ErrNotFound
	// for a missing book.
	ActiveLoans(id int64) (int, error)

	// Delete removes a book with no active loans.
	Delete(id int64) error

	// Borrow flips the availability flag from available to borrowed.
	// Returns ErrAlreadyBorrowed when the flag was already cleared.
	Borrow(id int64) error

	// Return marks the book available again, whatever its current flag.
	Return(id int64) error
}

// MemberTable provides the catalog operations for members.
type MemberTable interface {
	Add(nm NewMember) (*Member, error)
	Get(id int64) (*Member, error)
	List() ([]Member, error)
	ActiveLoans(id int64) (int, error)
	Delete(id int64) error
}

// LoanTable provides loan creation, return and listing.
type LoanTable interface {
	// Create records a loan of bookID to memberID dated today.
	Create(bookID, memberID int64) (*Loan, error)

	// Get returns the loan with the given ID or ErrNotFound.
	Get(id int64) (*Loan, error)

	// Return marks the loan returned today. Returning an already returned
	// loan moves its return date; it is not an error.
	Return(id int64) (*Loan, error)

	// List returns every loan joined with its book title and member name.
	List() ([]LoanView, error)
}

// Table operation errors.
var (
	ErrNotFound       = errors.New("entity not found")
	ErrInvalidID      = errors.New("invalid entity ID")
	ErrNoSelection    = errors.New("no entity selected")
	ErrActiveLoans    = errors.New("entity has active loans")
	ErrBookNotFound   = errors.New("book not found")
	ErrMemberNotFound = errors.New("member not found")
	ErrNotEmpty       = errors.New("library is not empty")
)

// Entity validation errors.
var (
	ErrInvalidTitle    = errors.New("title must not be empty")
	ErrInvalidAuthor   = errors.New("author must not be empty")
	ErrInvalidYear     = errors.New("year must be a positive integer")
	ErrInvalidQuantity = errors.New("quantity must not be negative")
	ErrInvalidName     = errors.New("name must not be empty")
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrEmptyQuery      = errors.New("search query must not be empty")
	ErrNoMatches       = errors.New("no books matched")
)

// State errors.
var (
	ErrAlreadyBorrowed = errors.New("book is already borrowed")
)
