package types

import "errors"

// Library defines backend-agnostic access to the catalog.
// Callers attach to a backend, use the tables, and detach when done.
type Library interface {
	// Attach opens the backend described by config and creates the schema
	// if it is absent. Returns ErrAlreadyAttached if called twice.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent.
	Detach() error

	Books() BookTable
	Members() MemberTable
	Loans() LoanTable
}

// Library lifecycle errors.
var (
	ErrLibraryDetached = errors.New("library is detached")
	ErrAlreadyAttached = errors.New("library is already attached")
)
