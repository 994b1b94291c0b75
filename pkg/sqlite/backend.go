// Package sqlite provides the public API for the SQLite library backend.
// This package exposes the factory function for creating SQLite backends
// while keeping implementation details internal.
package sqlite

import (
	"time"

	"github.com/mesh-intelligence/librarian/internal/sqlite"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	lib := sqlite.NewBackend()
//	err := lib.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".librarian-db",
//	})
//	defer lib.Detach()
func NewBackend() types.Library {
	return sqlite.NewBackend()
}

// NewBackendWithClock is NewBackend with a custom source for loan and
// return dates.
func NewBackendWithClock(now func() time.Time) types.Library {
	return sqlite.NewBackend(sqlite.WithClock(now))
}
