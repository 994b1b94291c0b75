package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema DDL for all tables. Every statement is idempotent so Attach can run
// it against an existing file.
const (
	createBooks = `CREATE TABLE IF NOT EXISTS books (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    author TEXT NOT NULL,
    year INTEGER,
    quantity INTEGER NOT NULL DEFAULT 1,
    available INTEGER NOT NULL DEFAULT 1
);`

	createMembers = `CREATE TABLE IF NOT EXISTS members (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    email TEXT UNIQUE,
    phone TEXT
);`

	// Foreign keys are declared for documentation; SQLite leaves them
	// unenforced because the connection never enables foreign_keys.
	createLoans = `CREATE TABLE IF NOT EXISTS loans (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    book_id INTEGER NOT NULL,
    member_id INTEGER NOT NULL,
    loan_date TEXT NOT NULL,
    return_date TEXT,
    returned INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (book_id) REFERENCES books(id),
    FOREIGN KEY (member_id) REFERENCES members(id)
);`
)

// Index DDL for the active-loan lookups done before deletes.
const (
	idxLoansBook   = `CREATE INDEX IF NOT EXISTS idx_loans_book ON loans(book_id, returned);`
	idxLoansMember = `CREATE INDEX IF NOT EXISTS idx_loans_member ON loans(member_id, returned);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createBooks,
	createMembers,
	createLoans,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxLoansBook,
	idxLoansMember,
}

// initSchema creates any missing table or index.
func initSchema(db *sqlx.DB) error {
	for _, stmt := range schemaDDL {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	for _, stmt := range indexDDL {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}
