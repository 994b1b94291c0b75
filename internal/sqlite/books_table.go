package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	log "github.com/go-pkgz/lgr"
	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// Compile-time interface check: booksTable must implement BookTable.
var _ types.BookTable = (*booksTable)(nil)

// booksTable implements the book catalog.
type booksTable struct {
	backend *Backend
}

// Add validates nb and inserts it as an available book. Quantity is stored
// as given, zero included.
func (bt *booksTable) Add(nb types.NewBook) (*types.Book, error) {
	year, err := nb.Normalize()
	if err != nil {
		return nil, err
	}

	var book *types.Book
	err = bt.backend.withTx(func(tx *sqlx.Tx) error {
		res, err := tx.Exec(
			"INSERT INTO books (title, author, year, quantity, available) VALUES (?, ?, ?, ?, 1)",
			nb.Title, nb.Author, year, nb.Quantity,
		)
		if err != nil {
			return fmt.Errorf("inserting book: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading book id: %w", err)
		}
		book, err = getBook(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[DEBUG] book %d added: %q by %q", book.ID, book.Title, book.Author)
	return book, nil
}

// Get retrieves a book by ID.
func (bt *booksTable) Get(id int64) (*types.Book, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	db, err := bt.backend.handle()
	if err != nil {
		return nil, err
	}
	return getBook(db, id)
}

// List returns all books in natural table order.
func (bt *booksTable) List() ([]types.Book, error) {
	db, err := bt.backend.handle()
	if err != nil {
		return nil, err
	}
	return selectBooks(db, selectAll(tableBooks, bookColumns))
}

// Search matches query against title, author and year. The first row of
// the result is selected.
func (bt *booksTable) Search(q string) (*types.SearchResult, error) {
	needle := strings.TrimSpace(q)
	if needle == "" {
		return nil, types.ErrEmptyQuery
	}

	db, err := bt.backend.handle()
	if err != nil {
		return nil, err
	}
	books, err := selectBooks(db, searchBooks(needle))
	if err != nil {
		return nil, err
	}

	result := &types.SearchResult{Query: needle, Books: books}
	if result.Found() {
		first := books[0].ID
		result.Selected = &first
	}
	log.Printf("[DEBUG] search %q matched %d book(s)", needle, len(books))
	return result, nil
}

// Delete removes a book. A book referenced by an active loan is kept and
// ErrActiveLoans is returned.
func (bt *booksTable) Delete(id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	err := bt.backend.withTx(func(tx *sqlx.Tx) error {
		return deleteGuarded(tx, tableBooks, colBookID, id)
	})
	if err != nil {
		return err
	}
	log.Printf("[DEBUG] book %d deleted", id)
	return nil
}

// ActiveLoans counts the unreturned loans of a book.
func (bt *booksTable) ActiveLoans(id int64) (int, error) {
	if id <= 0 {
		return 0, types.ErrInvalidID
	}
	db, err := bt.backend.handle()
	if err != nil {
		return 0, err
	}
	return activeLoans(db, tableBooks, colBookID, id)
}

// Borrow clears the availability flag if it is set.
func (bt *booksTable) Borrow(id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	return bt.backend.withTx(func(tx *sqlx.Tx) error {
		res, err := tx.Exec("UPDATE books SET available = 0 WHERE id = ? AND available = 1", id)
		if err != nil {
			return fmt.Errorf("borrowing book %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("borrowing book %d: %w", id, err)
		}
		if n > 0 {
			log.Printf("[DEBUG] book %d borrowed", id)
			return nil
		}
		found, err := exists(tx, tableBooks, id)
		if err != nil {
			return err
		}
		if !found {
			return types.ErrNotFound
		}
		return types.ErrAlreadyBorrowed
	})
}

// Return sets the availability flag regardless of its current value.
func (bt *booksTable) Return(id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	return bt.backend.withTx(func(tx *sqlx.Tx) error {
		res, err := tx.Exec("UPDATE books SET available = 1 WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("returning book %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("returning book %d: %w", id, err)
		}
		if n == 0 {
			return types.ErrNotFound
		}
		log.Printf("[DEBUG] book %d returned", id)
		return nil
	})
}

// getBook reads one book through q, mapping a missing row to ErrNotFound.
func getBook(q sqlx.Queryer, id int64) (*types.Book, error) {
	rq, err := render(selectByID(tableBooks, bookColumns, id))
	if err != nil {
		return nil, err
	}
	var book types.Book
	if err := sqlx.Get(q, &book, rq.sql, rq.args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting book %d: %w", id, err)
	}
	return &book, nil
}

// selectBooks runs a book query and returns a non-nil slice.
func selectBooks(q sqlx.Queryer, ds *goqu.SelectDataset) ([]types.Book, error) {
	rq, err := render(ds)
	if err != nil {
		return nil, err
	}
	books := []types.Book{}
	if err := sqlx.Select(q, &books, rq.sql, rq.args...); err != nil {
		return nil, fmt.Errorf("querying books: %w", err)
	}
	return books, nil
}
