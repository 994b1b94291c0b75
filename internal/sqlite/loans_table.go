package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	log "github.com/go-pkgz/lgr"
	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// Compile-time interface check: loansTable must implement LoanTable.
var _ types.LoanTable = (*loansTable)(nil)

// loansTable implements loan creation, return and listing. Loans never touch
// the book's quantity or availability flag.
type loansTable struct {
	backend *Backend
}

// Create records an active loan dated today. Both the book and the member
// must exist.
func (lt *loansTable) Create(bookID, memberID int64) (*types.Loan, error) {
	if bookID <= 0 || memberID <= 0 {
		return nil, types.ErrInvalidID
	}

	loan := types.NewLoan(bookID, memberID, lt.backend.now())
	err := lt.backend.withTx(func(tx *sqlx.Tx) error {
		found, err := exists(tx, tableBooks, bookID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("book %d: %w", bookID, types.ErrBookNotFound)
		}
		found, err = exists(tx, tableMembers, memberID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("member %d: %w", memberID, types.ErrMemberNotFound)
		}

		res, err := tx.Exec(
			"INSERT INTO loans (book_id, member_id, loan_date, return_date, returned) VALUES (?, ?, ?, NULL, 0)",
			loan.BookID, loan.MemberID, loan.LoanDate,
		)
		if err != nil {
			return fmt.Errorf("inserting loan: %w", err)
		}
		loan.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading loan id: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[DEBUG] loan %d created: book %d to member %d", loan.ID, bookID, memberID)
	return &loan, nil
}

// Get retrieves a loan by ID.
func (lt *loansTable) Get(id int64) (*types.Loan, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	db, err := lt.backend.handle()
	if err != nil {
		return nil, err
	}
	return getLoan(db, id)
}

// Return marks the loan returned today. The prior state is not checked.
func (lt *loansTable) Return(id int64) (*types.Loan, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}

	var loan *types.Loan
	err := lt.backend.withTx(func(tx *sqlx.Tx) error {
		var err error
		loan, err = getLoan(tx, id)
		if err != nil {
			return err
		}
		loan.Return(lt.backend.now())

		if _, err := tx.Exec(
			"UPDATE loans SET returned = 1, return_date = ? WHERE id = ?",
			*loan.ReturnDate, id,
		); err != nil {
			return fmt.Errorf("returning loan %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[DEBUG] loan %d returned on %s", id, *loan.ReturnDate)
	return loan, nil
}

// List returns every loan with its book title, member name and status.
func (lt *loansTable) List() ([]types.LoanView, error) {
	db, err := lt.backend.handle()
	if err != nil {
		return nil, err
	}
	rq, err := render(loanViews())
	if err != nil {
		return nil, err
	}
	views := []types.LoanView{}
	if err := db.Select(&views, rq.sql, rq.args...); err != nil {
		return nil, fmt.Errorf("querying loans: %w", err)
	}
	for i := range views {
		views[i].StatusText = views[i].Status()
	}
	return views, nil
}

func getLoan(q sqlx.Queryer, id int64) (*types.Loan, error) {
	rq, err := render(selectByID(tableLoans, loanColumns, id))
	if err != nil {
		return nil, err
	}
	var loan types.Loan
	if err := sqlx.Get(q, &loan, rq.sql, rq.args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting loan %d: %w", id, err)
	}
	return &loan, nil
}
