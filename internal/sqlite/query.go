package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

const (
	dialectSQLite = "sqlite3"

	tableBooks   = "books"
	tableMembers = "members"
	tableLoans   = "loans"

	colID         = "id"
	colTitle      = "title"
	colAuthor     = "author"
	colYear       = "year"
	colQuantity   = "quantity"
	colAvailable  = "available"
	colName       = "name"
	colEmail      = "email"
	colPhone      = "phone"
	colBookID     = "book_id"
	colMemberID   = "member_id"
	colLoanDate   = "loan_date"
	colReturnDate = "return_date"
	colReturned   = "returned"
	colBookTitle  = "book_title"
	colMemberName = "member_name"
)

var (
	bookColumns   = []any{colID, colTitle, colAuthor, colYear, colQuantity, colAvailable}
	memberColumns = []any{colID, colName, colEmail, colPhone}
	loanColumns   = []any{colID, colBookID, colMemberID, colLoanDate, colReturnDate, colReturned}
)

// query is a rendered statement with its positional arguments.
type query struct {
	sql  string
	args []any
}

func dialect() goqu.DialectWrapper {
	return goqu.Dialect(dialectSQLite)
}

// render turns a goqu dataset into prepared SQL with ? placeholders.
func render(ds *goqu.SelectDataset) (query, error) {
	sql, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return query{}, fmt.Errorf("building query: %w", err)
	}
	return query{sql: sql, args: args}, nil
}

// selectAll reads every row of table in natural (ascending id) order.
func selectAll(table string, cols []any) *goqu.SelectDataset {
	return dialect().From(table).Select(cols...).Order(goqu.C(colID).Asc())
}

// selectByID reads one row of table.
func selectByID(table string, cols []any, id int64) *goqu.SelectDataset {
	return dialect().From(table).Select(cols...).Where(goqu.C(colID).Eq(id))
}

// containsFold matches rows where column, read as text, contains needle
// regardless of ASCII case. instr avoids LIKE so % and _ are literal.
func containsFold(column, needle string) exp.LiteralExpression {
	return goqu.L(fmt.Sprintf("instr(lower(CAST(%s AS TEXT)), lower(?)) > 0", column), needle)
}

// searchBooks matches title, author or year.
func searchBooks(needle string) *goqu.SelectDataset {
	return selectAll(tableBooks, bookColumns).Where(goqu.Or(
		containsFold(colTitle, needle),
		containsFold(colAuthor, needle),
		containsFold(colYear, needle),
	))
}

// countActiveLoans counts unreturned loans where column equals id.
func countActiveLoans(column string, id int64) *goqu.SelectDataset {
	return dialect().From(tableLoans).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.C(column).Eq(id), goqu.C(colReturned).Eq(0))
}

// activeLoans counts unreturned loans whose refColumn points at row id of
// table. A missing row is ErrNotFound.
func activeLoans(q sqlx.Queryer, table, refColumn string, id int64) (int, error) {
	found, err := exists(q, table, id)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, types.ErrNotFound
	}
	n, err := count(q, countActiveLoans(refColumn, id))
	if err != nil {
		return 0, fmt.Errorf("counting active loans: %w", err)
	}
	return n, nil
}

// deleteGuarded deletes row id of table unless an active loan references
// it through refColumn. The check and the delete share tx.
func deleteGuarded(tx *sqlx.Tx, table, refColumn string, id int64) error {
	active, err := activeLoans(tx, table, refColumn, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return fmt.Errorf("%s %d has %d active loan(s): %w", table, id, active, types.ErrActiveLoans)
	}
	if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id); err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}
	return nil
}

// countRows counts all rows of table.
func countRows(table string) *goqu.SelectDataset {
	return dialect().From(table).Select(goqu.COUNT(goqu.Star()))
}

// loanViews joins loans with their book and member. Left joins keep loans
// whose book or member has since been deleted.
func loanViews() *goqu.SelectDataset {
	l, b, m := goqu.T(tableLoans).As("l"), goqu.T(tableBooks).As("b"), goqu.T(tableMembers).As("m")
	return dialect().From(l).
		LeftJoin(b, goqu.On(goqu.I("b.id").Eq(goqu.I("l.book_id")))).
		LeftJoin(m, goqu.On(goqu.I("m.id").Eq(goqu.I("l.member_id")))).
		Select(
			goqu.I("l.id").As(colID),
			goqu.I("l.book_id").As(colBookID),
			goqu.I("l.member_id").As(colMemberID),
			goqu.I("l.loan_date").As(colLoanDate),
			goqu.I("l.return_date").As(colReturnDate),
			goqu.I("l.returned").As(colReturned),
			goqu.COALESCE(goqu.I("b.title"), "").As(colBookTitle),
			goqu.COALESCE(goqu.I("m.name"), "").As(colMemberName),
		).
		Order(goqu.I("l.id").Asc())
}

// exists reports whether table holds a row with the given id.
func exists(q sqlx.Queryer, table string, id int64) (bool, error) {
	rq, err := render(dialect().From(table).Select(goqu.COUNT(goqu.Star())).Where(goqu.C(colID).Eq(id)))
	if err != nil {
		return false, err
	}
	var n int
	if err := sqlx.Get(q, &n, rq.sql, rq.args...); err != nil {
		return false, fmt.Errorf("checking %s %d: %w", table, id, err)
	}
	return n > 0, nil
}

// count runs a COUNT(*) dataset.
func count(q sqlx.Queryer, ds *goqu.SelectDataset) (int, error) {
	rq, err := render(ds)
	if err != nil {
		return 0, err
	}
	var n int
	if err := sqlx.Get(q, &n, rq.sql, rq.args...); err != nil {
		return 0, err
	}
	return n, nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}
