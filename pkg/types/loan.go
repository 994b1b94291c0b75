package types

import "time"

// DateLayout is the calendar-date format used for loan dates.
const DateLayout = "2006-01-02"

// Loan status labels.
const (
	LoanStatusActive   = "Active"
	LoanStatusReturned = "Returned"
)

// Loan records one book lent to one member. A loan starts active and moves
// once to returned; ReturnDate is set whenever Returned is true.
type Loan struct {
	ID         int64   `json:"id" db:"id"`
	BookID     int64   `json:"book_id" db:"book_id"`
	MemberID   int64   `json:"member_id" db:"member_id"`
	LoanDate   string  `json:"loan_date" db:"loan_date"`
	ReturnDate *string `json:"return_date" db:"return_date"`
	Returned   bool    `json:"returned" db:"returned"`
}

// NewLoan returns an active loan dated on the calendar day of now.
func NewLoan(bookID, memberID int64, now time.Time) Loan {
	return Loan{
		BookID:   bookID,
		MemberID: memberID,
		LoanDate: FormatDate(now),
	}
}

// Return marks the loan returned on the calendar day of now. It does not
// check the prior state; a second call moves the return date.
func (l *Loan) Return(now time.Time) {
	d := FormatDate(now)
	l.Returned = true
	l.ReturnDate = &d
}

// Status returns the loan's status label.
func (l Loan) Status() string {
	return loanStatus(l.Returned)
}

// LoanView is a loan joined with the title of its book and the name of its
// member. Title and name are empty when the referenced row is gone.
type LoanView struct {
	Loan
	BookTitle  string `json:"book_title" db:"book_title"`
	MemberName string `json:"member_name" db:"member_name"`
	StatusText string `json:"status" db:"-"`
}

func loanStatus(returned bool) string {
	if returned {
		return LoanStatusReturned
	}
	return LoanStatusActive
}

// FormatDate renders t as a calendar date in local time.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
