package types

import (
	"strconv"
	"strings"
)

// Book availability labels.
const (
	BookStatusAvailable = "Available"
	BookStatusBorrowed  = "Borrowed"
)

// Book is a catalog entry. Year is optional. Quantity is informational:
// loans neither decrement nor increment it.
type Book struct {
	ID        int64  `json:"id" db:"id"`
	Title     string `json:"title" db:"title"`
	Author    string `json:"author" db:"author"`
	Year      *int64 `json:"year,omitempty" db:"year"`
	Quantity  int64  `json:"quantity" db:"quantity"`
	Available bool   `json:"available" db:"available"`
}

// Status returns the availability label shown in listings.
func (b Book) Status() string {
	if b.Available {
		return BookStatusAvailable
	}
	return BookStatusBorrowed
}

// NewBook carries the raw form input for Books().Add. Year is the text the
// user typed; an empty string means no year.
type NewBook struct {
	Title    string
	Author   string
	Year     string
	Quantity int64
}

// Normalize trims the text fields and checks them. It returns the parsed
// year (nil when Year is blank) or a validation error.
func (nb *NewBook) Normalize() (*int64, error) {
	nb.Title = strings.TrimSpace(nb.Title)
	nb.Author = strings.TrimSpace(nb.Author)
	nb.Year = strings.TrimSpace(nb.Year)

	if nb.Title == "" {
		return nil, ErrInvalidTitle
	}
	if nb.Author == "" {
		return nil, ErrInvalidAuthor
	}
	if nb.Quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if nb.Year == "" {
		return nil, nil
	}
	year, err := ParseYear(nb.Year)
	if err != nil {
		return nil, err
	}
	return &year, nil
}

// ParseYear accepts only a string of ASCII digits naming a positive year.
// Signs, spaces and fractions are rejected.
func ParseYear(s string) (int64, error) {
	if s == "" {
		return 0, ErrInvalidYear
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrInvalidYear
		}
	}
	year, err := strconv.ParseInt(s, 10, 64)
	if err != nil || year <= 0 {
		return 0, ErrInvalidYear
	}
	return year, nil
}

// SearchResult is the outcome of a catalog search. Selected holds the ID of
// the first match and is nil when nothing matched.
type SearchResult struct {
	Query    string `json:"query"`
	Books    []Book `json:"books"`
	Selected *int64 `json:"selected"`
}

// Found reports whether the search matched at least one book.
func (r *SearchResult) Found() bool {
	return len(r.Books) > 0
}
