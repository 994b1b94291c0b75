package sqlite

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// Export file names.
const (
	booksJSONL   = "books.jsonl"
	membersJSONL = "members.jsonl"
	loansJSONL   = "loans.jsonl"
	manifestJSON = "manifest.json"
)

// jsonlTableMapping maps JSONL files to their tables and columns, in load
// order.
var jsonlTableMapping = []struct {
	file    string
	table   string
	columns []string
}{
	{booksJSONL, tableBooks, []string{colID, colTitle, colAuthor, colYear, colQuantity, colAvailable}},
	{membersJSONL, tableMembers, []string{colID, colName, colEmail, colPhone}},
	{loansJSONL, tableLoans, []string{colID, colBookID, colMemberID, colLoanDate, colReturnDate, colReturned}},
}

// Manifest describes one export.
type Manifest struct {
	ExportID  string    `json:"export_id"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source"`
	Books     int       `json:"books"`
	Members   int       `json:"members"`
	Loans     int       `json:"loans"`
}

// Export writes every table to dir as JSONL plus a manifest.json. Each file
// is replaced atomically.
func (b *Backend) Export(dir string) (*Manifest, error) {
	books, err := b.books.List()
	if err != nil {
		return nil, err
	}
	members, err := b.members.List()
	if err != nil {
		return nil, err
	}
	loans, err := b.allLoans()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export dir: %w", err)
	}
	if err := writeJSONL(filepath.Join(dir, booksJSONL), books); err != nil {
		return nil, fmt.Errorf("writing %s: %w", booksJSONL, err)
	}
	if err := writeJSONL(filepath.Join(dir, membersJSONL), members); err != nil {
		return nil, fmt.Errorf("writing %s: %w", membersJSONL, err)
	}
	if err := writeJSONL(filepath.Join(dir, loansJSONL), loans); err != nil {
		return nil, fmt.Errorf("writing %s: %w", loansJSONL, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating export id: %w", err)
	}
	m := &Manifest{
		ExportID:  id.String(),
		CreatedAt: b.now().UTC(),
		Source:    b.Path(),
		Books:     len(books),
		Members:   len(members),
		Loans:     len(loans),
	}
	err = writeAtomic(filepath.Join(dir, manifestJSON), func(w *bufio.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	})
	if err != nil {
		return nil, fmt.Errorf("writing %s: %w", manifestJSON, err)
	}

	log.Printf("[INFO] export %s: %d books, %d members, %d loans", m.ExportID, m.Books, m.Members, m.Loans)
	return m, nil
}

// Import loads an export directory into an empty library. Loading is
// transactional: all files load or nothing does. Ids are preserved. Missing
// files count as empty and malformed lines are skipped.
func (b *Backend) Import(dir string) (*Manifest, error) {
	m := &Manifest{}
	if raw, err := os.ReadFile(filepath.Join(dir, manifestJSON)); err == nil {
		if err := json.Unmarshal(raw, m); err != nil {
			log.Printf("[WARN] ignoring unreadable %s: %v", manifestJSON, err)
			m = &Manifest{}
		}
	}

	loaded := map[string]int{}
	err := b.withTx(func(tx *sqlx.Tx) error {
		for _, mapping := range jsonlTableMapping {
			n, err := count(tx, countRows(mapping.table))
			if err != nil {
				return fmt.Errorf("counting %s: %w", mapping.table, err)
			}
			if n > 0 {
				return fmt.Errorf("%s has %d row(s): %w", mapping.table, n, types.ErrNotEmpty)
			}
		}

		for _, mapping := range jsonlTableMapping {
			records, err := readJSONL(filepath.Join(dir, mapping.file))
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					continue
				}
				return err
			}
			n, err := insertRecords(tx, mapping.table, mapping.columns, records)
			if err != nil {
				return fmt.Errorf("loading %s into %s: %w", mapping.file, mapping.table, err)
			}
			loaded[mapping.table] = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.Books, m.Members, m.Loans = loaded[tableBooks], loaded[tableMembers], loaded[tableLoans]
	log.Printf("[INFO] import from %s: %d books, %d members, %d loans", dir, m.Books, m.Members, m.Loans)
	return m, nil
}

// allLoans reads raw loan rows for export.
func (b *Backend) allLoans() ([]types.Loan, error) {
	db, err := b.handle()
	if err != nil {
		return nil, err
	}
	rq, err := render(selectAll(tableLoans, loanColumns))
	if err != nil {
		return nil, err
	}
	loans := []types.Loan{}
	if err := db.Select(&loans, rq.sql, rq.args...); err != nil {
		return nil, fmt.Errorf("querying loans: %w", err)
	}
	return loans, nil
}

// insertRecords inserts parsed JSONL records into a table. Only listed
// columns are read; unknown fields are ignored. Records that cannot be
// decoded are skipped; constraint failures abort the load.
func insertRecords(tx *sqlx.Tx, table string, columns []string, records []jsoniter.RawMessage) (int, error) {
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range records {
		var obj map[string]any
		if err := json.Unmarshal(rec, &obj); err != nil {
			continue
		}

		args := make([]any, len(columns))
		for i, col := range columns {
			args[i] = columnValue(obj[col])
		}
		if _, err := stmt.Exec(args...); err != nil {
			return inserted, fmt.Errorf("inserting record %v: %w", obj[colID], err)
		}
		inserted++
	}
	return inserted, nil
}

// columnValue converts integral JSON numbers and booleans to integers so id
// and flag columns keep their integer storage class.
func columnValue(v any) any {
	switch x := v.(type) {
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x)
		}
	}
	return v
}
